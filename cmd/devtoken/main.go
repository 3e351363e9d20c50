// Command devtoken mints an access token for local testing of the API.
//
//	go run ./cmd/devtoken -user 7 -role CORPORATE
package main

import (
    "flag"
    "fmt"
    "log"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"

    "github.com/iliyamo/cinema-booking-core/internal/model"
    "github.com/iliyamo/cinema-booking-core/internal/utils"
)

func main() {
    _ = godotenv.Load()

    user := flag.Uint64("user", 1, "user id placed in the sub claim")
    role := flag.String("role", model.RoleCustomer, "ADMIN, CORPORATE or CUSTOMER")
    ttl := flag.Duration("ttl", 15*time.Minute, "token lifetime")
    flag.Parse()

    secret := os.Getenv("JWT_SECRET")
    if secret == "" {
        log.Fatal("JWT_SECRET is not set")
    }
    r := strings.ToUpper(*role)
    switch r {
    case model.RoleAdmin, model.RoleCorporate, model.RoleCustomer:
    default:
        log.Fatalf("unknown role %q", *role)
    }

    tok, err := utils.NewAccessToken(secret, *user, r, *ttl)
    if err != nil {
        log.Fatalf("sign: %v", err)
    }
    fmt.Println(tok.Token)
}
