package middleware

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// JWTAuth validates an HS256 Bearer token and stores the caller's user ID
// (uint64) and role under "user_id" and "role".  Handlers read them through
// CallerFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            if msg := authenticate(c, secret, strings.TrimPrefix(auth, "Bearer ")); msg != "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }
            return next(c)
        }
    }
}

// OptionalJWTAuth is JWTAuth for public routes: requests without an
// Authorization header pass through anonymously, a bad token is still 401.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
    strict := JWTAuth(secret)
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        guarded := strict(next)
        return func(c echo.Context) error {
            if c.Request().Header.Get("Authorization") == "" {
                return next(c)
            }
            return guarded(c)
        }
    }
}

// authenticate returns an error message, or "" after storing the caller.
func authenticate(c echo.Context, secret, raw string) string {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    if err != nil || !tok.Valid {
        return "invalid token"
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return "invalid claims"
    }
    id, ok := subject(claims["sub"])
    if !ok {
        return "invalid subject"
    }
    role, _ := claims["role"].(string)

    c.Set(ctxUserID, id)
    c.Set(ctxRole, role)
    return ""
}
