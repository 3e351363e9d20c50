package middleware

import (
    "encoding/json"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// Context keys written by JWTAuth.
const (
    ctxUserID = "user_id"
    ctxRole   = "role"
)

// CallerFrom returns the authenticated caller stored by JWTAuth.  ok is
// false on routes that did not run the middleware.
func CallerFrom(c echo.Context) (model.Caller, bool) {
    id, ok := c.Get(ctxUserID).(uint64)
    if !ok || id == 0 {
        return model.Caller{}, false
    }
    role, _ := c.Get(ctxRole).(string)
    return model.Caller{ID: id, Role: role}, true
}

// userID renders the caller for rate limit keys, "anon" when there is none.
func userID(c echo.Context) string {
    if caller, ok := CallerFrom(c); ok {
        return strconv.FormatUint(caller.ID, 10)
    }
    return "anon"
}

// subject converts a sub claim to a user ID.  Tokens minted by the identity
// service carry it as a JSON number; other issuers send a string.
func subject(v any) (uint64, bool) {
    switch t := v.(type) {
    case float64:
        if t <= 0 || t != float64(uint64(t)) {
            return 0, false
        }
        return uint64(t), true
    case json.Number:
        n, err := strconv.ParseUint(t.String(), 10, 64)
        return n, err == nil && n > 0
    case string:
        n, err := strconv.ParseUint(t, 10, 64)
        return n, err == nil && n > 0
    }
    return 0, false
}
