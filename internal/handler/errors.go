// Package handler adapts the booking services to HTTP.
package handler

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-core/internal/middleware"
    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// writeError maps the service error taxonomy onto status codes.  Schedule
// conflicts carry the colliding bookings.
func writeError(c echo.Context, err error) error {
    var sce *model.ScheduleConflictError
    if errors.As(err, &sce) {
        return c.JSON(http.StatusConflict, echo.Map{"error": sce.Error(), "conflicts": sce.Conflicts})
    }

    status := http.StatusInternalServerError
    switch {
    case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrInvalidState):
        status = http.StatusBadRequest
    case errors.Is(err, model.ErrNotFound):
        status = http.StatusNotFound
    case errors.Is(err, model.ErrForbidden):
        status = http.StatusForbidden
    case errors.Is(err, model.ErrConflict):
        status = http.StatusConflict
    }
    if status == http.StatusInternalServerError {
        c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(status, echo.Map{"error": "internal error"})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    return n, err == nil && n > 0
}

// queryID parses an optional positive integer query parameter; 0 when absent.
func queryID(c echo.Context, name string) (uint64, bool) {
    v := c.QueryParam(name)
    if v == "" {
        return 0, true
    }
    n, err := strconv.ParseUint(v, 10, 64)
    return n, err == nil && n > 0
}

// caller returns the authenticated identity.  Routes behind JWTAuth always
// have one; on public routes it is the zero Caller.
func caller(c echo.Context) model.Caller {
    cl, _ := middleware.CallerFrom(c)
    return cl
}
