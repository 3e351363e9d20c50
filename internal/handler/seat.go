package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// SeatService is the part of the seat inventory exposed over HTTP.
type SeatService interface {
    SeatMap(ctx context.Context, showID uint64, caller model.Caller) ([]model.SeatStatus, error)
    Hold(ctx context.Context, key model.SeatKey, caller model.Caller) (*model.SeatReservation, error)
    Release(ctx context.Context, key model.SeatKey, caller model.Caller) error
}

type SeatHandler struct {
    Seats SeatService
}

func NewSeatHandler(s SeatService) *SeatHandler {
    if s == nil {
        panic("nil seat service passed to NewSeatHandler")
    }
    return &SeatHandler{Seats: s}
}

// SeatMap handles GET /v1/shows/:id/seats.  Every seat of the room is
// listed as FREE, HELD or OCCUPIED; an authenticated caller's own holds
// are flagged with mine.
func (h *SeatHandler) SeatMap(c echo.Context) error {
    showID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid show id")
    }
    seats, err := h.Seats.SeatMap(c.Request().Context(), showID, caller(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"show_id": showID, "seats": seats})
}

// Hold handles POST /v1/shows/:id/seats/:row/:number/hold.
func (h *SeatHandler) Hold(c echo.Context) error {
    key, ok := seatKey(c)
    if !ok {
        return badRequest(c, "invalid seat")
    }
    res, err := h.Seats.Hold(c.Request().Context(), key, caller(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Release handles DELETE /v1/shows/:id/seats/:row/:number/hold.
func (h *SeatHandler) Release(c echo.Context) error {
    key, ok := seatKey(c)
    if !ok {
        return badRequest(c, "invalid seat")
    }
    if err := h.Seats.Release(c.Request().Context(), key, caller(c)); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"released": true, "seat": key})
}

// seatKey reads :id, :row and :number.  Row label normalization is left to
// the inventory.
func seatKey(c echo.Context) (model.SeatKey, bool) {
    showID, ok := pathID(c, "id")
    if !ok {
        return model.SeatKey{}, false
    }
    n, err := strconv.ParseUint(c.Param("number"), 10, 32)
    if err != nil || n == 0 || c.Param("row") == "" {
        return model.SeatKey{}, false
    }
    return model.SeatKey{ShowID: showID, RowLabel: c.Param("row"), SeatNumber: uint32(n)}, true
}
