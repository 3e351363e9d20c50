package handler

import (
    "context"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-core/internal/model"
    "github.com/iliyamo/cinema-booking-core/internal/service"
)

// ScheduleService places screenings and rentals into rooms.
type ScheduleService interface {
    CheckAvailability(ctx context.Context, roomID uint64, date, start, end string, exclude []model.EntryRef) (*model.Availability, error)
    FindOpenSlots(ctx context.Context, roomID uint64, date string, minutes int) ([]model.Slot, error)
    CreateScreening(ctx context.Context, caller model.Caller, in service.ScreeningInput) (*model.Screening, error)
    UpdateScreening(ctx context.Context, caller model.Caller, id uint64, in service.ScreeningInput) (*model.Screening, error)
    DeleteScreening(ctx context.Context, caller model.Caller, id uint64) (bool, error)
    CreateRental(ctx context.Context, caller model.Caller, in service.RentalInput) (*model.RoomRental, error)
    UpdateRental(ctx context.Context, caller model.Caller, id uint64, in service.RentalInput) (*model.RoomRental, error)
    DeleteRental(ctx context.Context, caller model.Caller, id uint64) error
}

type ScheduleHandler struct {
    Schedule ScheduleService
}

func NewScheduleHandler(s ScheduleService) *ScheduleHandler {
    if s == nil {
        panic("nil schedule service passed to NewScheduleHandler")
    }
    return &ScheduleHandler{Schedule: s}
}

// Availability handles GET /v1/rooms/:id/availability?date=&start=&end=.
// exclude_screening and exclude_rental leave the entry being edited out of
// the check.
func (h *ScheduleHandler) Availability(c echo.Context) error {
    roomID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid room id")
    }
    var exclude []model.EntryRef
    for param, kind := range map[string]model.EntryKind{
        "exclude_screening": model.KindScreening,
        "exclude_rental":    model.KindRental,
    } {
        id, ok := queryID(c, param)
        if !ok {
            return badRequest(c, "invalid "+param)
        }
        if id != 0 {
            exclude = append(exclude, model.EntryRef{Kind: kind, ID: id})
        }
    }
    av, err := h.Schedule.CheckAvailability(c.Request().Context(), roomID,
        c.QueryParam("date"), c.QueryParam("start"), c.QueryParam("end"), exclude)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, av)
}

// OpenSlots handles GET /v1/rooms/:id/open-slots?date=&minutes=.
func (h *ScheduleHandler) OpenSlots(c echo.Context) error {
    roomID, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid room id")
    }
    minutes, err := strconv.Atoi(c.QueryParam("minutes"))
    if err != nil {
        return badRequest(c, "minutes must be an integer")
    }
    slots, err := h.Schedule.FindOpenSlots(c.Request().Context(), roomID, c.QueryParam("date"), minutes)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"room_id": roomID, "date": c.QueryParam("date"), "minutes": minutes, "slots": slots})
}

// CreateScreening handles POST /v1/screenings.
func (h *ScheduleHandler) CreateScreening(c echo.Context) error {
    var in service.ScreeningInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    sc, err := h.Schedule.CreateScreening(c.Request().Context(), caller(c), in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, sc)
}

// UpdateScreening handles PUT /v1/screenings/:id.
func (h *ScheduleHandler) UpdateScreening(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid screening id")
    }
    var in service.ScreeningInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    sc, err := h.Schedule.UpdateScreening(c.Request().Context(), caller(c), id, in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, sc)
}

// DeleteScreening handles DELETE /v1/screenings/:id.  A screening that
// still has reservations or tickets is retired instead of deleted.
func (h *ScheduleHandler) DeleteScreening(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid screening id")
    }
    retired, err := h.Schedule.DeleteScreening(c.Request().Context(), caller(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": !retired, "retired": retired})
}

// CreateRental handles POST /v1/rentals.
func (h *ScheduleHandler) CreateRental(c echo.Context) error {
    var in service.RentalInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    r, err := h.Schedule.CreateRental(c.Request().Context(), caller(c), in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, r)
}

// UpdateRental handles PUT /v1/rentals/:id.
func (h *ScheduleHandler) UpdateRental(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid rental id")
    }
    var in service.RentalInput
    if err := c.Bind(&in); err != nil {
        return badRequest(c, "invalid request body")
    }
    r, err := h.Schedule.UpdateRental(c.Request().Context(), caller(c), id, in)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, r)
}

// DeleteRental handles DELETE /v1/rentals/:id.
func (h *ScheduleHandler) DeleteRental(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid rental id")
    }
    if err := h.Schedule.DeleteRental(c.Request().Context(), caller(c), id); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}
