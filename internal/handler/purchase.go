package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// PurchaseService is order fulfillment as seen by HTTP clients.
type PurchaseService interface {
    CreatePurchase(ctx context.Context, caller model.Caller) (*model.Purchase, error)
    GetPurchase(ctx context.Context, caller model.Caller, id uint64) (*model.PurchaseDetail, error)
    CreateTicket(ctx context.Context, caller model.Caller, purchaseID uint64, key model.SeatKey, priceCents uint32) (*model.Ticket, error)
    DeleteTicket(ctx context.Context, caller model.Caller, ticketID uint64) error
    CancelPurchase(ctx context.Context, caller model.Caller, purchaseID uint64) (*model.CancelResult, error)
}

type PurchaseHandler struct {
    Purchases PurchaseService
}

func NewPurchaseHandler(p PurchaseService) *PurchaseHandler {
    if p == nil {
        panic("nil purchase service passed to NewPurchaseHandler")
    }
    return &PurchaseHandler{Purchases: p}
}

// CreatePurchase handles POST /v1/purchases.
func (h *PurchaseHandler) CreatePurchase(c echo.Context) error {
    p, err := h.Purchases.CreatePurchase(c.Request().Context(), caller(c))
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// GetPurchase handles GET /v1/purchases/:id.
func (h *PurchaseHandler) GetPurchase(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid purchase id")
    }
    d, err := h.Purchases.GetPurchase(c.Request().Context(), caller(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

type ticketRequest struct {
    ShowID     uint64 `json:"show_id"`
    RowLabel   string `json:"row_label"`
    SeatNumber uint32 `json:"seat_number"`
    PriceCents uint32 `json:"price_cents"`
}

// CreateTicket handles POST /v1/purchases/:id/tickets.  The seat may be
// held by the caller or free; price_cents defaults to the screening price.
func (h *PurchaseHandler) CreateTicket(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid purchase id")
    }
    var body ticketRequest
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    if body.ShowID == 0 || body.RowLabel == "" || body.SeatNumber == 0 {
        return badRequest(c, "show_id, row_label and seat_number are required")
    }
    key := model.SeatKey{ShowID: body.ShowID, RowLabel: body.RowLabel, SeatNumber: body.SeatNumber}
    t, err := h.Purchases.CreateTicket(c.Request().Context(), caller(c), id, key, body.PriceCents)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, t)
}

// DeleteTicket handles DELETE /v1/tickets/:id and frees the seat.
func (h *PurchaseHandler) DeleteTicket(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid ticket id")
    }
    if err := h.Purchases.DeleteTicket(c.Request().Context(), caller(c), id); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

// CancelPurchase handles POST /v1/purchases/:id/cancel.
func (h *PurchaseHandler) CancelPurchase(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return badRequest(c, "invalid purchase id")
    }
    res, err := h.Purchases.CancelPurchase(c.Request().Context(), caller(c), id)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, res)
}
