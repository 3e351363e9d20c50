// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Routing keys on the booking exchange.
const (
    RoutingTicketCreated     = "ticket.created"
    RoutingPurchaseCancelled = "purchase.cancelled"
    RoutingPaymentStatus     = "payment.status"
)

// TicketCreatedEvent is published after a ticket has been committed.  It
// carries enough information for receipts and notifications without a
// lookup against the primary database.
type TicketCreatedEvent struct {
    TicketID   uint64    `json:"ticket_id"`
    Code       string    `json:"code"`
    PurchaseID uint64    `json:"purchase_id"`
    UserID     uint64    `json:"user_id"`
    ShowID     uint64    `json:"show_id"`
    RowLabel   string    `json:"row_label"`
    SeatNumber uint32    `json:"seat_number"`
    PriceCents uint32    `json:"price_cents"`
    CreatedAt  time.Time `json:"created_at"`
}

// PurchaseCancelledEvent is published after a purchase and all of its
// tickets were removed.
type PurchaseCancelledEvent struct {
    PurchaseID    uint64    `json:"purchase_id"`
    UserID        uint64    `json:"user_id"`
    ReleasedSeats int       `json:"released_seats"`
    Seats         []string  `json:"seats"`
    CancelledAt   time.Time `json:"cancelled_at"`
}

// PaymentStatusEvent is consumed from the payment service.  Status is one
// of PENDING, COMPLETED, PROCESSED, FAILED or REFUNDED.
type PaymentStatusEvent struct {
    PurchaseID  uint64 `json:"purchase_id"`
    Status      string `json:"status"`
    ProviderRef string `json:"provider_ref"`
}
