package model

import "time"

// Payment statuses reported by the payment collaborator.  A purchase whose
// payment is COMPLETED or PROCESSED can no longer be cancelled or have
// tickets removed.
const (
    PaymentPending   = "PENDING"
    PaymentCompleted = "COMPLETED"
    PaymentProcessed = "PROCESSED"
    PaymentFailed    = "FAILED"
    PaymentRefunded  = "REFUNDED"
)

// IsSettledPayment reports whether status locks the purchase.
func IsSettledPayment(status string) bool {
    return status == PaymentCompleted || status == PaymentProcessed
}

// ValidPaymentStatus reports whether status is one of the known values.
func ValidPaymentStatus(status string) bool {
    switch status {
    case PaymentPending, PaymentCompleted, PaymentProcessed, PaymentFailed, PaymentRefunded:
        return true
    }
    return false
}

// Purchase groups the tickets and line items bought together by one user.
// It is the unit of atomic cancellation.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – user who owns the purchase.
//  PaymentStatus – status of the attached payment, empty when none.
//  CreatedAt     – creation timestamp.
type Purchase struct {
    ID            uint64    `json:"id"`
    UserID        uint64    `json:"user_id"`
    PaymentStatus string    `json:"payment_status,omitempty"`
    CreatedAt     time.Time `json:"created_at"`
}

// Locked reports whether the attached payment forbids changes.
func (p *Purchase) Locked() bool { return IsSettledPayment(p.PaymentStatus) }

// Ticket is the purchase-side counterpart of an occupied seat reservation.
// SeatReservationID is unique: one ticket per reservation.
type Ticket struct {
    ID                uint64    `json:"id"`
    PurchaseID        uint64    `json:"purchase_id"`
    SeatReservationID uint64    `json:"seat_reservation_id"`
    ShowID            uint64    `json:"show_id"`
    RowLabel          string    `json:"row_label"`
    SeatNumber        uint32    `json:"seat_number"`
    PriceCents        uint32    `json:"price_cents"`
    Code              string    `json:"code"`
    CreatedAt         time.Time `json:"created_at"`
}

// Key returns the seat the ticket occupies.
func (t *Ticket) Key() SeatKey {
    return SeatKey{ShowID: t.ShowID, RowLabel: t.RowLabel, SeatNumber: t.SeatNumber}
}

// PurchaseDetail is a purchase with its tickets.
type PurchaseDetail struct {
    Purchase
    Tickets []Ticket `json:"tickets"`
}

// CancelResult reports what a purchase cancellation removed.
type CancelResult struct {
    PurchaseID       uint64 `json:"purchase_id"`
    ReleasedSeats    int    `json:"released_seats"`
    DeletedTickets   int    `json:"deleted_tickets"`
    DeletedLineItems int64  `json:"deleted_line_items"`
}
