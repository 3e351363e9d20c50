// Package service implements the booking core: the seat inventory state
// machine, room scheduling and order fulfillment.  Services talk to the
// relational store through the interfaces below; the MySQL implementation
// lives in the repository package.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// TxRunner runs fn inside a transaction carried by the context passed to
// fn.  Store calls made with that context join the transaction.  Calling
// WithTx with a context that already carries a transaction reuses it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RoomStore reads the room catalog.  LockRoom takes a row lock for the rest
// of the transaction so schedule writers on one room serialize.
type RoomStore interface {
	GetRoom(ctx context.Context, id uint64) (*model.Room, error)
	LockRoom(ctx context.Context, id uint64) (*model.Room, error)
}

// ScheduleStore persists screenings and room rentals.  ListEntries returns
// the ACTIVE screenings and all rentals of one room on one date.
type ScheduleStore interface {
	GetScreening(ctx context.Context, id uint64) (*model.Screening, error)
	CreateScreening(ctx context.Context, s *model.Screening) error
	UpdateScreening(ctx context.Context, s *model.Screening) error
	DeleteScreening(ctx context.Context, id uint64) error
	RetireScreening(ctx context.Context, id uint64) error
	ScreeningReferenced(ctx context.Context, id uint64) (bool, error)

	GetRental(ctx context.Context, id uint64) (*model.RoomRental, error)
	CreateRental(ctx context.Context, r *model.RoomRental) error
	UpdateRental(ctx context.Context, r *model.RoomRental) error
	DeleteRental(ctx context.Context, id uint64) error

	ListEntries(ctx context.Context, roomID uint64, date string) ([]model.ScheduleEntry, error)
}

// ReservationStore persists seat_reservations rows.
//
// FindReservation returns (nil, nil) when the seat has no row.
// InsertReservation returns model.ErrDuplicate when the seat key is taken.
// DeleteStaleReservation removes the row only if it is still a hold that
// expired at or before now.  DeleteExpiredHolds removes up to limit stale
// rows and returns how many it removed.
type ReservationStore interface {
	FindReservation(ctx context.Context, key model.SeatKey) (*model.SeatReservation, error)
	FindReservationForUpdate(ctx context.Context, key model.SeatKey) (*model.SeatReservation, error)
	InsertReservation(ctx context.Context, r *model.SeatReservation) error
	MarkOccupied(ctx context.Context, id, holderID uint64, now time.Time) error
	DeleteReservation(ctx context.Context, id uint64) error
	DeleteReservationByKey(ctx context.Context, key model.SeatKey) (bool, error)
	DeleteStaleReservation(ctx context.Context, id uint64, now time.Time) (bool, error)
	ListReservations(ctx context.Context, showID uint64) ([]model.SeatReservation, error)
	DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error)
}

// PurchaseStore persists purchases, their line items and payment state.
// GetPurchase fills PaymentStatus from the payments table.
type PurchaseStore interface {
	CreatePurchase(ctx context.Context, p *model.Purchase) error
	GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error)
	GetPurchaseForUpdate(ctx context.Context, id uint64) (*model.Purchase, error)
	DeletePurchase(ctx context.Context, id uint64) error
	DeleteLineItems(ctx context.Context, purchaseID uint64) (int64, error)
	UpsertPayment(ctx context.Context, purchaseID uint64, status, providerRef string) error
}

// TicketStore persists tickets.  InsertTicket returns model.ErrDuplicate
// when the seat reservation already has a ticket.
type TicketStore interface {
	InsertTicket(ctx context.Context, t *model.Ticket) error
	GetTicket(ctx context.Context, id uint64) (*model.Ticket, error)
	ListTickets(ctx context.Context, purchaseID uint64) ([]model.Ticket, error)
	DeleteTicket(ctx context.Context, id uint64) error
}

// Store is everything the booking core needs from persistence.
type Store interface {
	TxRunner
	RoomStore
	ScheduleStore
	ReservationStore
	PurchaseStore
	TicketStore
}

// EventPublisher sends a domain event.  Publishing happens after commit and
// failures never roll back the operation.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
