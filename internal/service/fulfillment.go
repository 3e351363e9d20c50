package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking-core/internal/clock"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/queue"
)

// Fulfillment ties tickets to seat reservations.  Every operation that
// touches both runs in one transaction so a ticket and its OCCUPIED row
// appear and disappear together.
type Fulfillment struct {
	store Store
	inv   *Inventory
	clock clock.Clock
	pub   EventPublisher
}

// NewFulfillment builds a Fulfillment.  pub may be nil, in which case no
// events are published.
func NewFulfillment(store Store, inv *Inventory, clk clock.Clock, pub EventPublisher) *Fulfillment {
	return &Fulfillment{store: store, inv: inv, clock: clk, pub: pub}
}

// CreatePurchase opens an empty purchase owned by the caller.
func (f *Fulfillment) CreatePurchase(ctx context.Context, caller model.Caller) (*model.Purchase, error) {
	if caller.ID == 0 {
		return nil, model.Errorf(model.ErrForbidden, "anonymous callers cannot purchase")
	}
	p := &model.Purchase{UserID: caller.ID, CreatedAt: f.clock.Now()}
	if err := f.store.CreatePurchase(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPurchase returns a purchase and its tickets.
func (f *Fulfillment) GetPurchase(ctx context.Context, caller model.Caller, id uint64) (*model.PurchaseDetail, error) {
	p, err := f.store.GetPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.Owns(p.UserID) {
		return nil, model.Errorf(model.ErrForbidden, "purchase %d belongs to another user", id)
	}
	tickets, err := f.store.ListTickets(ctx, id)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return &model.PurchaseDetail{Purchase: *p, Tickets: tickets}, nil
}

// CreateTicket adds a ticket for the seat to the purchase and commits the
// seat.  The seat must be free or held by the purchase owner (or the
// caller, or anyone when the caller is privileged).  A price of zero uses
// the show's price.
func (f *Fulfillment) CreateTicket(ctx context.Context, caller model.Caller, purchaseID uint64, key model.SeatKey, priceCents uint32) (*model.Ticket, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	var (
		t     *model.Ticket
		owner uint64
	)
	err = f.store.WithTx(ctx, func(ctx context.Context) error {
		p, err := f.store.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if !caller.Owns(p.UserID) {
			return model.Errorf(model.ErrForbidden, "purchase %d belongs to another user", purchaseID)
		}
		if p.Locked() {
			return model.Errorf(model.ErrInvalidState, "purchase %d is already paid", purchaseID)
		}
		owner = p.UserID

		show, err := f.inv.sellableShow(ctx, key, f.clock.Now(), caller.Privileged())
		if err != nil {
			return err
		}
		res, err := f.inv.Commit(ctx, key, p.UserID, caller)
		if err != nil {
			return err
		}

		price := priceCents
		if price == 0 {
			price = show.PriceCents
		}
		t = &model.Ticket{
			PurchaseID:        purchaseID,
			SeatReservationID: res.ID,
			ShowID:            key.ShowID,
			RowLabel:          key.RowLabel,
			SeatNumber:        key.SeatNumber,
			PriceCents:        price,
			Code:              uuid.NewString(),
			CreatedAt:         f.clock.Now(),
		}
		if err := f.store.InsertTicket(ctx, t); err != nil {
			if errors.Is(err, model.ErrDuplicate) {
				return model.Errorf(model.ErrConflict, "seat %s%d already has a ticket", key.RowLabel, key.SeatNumber)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.publish(ctx, queue.RoutingTicketCreated, queue.TicketCreatedEvent{
		TicketID:   t.ID,
		Code:       t.Code,
		PurchaseID: t.PurchaseID,
		UserID:     owner,
		ShowID:     t.ShowID,
		RowLabel:   t.RowLabel,
		SeatNumber: t.SeatNumber,
		PriceCents: t.PriceCents,
		CreatedAt:  t.CreatedAt,
	})
	return t, nil
}

// DeleteTicket removes one ticket and frees its seat.  Rejected once the
// purchase is paid.
func (f *Fulfillment) DeleteTicket(ctx context.Context, caller model.Caller, ticketID uint64) error {
	return f.store.WithTx(ctx, func(ctx context.Context) error {
		t, err := f.store.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		p, err := f.store.GetPurchaseForUpdate(ctx, t.PurchaseID)
		if err != nil {
			return err
		}
		if !caller.Owns(p.UserID) {
			return model.Errorf(model.ErrForbidden, "ticket %d belongs to another user", ticketID)
		}
		if p.Locked() {
			return model.Errorf(model.ErrInvalidState, "purchase %d is already paid or processed", p.ID)
		}
		if err := f.store.DeleteTicket(ctx, t.ID); err != nil {
			return err
		}
		_, err = f.inv.Uncommit(ctx, t.Key())
		return err
	})
}

// CancelPurchase deletes every ticket of the purchase, frees their seats,
// deletes its line items and the purchase itself.  Either all of it
// happens or nothing does.
func (f *Fulfillment) CancelPurchase(ctx context.Context, caller model.Caller, purchaseID uint64) (*model.CancelResult, error) {
	res := &model.CancelResult{PurchaseID: purchaseID}
	var (
		owner uint64
		seats []string
	)
	err := f.store.WithTx(ctx, func(ctx context.Context) error {
		p, err := f.store.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		if !caller.Owns(p.UserID) {
			return model.Errorf(model.ErrForbidden, "purchase %d belongs to another user", purchaseID)
		}
		if p.Locked() {
			return model.Errorf(model.ErrInvalidState, "purchase %d is already paid or processed", purchaseID)
		}
		owner = p.UserID

		tickets, err := f.store.ListTickets(ctx, purchaseID)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			if err := f.store.DeleteTicket(ctx, t.ID); err != nil {
				return fmt.Errorf("delete ticket %d: %w", t.ID, err)
			}
			res.DeletedTickets++
			released, err := f.inv.Uncommit(ctx, t.Key())
			if err != nil {
				return fmt.Errorf("release seat %s: %w", t.Key(), err)
			}
			if released {
				res.ReleasedSeats++
				seats = append(seats, fmt.Sprintf("%s%d", t.RowLabel, t.SeatNumber))
			}
		}
		if res.DeletedLineItems, err = f.store.DeleteLineItems(ctx, purchaseID); err != nil {
			return err
		}
		return f.store.DeletePurchase(ctx, purchaseID)
	})
	if err != nil {
		return nil, err
	}

	f.publish(ctx, queue.RoutingPurchaseCancelled, queue.PurchaseCancelledEvent{
		PurchaseID:    purchaseID,
		UserID:        owner,
		ReleasedSeats: res.ReleasedSeats,
		Seats:         seats,
		CancelledAt:   f.clock.Now(),
	})
	return res, nil
}

// RecordPayment stores the payment state reported by the payment service.
// It satisfies queue.PaymentRecorder.
func (f *Fulfillment) RecordPayment(ctx context.Context, ev queue.PaymentStatusEvent) error {
	if ev.PurchaseID == 0 || !model.ValidPaymentStatus(ev.Status) {
		return model.Errorf(model.ErrValidation, "invalid payment report for purchase %d: status %q", ev.PurchaseID, ev.Status)
	}
	return f.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := f.store.GetPurchaseForUpdate(ctx, ev.PurchaseID); err != nil {
			return err
		}
		return f.store.UpsertPayment(ctx, ev.PurchaseID, ev.Status, ev.ProviderRef)
	})
}

func (f *Fulfillment) publish(ctx context.Context, key string, payload any) {
	if f.pub == nil {
		return
	}
	if err := f.pub.Publish(context.WithoutCancel(ctx), key, payload); err != nil {
		log.Printf("fulfillment: publish %s failed: %v", key, err)
	}
}
