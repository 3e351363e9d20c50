package service

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

type fakeTxKey struct{}

// fakeStore is an in-memory Store.  WithTx serializes transactions behind
// one mutex and restores a snapshot when fn fails.  InsertReservation and
// InsertTicket enforce the unique keys of the real schema.
type fakeStore struct {
	mu sync.Mutex

	nextID       uint64
	rooms        map[uint64]model.Room
	screenings   map[uint64]model.Screening
	rentals      map[uint64]model.RoomRental
	reservations map[uint64]model.SeatReservation
	purchases    map[uint64]model.Purchase
	payments     map[uint64]string
	lineItems    map[uint64]int64
	tickets      map[uint64]model.Ticket

	// failOn makes the named method return the error.
	failOn map[string]error
	// blindFind makes FindReservation miss every row, simulating a
	// concurrent writer that inserted between the check and the insert.
	blindFind bool
	locked    []uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:        map[uint64]model.Room{},
		screenings:   map[uint64]model.Screening{},
		rentals:      map[uint64]model.RoomRental{},
		reservations: map[uint64]model.SeatReservation{},
		purchases:    map[uint64]model.Purchase{},
		payments:     map[uint64]string{},
		lineItems:    map[uint64]int64{},
		tickets:      map[uint64]model.Ticket{},
		failOn:       map[string]error{},
	}
}

type fakeSnapshot struct {
	nextID       uint64
	screenings   map[uint64]model.Screening
	rentals      map[uint64]model.RoomRental
	reservations map[uint64]model.SeatReservation
	purchases    map[uint64]model.Purchase
	payments     map[uint64]string
	lineItems    map[uint64]int64
	tickets      map[uint64]model.Ticket
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := fakeSnapshot{
		nextID:       f.nextID,
		screenings:   maps.Clone(f.screenings),
		rentals:      maps.Clone(f.rentals),
		reservations: maps.Clone(f.reservations),
		purchases:    maps.Clone(f.purchases),
		payments:     maps.Clone(f.payments),
		lineItems:    maps.Clone(f.lineItems),
		tickets:      maps.Clone(f.tickets),
	}
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.nextID = snap.nextID
		f.screenings = snap.screenings
		f.rentals = snap.rentals
		f.reservations = snap.reservations
		f.purchases = snap.purchases
		f.payments = snap.payments
		f.lineItems = snap.lineItems
		f.tickets = snap.tickets
		return err
	}
	return nil
}

// enter locks the store for calls made outside a transaction.
func (f *fakeStore) enter(ctx context.Context, method string) (func(), error) {
	unlock := func() {}
	if ctx.Value(fakeTxKey{}) == nil {
		f.mu.Lock()
		unlock = f.mu.Unlock
	}
	if err := f.failOn[method]; err != nil {
		unlock()
		return nil, err
	}
	return unlock, nil
}

func (f *fakeStore) id() uint64 {
	f.nextID++
	return f.nextID
}

// seeding helpers, called before the store is shared

func (f *fakeStore) addRoom(r model.Room) { f.rooms[r.ID] = r }

func (f *fakeStore) addScreening(s model.Screening) {
	if s.ID > f.nextID {
		f.nextID = s.ID
	}
	if s.Status == "" {
		s.Status = model.ScreeningActive
	}
	f.screenings[s.ID] = s
}

func (f *fakeStore) countReservations(state model.ReservationState) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.reservations {
		if r.State == state {
			n++
		}
	}
	return n
}

// RoomStore

func (f *fakeStore) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
	unlock, err := f.enter(ctx, "GetRoom")
	if err != nil {
		return nil, err
	}
	defer unlock()
	r, ok := f.rooms[id]
	if !ok {
		return nil, model.Errorf(model.ErrNotFound, "room not found")
	}
	return &r, nil
}

func (f *fakeStore) LockRoom(ctx context.Context, id uint64) (*model.Room, error) {
	r, err := f.GetRoom(ctx, id)
	if err == nil {
		f.locked = append(f.locked, id)
	}
	return r, err
}

// ScheduleStore

func (f *fakeStore) GetScreening(ctx context.Context, id uint64) (*model.Screening, error) {
	unlock, err := f.enter(ctx, "GetScreening")
	if err != nil {
		return nil, err
	}
	defer unlock()
	s, ok := f.screenings[id]
	if !ok {
		return nil, model.Errorf(model.ErrNotFound, "show not found")
	}
	return &s, nil
}

func (f *fakeStore) CreateScreening(ctx context.Context, s *model.Screening) error {
	unlock, err := f.enter(ctx, "CreateScreening")
	if err != nil {
		return err
	}
	defer unlock()
	s.ID = f.id()
	f.screenings[s.ID] = *s
	return nil
}

func (f *fakeStore) UpdateScreening(ctx context.Context, s *model.Screening) error {
	unlock, err := f.enter(ctx, "UpdateScreening")
	if err != nil {
		return err
	}
	defer unlock()
	f.screenings[s.ID] = *s
	return nil
}

func (f *fakeStore) DeleteScreening(ctx context.Context, id uint64) error {
	unlock, err := f.enter(ctx, "DeleteScreening")
	if err != nil {
		return err
	}
	defer unlock()
	delete(f.screenings, id)
	return nil
}

func (f *fakeStore) RetireScreening(ctx context.Context, id uint64) error {
	unlock, err := f.enter(ctx, "RetireScreening")
	if err != nil {
		return err
	}
	defer unlock()
	s := f.screenings[id]
	s.Status = model.ScreeningRetired
	f.screenings[id] = s
	return nil
}

func (f *fakeStore) ScreeningReferenced(ctx context.Context, id uint64) (bool, error) {
	unlock, err := f.enter(ctx, "ScreeningReferenced")
	if err != nil {
		return false, err
	}
	defer unlock()
	for _, r := range f.reservations {
		if r.ShowID == id {
			return true, nil
		}
	}
	for _, t := range f.tickets {
		if t.ShowID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetRental(ctx context.Context, id uint64) (*model.RoomRental, error) {
	unlock, err := f.enter(ctx, "GetRental")
	if err != nil {
		return nil, err
	}
	defer unlock()
	r, ok := f.rentals[id]
	if !ok {
		return nil, model.Errorf(model.ErrNotFound, "rental not found")
	}
	return &r, nil
}

func (f *fakeStore) CreateRental(ctx context.Context, r *model.RoomRental) error {
	unlock, err := f.enter(ctx, "CreateRental")
	if err != nil {
		return err
	}
	defer unlock()
	r.ID = f.id()
	f.rentals[r.ID] = *r
	return nil
}

func (f *fakeStore) UpdateRental(ctx context.Context, r *model.RoomRental) error {
	unlock, err := f.enter(ctx, "UpdateRental")
	if err != nil {
		return err
	}
	defer unlock()
	f.rentals[r.ID] = *r
	return nil
}

func (f *fakeStore) DeleteRental(ctx context.Context, id uint64) error {
	unlock, err := f.enter(ctx, "DeleteRental")
	if err != nil {
		return err
	}
	defer unlock()
	delete(f.rentals, id)
	return nil
}

func (f *fakeStore) ListEntries(ctx context.Context, roomID uint64, date string) ([]model.ScheduleEntry, error) {
	unlock, err := f.enter(ctx, "ListEntries")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []model.ScheduleEntry
	for _, s := range f.screenings {
		if s.RoomID == roomID && s.ShowDate == date && s.Status == model.ScreeningActive {
			out = append(out, s.Entry())
		}
	}
	for _, r := range f.rentals {
		if r.RoomID == roomID && r.RentalDate == date {
			out = append(out, r.Entry())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// ReservationStore

func (f *fakeStore) findByKey(key model.SeatKey) (*model.SeatReservation, bool) {
	for _, r := range f.reservations {
		if r.Key() == key {
			return &r, true
		}
	}
	return nil, false
}

func (f *fakeStore) FindReservation(ctx context.Context, key model.SeatKey) (*model.SeatReservation, error) {
	unlock, err := f.enter(ctx, "FindReservation")
	if err != nil {
		return nil, err
	}
	defer unlock()
	if f.blindFind {
		return nil, nil
	}
	r, _ := f.findByKey(key)
	return r, nil
}

func (f *fakeStore) FindReservationForUpdate(ctx context.Context, key model.SeatKey) (*model.SeatReservation, error) {
	unlock, err := f.enter(ctx, "FindReservationForUpdate")
	if err != nil {
		return nil, err
	}
	defer unlock()
	r, _ := f.findByKey(key)
	return r, nil
}

func (f *fakeStore) InsertReservation(ctx context.Context, r *model.SeatReservation) error {
	unlock, err := f.enter(ctx, "InsertReservation")
	if err != nil {
		return err
	}
	defer unlock()
	if _, taken := f.findByKey(r.Key()); taken {
		return model.ErrDuplicate
	}
	r.ID = f.id()
	f.reservations[r.ID] = *r
	return nil
}

func (f *fakeStore) MarkOccupied(ctx context.Context, id, holderID uint64, now time.Time) error {
	unlock, err := f.enter(ctx, "MarkOccupied")
	if err != nil {
		return err
	}
	defer unlock()
	r := f.reservations[id]
	r.State = model.StateOccupied
	r.HolderID = holderID
	r.HoldToken = ""
	r.HoldExpiresAt = time.Time{}
	r.UpdatedAt = now
	f.reservations[id] = r
	return nil
}

func (f *fakeStore) DeleteReservation(ctx context.Context, id uint64) error {
	unlock, err := f.enter(ctx, "DeleteReservation")
	if err != nil {
		return err
	}
	defer unlock()
	delete(f.reservations, id)
	return nil
}

func (f *fakeStore) DeleteReservationByKey(ctx context.Context, key model.SeatKey) (bool, error) {
	unlock, err := f.enter(ctx, "DeleteReservationByKey")
	if err != nil {
		return false, err
	}
	defer unlock()
	r, ok := f.findByKey(key)
	if !ok {
		return false, nil
	}
	delete(f.reservations, r.ID)
	return true, nil
}

func (f *fakeStore) DeleteStaleReservation(ctx context.Context, id uint64, now time.Time) (bool, error) {
	unlock, err := f.enter(ctx, "DeleteStaleReservation")
	if err != nil {
		return false, err
	}
	defer unlock()
	r, ok := f.reservations[id]
	if !ok || !r.IsStale(now) {
		return false, nil
	}
	delete(f.reservations, id)
	return true, nil
}

func (f *fakeStore) ListReservations(ctx context.Context, showID uint64) ([]model.SeatReservation, error) {
	unlock, err := f.enter(ctx, "ListReservations")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []model.SeatReservation
	for _, r := range f.reservations {
		if r.ShowID == showID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error) {
	unlock, err := f.enter(ctx, "DeleteExpiredHolds")
	if err != nil {
		return 0, err
	}
	defer unlock()
	var n int64
	for id, r := range f.reservations {
		if n >= int64(limit) {
			break
		}
		if r.IsStale(now) {
			delete(f.reservations, id)
			n++
		}
	}
	return n, nil
}

// PurchaseStore

func (f *fakeStore) CreatePurchase(ctx context.Context, p *model.Purchase) error {
	unlock, err := f.enter(ctx, "CreatePurchase")
	if err != nil {
		return err
	}
	defer unlock()
	p.ID = f.id()
	f.purchases[p.ID] = *p
	return nil
}

func (f *fakeStore) GetPurchase(ctx context.Context, id uint64) (*model.Purchase, error) {
	unlock, err := f.enter(ctx, "GetPurchase")
	if err != nil {
		return nil, err
	}
	defer unlock()
	p, ok := f.purchases[id]
	if !ok {
		return nil, model.Errorf(model.ErrNotFound, "purchase not found")
	}
	p.PaymentStatus = f.payments[id]
	return &p, nil
}

func (f *fakeStore) GetPurchaseForUpdate(ctx context.Context, id uint64) (*model.Purchase, error) {
	return f.GetPurchase(ctx, id)
}

func (f *fakeStore) DeletePurchase(ctx context.Context, id uint64) error {
	unlock, err := f.enter(ctx, "DeletePurchase")
	if err != nil {
		return err
	}
	defer unlock()
	delete(f.purchases, id)
	delete(f.payments, id)
	return nil
}

func (f *fakeStore) DeleteLineItems(ctx context.Context, purchaseID uint64) (int64, error) {
	unlock, err := f.enter(ctx, "DeleteLineItems")
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := f.lineItems[purchaseID]
	delete(f.lineItems, purchaseID)
	return n, nil
}

func (f *fakeStore) UpsertPayment(ctx context.Context, purchaseID uint64, status, _ string) error {
	unlock, err := f.enter(ctx, "UpsertPayment")
	if err != nil {
		return err
	}
	defer unlock()
	f.payments[purchaseID] = status
	return nil
}

// TicketStore

func (f *fakeStore) InsertTicket(ctx context.Context, t *model.Ticket) error {
	unlock, err := f.enter(ctx, "InsertTicket")
	if err != nil {
		return err
	}
	defer unlock()
	for _, o := range f.tickets {
		if o.SeatReservationID == t.SeatReservationID {
			return model.ErrDuplicate
		}
	}
	t.ID = f.id()
	f.tickets[t.ID] = *t
	return nil
}

func (f *fakeStore) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
	unlock, err := f.enter(ctx, "GetTicket")
	if err != nil {
		return nil, err
	}
	defer unlock()
	t, ok := f.tickets[id]
	if !ok {
		return nil, model.Errorf(model.ErrNotFound, "ticket not found")
	}
	return &t, nil
}

func (f *fakeStore) ListTickets(ctx context.Context, purchaseID uint64) ([]model.Ticket, error) {
	unlock, err := f.enter(ctx, "ListTickets")
	if err != nil {
		return nil, err
	}
	defer unlock()
	var out []model.Ticket
	for _, t := range f.tickets {
		if t.PurchaseID == purchaseID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) DeleteTicket(ctx context.Context, id uint64) error {
	unlock, err := f.enter(ctx, "DeleteTicket")
	if err != nil {
		return err
	}
	defer unlock()
	delete(f.tickets, id)
	return nil
}
