package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-booking-core/internal/clock"
	"github.com/iliyamo/cinema-booking-core/internal/model"
	"github.com/iliyamo/cinema-booking-core/internal/schedule"
)

// ScreeningInput is the request to create or replace a screening.  For
// private screenings EndTime and RuntimeMinutes are ignored and the end is
// always StartTime plus model.PrivateScreeningMinutes.  For public ones
// EndTime wins over RuntimeMinutes when both are given.
type ScreeningInput struct {
	RoomID            uint64  `json:"room_id"`
	MovieID           uint64  `json:"movie_id"`
	MovieTitle        string  `json:"movie_title"`
	ShowDate          string  `json:"show_date"`
	StartTime         string  `json:"start_time"`
	EndTime           string  `json:"end_time"`
	RuntimeMinutes    int     `json:"runtime_minutes"`
	IsPrivate         bool    `json:"is_private"`
	CorporateClientID *uint64 `json:"corporate_client_id"`
	PriceCents        uint32  `json:"price_cents"`
}

// RentalInput is the request to create or replace a room rental.  A
// corporate caller always rents for itself.
type RentalInput struct {
	RoomID     uint64 `json:"room_id"`
	ClientID   uint64 `json:"client_id"`
	Purpose    string `json:"purpose"`
	PriceCents uint32 `json:"price_cents"`
	RentalDate string `json:"rental_date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// Scheduler places screenings and rentals into rooms without overlap.
// Every write locks the room row first and runs the overlap check in the
// same transaction, so two writers on one room cannot both pass the check.
type Scheduler struct {
	store    Store
	clock    clock.Clock
	loc      *time.Location
	onChange func(ctx context.Context, roomID uint64)
}

func NewScheduler(store Store, clk clock.Clock, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{store: store, clock: clk, loc: loc}
}

// OnRoomChange registers fn to run after a committed write changes a
// room's bookings.  It is called once per affected room.
func (s *Scheduler) OnRoomChange(fn func(ctx context.Context, roomID uint64)) {
	s.onChange = fn
}

func (s *Scheduler) changed(ctx context.Context, rooms ...uint64) {
	if s.onChange == nil {
		return
	}
	seen := map[uint64]bool{}
	for _, id := range rooms {
		if id != 0 && !seen[id] {
			seen[id] = true
			s.onChange(ctx, id)
		}
	}
}

// CheckAvailability reports whether [start, end) is free in the room on
// date.  exclude removes entries from the check, typically the one being
// edited.
func (s *Scheduler) CheckAvailability(ctx context.Context, roomID uint64, date, start, end string, exclude []model.EntryRef) (*model.Availability, error) {
	if roomID == 0 || date == "" || start == "" || end == "" {
		return nil, model.Errorf(model.ErrValidation, "room, date, start and end are required")
	}
	if err := validDate(date); err != nil {
		return nil, err
	}
	rng, err := schedule.ParseRange(start, end)
	if err != nil {
		return nil, model.Errorf(model.ErrValidation, "%v", err)
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	conflicts, err := s.conflicts(ctx, roomID, date, rng, exclude)
	if err != nil {
		return nil, err
	}
	return &model.Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// FindOpenSlots lists the open windows of the given length in the room's
// operating day.
func (s *Scheduler) FindOpenSlots(ctx context.Context, roomID uint64, date string, minutes int) ([]model.Slot, error) {
	if roomID == 0 || date == "" {
		return nil, model.Errorf(model.ErrValidation, "room and date are required")
	}
	if minutes <= 0 {
		return nil, model.Errorf(model.ErrValidation, "duration must be a positive number of minutes")
	}
	if err := validDate(date); err != nil {
		return nil, err
	}
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return schedule.FindOpenSlots(entries, minutes)
}

// CreateScreening schedules a new screening.  Only administrators schedule
// screenings.
func (s *Scheduler) CreateScreening(ctx context.Context, caller model.Caller, in ScreeningInput) (*model.Screening, error) {
	if !caller.Privileged() {
		return nil, model.Errorf(model.ErrForbidden, "only administrators can schedule screenings")
	}
	sc, rng, err := s.screeningFromInput(in)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockAndCheck(ctx, sc.RoomID, sc.ShowDate, rng, nil); err != nil {
			return err
		}
		return s.store.CreateScreening(ctx, sc)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, sc.RoomID)
	return sc, nil
}

// UpdateScreening replaces the schedule and details of an active screening.
func (s *Scheduler) UpdateScreening(ctx context.Context, caller model.Caller, id uint64, in ScreeningInput) (*model.Screening, error) {
	if !caller.Privileged() {
		return nil, model.Errorf(model.ErrForbidden, "only administrators can schedule screenings")
	}
	sc, rng, err := s.screeningFromInput(in)
	if err != nil {
		return nil, err
	}
	sc.ID = id
	var oldRoom uint64
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.GetScreening(ctx, id)
		if err != nil {
			return err
		}
		oldRoom = cur.RoomID
		if cur.Status != model.ScreeningActive {
			return model.Errorf(model.ErrInvalidState, "screening %d is retired", id)
		}
		if sc.RoomID != cur.RoomID {
			// seats already held or sold belong to the old room's layout
			referenced, err := s.store.ScreeningReferenced(ctx, id)
			if err != nil {
				return err
			}
			if referenced {
				return model.Errorf(model.ErrInvalidState, "screening %d has seat reservations and cannot change rooms", id)
			}
		}
		exclude := []model.EntryRef{{Kind: model.KindScreening, ID: id}}
		if err := s.lockAndCheck(ctx, sc.RoomID, sc.ShowDate, rng, exclude); err != nil {
			return err
		}
		sc.Status = cur.Status
		sc.CreatedAt = cur.CreatedAt
		sc.UpdatedAt = s.clock.Now()
		return s.store.UpdateScreening(ctx, sc)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, oldRoom, sc.RoomID)
	return sc, nil
}

// DeleteScreening removes a screening, or retires it when reservations or
// tickets still reference it.  retired reports which one happened.
func (s *Scheduler) DeleteScreening(ctx context.Context, caller model.Caller, id uint64) (retired bool, err error) {
	if !caller.Privileged() {
		return false, model.Errorf(model.ErrForbidden, "only administrators can remove screenings")
	}
	var room uint64
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.GetScreening(ctx, id)
		if err != nil {
			return err
		}
		room = cur.RoomID
		referenced, err := s.store.ScreeningReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			retired = true
			return s.store.RetireScreening(ctx, id)
		}
		return s.store.DeleteScreening(ctx, id)
	})
	if err != nil {
		return false, err
	}
	s.changed(ctx, room)
	return retired, nil
}

// CreateRental books a room for a non-screening purpose.
func (s *Scheduler) CreateRental(ctx context.Context, caller model.Caller, in RentalInput) (*model.RoomRental, error) {
	r, rng, err := s.rentalFromInput(caller, in)
	if err != nil {
		return nil, err
	}
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.lockAndCheck(ctx, r.RoomID, r.RentalDate, rng, nil); err != nil {
			return err
		}
		return s.store.CreateRental(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, r.RoomID)
	return r, nil
}

// UpdateRental replaces a rental.  Corporate callers may only touch their
// own rentals.
func (s *Scheduler) UpdateRental(ctx context.Context, caller model.Caller, id uint64, in RentalInput) (*model.RoomRental, error) {
	r, rng, err := s.rentalFromInput(caller, in)
	if err != nil {
		return nil, err
	}
	r.ID = id
	var oldRoom uint64
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.GetRental(ctx, id)
		if err != nil {
			return err
		}
		oldRoom = cur.RoomID
		if !caller.Owns(cur.ClientID) {
			return model.Errorf(model.ErrForbidden, "rental %d belongs to another client", id)
		}
		exclude := []model.EntryRef{{Kind: model.KindRental, ID: id}}
		if err := s.lockAndCheck(ctx, r.RoomID, r.RentalDate, rng, exclude); err != nil {
			return err
		}
		r.CreatedAt = cur.CreatedAt
		r.UpdatedAt = s.clock.Now()
		return s.store.UpdateRental(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, oldRoom, r.RoomID)
	return r, nil
}

// DeleteRental removes a rental.
func (s *Scheduler) DeleteRental(ctx context.Context, caller model.Caller, id uint64) error {
	if !canRent(caller) {
		return model.Errorf(model.ErrForbidden, "only administrators and corporate clients manage rentals")
	}
	var room uint64
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		cur, err := s.store.GetRental(ctx, id)
		if err != nil {
			return err
		}
		if !caller.Owns(cur.ClientID) {
			return model.Errorf(model.ErrForbidden, "rental %d belongs to another client", id)
		}
		room = cur.RoomID
		return s.store.DeleteRental(ctx, id)
	})
	if err != nil {
		return err
	}
	s.changed(ctx, room)
	return nil
}

// lockAndCheck locks the room row and fails with a ScheduleConflictError
// when rng collides with anything already booked that day.
func (s *Scheduler) lockAndCheck(ctx context.Context, roomID uint64, date string, rng schedule.Range, exclude []model.EntryRef) error {
	room, err := s.store.LockRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsActive {
		return model.Errorf(model.ErrValidation, "room %s is not accepting bookings", room.Name)
	}
	conflicts, err := s.conflicts(ctx, roomID, date, rng, exclude)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &model.ScheduleConflictError{Conflicts: conflicts}
	}
	return nil
}

func (s *Scheduler) conflicts(ctx context.Context, roomID uint64, date string, rng schedule.Range, exclude []model.EntryRef) ([]model.ConflictInfo, error) {
	entries, err := s.store.ListEntries(ctx, roomID, date)
	if err != nil {
		return nil, err
	}
	return schedule.Conflicts(rng, entries, exclude)
}

func (s *Scheduler) screeningFromInput(in ScreeningInput) (*model.Screening, schedule.Range, error) {
	var zero schedule.Range
	title := strings.TrimSpace(in.MovieTitle)
	if in.RoomID == 0 || in.MovieID == 0 || title == "" || in.ShowDate == "" || in.StartTime == "" {
		return nil, zero, model.Errorf(model.ErrValidation, "room_id, movie_id, movie_title, show_date and start_time are required")
	}
	if err := validDate(in.ShowDate); err != nil {
		return nil, zero, err
	}
	end := in.EndTime
	var err error
	switch {
	case in.IsPrivate:
		end, err = schedule.ComputeEnd(in.StartTime, model.PrivateScreeningMinutes)
	case end == "" && in.RuntimeMinutes > 0:
		end, err = schedule.ComputeEnd(in.StartTime, in.RuntimeMinutes)
	case end == "":
		return nil, zero, model.Errorf(model.ErrValidation, "end_time or runtime_minutes is required")
	}
	if err != nil {
		return nil, zero, model.Errorf(model.ErrValidation, "%v", err)
	}
	rng, err := schedule.ParseRange(in.StartTime, end)
	if err != nil {
		return nil, zero, model.Errorf(model.ErrValidation, "%v", err)
	}
	if err := s.notInPast(in.ShowDate, rng.Start); err != nil {
		return nil, zero, err
	}
	now := s.clock.Now()
	sc := &model.Screening{
		RoomID:     in.RoomID,
		MovieID:    in.MovieID,
		MovieTitle: title,
		ShowDate:   in.ShowDate,
		StartTime:  schedule.FormatClock(rng.Start),
		EndTime:    schedule.FormatClock(rng.End),
		IsPrivate:  in.IsPrivate,
		PriceCents: in.PriceCents,
		Status:     model.ScreeningActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if in.IsPrivate {
		sc.CorporateClientID = in.CorporateClientID
	}
	return sc, rng, nil
}

func (s *Scheduler) rentalFromInput(caller model.Caller, in RentalInput) (*model.RoomRental, schedule.Range, error) {
	var zero schedule.Range
	if !canRent(caller) {
		return nil, zero, model.Errorf(model.ErrForbidden, "only administrators and corporate clients manage rentals")
	}
	clientID := in.ClientID
	if !caller.Privileged() {
		if clientID != 0 && clientID != caller.ID {
			return nil, zero, model.Errorf(model.ErrForbidden, "corporate clients can only rent for themselves")
		}
		clientID = caller.ID
	}
	purpose := strings.TrimSpace(in.Purpose)
	if in.RoomID == 0 || clientID == 0 || purpose == "" || in.RentalDate == "" {
		return nil, zero, model.Errorf(model.ErrValidation, "room_id, client_id, purpose and rental_date are required")
	}
	if err := validDate(in.RentalDate); err != nil {
		return nil, zero, err
	}
	rng, err := schedule.ParseRange(in.StartTime, in.EndTime)
	if err != nil {
		return nil, zero, model.Errorf(model.ErrValidation, "%v", err)
	}
	if err := s.notInPast(in.RentalDate, rng.Start); err != nil {
		return nil, zero, err
	}
	now := s.clock.Now()
	return &model.RoomRental{
		RoomID:     in.RoomID,
		ClientID:   clientID,
		Purpose:    purpose,
		PriceCents: in.PriceCents,
		RentalDate: in.RentalDate,
		StartTime:  schedule.FormatClock(rng.Start),
		EndTime:    schedule.FormatClock(rng.End),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, rng, nil
}

func (s *Scheduler) notInPast(date string, startMin int) error {
	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return model.Errorf(model.ErrValidation, "invalid date %q", date)
	}
	if !day.Add(time.Duration(startMin) * time.Minute).After(s.clock.Now()) {
		return model.Errorf(model.ErrValidation, "cannot schedule in the past")
	}
	return nil
}

func canRent(c model.Caller) bool {
	return c.Role == model.RoleAdmin || c.Role == model.RoleCorporate
}

func validDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return model.Errorf(model.ErrValidation, "invalid date %q, want YYYY-MM-DD", date)
	}
	return nil
}

// IsScheduleConflict unwraps a ScheduleConflictError from err.
func IsScheduleConflict(err error) (*model.ScheduleConflictError, bool) {
	var sce *model.ScheduleConflictError
	if errors.As(err, &sce) {
		return sce, true
	}
	return nil, false
}
