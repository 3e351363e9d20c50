package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking-core/internal/clock"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Inventory is the per-seat reservation state machine:
//
//  Free --Hold--> Held --Commit--> Occupied --Uncommit--> Free
//  Held --Release or expiry--> Free
//
// Free is the absence of a row.  A Held row whose expiry has passed is
// treated as Free by every operation here.  The uniqueness constraint on
// (show_id, row_label, seat_number) decides every race; a lost insert is a
// Conflict, never a retry.
type Inventory struct {
	store   Store
	clock   clock.Clock
	loc     *time.Location
	holdFor time.Duration
}

// NewInventory builds an Inventory.  loc is the venue time zone that show
// dates and times are expressed in.
func NewInventory(store Store, clk clock.Clock, loc *time.Location) *Inventory {
	if loc == nil {
		loc = time.UTC
	}
	return &Inventory{store: store, clock: clk, loc: loc, holdFor: model.HoldDuration}
}

// Hold places a timed hold on a seat for the caller.
func (s *Inventory) Hold(ctx context.Context, key model.SeatKey, caller model.Caller) (*model.SeatReservation, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if _, err := s.sellableShow(ctx, key, now, false); err != nil {
		return nil, err
	}

	var held *model.SeatReservation
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindReservation(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsStale(now) {
				return model.Errorf(model.ErrConflict, "seat %s%d is not available", key.RowLabel, key.SeatNumber)
			}
			// Lazy expiry.  If someone else purged or reclaimed the row
			// first, the insert below settles it.
			if _, err := s.store.DeleteStaleReservation(ctx, existing.ID, now); err != nil {
				return err
			}
		}
		r := &model.SeatReservation{
			ShowID:        key.ShowID,
			RowLabel:      key.RowLabel,
			SeatNumber:    key.SeatNumber,
			State:         model.StateHeld,
			HolderID:      caller.ID,
			HoldToken:     uuid.NewString(),
			HoldExpiresAt: now.Add(s.holdFor),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.InsertReservation(ctx, r); err != nil {
			if errors.Is(err, model.ErrDuplicate) {
				return model.Errorf(model.ErrConflict, "seat %s%d is not available", key.RowLabel, key.SeatNumber)
			}
			return err
		}
		held = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return held, nil
}

// Release removes the caller's hold.  Occupied seats are only freed by
// deleting their ticket.
func (s *Inventory) Release(ctx context.Context, key model.SeatKey, caller model.Caller) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.store.FindReservationForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if r == nil || r.IsStale(now) {
			return model.Errorf(model.ErrNotFound, "no hold on seat %s%d", key.RowLabel, key.SeatNumber)
		}
		if !caller.Owns(r.HolderID) {
			return model.Errorf(model.ErrForbidden, "seat %s%d is held by another user", key.RowLabel, key.SeatNumber)
		}
		if r.State == model.StateOccupied {
			return model.Errorf(model.ErrInvalidState, "seat %s%d is occupied; delete the ticket instead", key.RowLabel, key.SeatNumber)
		}
		return s.store.DeleteReservation(ctx, r.ID)
	})
}

// Commit turns the seat into Occupied for owner.  The seat must be Free, a
// stale hold, or held by owner or the caller; a privileged caller may also
// take over a live hold of another user.  Commit is meant to run inside
// the caller's transaction so the row it locks stays locked until the
// ticket referencing it is written.
func (s *Inventory) Commit(ctx context.Context, key model.SeatKey, owner uint64, caller model.Caller) (*model.SeatReservation, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var out *model.SeatReservation
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		r, err := s.store.FindReservationForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if r != nil && r.IsStale(now) {
			if _, err := s.store.DeleteStaleReservation(ctx, r.ID, now); err != nil {
				return err
			}
			r = nil
		}
		switch {
		case r == nil:
			r = &model.SeatReservation{
				ShowID:     key.ShowID,
				RowLabel:   key.RowLabel,
				SeatNumber: key.SeatNumber,
				State:      model.StateOccupied,
				HolderID:   owner,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.store.InsertReservation(ctx, r); err != nil {
				if errors.Is(err, model.ErrDuplicate) {
					return model.Errorf(model.ErrConflict, "seat %s%d was taken", key.RowLabel, key.SeatNumber)
				}
				return err
			}
		case r.State == model.StateOccupied:
			return model.Errorf(model.ErrConflict, "seat %s%d is already occupied", key.RowLabel, key.SeatNumber)
		case r.HolderID != owner && r.HolderID != caller.ID && !caller.Privileged():
			return model.Errorf(model.ErrConflict, "seat %s%d is held by another user", key.RowLabel, key.SeatNumber)
		default:
			if err := s.store.MarkOccupied(ctx, r.ID, owner, now); err != nil {
				return err
			}
			r.State = model.StateOccupied
			r.HolderID = owner
			r.HoldToken = ""
			r.HoldExpiresAt = time.Time{}
			r.UpdatedAt = now
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Uncommit returns the seat to Free.  It is idempotent; released reports
// whether a row was removed.
func (s *Inventory) Uncommit(ctx context.Context, key model.SeatKey) (released bool, err error) {
	return s.store.DeleteReservationByKey(ctx, key)
}

// SeatMap returns the status of every seat of the show's room.  Stale
// holds are presented as FREE.
func (s *Inventory) SeatMap(ctx context.Context, showID uint64, caller model.Caller) ([]model.SeatStatus, error) {
	if showID == 0 {
		return nil, model.Errorf(model.ErrValidation, "invalid show id")
	}
	show, err := s.store.GetScreening(ctx, showID)
	if err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, show.RoomID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListReservations(ctx, showID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	taken := make(map[string]model.SeatReservation, len(rows))
	for _, r := range rows {
		if r.IsStale(now) {
			continue
		}
		taken[fmt.Sprintf("%s-%d", r.RowLabel, r.SeatNumber)] = r
	}

	seats := make([]model.SeatStatus, 0, int(room.SeatRows*room.SeatCols))
	for i := 0; i < int(room.SeatRows); i++ {
		label := model.IndexToRowLabel(i)
		for n := uint32(1); n <= room.SeatCols; n++ {
			st := model.SeatStatus{RowLabel: label, SeatNumber: n, Status: model.SeatFree}
			if r, ok := taken[fmt.Sprintf("%s-%d", label, n)]; ok {
				st.Status = r.State
				st.Mine = caller.ID != 0 && r.HolderID == caller.ID
				if r.State == model.StateHeld {
					exp := r.HoldExpiresAt
					st.ExpiresAt = &exp
				}
			}
			seats = append(seats, st)
		}
	}
	return seats, nil
}

// SweepExpired deletes stale holds in batches of batchSize and returns the
// total removed.  Each batch is its own statement so row locks are held
// only for one small delete.
func (s *Inventory) SweepExpired(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	now := s.clock.Now()
	var total int64
	for {
		n, err := s.store.DeleteExpiredHolds(ctx, now, batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batchSize) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			log.Printf("inventory: sweep interrupted after %d rows: %v", total, err)
			return total, err
		}
	}
}

// sellableShow loads the show behind key and checks that seats can still be
// sold for it: the show exists, is active, has not started, and the seat is
// inside the room's layout.  Privileged callers may sell after the start.
func (s *Inventory) sellableShow(ctx context.Context, key model.SeatKey, now time.Time, privileged bool) (*model.Screening, error) {
	show, err := s.store.GetScreening(ctx, key.ShowID)
	if err != nil {
		return nil, err
	}
	if show.Status != model.ScreeningActive {
		return nil, model.Errorf(model.ErrValidation, "show %d is no longer on sale", show.ID)
	}
	starts, err := show.StartsAt(s.loc)
	if err != nil {
		return nil, fmt.Errorf("show %d start time: %w", show.ID, err)
	}
	if !privileged && !starts.After(now) {
		return nil, model.Errorf(model.ErrValidation, "show %d has already started", show.ID)
	}
	room, err := s.store.GetRoom(ctx, show.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.HasSeat(key.RowLabel, key.SeatNumber) {
		return nil, model.Errorf(model.ErrValidation, "seat %s%d does not exist in room %s", key.RowLabel, key.SeatNumber, room.Name)
	}
	return show, nil
}

func normalizeKey(key model.SeatKey) (model.SeatKey, error) {
	label := model.NormalizeRowLabel(key.RowLabel)
	if label != strings.ToUpper(strings.TrimSpace(key.RowLabel)) {
		return key, model.Errorf(model.ErrValidation, "invalid row label %q", key.RowLabel)
	}
	key.RowLabel = label
	if key.ShowID == 0 {
		return key, model.Errorf(model.ErrValidation, "invalid show id")
	}
	if key.RowLabel == "" || key.SeatNumber == 0 {
		return key, model.Errorf(model.ErrValidation, "invalid seat")
	}
	return key, nil
}
