package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-core/internal/clock"
	"github.com/iliyamo/cinema-booking-core/internal/model"
)

var corp = model.Caller{ID: 50, Role: model.RoleCorporate}

func newSchedulerFixture(t *testing.T) (*fakeStore, *Scheduler) {
	t.Helper()
	st := newFakeStore()
	st.addRoom(model.Room{ID: 1, Name: "Main", SeatRows: 5, SeatCols: 10, IsActive: true})
	st.addRoom(model.Room{ID: 2, Name: "Closed", SeatRows: 5, SeatCols: 10})
	st.addScreening(model.Screening{
		ID: 10, RoomID: 1, MovieID: 3, MovieTitle: "Heat",
		ShowDate: showDate, StartTime: "14:00", EndTime: "16:00",
	})
	return st, NewScheduler(st, clock.NewManual(t0), time.UTC)
}

func TestCheckAvailability(t *testing.T) {
	_, s := newSchedulerFixture(t)
	ctx := context.Background()

	av, err := s.CheckAvailability(ctx, 1, showDate, "15:00", "17:00", nil)
	require.NoError(t, err)
	assert.False(t, av.Available)
	require.Len(t, av.Conflicts, 1)
	assert.Equal(t, model.ConflictInfo{Kind: model.KindScreening, ID: 10, Label: "Heat", StartTime: "14:00", EndTime: "16:00"}, av.Conflicts[0])

	av, err = s.CheckAvailability(ctx, 1, showDate, "16:00", "18:00", nil)
	require.NoError(t, err)
	assert.True(t, av.Available, "touching at 16:00 is not an overlap")
	assert.Empty(t, av.Conflicts)

	av, err = s.CheckAvailability(ctx, 1, showDate, "15:00", "17:00", []model.EntryRef{{Kind: model.KindScreening, ID: 10}})
	require.NoError(t, err)
	assert.True(t, av.Available)

	av, err = s.CheckAvailability(ctx, 1, "2030-03-02", "15:00", "17:00", nil)
	require.NoError(t, err)
	assert.True(t, av.Available, "other dates do not collide")
}

func TestCheckAvailabilityErrors(t *testing.T) {
	_, s := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := s.CheckAvailability(ctx, 1, "", "15:00", "17:00", nil)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = s.CheckAvailability(ctx, 1, "03/01/2030", "15:00", "17:00", nil)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = s.CheckAvailability(ctx, 1, showDate, "17:00", "15:00", nil)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = s.CheckAvailability(ctx, 404, showDate, "15:00", "17:00", nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCreateScreeningOverlapRejected(t *testing.T) {
	st, s := newSchedulerFixture(t)

	_, err := s.CreateScreening(context.Background(), admin, ScreeningInput{
		RoomID: 1, MovieID: 4, MovieTitle: "Ran", ShowDate: showDate, StartTime: "15:00", EndTime: "17:00",
	})
	sce, ok := IsScheduleConflict(err)
	require.True(t, ok, "want ScheduleConflictError, got %v", err)
	assert.ErrorIs(t, err, model.ErrConflict)
	require.Len(t, sce.Conflicts, 1)
	assert.Equal(t, uint64(10), sce.Conflicts[0].ID)
	assert.Equal(t, "14:00", sce.Conflicts[0].StartTime)
	assert.Len(t, st.screenings, 1)
	assert.Contains(t, st.locked, uint64(1))
}

func TestCreatePrivateScreeningComputesEnd(t *testing.T) {
	_, s := newSchedulerFixture(t)
	client := uint64(50)

	sc, err := s.CreateScreening(context.Background(), admin, ScreeningInput{
		RoomID: 1, MovieID: 4, MovieTitle: "Ran", ShowDate: "2030-03-02", StartTime: "10:00",
		EndTime: "10:45", RuntimeMinutes: 95, IsPrivate: true, CorporateClientID: &client,
	})
	require.NoError(t, err)
	assert.Equal(t, "13:00", sc.EndTime)
	assert.True(t, sc.IsPrivate)
	assert.Equal(t, &client, sc.CorporateClientID)
	assert.NotZero(t, sc.ID)
}

func TestCreateScreeningFromRuntime(t *testing.T) {
	_, s := newSchedulerFixture(t)

	sc, err := s.CreateScreening(context.Background(), admin, ScreeningInput{
		RoomID: 1, MovieID: 4, MovieTitle: "Ran", ShowDate: showDate, StartTime: "16:00", RuntimeMinutes: 162,
	})
	require.NoError(t, err)
	assert.Equal(t, "18:42", sc.EndTime)
	assert.Equal(t, model.ScreeningActive, sc.Status)
}

func TestCreateScreeningRejections(t *testing.T) {
	_, s := newSchedulerFixture(t)
	ctx := context.Background()
	valid := ScreeningInput{RoomID: 1, MovieID: 4, MovieTitle: "Ran", ShowDate: showDate, StartTime: "18:00", EndTime: "20:00"}

	_, err := s.CreateScreening(ctx, corp, valid)
	assert.ErrorIs(t, err, model.ErrForbidden)

	in := valid
	in.EndTime = ""
	_, err = s.CreateScreening(ctx, admin, in)
	assert.ErrorIs(t, err, model.ErrValidation)

	in = valid
	in.StartTime, in.EndTime = "09:00", "09:30"
	_, err = s.CreateScreening(ctx, admin, in)
	assert.ErrorIs(t, err, model.ErrValidation, "before now")

	in = valid
	in.IsPrivate = true
	in.StartTime = "22:00"
	_, err = s.CreateScreening(ctx, admin, in)
	assert.ErrorIs(t, err, model.ErrValidation, "private screening past midnight")

	in = valid
	in.RoomID = 2
	_, err = s.CreateScreening(ctx, admin, in)
	assert.ErrorIs(t, err, model.ErrValidation, "inactive room")

	in = valid
	in.RoomID = 404
	_, err = s.CreateScreening(ctx, admin, in)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateScreeningExcludesItself(t *testing.T) {
	st, s := newSchedulerFixture(t)
	ctx := context.Background()

	sc, err := s.UpdateScreening(ctx, admin, 10, ScreeningInput{
		RoomID: 1, MovieID: 3, MovieTitle: "Heat", ShowDate: showDate, StartTime: "15:00", EndTime: "17:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "15:00", st.screenings[10].StartTime)
	assert.Equal(t, uint64(10), sc.ID)

	_, err = s.UpdateScreening(ctx, admin, 404, ScreeningInput{
		RoomID: 1, MovieID: 3, MovieTitle: "Heat", ShowDate: showDate, StartTime: "15:00", EndTime: "17:00",
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateScreeningKeepsRoomOnceSeatsAreTaken(t *testing.T) {
	st, s := newSchedulerFixture(t)
	ctx := context.Background()
	st.addRoom(model.Room{ID: 3, Name: "Small", SeatRows: 2, SeatCols: 4, IsActive: true})
	st.reservations[77] = model.SeatReservation{ID: 77, ShowID: 10, RowLabel: "E", SeatNumber: 9, State: model.StateOccupied, HolderID: 1}

	moved := ScreeningInput{RoomID: 3, MovieID: 3, MovieTitle: "Heat", ShowDate: showDate, StartTime: "14:00", EndTime: "16:00"}
	_, err := s.UpdateScreening(ctx, admin, 10, moved)
	assert.ErrorIs(t, err, model.ErrInvalidState)
	assert.Equal(t, uint64(1), st.screenings[10].RoomID)

	// same room, new time is still allowed
	later := moved
	later.RoomID = 1
	later.StartTime, later.EndTime = "15:00", "17:00"
	sc, err := s.UpdateScreening(ctx, admin, 10, later)
	require.NoError(t, err)
	assert.Equal(t, "15:00", sc.StartTime)

	delete(st.reservations, 77)
	_, err = s.UpdateScreening(ctx, admin, 10, moved)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.screenings[10].RoomID)
}

func TestPrivateScreeningMayEndAtMidnight(t *testing.T) {
	st, s := newSchedulerFixture(t)

	sc, err := s.CreateScreening(context.Background(), admin, ScreeningInput{
		RoomID: 1, MovieID: 4, MovieTitle: "Ran", ShowDate: showDate, StartTime: "21:00", IsPrivate: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "24:00", sc.EndTime)
	assert.Len(t, st.screenings, 2)

	av, err := s.CheckAvailability(context.Background(), 1, showDate, "23:00", "24:00", nil)
	require.NoError(t, err)
	assert.False(t, av.Available)
}

func TestScreeningAndRentalCollide(t *testing.T) {
	_, s := newSchedulerFixture(t)
	ctx := context.Background()

	r, err := s.CreateRental(ctx, corp, RentalInput{
		RoomID: 1, Purpose: "all hands", PriceCents: 50000, RentalDate: showDate, StartTime: "18:00", EndTime: "20:00",
	})
	require.NoError(t, err)
	assert.Equal(t, corp.ID, r.ClientID)

	_, err = s.CreateScreening(ctx, admin, ScreeningInput{
		RoomID: 1, MovieID: 4, MovieTitle: "Ran", ShowDate: showDate, StartTime: "19:30", EndTime: "21:00",
	})
	sce, ok := IsScheduleConflict(err)
	require.True(t, ok)
	assert.Equal(t, model.KindRental, sce.Conflicts[0].Kind)
	assert.Equal(t, "all hands", sce.Conflicts[0].Label)

	_, err = s.CreateRental(ctx, admin, RentalInput{
		RoomID: 1, ClientID: 51, Purpose: "launch", RentalDate: showDate, StartTime: "15:30", EndTime: "18:30",
	})
	sce, ok = IsScheduleConflict(err)
	require.True(t, ok)
	assert.Len(t, sce.Conflicts, 2)
}

func TestRentalOwnership(t *testing.T) {
	st, s := newSchedulerFixture(t)
	ctx := context.Background()
	other := model.Caller{ID: 51, Role: model.RoleCorporate}

	_, err := s.CreateRental(ctx, alice, RentalInput{RoomID: 1, Purpose: "party", RentalDate: showDate, StartTime: "18:00", EndTime: "19:00"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	_, err = s.CreateRental(ctx, corp, RentalInput{RoomID: 1, ClientID: 51, Purpose: "x", RentalDate: showDate, StartTime: "18:00", EndTime: "19:00"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	r, err := s.CreateRental(ctx, corp, RentalInput{RoomID: 1, Purpose: "offsite", RentalDate: showDate, StartTime: "18:00", EndTime: "19:00"})
	require.NoError(t, err)

	_, err = s.UpdateRental(ctx, other, r.ID, RentalInput{RoomID: 1, Purpose: "offsite", RentalDate: showDate, StartTime: "18:00", EndTime: "20:00"})
	assert.ErrorIs(t, err, model.ErrForbidden)

	up, err := s.UpdateRental(ctx, corp, r.ID, RentalInput{RoomID: 1, Purpose: "offsite", RentalDate: showDate, StartTime: "18:00", EndTime: "20:00"})
	require.NoError(t, err)
	assert.Equal(t, "20:00", up.EndTime)

	assert.ErrorIs(t, s.DeleteRental(ctx, other, r.ID), model.ErrForbidden)
	require.NoError(t, s.DeleteRental(ctx, corp, r.ID))
	assert.Empty(t, st.rentals)
	assert.ErrorIs(t, s.DeleteRental(ctx, corp, r.ID), model.ErrNotFound)
}

func TestDeleteScreeningRetiresWhenReferenced(t *testing.T) {
	st, s := newSchedulerFixture(t)
	ctx := context.Background()

	st.reservations[500] = model.SeatReservation{ID: 500, ShowID: 10, RowLabel: "A", SeatNumber: 1, State: model.StateOccupied}
	retired, err := s.DeleteScreening(ctx, admin, 10)
	require.NoError(t, err)
	assert.True(t, retired)
	assert.Equal(t, model.ScreeningRetired, st.screenings[10].Status)

	// a retired screening no longer occupies the room
	av, err := s.CheckAvailability(ctx, 1, showDate, "14:00", "16:00", nil)
	require.NoError(t, err)
	assert.True(t, av.Available)

	_, err = s.UpdateScreening(ctx, admin, 10, ScreeningInput{
		RoomID: 1, MovieID: 3, MovieTitle: "Heat", ShowDate: showDate, StartTime: "15:00", EndTime: "17:00",
	})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestDeleteScreeningRemovesUnreferenced(t *testing.T) {
	st, s := newSchedulerFixture(t)

	_, err := s.DeleteScreening(context.Background(), corp, 10)
	assert.ErrorIs(t, err, model.ErrForbidden)

	retired, err := s.DeleteScreening(context.Background(), admin, 10)
	require.NoError(t, err)
	assert.False(t, retired)
	assert.Empty(t, st.screenings)
}

func TestFindOpenSlotsUsesRoomSchedule(t *testing.T) {
	_, s := newSchedulerFixture(t)
	ctx := context.Background()

	slots, err := s.FindOpenSlots(ctx, 1, showDate, 120)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, model.Slot{Start: "11:00", End: "13:00"}, slots[0])
	assert.Equal(t, model.Slot{Start: "12:00", End: "14:00"}, slots[2])
	assert.Equal(t, model.Slot{Start: "16:00", End: "18:00"}, slots[3])
	for _, sl := range slots {
		assert.False(t, sl.Start < "16:00" && sl.End > "14:00", "slot %v overlaps the 14:00 screening", sl)
	}

	_, err = s.FindOpenSlots(ctx, 1, showDate, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = s.FindOpenSlots(ctx, 404, showDate, 60)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRoomChangeHook(t *testing.T) {
	st, s := newSchedulerFixture(t)
	ctx := context.Background()
	st.addRoom(model.Room{ID: 3, Name: "Studio", SeatRows: 3, SeatCols: 8, IsActive: true})

	var rooms []uint64
	s.OnRoomChange(func(_ context.Context, id uint64) { rooms = append(rooms, id) })

	_, err := s.UpdateScreening(ctx, admin, 10, ScreeningInput{
		RoomID: 3, MovieID: 3, MovieTitle: "Heat", ShowDate: showDate, StartTime: "14:00", EndTime: "16:00",
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, rooms, "moving a screening touches both rooms")

	rooms = nil
	_, err = s.CreateScreening(ctx, admin, ScreeningInput{
		RoomID: 3, MovieID: 4, MovieTitle: "Ran", ShowDate: showDate, StartTime: "15:00", EndTime: "17:00",
	})
	require.Error(t, err)
	assert.Empty(t, rooms, "failed writes change nothing")

	r, err := s.CreateRental(ctx, corp, RentalInput{RoomID: 1, Purpose: "offsite", RentalDate: showDate, StartTime: "18:00", EndTime: "19:00"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteRental(ctx, corp, r.ID))
	_, err = s.DeleteScreening(ctx, admin, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 1, 3}, rooms)
}
