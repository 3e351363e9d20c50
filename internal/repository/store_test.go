package repository

import (
    "context"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-booking-core/internal/model"
    "github.com/iliyamo/cinema-booking-core/internal/service"
)

var _ service.Store = (*Store)(nil)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() {
        assert.NoError(t, mock.ExpectationsWereMet())
        db.Close()
    })
    return NewStore(db), mock
}

var now = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

func TestClassify(t *testing.T) {
    assert.NoError(t, classify(nil))
    assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), model.ErrDuplicate)
    assert.ErrorIs(t, classify(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}), model.ErrDuplicate)

    other := &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}
    assert.Same(t, other, classify(other))
}

func TestWithTxCommits(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_reservations WHERE id = ?`)).
        WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    err := st.WithTx(context.Background(), func(ctx context.Context) error {
        return st.DeleteReservation(ctx, 7)
    })
    require.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
    st, mock := newMock(t)
    boom := errors.New("boom")
    mock.ExpectBegin()
    mock.ExpectRollback()

    err := st.WithTx(context.Background(), func(ctx context.Context) error { return boom })
    assert.ErrorIs(t, err, boom)
}

func TestWithTxNestedReusesOuter(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tickets WHERE id = ?`)).
        WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    err := st.WithTx(context.Background(), func(ctx context.Context) error {
        return st.WithTx(ctx, func(ctx context.Context) error {
            return st.DeleteTicket(ctx, 3)
        })
    })
    require.NoError(t, err)
}

func TestInsertReservationDuplicate(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_reservations`)).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '10-A-1' for key 'uq_seat'"})

    err := st.InsertReservation(context.Background(), &model.SeatReservation{
        ShowID: 10, RowLabel: "A", SeatNumber: 1, State: model.StateHeld, HolderID: 1,
        HoldToken: "tok", HoldExpiresAt: now.Add(5 * time.Minute), CreatedAt: now, UpdatedAt: now,
    })
    assert.ErrorIs(t, err, model.ErrDuplicate)
}

func TestInsertReservationSetsID(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO seat_reservations`)).
        WithArgs(uint64(10), "A", uint32(1), "OCCUPIED", uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), now, now).
        WillReturnResult(sqlmock.NewResult(41, 1))

    r := &model.SeatReservation{ShowID: 10, RowLabel: "A", SeatNumber: 1, State: model.StateOccupied, HolderID: 1, CreatedAt: now, UpdatedAt: now}
    require.NoError(t, st.InsertReservation(context.Background(), r))
    assert.Equal(t, uint64(41), r.ID)
}

func TestFindReservation(t *testing.T) {
    st, mock := newMock(t)
    key := model.SeatKey{ShowID: 10, RowLabel: "A", SeatNumber: 1}
    cols := []string{"id", "show_id", "row_label", "seat_number", "state", "holder_id", "hold_token", "hold_expires_at", "created_at", "updated_at"}

    mock.ExpectQuery(regexp.QuoteMeta(`FROM seat_reservations`)).
        WithArgs(key.ShowID, key.RowLabel, key.SeatNumber).
        WillReturnRows(sqlmock.NewRows(cols))
    r, err := st.FindReservation(context.Background(), key)
    require.NoError(t, err)
    assert.Nil(t, r, "no row means the seat is free")

    exp := now.Add(5 * time.Minute)
    mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
        WithArgs(key.ShowID, key.RowLabel, key.SeatNumber).
        WillReturnRows(sqlmock.NewRows(cols).AddRow(5, 10, "A", 1, "HELD", 2, "tok", exp, now, now))
    r, err = st.FindReservationForUpdate(context.Background(), key)
    require.NoError(t, err)
    require.NotNil(t, r)
    assert.Equal(t, model.StateHeld, r.State)
    assert.Equal(t, exp, r.HoldExpiresAt)
    assert.Equal(t, "tok", r.HoldToken)
    assert.True(t, r.IsStale(exp))
}

func TestDeleteStaleReservation(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM seat_reservations WHERE id = ? AND state = 'HELD' AND hold_expires_at <= ?`)).
        WithArgs(5, now).WillReturnResult(sqlmock.NewResult(0, 0))

    gone, err := st.DeleteStaleReservation(context.Background(), 5, now)
    require.NoError(t, err)
    assert.False(t, gone)
}

func TestDeleteExpiredHolds(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`WHERE state = 'HELD' AND hold_expires_at <= ?`)).
        WithArgs(now, 500).WillReturnResult(sqlmock.NewResult(0, 12))

    n, err := st.DeleteExpiredHolds(context.Background(), now, 500)
    require.NoError(t, err)
    assert.EqualValues(t, 12, n)
}

func TestGetScreeningNotFound(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta(`FROM screenings WHERE id = ?`)).
        WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"id"}))

    _, err := st.GetScreening(context.Background(), 9)
    assert.ErrorIs(t, err, model.ErrNotFound)
    assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestListEntries(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta(`UNION ALL`)).
        WithArgs(1, "2030-03-01", 1, "2030-03-01").
        WillReturnRows(sqlmock.NewRows([]string{"kind", "id", "room_id", "date", "start", "end", "label"}).
            AddRow("screening", 10, 1, "2030-03-01", "14:00", "16:00", "Heat").
            AddRow("rental", 3, 1, "2030-03-01", "18:00", "20:00", "offsite"))

    entries, err := st.ListEntries(context.Background(), 1, "2030-03-01")
    require.NoError(t, err)
    require.Len(t, entries, 2)
    assert.Equal(t, model.KindScreening, entries[0].Kind)
    assert.Equal(t, model.ScheduleEntry{Kind: model.KindRental, ID: 3, RoomID: 1, Date: "2030-03-01", StartTime: "18:00", EndTime: "20:00", Label: "offsite"}, entries[1])
}

func TestLockRoom(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta(`FROM rooms WHERE id = ? FOR UPDATE`)).
        WithArgs(1).
        WillReturnRows(sqlmock.NewRows([]string{"id", "name", "seat_rows", "seat_cols", "is_active"}).AddRow(1, "Main", 5, 10, true))

    r, err := st.LockRoom(context.Background(), 1)
    require.NoError(t, err)
    assert.Equal(t, "Main", r.Name)
    assert.True(t, r.HasSeat("E", 10))
}

func TestGetPurchaseWithPayment(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN payments pay ON pay.purchase_id = p.id`)).
        WithArgs(4).
        WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "status", "created_at"}).AddRow(4, 1, "COMPLETED", now))

    p, err := st.GetPurchase(context.Background(), 4)
    require.NoError(t, err)
    assert.True(t, p.Locked())
}

func TestUpsertPayment(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`ON DUPLICATE KEY UPDATE`)).
        WithArgs(4, "REFUNDED", sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(0, 2))

    require.NoError(t, st.UpsertPayment(context.Background(), 4, "REFUNDED", ""))
}

func TestDeleteTicketMissing(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tickets WHERE id = ?`)).
        WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))

    assert.ErrorIs(t, st.DeleteTicket(context.Background(), 8), ErrTicketNotFound)
}

func TestInsertTicketDuplicate(t *testing.T) {
    st, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tickets`)).
        WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_ticket_reservation'"})

    err := st.InsertTicket(context.Background(), &model.Ticket{PurchaseID: 1, SeatReservationID: 5, CreatedAt: now})
    assert.ErrorIs(t, err, model.ErrDuplicate)
}
