package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// SeatReservationRepo provides data access to the seat_reservations table.
// The UNIQUE (show_id, row_label, seat_number) key is what stops two
// buyers from holding the same seat; InsertReservation reports a lost race
// as model.ErrDuplicate.  All timestamps are written and compared in UTC.
type SeatReservationRepo struct {
    db *sql.DB
}

// NewSeatReservationRepo returns a new SeatReservationRepo bound to the provided database.
func NewSeatReservationRepo(db *sql.DB) *SeatReservationRepo { return &SeatReservationRepo{db: db} }

const reservationCols = `id, show_id, row_label, seat_number, state, holder_id, hold_token, hold_expires_at, created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.SeatReservation, error) {
    var (
        r       model.SeatReservation
        state   string
        token   sql.NullString
        expires sql.NullTime
    )
    if err := row.Scan(&r.ID, &r.ShowID, &r.RowLabel, &r.SeatNumber, &state, &r.HolderID, &token, &expires, &r.CreatedAt, &r.UpdatedAt); err != nil {
        return nil, err
    }
    r.State = model.ReservationState(state)
    r.HoldToken = token.String
    if expires.Valid {
        r.HoldExpiresAt = expires.Time
    }
    return &r, nil
}

func (r *SeatReservationRepo) find(ctx context.Context, key model.SeatKey, suffix string) (*model.SeatReservation, error) {
    q := `SELECT ` + reservationCols + ` FROM seat_reservations
          WHERE show_id = ? AND row_label = ? AND seat_number = ?` + suffix
    res, err := scanReservation(conn(ctx, r.db).QueryRowContext(ctx, q, key.ShowID, key.RowLabel, key.SeatNumber))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    return res, err
}

// FindReservation returns the row for the seat, or nil when the seat is free.
func (r *SeatReservationRepo) FindReservation(ctx context.Context, key model.SeatKey) (*model.SeatReservation, error) {
    return r.find(ctx, key, "")
}

// FindReservationForUpdate is FindReservation with a row lock held until
// the surrounding transaction ends.  When no row exists InnoDB still locks
// the gap, which blocks a concurrent insert of the same seat.
func (r *SeatReservationRepo) FindReservationForUpdate(ctx context.Context, key model.SeatKey) (*model.SeatReservation, error) {
    return r.find(ctx, key, " FOR UPDATE")
}

// InsertReservation creates the row and sets its ID.
func (r *SeatReservationRepo) InsertReservation(ctx context.Context, res *model.SeatReservation) error {
    const q = `INSERT INTO seat_reservations
               (show_id, row_label, seat_number, state, holder_id, hold_token, hold_expires_at, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var expires sql.NullTime
    if res.State == model.StateHeld {
        expires = sql.NullTime{Time: res.HoldExpiresAt.UTC(), Valid: true}
    }
    result, err := conn(ctx, r.db).ExecContext(ctx, q,
        res.ShowID, res.RowLabel, res.SeatNumber, string(res.State), res.HolderID,
        nullString(res.HoldToken), expires, res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
    )
    if err != nil {
        return classify(err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    res.ID = uint64(id)
    return nil
}

// MarkOccupied turns a HELD row into OCCUPIED for holderID and clears the
// hold fields.
func (r *SeatReservationRepo) MarkOccupied(ctx context.Context, id, holderID uint64, now time.Time) error {
    const q = `UPDATE seat_reservations
               SET state = 'OCCUPIED', holder_id = ?, hold_token = NULL, hold_expires_at = NULL, updated_at = ?
               WHERE id = ?`
    _, err := conn(ctx, r.db).ExecContext(ctx, q, holderID, now.UTC(), id)
    return err
}

// DeleteReservation removes a row by primary key.
func (r *SeatReservationRepo) DeleteReservation(ctx context.Context, id uint64) error {
    _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM seat_reservations WHERE id = ?`, id)
    return err
}

// DeleteReservationByKey removes the seat's row if any and reports whether
// one was removed.
func (r *SeatReservationRepo) DeleteReservationByKey(ctx context.Context, key model.SeatKey) (bool, error) {
    const q = `DELETE FROM seat_reservations WHERE show_id = ? AND row_label = ? AND seat_number = ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, key.ShowID, key.RowLabel, key.SeatNumber)
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// DeleteStaleReservation removes the row only while it is still an expired
// hold.  A row that was committed or re-held in the meantime is left alone.
func (r *SeatReservationRepo) DeleteStaleReservation(ctx context.Context, id uint64, now time.Time) (bool, error) {
    const q = `DELETE FROM seat_reservations WHERE id = ? AND state = 'HELD' AND hold_expires_at <= ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, id, now.UTC())
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// ListReservations returns every row of the show, stale holds included.
func (r *SeatReservationRepo) ListReservations(ctx context.Context, showID uint64) ([]model.SeatReservation, error) {
    q := `SELECT ` + reservationCols + ` FROM seat_reservations WHERE show_id = ? ORDER BY row_label, seat_number`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, showID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.SeatReservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// DeleteExpiredHolds removes up to limit holds that expired at or before
// now.  The (state, hold_expires_at) index keeps the scan to stale rows.
func (r *SeatReservationRepo) DeleteExpiredHolds(ctx context.Context, now time.Time, limit int) (int64, error) {
    const q = `DELETE FROM seat_reservations
               WHERE state = 'HELD' AND hold_expires_at <= ?
               ORDER BY hold_expires_at
               LIMIT ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q, now.UTC(), limit)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
