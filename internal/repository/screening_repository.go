package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// ScreeningRepo manages persistence for screenings and builds the per-room
// schedule that overlap checks run against.  Dates are DATE columns and
// times are TIME columns; both are formatted in SQL so that callers always
// see "YYYY-MM-DD" and "HH:MM".
type ScreeningRepo struct {
    db *sql.DB
}

// NewScreeningRepo constructs a ScreeningRepo with the given DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo { return &ScreeningRepo{db: db} }

const screeningCols = `id, room_id, movie_id, movie_title, DATE_FORMAT(show_date, '%Y-%m-%d'),
       TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'),
       is_private, corporate_client_id, price_cents, status, created_at, updated_at`

// GetScreening retrieves a screening by its ID.  It returns ErrShowNotFound
// if there is no matching row.
func (r *ScreeningRepo) GetScreening(ctx context.Context, id uint64) (*model.Screening, error) {
    q := `SELECT ` + screeningCols + ` FROM screenings WHERE id = ?`
    var (
        s      model.Screening
        client sql.NullInt64
    )
    err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
        &s.ID, &s.RoomID, &s.MovieID, &s.MovieTitle, &s.ShowDate,
        &s.StartTime, &s.EndTime,
        &s.IsPrivate, &client, &s.PriceCents, &s.Status, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrShowNotFound
        }
        return nil, err
    }
    if client.Valid {
        id := uint64(client.Int64)
        s.CorporateClientID = &id
    }
    return &s, nil
}

// CreateScreening inserts s and assigns the generated ID.
func (r *ScreeningRepo) CreateScreening(ctx context.Context, s *model.Screening) error {
    const q = `INSERT INTO screenings
               (room_id, movie_id, movie_title, show_date, start_time, end_time, is_private, corporate_client_id, price_cents, status, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        s.RoomID, s.MovieID, s.MovieTitle, s.ShowDate, s.StartTime, s.EndTime,
        s.IsPrivate, s.CorporateClientID, s.PriceCents, s.Status, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// UpdateScreening overwrites the schedule and details of s.
func (r *ScreeningRepo) UpdateScreening(ctx context.Context, s *model.Screening) error {
    const q = `UPDATE screenings
               SET room_id = ?, movie_id = ?, movie_title = ?, show_date = ?, start_time = ?, end_time = ?,
                   is_private = ?, corporate_client_id = ?, price_cents = ?, updated_at = ?
               WHERE id = ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        s.RoomID, s.MovieID, s.MovieTitle, s.ShowDate, s.StartTime, s.EndTime,
        s.IsPrivate, s.CorporateClientID, s.PriceCents, s.UpdatedAt.UTC(), s.ID,
    )
    if err != nil {
        return err
    }
    return requireRow(res, ErrShowNotFound)
}

// DeleteScreening removes the screening row.
func (r *ScreeningRepo) DeleteScreening(ctx context.Context, id uint64) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM screenings WHERE id = ?`, id)
    if err != nil {
        return err
    }
    return requireRow(res, ErrShowNotFound)
}

// RetireScreening marks the screening RETIRED.  It stops occupying the room
// and stops accepting holds while its tickets stay intact.
func (r *ScreeningRepo) RetireScreening(ctx context.Context, id uint64) error {
    _, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE screenings SET status = 'RETIRED', updated_at = UTC_TIMESTAMP() WHERE id = ?`, id)
    return err
}

// ScreeningReferenced reports whether any seat reservation or ticket points
// at the screening.
func (r *ScreeningRepo) ScreeningReferenced(ctx context.Context, id uint64) (bool, error) {
    const q = `SELECT EXISTS(SELECT 1 FROM seat_reservations WHERE show_id = ?)
                   OR EXISTS(SELECT 1 FROM tickets WHERE show_id = ?)`
    var referenced bool
    if err := conn(ctx, r.db).QueryRowContext(ctx, q, id, id).Scan(&referenced); err != nil {
        return false, err
    }
    return referenced, nil
}

// ListEntries returns the active screenings and the rentals of one room on
// one date, ordered by start time.
func (r *ScreeningRepo) ListEntries(ctx context.Context, roomID uint64, date string) ([]model.ScheduleEntry, error) {
    const q = `SELECT 'screening', id, room_id, DATE_FORMAT(show_date, '%Y-%m-%d'),
                      TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'), movie_title
               FROM screenings
               WHERE room_id = ? AND show_date = ? AND status = 'ACTIVE'
               UNION ALL
               SELECT 'rental', id, room_id, DATE_FORMAT(rental_date, '%Y-%m-%d'),
                      TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'), purpose
               FROM room_rentals
               WHERE room_id = ? AND rental_date = ?
               ORDER BY 5, 2`
    rows, err := conn(ctx, r.db).QueryContext(ctx, q, roomID, date, roomID, date)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.ScheduleEntry
    for rows.Next() {
        var (
            e    model.ScheduleEntry
            kind string
        )
        if err := rows.Scan(&kind, &e.ID, &e.RoomID, &e.Date, &e.StartTime, &e.EndTime, &e.Label); err != nil {
            return nil, err
        }
        e.Kind = model.EntryKind(kind)
        out = append(out, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// requireRow turns "zero rows affected" into notFound.
func requireRow(res sql.Result, notFound error) error {
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return notFound
    }
    return nil
}
