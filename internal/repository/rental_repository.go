package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// RentalRepo manages persistence for room rentals.
type RentalRepo struct {
    db *sql.DB
}

// NewRentalRepo constructs a RentalRepo with the given DB handle.
func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{db: db} }

// GetRental retrieves a rental by its ID.  It returns ErrRentalNotFound if
// there is no matching row.
func (r *RentalRepo) GetRental(ctx context.Context, id uint64) (*model.RoomRental, error) {
    const q = `SELECT id, room_id, client_id, purpose, price_cents, DATE_FORMAT(rental_date, '%Y-%m-%d'),
                      TIME_FORMAT(start_time, '%H:%i'), TIME_FORMAT(end_time, '%H:%i'), created_at, updated_at
               FROM room_rentals WHERE id = ?`
    var rr model.RoomRental
    err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
        &rr.ID, &rr.RoomID, &rr.ClientID, &rr.Purpose, &rr.PriceCents, &rr.RentalDate,
        &rr.StartTime, &rr.EndTime, &rr.CreatedAt, &rr.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRentalNotFound
        }
        return nil, err
    }
    return &rr, nil
}

// CreateRental inserts rr and assigns the generated ID.
func (r *RentalRepo) CreateRental(ctx context.Context, rr *model.RoomRental) error {
    const q = `INSERT INTO room_rentals
               (room_id, client_id, purpose, price_cents, rental_date, start_time, end_time, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        rr.RoomID, rr.ClientID, rr.Purpose, rr.PriceCents, rr.RentalDate, rr.StartTime, rr.EndTime,
        rr.CreatedAt.UTC(), rr.UpdatedAt.UTC(),
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rr.ID = uint64(id)
    return nil
}

// UpdateRental overwrites rr.
func (r *RentalRepo) UpdateRental(ctx context.Context, rr *model.RoomRental) error {
    const q = `UPDATE room_rentals
               SET room_id = ?, client_id = ?, purpose = ?, price_cents = ?, rental_date = ?, start_time = ?, end_time = ?, updated_at = ?
               WHERE id = ?`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        rr.RoomID, rr.ClientID, rr.Purpose, rr.PriceCents, rr.RentalDate, rr.StartTime, rr.EndTime,
        rr.UpdatedAt.UTC(), rr.ID,
    )
    if err != nil {
        return err
    }
    return requireRow(res, ErrRentalNotFound)
}

// DeleteRental removes a rental.
func (r *RentalRepo) DeleteRental(ctx context.Context, id uint64) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM room_rentals WHERE id = ?`, id)
    if err != nil {
        return err
    }
    return requireRow(res, ErrRentalNotFound)
}
