package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// RoomRepo reads the rooms catalog.  Rooms are managed elsewhere; the
// booking core only needs their seat layout and a row to lock on.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

func (r *RoomRepo) get(ctx context.Context, id uint64, suffix string) (*model.Room, error) {
    q := `SELECT id, name, seat_rows, seat_cols, is_active FROM rooms WHERE id = ?` + suffix
    var room model.Room
    err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(&room.ID, &room.Name, &room.SeatRows, &room.SeatCols, &room.IsActive)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrRoomNotFound
        }
        return nil, err
    }
    return &room, nil
}

// GetRoom retrieves a room by its ID.  It returns ErrRoomNotFound if
// there is no matching row.
func (r *RoomRepo) GetRoom(ctx context.Context, id uint64) (*model.Room, error) {
    return r.get(ctx, id, "")
}

// LockRoom is GetRoom with SELECT ... FOR UPDATE.  Schedule writers call it
// first so overlap checks for one room never run concurrently.
func (r *RoomRepo) LockRoom(ctx context.Context, id uint64) (*model.Room, error) {
    return r.get(ctx, id, " FOR UPDATE")
}
