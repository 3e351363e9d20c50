package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/cinema-booking-core/internal/model"
)

// TicketRepo provides data access to tickets.  tickets.seat_reservation_id
// is UNIQUE, which keeps tickets and occupied seats one to one.
type TicketRepo struct {
    db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketCols = `id, purchase_id, seat_reservation_id, show_id, row_label, seat_number, price_cents, code, created_at`

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
    var t model.Ticket
    if err := row.Scan(&t.ID, &t.PurchaseID, &t.SeatReservationID, &t.ShowID, &t.RowLabel, &t.SeatNumber, &t.PriceCents, &t.Code, &t.CreatedAt); err != nil {
        return nil, err
    }
    return &t, nil
}

// InsertTicket inserts t and assigns the generated ID.  A second ticket for
// the same seat reservation fails with model.ErrDuplicate.
func (r *TicketRepo) InsertTicket(ctx context.Context, t *model.Ticket) error {
    const q = `INSERT INTO tickets (purchase_id, seat_reservation_id, show_id, row_label, seat_number, price_cents, code, created_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    res, err := conn(ctx, r.db).ExecContext(ctx, q,
        t.PurchaseID, t.SeatReservationID, t.ShowID, t.RowLabel, t.SeatNumber, t.PriceCents, t.Code, t.CreatedAt.UTC())
    if err != nil {
        return classify(err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// GetTicket retrieves a ticket by its ID.  It returns ErrTicketNotFound if
// there is no matching row.
func (r *TicketRepo) GetTicket(ctx context.Context, id uint64) (*model.Ticket, error) {
    t, err := scanTicket(conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+ticketCols+` FROM tickets WHERE id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTicketNotFound
    }
    return t, err
}

// ListTickets returns the tickets of a purchase ordered by ID.
func (r *TicketRepo) ListTickets(ctx context.Context, purchaseID uint64) ([]model.Ticket, error) {
    rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+ticketCols+` FROM tickets WHERE purchase_id = ? ORDER BY id`, purchaseID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Ticket
    for rows.Next() {
        t, err := scanTicket(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *t)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// DeleteTicket removes a ticket.
func (r *TicketRepo) DeleteTicket(ctx context.Context, id uint64) error {
    res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
    if err != nil {
        return err
    }
    return requireRow(res, ErrTicketNotFound)
}
