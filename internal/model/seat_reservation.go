package model

import (
    "fmt"
    "time"
)

// HoldDuration is how long a seat hold stays valid after it is placed.
const HoldDuration = 5 * time.Minute

// ReservationState is the state stored on a seat_reservations row.  A seat
// without a row is free; SeatFree is only used when presenting seat maps.
type ReservationState string

const (
    StateHeld     ReservationState = "HELD"
    StateOccupied ReservationState = "OCCUPIED"
    SeatFree      ReservationState = "FREE"
)

// SeatKey identifies one physical seat for one show.
type SeatKey struct {
    ShowID     uint64 `json:"show_id"`
    RowLabel   string `json:"row_label"`
    SeatNumber uint32 `json:"seat_number"`
}

func (k SeatKey) String() string {
    return fmt.Sprintf("%d/%s%d", k.ShowID, k.RowLabel, k.SeatNumber)
}

// SeatReservation represents the claim on a seat during checkout and after
// purchase.  A row exists only while the seat is held or occupied.  Holds
// expire at HoldExpiresAt; an expired hold whose row has not yet been
// removed is stale and is treated as free by every reader and writer.
//
// Fields:
//  ID            – primary key identifier.
//  ShowID        – screening the seat belongs to.
//  RowLabel      – row of the seat (A, B, AA ...).
//  SeatNumber    – number of the seat within the row.
//  State         – HELD or OCCUPIED.
//  HolderID      – user who placed the hold or owns the ticket.
//  HoldToken     – opaque token returned to the client.
//  HoldExpiresAt – when a HELD row stops being valid; zero once OCCUPIED.
//  CreatedAt     – when the row was created.
//  UpdatedAt     – last state change.
type SeatReservation struct {
    ID            uint64           `json:"id"`
    ShowID        uint64           `json:"show_id"`
    RowLabel      string           `json:"row_label"`
    SeatNumber    uint32           `json:"seat_number"`
    State         ReservationState `json:"state"`
    HolderID      uint64           `json:"holder_id"`
    HoldToken     string           `json:"hold_token,omitempty"`
    HoldExpiresAt time.Time        `json:"hold_expires_at,omitzero"`
    CreatedAt     time.Time        `json:"created_at"`
    UpdatedAt     time.Time        `json:"updated_at"`
}

// Key returns the seat identity of the reservation.
func (r *SeatReservation) Key() SeatKey {
    return SeatKey{ShowID: r.ShowID, RowLabel: r.RowLabel, SeatNumber: r.SeatNumber}
}

// IsStale reports whether the row is a hold whose expiry has passed.  The
// same test is used by the SQL sweep: state = HELD AND hold_expires_at <= now.
func (r *SeatReservation) IsStale(now time.Time) bool {
    return r.State == StateHeld && !now.Before(r.HoldExpiresAt)
}

// SeatStatus is one cell of a show's seat map.
type SeatStatus struct {
    RowLabel   string           `json:"row_label"`
    SeatNumber uint32           `json:"seat_number"`
    Status     ReservationState `json:"status"`
    Mine       bool             `json:"mine,omitempty"`
    ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
}
