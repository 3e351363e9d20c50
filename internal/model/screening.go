package model

import "time"

// Screening statuses.  A RETIRED screening keeps its history (tickets,
// reservations) but no longer occupies its room or accepts holds.
const (
    ScreeningActive  = "ACTIVE"
    ScreeningRetired = "RETIRED"
)

// PrivateScreeningMinutes is the fixed length of a private screening.  The
// end time of a private screening is always derived from it, never taken
// from the request or the movie runtime.
const PrivateScreeningMinutes = 180

// Screening represents a scheduled showing of a movie in a room.  It is the
// "show" that seats are held against.  Times are wall-clock "HH:MM" strings
// on ShowDate in the configured venue time zone.
//
// Fields:
//  ID                – primary key identifier.
//  RoomID            – room where the screening takes place.
//  MovieID           – catalog movie reference.
//  MovieTitle        – denormalised title used for diagnostics.
//  ShowDate          – calendar date "YYYY-MM-DD".
//  StartTime/EndTime – "HH:MM" wall-clock bounds, half-open.
//  IsPrivate         – private screenings last PrivateScreeningMinutes.
//  CorporateClientID – client that booked a private screening.
//  PriceCents        – default ticket price.
//  Status            – ACTIVE or RETIRED.
type Screening struct {
    ID                uint64    `json:"id"`
    RoomID            uint64    `json:"room_id"`
    MovieID           uint64    `json:"movie_id"`
    MovieTitle        string    `json:"movie_title"`
    ShowDate          string    `json:"show_date"`
    StartTime         string    `json:"start_time"`
    EndTime           string    `json:"end_time"`
    IsPrivate         bool      `json:"is_private"`
    CorporateClientID *uint64   `json:"corporate_client_id,omitempty"`
    PriceCents        uint32    `json:"price_cents"`
    Status            string    `json:"status"`
    CreatedAt         time.Time `json:"created_at"`
    UpdatedAt         time.Time `json:"updated_at"`
}

// StartsAt returns the absolute start instant of the screening in loc.
func (s *Screening) StartsAt(loc *time.Location) (time.Time, error) {
    return time.ParseInLocation("2006-01-02 15:04", s.ShowDate+" "+s.StartTime, loc)
}

// Entry returns the screening as a generic schedule entry.
func (s *Screening) Entry() ScheduleEntry {
    return ScheduleEntry{
        Kind:      KindScreening,
        ID:        s.ID,
        RoomID:    s.RoomID,
        Date:      s.ShowDate,
        StartTime: s.StartTime,
        EndTime:   s.EndTime,
        Label:     s.MovieTitle,
    }
}

// RoomRental is a room booked for a non-screening purpose, typically by a
// corporate client.
type RoomRental struct {
    ID         uint64    `json:"id"`
    RoomID     uint64    `json:"room_id"`
    ClientID   uint64    `json:"client_id"`
    Purpose    string    `json:"purpose"`
    PriceCents uint32    `json:"price_cents"`
    RentalDate string    `json:"rental_date"`
    StartTime  string    `json:"start_time"`
    EndTime    string    `json:"end_time"`
    CreatedAt  time.Time `json:"created_at"`
    UpdatedAt  time.Time `json:"updated_at"`
}

// Entry returns the rental as a generic schedule entry.
func (r *RoomRental) Entry() ScheduleEntry {
    return ScheduleEntry{
        Kind:      KindRental,
        ID:        r.ID,
        RoomID:    r.RoomID,
        Date:      r.RentalDate,
        StartTime: r.StartTime,
        EndTime:   r.EndTime,
        Label:     r.Purpose,
    }
}

// EntryKind distinguishes the two kinds of room bookings.
type EntryKind string

const (
    KindScreening EntryKind = "screening"
    KindRental    EntryKind = "rental"
)

// ScheduleEntry is the common shape of anything that occupies a room for a
// time range on a date.
type ScheduleEntry struct {
    Kind      EntryKind
    ID        uint64
    RoomID    uint64
    Date      string
    StartTime string
    EndTime   string
    Label     string
}

// EntryRef identifies one schedule entry.  Used to exclude the entry being
// edited from its own overlap check.
type EntryRef struct {
    Kind EntryKind
    ID   uint64
}

// ConflictInfo describes an existing booking that collides with a requested
// range.
type ConflictInfo struct {
    Kind      EntryKind `json:"kind"`
    ID        uint64    `json:"id"`
    Label     string    `json:"label"`
    StartTime string    `json:"start_time"`
    EndTime   string    `json:"end_time"`
}

// Availability is the result of a room availability check.
type Availability struct {
    Available bool           `json:"available"`
    Conflicts []ConflictInfo `json:"conflicts"`
}

// Slot is an open window in a room's day.
type Slot struct {
    Start string `json:"start"`
    End   string `json:"end"`
}
