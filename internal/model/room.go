package model

import "strings"

// Room is an auditorium that screenings and rentals are scheduled into.
// Rooms are owned by the catalog; this service only reads them.  The seating
// layout is a rectangular grid: rows are labelled A, B, ... Z, AA, AB ...
// and seats within a row are numbered from 1 to SeatCols.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – display name of the room.
//  SeatRows – number of seating rows.
//  SeatCols – number of seats per row.
//  IsActive – whether the room accepts new bookings.
type Room struct {
    ID       uint64 `json:"id"`        // rooms.id
    Name     string `json:"name"`      // rooms.name
    SeatRows uint32 `json:"seat_rows"` // rooms.seat_rows
    SeatCols uint32 `json:"seat_cols"` // rooms.seat_cols
    IsActive bool   `json:"is_active"` // rooms.is_active
}

// HasSeat reports whether the row label and seat number fall inside the
// room's layout.
func (r *Room) HasSeat(rowLabel string, seatNumber uint32) bool {
    if seatNumber == 0 || seatNumber > r.SeatCols {
        return false
    }
    idx, ok := RowLabelToIndex(rowLabel)
    return ok && idx < int(r.SeatRows)
}

// IndexToRowLabel converts a zero-based index to an alphabetical row label like A, B, AA.
func IndexToRowLabel(i int) string {
    if i < 0 {
        return ""
    }
    res := []rune{}
    for {
        rem := i % 26
        res = append(res, rune('A'+rem))
        i = i/26 - 1
        if i < 0 {
            break
        }
    }
    for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
        res[j], res[k] = res[k], res[j]
    }
    return string(res)
}

// RowLabelToIndex converts a row label like A or AA into its zero-based index.
func RowLabelToIndex(label string) (int, bool) {
    s := NormalizeRowLabel(label)
    if s == "" || s != strings.ToUpper(strings.TrimSpace(label)) {
        return -1, false
    }
    n := 0
    for i := 0; i < len(s); i++ {
        n = n*26 + int(s[i]-'A'+1)
    }
    return n - 1, true
}

// NormalizeRowLabel strips non ASCII letters and converts to uppercase.
func NormalizeRowLabel(raw string) string {
    var b strings.Builder
    for _, r := range raw {
        if r >= 'a' && r <= 'z' {
            b.WriteRune(r - 32)
        } else if r >= 'A' && r <= 'Z' {
            b.WriteRune(r)
        }
    }
    return b.String()
}
