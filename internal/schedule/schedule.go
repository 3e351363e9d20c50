// Package schedule holds the interval arithmetic behind room scheduling.
// All functions are pure: callers load the bookings for one room and date
// and pass them in.  Times of day are "HH:MM" strings on the wire and
// minutes since midnight inside this package.  Ranges are half-open, so a
// booking ending at 16:00 and another starting at 16:00 do not collide.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// Operating window and scan step used by FindOpenSlots.
const (
	DayOpen  = 11 * 60
	DayClose = 23 * 60
	SlotStep = 30
)

const minutesPerDay = 24 * 60

// Range is a half-open [Start, End) interval in minutes since midnight.
type Range struct {
	Start int
	End   int
}

// Overlaps reports whether r and o share at least one minute.
func (r Range) Overlaps(o Range) bool { return Overlaps(r.Start, r.End, o.Start, o.End) }

// Overlaps is half-open interval intersection: startA < endB && endA > startB.
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}

// ParseClock parses "HH:MM" (or "HH:MM:SS" with zero seconds, as MySQL
// returns TIME columns) into minutes since midnight.
func ParseClock(s string) (int, error) {
	return parseClock(s, false)
}

// ParseEndClock is ParseClock for the end of a range, where "24:00" is
// allowed and means midnight at the close of the day.
func ParseEndClock(s string) (int, error) {
	return parseClock(s, true)
}

func parseClock(s string, end bool) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 3 {
		if parts[2] != "00" {
			return 0, fmt.Errorf("time %q: seconds are not supported", s)
		}
		parts = parts[:2]
	}
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 || (h == 24 && !end) {
		return 0, fmt.Errorf("time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q: bad minute", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ParseRange parses a start/end pair and checks that start is before end.
func ParseRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}
	e, err := ParseEndClock(end)
	if err != nil {
		return Range{}, err
	}
	if s >= e {
		return Range{}, fmt.Errorf("start %s must be before end %s", FormatClock(s), FormatClock(e))
	}
	return Range{Start: s, End: e}, nil
}

// ComputeEnd adds minutes to start.  Bookings cannot cross midnight: a
// result of exactly 24:00 is allowed, anything later is an error.
func ComputeEnd(start string, minutes int) (string, error) {
	s, err := ParseClock(start)
	if err != nil {
		return "", err
	}
	if minutes <= 0 {
		return "", fmt.Errorf("duration must be positive, got %d", minutes)
	}
	e := s + minutes
	if e > minutesPerDay {
		return "", fmt.Errorf("%s plus %d minutes runs past midnight", FormatClock(s), minutes)
	}
	return FormatClock(e), nil
}

// Conflicts returns every entry that overlaps candidate, skipping the
// entries listed in exclude.  An entry whose stored times cannot be parsed
// makes the whole check fail rather than being silently ignored.
func Conflicts(candidate Range, entries []model.ScheduleEntry, exclude []model.EntryRef) ([]model.ConflictInfo, error) {
	conflicts := []model.ConflictInfo{}
	for _, e := range entries {
		if excluded(e, exclude) {
			continue
		}
		r, err := ParseRange(e.StartTime, e.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", e.Kind, e.ID, err)
		}
		if !candidate.Overlaps(r) {
			continue
		}
		conflicts = append(conflicts, model.ConflictInfo{
			Kind:      e.Kind,
			ID:        e.ID,
			Label:     e.Label,
			StartTime: FormatClock(r.Start),
			EndTime:   FormatClock(r.End),
		})
	}
	return conflicts, nil
}

func excluded(e model.ScheduleEntry, exclude []model.EntryRef) bool {
	for _, x := range exclude {
		if x.Kind == e.Kind && x.ID == e.ID {
			return true
		}
	}
	return false
}

// FindOpenSlots walks the operating window in SlotStep increments and
// returns every window of the given length that collides with nothing.
// When a candidate collides, the cursor jumps to the end of the latest
// colliding booking instead of stepping.
func FindOpenSlots(entries []model.ScheduleEntry, minutes int) ([]model.Slot, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", minutes)
	}
	booked := make([]Range, 0, len(entries))
	for _, e := range entries {
		r, err := ParseRange(e.StartTime, e.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", e.Kind, e.ID, err)
		}
		booked = append(booked, r)
	}
	sort.Slice(booked, func(i, j int) bool { return booked[i].Start < booked[j].Start })

	slots := []model.Slot{}
	cursor := DayOpen
	for cursor+minutes <= DayClose {
		cand := Range{Start: cursor, End: cursor + minutes}
		jump := -1
		for _, b := range booked {
			if cand.Overlaps(b) && b.End > jump {
				jump = b.End
			}
		}
		if jump >= 0 {
			cursor = jump
			continue
		}
		slots = append(slots, model.Slot{Start: FormatClock(cand.Start), End: FormatClock(cand.End)})
		cursor += SlotStep
	}
	return slots, nil
}
