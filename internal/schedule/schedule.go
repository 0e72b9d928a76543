// Package schedule turns weekly opening hours into bookable slot start times.
// Everything here is pure: no I/O, no clocks.
package schedule

import (
	"fmt"
	"time"
)

// SlotDuration is the fixed length of one bookable slot.
const SlotDuration = 60 * time.Minute

// TimeOfDay is a wall-clock time expressed as minutes after midnight.
type TimeOfDay int

// ParseTimeOfDay parses a strict "HH:MM" string: two ASCII digits, a colon
// and two ASCII digits. Signs, spaces and single-digit hours are rejected so
// that every accepted input has exactly one canonical spelling.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' || !isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 24 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q: out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// MustParseTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Period is one opening interval within a day, [Open, Close).
type Period struct {
	Open  TimeOfDay
	Close TimeOfDay
}

// WeeklyHours maps a weekday to its ordered opening periods.
// A missing or empty entry means the location is closed that day.
type WeeklyHours map[time.Weekday][]Period

// Validate checks that every day's periods are well formed, ordered and
// non-overlapping.
func (w WeeklyHours) Validate() error {
	for day, periods := range w {
		for i, p := range periods {
			if p.Open >= p.Close {
				return fmt.Errorf("%s period %d: open %s is not before close %s", day, i, p.Open, p.Close)
			}
			if i > 0 && p.Open < periods[i-1].Close {
				return fmt.Errorf("%s period %d: overlaps or precedes previous period", day, i)
			}
		}
	}
	return nil
}

// PeriodsFor returns the opening periods that apply on the given date.
func (w WeeklyHours) PeriodsFor(date time.Time) []Period {
	return w[date.Weekday()]
}

// Generate walks each period in SlotDuration steps and emits every start
// time whose slot ends on or before the period's close. Periods are
// concatenated in the order given.
func Generate(periods []Period) []TimeOfDay {
	step := TimeOfDay(SlotDuration / time.Minute)
	var slots []TimeOfDay
	for _, p := range periods {
		for start := p.Open; start+step <= p.Close; start += step {
			slots = append(slots, start)
		}
	}
	return slots
}

// SlotsForDate returns the formatted slot start times for date.
func SlotsForDate(hours WeeklyHours, date time.Time) []string {
	slots := Generate(hours.PeriodsFor(date))
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

// Contains reports whether slot is one of the start times offered on date.
func Contains(hours WeeklyHours, date time.Time, slot string) bool {
	want, err := ParseTimeOfDay(slot)
	if err != nil {
		return false
	}
	for _, s := range Generate(hours.PeriodsFor(date)) {
		if s == want {
			return true
		}
	}
	return false
}

// OpenAt reports whether t falls inside one of the opening periods of its
// weekday. t must already be in the location's timezone.
func OpenAt(hours WeeklyHours, t time.Time) bool {
	now := TimeOfDay(t.Hour()*60 + t.Minute())
	for _, p := range hours.PeriodsFor(t) {
		if now >= p.Open && now < p.Close {
			return true
		}
	}
	return false
}
