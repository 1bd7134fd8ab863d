package schedule

import "time"

// Weekday names a day of the week as stored on an activity.
type Weekday string

// The seven canonical weekday values.
const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists the canonical values in planner order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid reports whether w is one of the seven canonical values.
func (w Weekday) Valid() bool {
	for _, day := range Weekdays {
		if w == day {
			return true
		}
	}
	return false
}

// Ordinal returns the position of w in planner order (Monday = 0), or -1
// for an unknown value.
func (w Weekday) Ordinal() int {
	for i, day := range Weekdays {
		if w == day {
			return i
		}
	}
	return -1
}

// Candidate is a transient activity evaluated for conflicts before it is
// ever persisted. A stored activity participates in scans in the same
// shape.
type Candidate struct {
	ID          string
	Title       string
	Description string
	Category    string
	Day         Weekday
	Start       string // "HH:MM", 24-hour
	DurationMin int
	Recurring   bool
	// Date places a non-recurring candidate on a single calendar day. It
	// is ignored when Recurring is true. Legacy non-recurring rows may
	// carry nil; they match no specific date.
	Date *time.Time
}

// interval returns the occupied [start, end) window in minutes since
// midnight. End is not clamped to 24h: a 23:00 activity of 120 minutes
// ends at minute 1500.
func (c Candidate) interval() (start, end int, err error) {
	start, err = ParseClock(c.Start)
	if err != nil {
		return 0, 0, err
	}
	return start, start + c.DurationMin, nil
}

// sameDate compares two calendar dates at day granularity. A nil on
// either side never matches.
func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
