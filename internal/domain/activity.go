package domain

import (
	"time"

	"example.com/schedule/internal/schedule"
)

// ActivityAggregate is the scheduled activity as stored in Postgres. Its
// schedule fields are immutable once stored except through an explicit
// reschedule; Completed is the only field toggled in place.
type ActivityAggregate struct {
	ID          string
	TenantID    string
	UserID      string
	Title       string
	Description string
	Category    string
	Day         schedule.Weekday
	Start       string // normalized "HH:MM"
	DurationMin int
	Recurring   bool
	Date        *time.Time
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Candidate projects the aggregate into the shape the scheduling engine
// scans.
func (a ActivityAggregate) Candidate() schedule.Candidate {
	return schedule.Candidate{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Category:    a.Category,
		Day:         a.Day,
		Start:       a.Start,
		DurationMin: a.DurationMin,
		Recurring:   a.Recurring,
		Date:        a.Date,
	}
}

// Cursor models the pagination token for user listings, keyed by the
// planner ordering (day, start, id).
type Cursor struct {
	Day   schedule.Weekday
	Start string
	ID    string
}
