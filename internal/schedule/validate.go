package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDay reports a weekday outside the canonical seven values.
	ErrInvalidDay = errors.New("invalid day of week")
	// ErrInvalidDuration reports a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrNoDays reports a create request without any requested day.
	ErrNoDays = errors.New("at least one day is required")
)

// CreateRequest describes a proposed new activity, possibly spanning
// several weekdays.
type CreateRequest struct {
	Title       string
	Description string
	Category    string
	Days        []Weekday
	Start       string // "HH:MM"
	DurationMin int
	// Date pins a single-day request to one calendar day. A multi-day
	// request is always recurring and ignores Date.
	Date *time.Time
}

// UpdateRequest carries the fields of a reschedule; nil fields keep the
// stored value. DateSet distinguishes "date absent from the request"
// from "date explicitly cleared", because both render Date nil.
type UpdateRequest struct {
	Title       *string
	Description *string
	Category    *string
	Day         *Weekday
	Start       *string
	DurationMin *int
	Date        *time.Time
	DateSet     bool
}

// Conflict names the existing activity that blocks a request, plus an
// optional adjacent-slot suggestion. It is a result value, not an error:
// a blocked request is an expected outcome the caller must branch on.
type Conflict struct {
	With       Candidate
	Day        Weekday
	Suggestion string // "HH:MM", or "" when no adjacent slot was found
}

// Outcome is the engine's verdict on a request: either every expanded
// candidate was accepted, or the first conflict encountered.
type Outcome struct {
	Accepted []Candidate
	Conflict *Conflict
}

// ValidateCreate expands the request into one candidate per requested
// day and scans each against the existing set. Expansion is
// all-or-nothing: the first conflicting day rejects the whole request and
// later days are never evaluated. A multi-day request is forced
// recurring with no date; a single-day request is recurring exactly when
// no date was supplied.
func ValidateCreate(req CreateRequest, existing []Candidate) (Outcome, error) {
	if len(req.Days) == 0 {
		return Outcome{}, ErrNoDays
	}
	if req.DurationMin <= 0 {
		return Outcome{}, ErrInvalidDuration
	}

	multiDay := len(req.Days) > 1
	accepted := make([]Candidate, 0, len(req.Days))
	for _, day := range req.Days {
		if !day.Valid() {
			return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDay, day)
		}

		cand := Candidate{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			Day:         day,
			Start:       req.Start,
			DurationMin: req.DurationMin,
		}
		if multiDay {
			cand.Recurring = true
		} else {
			cand.Recurring = req.Date == nil
			cand.Date = req.Date
		}

		dayPool := filterByDay(existing, day)
		blocking, err := FindConflict(cand, dayPool, "")
		if err != nil {
			return Outcome{}, err
		}
		if blocking != nil {
			suggestion, err := SuggestSlot(cand, dayPool, "")
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Conflict: &Conflict{With: *blocking, Day: day, Suggestion: suggestion}}, nil
		}
		accepted = append(accepted, cand)
	}
	return Outcome{Accepted: accepted}, nil
}

// ValidateUpdate merges the request over the stored activity and scans
// the merged result against everything except the activity itself.
// Recurrence is recomputed from the merged date only when the request
// carried the date field; otherwise the stored recurrence stands.
func ValidateUpdate(stored Candidate, req UpdateRequest, existing []Candidate) (Outcome, error) {
	merged := stored
	if req.Title != nil {
		merged.Title = *req.Title
	}
	if req.Description != nil {
		merged.Description = *req.Description
	}
	if req.Category != nil {
		merged.Category = *req.Category
	}
	if req.Day != nil {
		merged.Day = *req.Day
	}
	if req.Start != nil {
		merged.Start = *req.Start
	}
	if req.DurationMin != nil {
		merged.DurationMin = *req.DurationMin
	}
	if req.DateSet {
		merged.Date = req.Date
		merged.Recurring = req.Date == nil
	}

	if !merged.Day.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", ErrInvalidDay, merged.Day)
	}
	if merged.DurationMin <= 0 {
		return Outcome{}, ErrInvalidDuration
	}

	dayPool := filterByDay(existing, merged.Day)
	blocking, err := FindConflict(merged, dayPool, stored.ID)
	if err != nil {
		return Outcome{}, err
	}
	if blocking != nil {
		suggestion, err := SuggestSlot(merged, dayPool, stored.ID)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Conflict: &Conflict{With: *blocking, Day: merged.Day, Suggestion: suggestion}}, nil
	}
	return Outcome{Accepted: []Candidate{merged}}, nil
}
