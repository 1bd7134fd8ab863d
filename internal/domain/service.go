// Package domain defines the business logic for the scheduling service.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"example.com/schedule/internal/observability"
	"example.com/schedule/internal/schedule"
)

// ErrActivityNotFound is returned when an activity cannot be located for
// the caller.
var ErrActivityNotFound = errors.New("activity not found")

// ActivityRepository captures persistence operations.
type ActivityRepository interface {
	// CreateAll persists every aggregate in one transaction; a multi-day
	// request lands entirely or not at all.
	CreateAll(ctx context.Context, aggregates []ActivityAggregate) error
	Get(ctx context.Context, tenantID, activityID string) (*ActivityAggregate, error)
	ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityAggregate, *Cursor, error)
	ListByDay(ctx context.Context, tenantID, userID string, day schedule.Weekday) ([]ActivityAggregate, error)
	Update(ctx context.Context, aggregate ActivityAggregate) error
	SetCompleted(ctx context.Context, tenantID, activityID string, completed bool, updatedAt time.Time) error
	Delete(ctx context.Context, tenantID, activityID string) error
}

// Service orchestrates scheduling workflows over a repository snapshot.
// Conflict checking reads a snapshot fetched before validation; two
// concurrent creates for the same window can both pass and the storage
// layer keeps the last commit. That race is accepted, not prevented.
type Service struct {
	repo ActivityRepository
}

// NewService constructs a Service.
func NewService(repo ActivityRepository) *Service {
	return &Service{repo: repo}
}

// ScheduleInput captures a create request from the API layer.
type ScheduleInput struct {
	TenantID    string
	UserID      string
	Title       string
	Description string
	Category    string
	Days        []schedule.Weekday
	Start       string
	DurationMin int
	Date        *time.Time
}

// RescheduleInput carries the fields of an update; nil fields keep the
// stored value. DateSet marks an explicitly supplied date, including an
// explicit null.
type RescheduleInput struct {
	Title       *string
	Description *string
	Category    *string
	Day         *schedule.Weekday
	Start       *string
	DurationMin *int
	Date        *time.Time
	DateSet     bool
}

// ScheduleActivities validates a create request against the user's
// existing week and persists every expanded candidate atomically. A
// blocked request comes back as a conflict value, never as an error.
func (s *Service) ScheduleActivities(ctx context.Context, input ScheduleInput) ([]ActivityAggregate, *schedule.Conflict, error) {
	startMin, err := schedule.ParseClock(input.Start)
	if err != nil {
		return nil, nil, err
	}
	input.Start = schedule.FormatClock(startMin)

	existing, err := s.snapshotDays(ctx, input.TenantID, input.UserID, input.Days)
	if err != nil {
		return nil, nil, err
	}

	out, err := schedule.ValidateCreate(schedule.CreateRequest{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Days:        input.Days,
		Start:       input.Start,
		DurationMin: input.DurationMin,
		Date:        input.Date,
	}, existing)
	if err != nil {
		return nil, nil, err
	}
	if out.Conflict != nil {
		observability.RecordConflict(out.Conflict.Suggestion != "")
		return nil, out.Conflict, nil
	}

	now := time.Now().UTC()
	aggregates := make([]ActivityAggregate, 0, len(out.Accepted))
	for _, cand := range out.Accepted {
		aggregates = append(aggregates, ActivityAggregate{
			ID:          uuid.NewString(),
			TenantID:    input.TenantID,
			UserID:      input.UserID,
			Title:       cand.Title,
			Description: cand.Description,
			Category:    cand.Category,
			Day:         cand.Day,
			Start:       cand.Start,
			DurationMin: cand.DurationMin,
			Recurring:   cand.Recurring,
			Date:        cand.Date,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.repo.CreateAll(ctx, aggregates); err != nil {
		return nil, nil, err
	}
	observability.RecordScheduled(len(aggregates))
	return aggregates, nil, nil
}

// RescheduleActivity merges the request over the stored activity,
// re-validates the whole proposed schedule with the activity excluded
// from its own scan, and persists the merged result.
func (s *Service) RescheduleActivity(ctx context.Context, tenantID, userID, activityID string, input RescheduleInput) (*ActivityAggregate, *schedule.Conflict, error) {
	stored, err := s.ownedActivity(ctx, tenantID, userID, activityID)
	if err != nil {
		return nil, nil, err
	}

	if input.Start != nil {
		startMin, err := schedule.ParseClock(*input.Start)
		if err != nil {
			return nil, nil, err
		}
		normalized := schedule.FormatClock(startMin)
		input.Start = &normalized
	}

	targetDay := stored.Day
	if input.Day != nil {
		targetDay = *input.Day
	}
	if !targetDay.Valid() {
		return nil, nil, schedule.ErrInvalidDay
	}

	existing, err := s.snapshotDays(ctx, tenantID, userID, []schedule.Weekday{targetDay})
	if err != nil {
		return nil, nil, err
	}

	out, err := schedule.ValidateUpdate(stored.Candidate(), schedule.UpdateRequest{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Day:         input.Day,
		Start:       input.Start,
		DurationMin: input.DurationMin,
		Date:        input.Date,
		DateSet:     input.DateSet,
	}, existing)
	if err != nil {
		return nil, nil, err
	}
	if out.Conflict != nil {
		observability.RecordConflict(out.Conflict.Suggestion != "")
		return nil, out.Conflict, nil
	}

	merged := out.Accepted[0]
	updated := *stored
	updated.Title = merged.Title
	updated.Description = merged.Description
	updated.Category = merged.Category
	updated.Day = merged.Day
	updated.Start = merged.Start
	updated.DurationMin = merged.DurationMin
	updated.Recurring = merged.Recurring
	updated.Date = merged.Date
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, nil, err
	}
	return &updated, nil, nil
}

// PreviewSchedule runs create validation without persisting anything. It
// backs the live draft feedback in the planner UI, so it is called
// repeatedly while the user edits.
func (s *Service) PreviewSchedule(ctx context.Context, input ScheduleInput) (*schedule.Conflict, error) {
	startMin, err := schedule.ParseClock(input.Start)
	if err != nil {
		return nil, err
	}
	input.Start = schedule.FormatClock(startMin)

	existing, err := s.snapshotDays(ctx, input.TenantID, input.UserID, input.Days)
	if err != nil {
		return nil, err
	}

	out, err := schedule.ValidateCreate(schedule.CreateRequest{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Days:        input.Days,
		Start:       input.Start,
		DurationMin: input.DurationMin,
		Date:        input.Date,
	}, existing)
	if err != nil {
		return nil, err
	}
	observability.RecordPreview()
	return out.Conflict, nil
}

// ToggleCompleted flips the completion flag and returns the updated
// aggregate.
func (s *Service) ToggleCompleted(ctx context.Context, tenantID, userID, activityID string) (*ActivityAggregate, error) {
	stored, err := s.ownedActivity(ctx, tenantID, userID, activityID)
	if err != nil {
		return nil, err
	}

	updated := *stored
	updated.Completed = !stored.Completed
	updated.UpdatedAt = time.Now().UTC()
	if err := s.repo.SetCompleted(ctx, tenantID, activityID, updated.Completed, updated.UpdatedAt); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetActivity fetches one activity owned by the caller.
func (s *Service) GetActivity(ctx context.Context, tenantID, userID, activityID string) (*ActivityAggregate, error) {
	return s.ownedActivity(ctx, tenantID, userID, activityID)
}

// ListActivities fetches the caller's activities with cursor pagination,
// optionally restricted to a single weekday.
func (s *Service) ListActivities(ctx context.Context, tenantID, userID string, day *schedule.Weekday, cursor *Cursor, limit int) ([]ActivityAggregate, *Cursor, error) {
	if day != nil {
		if !day.Valid() {
			return nil, nil, schedule.ErrInvalidDay
		}
		items, err := s.repo.ListByDay(ctx, tenantID, userID, *day)
		return items, nil, err
	}
	return s.repo.ListByUser(ctx, tenantID, userID, cursor, limit)
}

// DeleteActivity removes one activity owned by the caller.
func (s *Service) DeleteActivity(ctx context.Context, tenantID, userID, activityID string) error {
	if _, err := s.ownedActivity(ctx, tenantID, userID, activityID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, tenantID, activityID)
}

func (s *Service) ownedActivity(ctx context.Context, tenantID, userID, activityID string) (*ActivityAggregate, error) {
	stored, err := s.repo.Get(ctx, tenantID, activityID)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.UserID != userID {
		return nil, ErrActivityNotFound
	}
	return stored, nil
}

// snapshotDays gathers the existing activities on each distinct
// requested day into one scan pool.
func (s *Service) snapshotDays(ctx context.Context, tenantID, userID string, days []schedule.Weekday) ([]schedule.Candidate, error) {
	seen := make(map[schedule.Weekday]struct{}, len(days))
	pool := make([]schedule.Candidate, 0)
	for _, day := range days {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}

		aggregates, err := s.repo.ListByDay(ctx, tenantID, userID, day)
		if err != nil {
			return nil, err
		}
		for _, agg := range aggregates {
			pool = append(pool, agg.Candidate())
		}
	}
	return pool, nil
}
