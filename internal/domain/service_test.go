package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/schedule/internal/schedule"
)

type stubRepo struct {
	activities []ActivityAggregate

	createCalls    int
	updated        *ActivityAggregate
	completedID    string
	completedValue bool
	deletedID      string
}

func (s *stubRepo) CreateAll(ctx context.Context, aggregates []ActivityAggregate) error {
	s.createCalls++
	s.activities = append(s.activities, aggregates...)
	return nil
}

func (s *stubRepo) Get(ctx context.Context, tenantID, activityID string) (*ActivityAggregate, error) {
	for i := range s.activities {
		if s.activities[i].TenantID == tenantID && s.activities[i].ID == activityID {
			agg := s.activities[i]
			return &agg, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListByUser(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityAggregate, *Cursor, error) {
	out := make([]ActivityAggregate, 0)
	for _, agg := range s.activities {
		if agg.TenantID == tenantID && agg.UserID == userID {
			out = append(out, agg)
		}
	}
	return out, nil, nil
}

func (s *stubRepo) ListByDay(ctx context.Context, tenantID, userID string, day schedule.Weekday) ([]ActivityAggregate, error) {
	out := make([]ActivityAggregate, 0)
	for _, agg := range s.activities {
		if agg.TenantID == tenantID && agg.UserID == userID && agg.Day == day {
			out = append(out, agg)
		}
	}
	return out, nil
}

func (s *stubRepo) Update(ctx context.Context, aggregate ActivityAggregate) error {
	s.updated = &aggregate
	for i := range s.activities {
		if s.activities[i].ID == aggregate.ID {
			s.activities[i] = aggregate
		}
	}
	return nil
}

func (s *stubRepo) SetCompleted(ctx context.Context, tenantID, activityID string, completed bool, updatedAt time.Time) error {
	s.completedID = activityID
	s.completedValue = completed
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, tenantID, activityID string) error {
	s.deletedID = activityID
	return nil
}

func storedRun() ActivityAggregate {
	now := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	return ActivityAggregate{
		ID:          "run-1",
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Title:       "Run",
		Category:    "fitness",
		Day:         schedule.Monday,
		Start:       "09:00",
		DurationMin: 60,
		Recurring:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestScheduleActivitiesMultiDay(t *testing.T) {
	repo := &stubRepo{}
	service := NewService(repo)

	accepted, conflict, err := service.ScheduleActivities(context.Background(), ScheduleInput{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Title:       "Journal",
		Days:        []schedule.Weekday{schedule.Monday, schedule.Wednesday},
		Start:       "7:05",
		DurationMin: 15,
	})
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.Len(t, accepted, 2)
	require.Equal(t, 1, repo.createCalls, "one transaction for the full expansion")
	require.Equal(t, "07:05", accepted[0].Start, "start clock is normalized before persistence")
	require.True(t, accepted[0].Recurring)
	require.NotEmpty(t, accepted[0].ID)
	require.NotEqual(t, accepted[0].ID, accepted[1].ID)
}

func TestScheduleActivitiesConflictPersistsNothing(t *testing.T) {
	repo := &stubRepo{activities: []ActivityAggregate{
		{
			ID: "w-1", TenantID: "tenant-1", UserID: "user-1", Title: "Standup",
			Day: schedule.Wednesday, Start: "09:00", DurationMin: 30, Recurring: true,
		},
	}}
	service := NewService(repo)

	accepted, conflict, err := service.ScheduleActivities(context.Background(), ScheduleInput{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Title:       "Journal",
		Days:        []schedule.Weekday{schedule.Monday, schedule.Wednesday},
		Start:       "09:00",
		DurationMin: 30,
	})
	require.NoError(t, err)
	require.Empty(t, accepted)
	require.NotNil(t, conflict)
	require.Equal(t, schedule.Wednesday, conflict.Day)
	require.Equal(t, "Standup", conflict.With.Title)
	require.Equal(t, "09:30", conflict.Suggestion)
	require.Zero(t, repo.createCalls, "a conflicting request must not reach the repository")
}

func TestScheduleActivitiesInvalidClock(t *testing.T) {
	service := NewService(&stubRepo{})

	_, _, err := service.ScheduleActivities(context.Background(), ScheduleInput{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Title:       "Journal",
		Days:        []schedule.Weekday{schedule.Monday},
		Start:       "25:00",
		DurationMin: 30,
	})
	require.ErrorIs(t, err, schedule.ErrInvalidClock)
}

func TestRescheduleActivityDescriptionOnly(t *testing.T) {
	stored := storedRun()
	repo := &stubRepo{activities: []ActivityAggregate{
		stored,
		{
			ID: "other", TenantID: "tenant-1", UserID: "user-1", Title: "Read",
			Day: schedule.Monday, Start: "20:00", DurationMin: 30, Recurring: true,
		},
	}}
	service := NewService(repo)

	desc := "easy pace"
	updated, conflict, err := service.RescheduleActivity(context.Background(), "tenant-1", "user-1", "run-1", RescheduleInput{
		Description: &desc,
	})
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.Equal(t, "easy pace", updated.Description)
	require.Equal(t, stored.Start, updated.Start)
	require.Equal(t, stored.Day, updated.Day)
	require.NotNil(t, repo.updated)
}

func TestRescheduleActivitySelfExclusion(t *testing.T) {
	stored := storedRun()
	repo := &stubRepo{activities: []ActivityAggregate{stored}}
	service := NewService(repo)

	// Unchanged schedule: the only overlap on Monday is the activity
	// itself, which the scan skips.
	updated, conflict, err := service.RescheduleActivity(context.Background(), "tenant-1", "user-1", "run-1", RescheduleInput{})
	require.NoError(t, err)
	require.Nil(t, conflict)
	require.Equal(t, "09:00", updated.Start)
}

func TestRescheduleActivityConflict(t *testing.T) {
	stored := storedRun()
	repo := &stubRepo{activities: []ActivityAggregate{
		stored,
		{
			ID: "read", TenantID: "tenant-1", UserID: "user-1", Title: "Read",
			Day: schedule.Monday, Start: "20:00", DurationMin: 60, Recurring: true,
		},
	}}
	service := NewService(repo)

	newStart := "20:30"
	updated, conflict, err := service.RescheduleActivity(context.Background(), "tenant-1", "user-1", "run-1", RescheduleInput{
		Start: &newStart,
	})
	require.NoError(t, err)
	require.Nil(t, updated)
	require.NotNil(t, conflict)
	require.Equal(t, "Read", conflict.With.Title)
	require.Nil(t, repo.updated, "a conflicting reschedule must not persist")
}

func TestRescheduleActivityNotOwned(t *testing.T) {
	repo := &stubRepo{activities: []ActivityAggregate{storedRun()}}
	service := NewService(repo)

	_, _, err := service.RescheduleActivity(context.Background(), "tenant-1", "someone-else", "run-1", RescheduleInput{})
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestPreviewScheduleNeverPersists(t *testing.T) {
	repo := &stubRepo{activities: []ActivityAggregate{storedRun()}}
	service := NewService(repo)

	conflict, err := service.PreviewSchedule(context.Background(), ScheduleInput{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Title:       "Draft",
		Days:        []schedule.Weekday{schedule.Monday},
		Start:       "09:30",
		DurationMin: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, conflict)
	require.Equal(t, "Run", conflict.With.Title)
	require.Equal(t, "10:00", conflict.Suggestion)
	require.Zero(t, repo.createCalls)
	require.Len(t, repo.activities, 1)
}

func TestToggleCompleted(t *testing.T) {
	repo := &stubRepo{activities: []ActivityAggregate{storedRun()}}
	service := NewService(repo)

	updated, err := service.ToggleCompleted(context.Background(), "tenant-1", "user-1", "run-1")
	require.NoError(t, err)
	require.True(t, updated.Completed)
	require.Equal(t, "run-1", repo.completedID)
	require.True(t, repo.completedValue)
}

func TestDeleteActivityChecksOwnership(t *testing.T) {
	repo := &stubRepo{activities: []ActivityAggregate{storedRun()}}
	service := NewService(repo)

	err := service.DeleteActivity(context.Background(), "tenant-1", "intruder", "run-1")
	require.ErrorIs(t, err, ErrActivityNotFound)
	require.Empty(t, repo.deletedID)

	err = service.DeleteActivity(context.Background(), "tenant-1", "user-1", "run-1")
	require.NoError(t, err)
	require.Equal(t, "run-1", repo.deletedID)
}
