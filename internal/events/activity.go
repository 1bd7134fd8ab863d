// Package events defines the payloads published for downstream
// consumers (analytics, reminders) when the schedule changes.
package events

import "time"

// ActivityScheduled is emitted once per accepted candidate when a create
// request lands.
type ActivityScheduled struct {
	ActivityID  string     `json:"activity_id"`
	TenantID    string     `json:"tenant_id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Day         string     `json:"day"`
	Start       string     `json:"start"`
	DurationMin int        `json:"duration_min"`
	Recurring   bool       `json:"recurring"`
	Date        *time.Time `json:"date,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// ActivityRescheduled is emitted when an update replaces the stored
// schedule.
type ActivityRescheduled struct {
	ActivityID  string     `json:"activity_id"`
	TenantID    string     `json:"tenant_id"`
	UserID      string     `json:"user_id"`
	Day         string     `json:"day"`
	Start       string     `json:"start"`
	DurationMin int        `json:"duration_min"`
	Recurring   bool       `json:"recurring"`
	Date        *time.Time `json:"date,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// ActivityCompletionToggled tracks completion flips for streak and
// heatmap consumers.
type ActivityCompletionToggled struct {
	ActivityID string    `json:"activity_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	Completed  bool      `json:"completed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityRemoved is emitted when an activity is deleted.
type ActivityRemoved struct {
	ActivityID string    `json:"activity_id"`
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
