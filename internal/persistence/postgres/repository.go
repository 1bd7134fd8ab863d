package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/schedule/internal/domain"
	"example.com/schedule/internal/events"
	"example.com/schedule/internal/schedule"
)

const activityColumns = `activity_id, tenant_id, user_id, title, description, category, day_of_week, start_clock, duration_min, recurring, specific_date, completed, created_at, updated_at`

// Repository provides Postgres-backed persistence for activities and
// outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateAll persists every aggregate plus its outbox events in a single
// transaction. A multi-day request therefore lands entirely or not at
// all.
func (r *Repository) CreateAll(ctx context.Context, aggregates []domain.ActivityAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", aggregates[0].TenantID); err != nil {
		return err
	}

	const insertActivity = `INSERT INTO activities (activity_id, tenant_id, user_id, title, description, category, day_of_week, day_ord, start_clock, duration_min, recurring, specific_date, completed, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	for _, agg := range aggregates {
		_, err = tx.Exec(ctx, insertActivity,
			agg.ID,
			agg.TenantID,
			agg.UserID,
			agg.Title,
			agg.Description,
			agg.Category,
			agg.Day,
			agg.Day.Ordinal(),
			agg.Start,
			agg.DurationMin,
			agg.Recurring,
			agg.Date,
			agg.Completed,
			agg.CreatedAt,
			agg.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if err = r.insertOutbox(ctx, tx, agg, "schedule.activity_scheduled", events.ActivityScheduled{
			ActivityID:  agg.ID,
			TenantID:    agg.TenantID,
			UserID:      agg.UserID,
			Title:       agg.Title,
			Category:    agg.Category,
			Day:         string(agg.Day),
			Start:       agg.Start,
			DurationMin: agg.DurationMin,
			Recurring:   agg.Recurring,
			Date:        agg.Date,
			OccurredAt:  agg.CreatedAt,
		}); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Update replaces the stored schedule fields and records a reschedule
// event in the same transaction.
func (r *Repository) Update(ctx context.Context, agg domain.ActivityAggregate) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", agg.TenantID); err != nil {
		return err
	}

	const stmt = `UPDATE activities
        SET title=$3, description=$4, category=$5, day_of_week=$6, day_ord=$7, start_clock=$8, duration_min=$9, recurring=$10, specific_date=$11, updated_at=$12
        WHERE tenant_id=$1 AND activity_id=$2`

	tag, err := tx.Exec(ctx, stmt,
		agg.TenantID,
		agg.ID,
		agg.Title,
		agg.Description,
		agg.Category,
		agg.Day,
		agg.Day.Ordinal(),
		agg.Start,
		agg.DurationMin,
		agg.Recurring,
		agg.Date,
		agg.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrActivityNotFound
		return err
	}

	if err = r.insertOutbox(ctx, tx, agg, "schedule.activity_rescheduled", events.ActivityRescheduled{
		ActivityID:  agg.ID,
		TenantID:    agg.TenantID,
		UserID:      agg.UserID,
		Day:         string(agg.Day),
		Start:       agg.Start,
		DurationMin: agg.DurationMin,
		Recurring:   agg.Recurring,
		Date:        agg.Date,
		OccurredAt:  agg.UpdatedAt,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Get retrieves an activity by ID.
func (r *Repository) Get(ctx context.Context, tenantID, activityID string) (*domain.ActivityAggregate, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE tenant_id=$1 AND activity_id=$2`, activityColumns)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, query, tenantID, activityID)
	agg, err := scanActivity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if err := tx.Commit(ctx); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return agg, nil
}

// ListByDay returns a user's activities on one weekday ordered by start
// time; this is the snapshot the conflict scanner walks, so the order
// fixes which conflict is reported first.
func (r *Repository) ListByDay(ctx context.Context, tenantID, userID string, day schedule.Weekday) ([]domain.ActivityAggregate, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities
        WHERE tenant_id=$1 AND user_id=$2 AND day_of_week=$3
        ORDER BY start_clock, activity_id`, activityColumns)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, tenantID, userID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := collectActivities(rows, 0)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// ListByUser returns activities in planner order with keyset pagination
// over (day, start, id).
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityAggregate, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE tenant_id=$1 AND user_id=$2`, activityColumns)

	if cursor != nil {
		query += ` AND (day_ord, start_clock, activity_id) > ($4, $5, $6)`
		args = append(args, cursor.Day.Ordinal(), cursor.Start, cursor.ID)
	}

	query += ` ORDER BY day_ord, start_clock, activity_id LIMIT $3`

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	results, err := collectActivities(rows, limit)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{Day: last.Day, Start: last.Start, ID: last.ID}
	}
	return results, nextCursor, nil
}

// SetCompleted flips the completion flag and records the toggle event.
func (r *Repository) SetCompleted(ctx context.Context, tenantID, activityID string, completed bool, updatedAt time.Time) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	var userID string
	row := tx.QueryRow(ctx, `UPDATE activities SET completed=$3, updated_at=$4
        WHERE tenant_id=$1 AND activity_id=$2 RETURNING user_id`, tenantID, activityID, completed, updatedAt)
	if err = row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrActivityNotFound
		}
		return err
	}

	agg := domain.ActivityAggregate{ID: activityID, TenantID: tenantID, UserID: userID}
	if err = r.insertOutbox(ctx, tx, agg, "schedule.activity_completion_toggled", events.ActivityCompletionToggled{
		ActivityID: activityID,
		TenantID:   tenantID,
		UserID:     userID,
		Completed:  completed,
		OccurredAt: updatedAt,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Delete removes an activity and records the removal event.
func (r *Repository) Delete(ctx context.Context, tenantID, activityID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}

	var userID string
	row := tx.QueryRow(ctx, `DELETE FROM activities WHERE tenant_id=$1 AND activity_id=$2 RETURNING user_id`, tenantID, activityID)
	if err = row.Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrActivityNotFound
		}
		return err
	}

	agg := domain.ActivityAggregate{ID: activityID, TenantID: tenantID, UserID: userID}
	if err = r.insertOutbox(ctx, tx, agg, "schedule.activity_removed", events.ActivityRemoved{
		ActivityID: activityID,
		TenantID:   tenantID,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, agg domain.ActivityAggregate, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	partitionKey := meta.PartitionKeyFn(agg)
	dedupeKey := fmt.Sprintf("%s:%s:%d", agg.ID, eventType, time.Now().UnixNano())

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		agg.TenantID,
		"activity",
		agg.ID,
		eventType,
		meta.Topic,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

type activityScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row activityScanner) (*domain.ActivityAggregate, error) {
	var agg domain.ActivityAggregate
	if err := row.Scan(
		&agg.ID,
		&agg.TenantID,
		&agg.UserID,
		&agg.Title,
		&agg.Description,
		&agg.Category,
		&agg.Day,
		&agg.Start,
		&agg.DurationMin,
		&agg.Recurring,
		&agg.Date,
		&agg.Completed,
		&agg.CreatedAt,
		&agg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agg, nil
}

func collectActivities(rows pgx.Rows, sizeHint int) ([]domain.ActivityAggregate, error) {
	results := make([]domain.ActivityAggregate, 0, sizeHint)
	for rows.Next() {
		agg, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	PartitionKeyFn func(domain.ActivityAggregate) string
}

var eventCatalog = map[string]EventMetadata{
	"schedule.activity_scheduled": {
		Topic:          "schedule_events",
		PartitionKeyFn: perUserPartition,
	},
	"schedule.activity_rescheduled": {
		Topic:          "schedule_events",
		PartitionKeyFn: perUserPartition,
	},
	"schedule.activity_removed": {
		Topic:          "schedule_events",
		PartitionKeyFn: perUserPartition,
	},
	"schedule.activity_completion_toggled": {
		Topic: "activity_completion",
		PartitionKeyFn: func(a domain.ActivityAggregate) string {
			return a.ID
		},
	},
}

// perUserPartition keeps one user's schedule changes in order on the
// topic.
func perUserPartition(a domain.ActivityAggregate) string {
	return fmt.Sprintf("%s:%s", a.TenantID, a.UserID)
}
