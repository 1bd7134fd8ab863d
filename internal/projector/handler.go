package projector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/schedule/internal/events"
)

const completionToggledType = "schedule.activity_completion_toggled"

// ReadModelHandler appends every event to the schedule_event_log table
// and folds completion toggles into the completion_stats tally.
type ReadModelHandler struct {
	pool *pgxpool.Pool
}

// NewReadModelHandler constructs a handler backed by the provided pool.
func NewReadModelHandler(pool *pgxpool.Pool) *ReadModelHandler {
	return &ReadModelHandler{pool: pool}
}

// Handle stores the event and updates derived read models in one
// transaction. The (topic, partition, offset) unique constraint makes
// redelivered records a no-op.
func (h *ReadModelHandler) Handle(ctx context.Context, event Event) error {
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO schedule_event_log (event_type, tenant_id, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		event.EventType,
		event.TenantID,
		event.Topic,
		event.Partition,
		event.Offset,
		event.Payload,
		event.Timestamp,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already applied; skip the derived updates too.
		return tx.Commit(ctx)
	}

	if event.EventType == completionToggledType {
		if err := applyCompletionToggle(ctx, tx, event); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func applyCompletionToggle(ctx context.Context, tx pgx.Tx, event Event) error {
	var toggle events.ActivityCompletionToggled
	if err := json.Unmarshal(event.Payload, &toggle); err != nil {
		return fmt.Errorf("decode completion toggle: %w", err)
	}

	delta := -1
	if toggle.Completed {
		delta = 1
	}

	_, err := tx.Exec(ctx,
		`INSERT INTO completion_stats (tenant_id, user_id, completed_count, updated_at)
         VALUES ($1,$2,GREATEST($3,0),$4)
         ON CONFLICT (tenant_id, user_id) DO UPDATE
         SET completed_count = GREATEST(completion_stats.completed_count + $3, 0),
             updated_at = $4`,
		toggle.TenantID,
		toggle.UserID,
		delta,
		toggle.OccurredAt,
	)
	return err
}
