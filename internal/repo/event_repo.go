package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ShivpalBellway/DevBhakti/internal/model"
)

// NewEvent holds the fields for inserting an event.
type NewEvent struct {
	Name        string
	Date        string
	Description string
}

// EventRepo defines the interface for event repository operations
type EventRepo interface {
	CreateMany(ctx context.Context, templeID uuid.UUID, events []NewEvent) error
	DeleteByTemple(ctx context.Context, templeID uuid.UUID) (int64, error)
	ListByTemples(ctx context.Context, templeIDs []uuid.UUID) ([]model.Event, error)
}

type eventRepo struct {
	q Querier
}

// NewEventRepo creates a new EventRepo instance
func NewEventRepo(q Querier) EventRepo {
	return &eventRepo{q: q}
}

// CreateMany inserts all events for templeID in a single statement, recording each
// event's position in the slice.
func (r *eventRepo) CreateMany(ctx context.Context, templeID uuid.UUID, events []NewEvent) error {
	if len(events) == 0 {
		return nil
	}

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*5)
	for i, ev := range events {
		start := i*5 + 1
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", start, start+1, start+2, start+3, start+4))
		args = append(args, templeID, ev.Name, ev.Date, ev.Description, i)
	}

	query := fmt.Sprintf(`
		INSERT INTO events (temple_id, name, event_date, description, position)
		VALUES %s
	`, strings.Join(values, ","))

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	return nil
}

// DeleteByTemple removes every event of a temple and returns how many were removed.
func (r *eventRepo) DeleteByTemple(ctx context.Context, templeID uuid.UUID) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM events WHERE temple_id = $1`, templeID)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// ListByTemples returns the events of the given temples, each batch in submitted order.
func (r *eventRepo) ListByTemples(ctx context.Context, templeIDs []uuid.UUID) ([]model.Event, error) {
	events := []model.Event{}
	if len(templeIDs) == 0 {
		return events, nil
	}
	err := sqlx.SelectContext(ctx, r.q, &events, `
		SELECT id, temple_id, name, event_date, description, created_at
		FROM events
		WHERE temple_id = ANY($1::uuid[])
		ORDER BY created_at, position, id`, pq.Array(uuidStrings(templeIDs)))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
