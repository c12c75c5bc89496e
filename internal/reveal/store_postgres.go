package reveal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "veil/pkg/domain"
)

// PostgresStore appends reveal events. The table carries no UPDATE or
// DELETE paths in this codebase; retention is a compliance decision made
// outside the application.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO reveal_events (
			id, coordination_id, triggering_condition,
			level_before, level_after, authorized_by, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), uuid.UUID(event.CoordinationID), event.TriggeringCondition,
		event.LevelBefore.String(), event.LevelAfter.String(),
		event.AuthorizedBy, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append reveal event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCoordination(ctx context.Context, coordinationID id.CoordinationID) ([]Event, error) {
	query := `
		SELECT coordination_id, triggering_condition, level_before,
		       level_after, authorized_by, occurred_at
		FROM reveal_events
		WHERE coordination_id = $1
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(coordinationID))
	if err != nil {
		return nil, fmt.Errorf("list reveal events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			cid    uuid.UUID
			e      Event
			before string
			after  string
		)
		if err := rows.Scan(&cid, &e.TriggeringCondition, &before, &after,
			&e.AuthorizedBy, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reveal event: %w", err)
		}
		e.CoordinationID = id.CoordinationID(cid)
		e.LevelBefore = id.DisclosureLevel(before)
		e.LevelAfter = id.DisclosureLevel(after)
		out = append(out, e)
	}
	return out, rows.Err()
}
