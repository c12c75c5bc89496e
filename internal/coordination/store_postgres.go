package coordination

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// PostgresStore persists coordinations as JSONB documents with the columns
// the engine filters on (state, finalized_at) promoted for indexing.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// document is the JSONB payload. It mirrors the aggregate minus the fields
// promoted to columns.
type document struct {
	Request         ServiceRequest     `json:"request"`
	DisclosureLevel id.DisclosureLevel `json:"disclosure_level"`
	DeliveredLevel  id.DisclosureLevel `json:"delivered_level"`
	MatchedProvider id.ProviderID      `json:"matched_provider"`
	Escalations     int                `json:"escalations"`
	PhaseHistory    []PhaseRecord      `json:"phase_history"`
	RevealTriggers  []string           `json:"reveal_triggers"`
	Transcript      []TranscriptEntry  `json:"transcript"`
	CancelRequested bool               `json:"cancel_requested"`
	Erasure         string             `json:"erasure"`
}

func toDocument(c Coordination) document {
	return document{
		Request:         c.Request,
		DisclosureLevel: c.DisclosureLevel,
		DeliveredLevel:  c.DeliveredLevel,
		MatchedProvider: c.MatchedProvider,
		Escalations:     c.Escalations,
		PhaseHistory:    c.PhaseHistory,
		RevealTriggers:  c.RevealTriggers,
		Transcript:      c.Transcript,
		CancelRequested: c.CancelRequested,
		Erasure:         c.Erasure,
	}
}

func (d document) apply(c *Coordination) {
	c.Request = d.Request
	c.DisclosureLevel = d.DisclosureLevel
	c.DeliveredLevel = d.DeliveredLevel
	c.MatchedProvider = d.MatchedProvider
	c.Escalations = d.Escalations
	c.PhaseHistory = d.PhaseHistory
	c.RevealTriggers = d.RevealTriggers
	c.Transcript = d.Transcript
	c.CancelRequested = d.CancelRequested
	c.Erasure = d.Erasure
}

func (s *PostgresStore) Create(ctx context.Context, c Coordination) error {
	payload, err := json.Marshal(toDocument(c))
	if err != nil {
		return fmt.Errorf("marshal coordination: %w", err)
	}
	query := `
		INSERT INTO coordinations (coordination_id, state, doc, created_at, updated_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), string(c.State), payload, c.CreatedAt, c.UpdatedAt, c.FinalizedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert coordination: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, coordinationID id.CoordinationID) (Coordination, error) {
	query := `
		SELECT coordination_id, state, doc, created_at, updated_at, finalized_at
		FROM coordinations WHERE coordination_id = $1
	`
	return s.scan(s.db.QueryRowContext(ctx, query, uuid.UUID(coordinationID)))
}

func (s *PostgresStore) scan(row *sql.Row) (Coordination, error) {
	var (
		cid         uuid.UUID
		state       string
		payload     []byte
		createdAt   time.Time
		updatedAt   time.Time
		finalizedAt sql.NullTime
	)
	if err := row.Scan(&cid, &state, &payload, &createdAt, &updatedAt, &finalizedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Coordination{}, sentinel.ErrNotFound
		}
		return Coordination{}, fmt.Errorf("scan coordination: %w", err)
	}
	var doc document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Coordination{}, fmt.Errorf("unmarshal coordination: %w", err)
	}
	c := Coordination{
		ID:        id.CoordinationID(cid),
		State:     State(state),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if finalizedAt.Valid {
		c.FinalizedAt = &finalizedAt.Time
	}
	doc.apply(&c)
	return c, nil
}

func (s *PostgresStore) Update(ctx context.Context, c Coordination) error {
	payload, err := json.Marshal(toDocument(c))
	if err != nil {
		return fmt.Errorf("marshal coordination: %w", err)
	}
	query := `
		UPDATE coordinations
		SET state = $2, doc = $3, updated_at = $4, finalized_at = $5
		WHERE coordination_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), string(c.State), payload, c.UpdatedAt, c.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("update coordination: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Anonymize(ctx context.Context, coordinationID id.CoordinationID, erasure string, at time.Time) (id.PseudonymID, id.Tier, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return id.PseudonymID{}, "", fmt.Errorf("begin anonymize tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		SELECT coordination_id, state, doc, created_at, updated_at, finalized_at
		FROM coordinations WHERE coordination_id = $1 FOR UPDATE
	`
	c, err := s.scan(tx.QueryRowContext(ctx, query, uuid.UUID(coordinationID)))
	if err != nil {
		return id.PseudonymID{}, "", err
	}
	if c.FinalizedAt != nil {
		return id.PseudonymID{}, "", sentinel.ErrAlreadyUsed
	}
	if !c.State.Terminal() {
		return id.PseudonymID{}, "", sentinel.ErrInvalidState
	}

	pseudonym := c.Request.PseudonymID
	tier := c.Request.Tier

	c.Request.PseudonymID = id.PseudonymID{}
	c.Transcript = nil
	c.FinalizedAt = &at
	c.UpdatedAt = at
	c.Erasure = erasure

	payload, err := json.Marshal(toDocument(c))
	if err != nil {
		return id.PseudonymID{}, "", fmt.Errorf("marshal anonymized coordination: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE coordinations SET doc = $2, updated_at = $3, finalized_at = $3
		WHERE coordination_id = $1
	`, uuid.UUID(coordinationID), payload, at)
	if err != nil {
		return id.PseudonymID{}, "", fmt.Errorf("anonymize coordination: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return id.PseudonymID{}, "", fmt.Errorf("commit anonymize tx: %w", err)
	}
	return pseudonym, tier, nil
}

func (s *PostgresStore) ListUnfinalizedTerminal(ctx context.Context, limit int) ([]Coordination, error) {
	query := `
		SELECT coordination_id, state, doc, created_at, updated_at, finalized_at
		FROM coordinations
		WHERE state IN ('completed', 'abandoned') AND finalized_at IS NULL
		ORDER BY updated_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unfinalized coordinations: %w", err)
	}
	defer rows.Close()

	var out []Coordination
	for rows.Next() {
		var (
			cid         uuid.UUID
			state       string
			payload     []byte
			createdAt   time.Time
			updatedAt   time.Time
			finalizedAt sql.NullTime
		)
		if err := rows.Scan(&cid, &state, &payload, &createdAt, &updatedAt, &finalizedAt); err != nil {
			return nil, fmt.Errorf("scan coordination: %w", err)
		}
		var doc document
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal coordination: %w", err)
		}
		c := Coordination{
			ID:        id.CoordinationID(cid),
			State:     State(state),
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		}
		if finalizedAt.Valid {
			c.FinalizedAt = &finalizedAt.Time
		}
		doc.apply(&c)
		out = append(out, c)
	}
	return out, rows.Err()
}
