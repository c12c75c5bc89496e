package provider

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "veil/pkg/domain"
)

// PostgresStore persists provider profiles. The registry treats the table
// as read-mostly reference data; writes come from an out-of-band onboarding
// process.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, profile Profile) error {
	tiers := make([]string, len(profile.TierAuthorization))
	for i, t := range profile.TierAuthorization {
		tiers[i] = t.String()
	}
	query := `
		INSERT INTO provider_profiles (
			provider_id, name, service_categories, tier_authorization,
			anonymity_compliance, response_capability, quality_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_id) DO UPDATE SET
			name = EXCLUDED.name,
			service_categories = EXCLUDED.service_categories,
			tier_authorization = EXCLUDED.tier_authorization,
			anonymity_compliance = EXCLUDED.anonymity_compliance,
			response_capability = EXCLUDED.response_capability,
			quality_score = EXCLUDED.quality_score
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(profile.ID), profile.Name,
		pq.Array(profile.ServiceCategories), pq.Array(tiers),
		profile.AnonymityCompliance, profile.ResponseCapability.String(),
		profile.QualityScore,
	)
	if err != nil {
		return fmt.Errorf("upsert provider profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Profile, error) {
	query := `
		SELECT provider_id, name, service_categories, tier_authorization,
		       anonymity_compliance, response_capability, quality_score
		FROM provider_profiles
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list provider profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var (
			pid        uuid.UUID
			p          Profile
			categories pq.StringArray
			tiers      pq.StringArray
			capability string
		)
		if err := rows.Scan(&pid, &p.Name, &categories, &tiers,
			&p.AnonymityCompliance, &capability, &p.QualityScore); err != nil {
			return nil, fmt.Errorf("scan provider profile: %w", err)
		}
		p.ID = id.ProviderID(pid)
		p.ServiceCategories = categories
		p.ResponseCapability = id.Urgency(capability)
		p.TierAuthorization = make([]id.Tier, len(tiers))
		for i, t := range tiers {
			p.TierAuthorization[i] = id.Tier(t)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
