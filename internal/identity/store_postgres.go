package identity

import (
	"context"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/chacha20poly1305"

	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// PostgresStore persists the pseudonym map encrypted at rest. The real user
// ID is sealed with ChaCha20-Poly1305; an HMAC of (user, tier) provides the
// lookup index without exposing the plaintext mapping to the database.
type PostgresStore struct {
	db   *sql.DB
	aead cipher.AEAD
	key  []byte
}

// NewPostgresStore constructs the encrypted Postgres pseudonym map. key must
// be 32 bytes.
func NewPostgresStore(db *sql.DB, key []byte) (*PostgresStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("pseudonym map key must be %d bytes", chacha20poly1305.KeySize)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	return &PostgresStore{db: db, aead: aead, key: key}, nil
}

func (s *PostgresStore) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *PostgresStore) open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, errors.New("sealed payload too short")
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	return s.aead.Open(nil, nonce, ciphertext, nil)
}

func (s *PostgresStore) userTierHash(userID id.UserID, tier id.Tier) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(userID.String()))
	mac.Write([]byte(tier))
	return mac.Sum(nil)
}

func (s *PostgresStore) Save(ctx context.Context, p Pseudonym) error {
	sealed, err := s.seal([]byte(p.UserID.String()))
	if err != nil {
		return fmt.Errorf("seal user id: %w", err)
	}
	query := `
		INSERT INTO pseudonym_map (pseudonym_id, user_id_enc, user_tier_hash, tier, issued_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), sealed, s.userTierHash(p.UserID, p.Tier),
		p.Tier.String(), p.IssuedAt, p.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pseudonym: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActive(ctx context.Context, userID id.UserID, tier id.Tier) (Pseudonym, error) {
	query := `
		SELECT pseudonym_id, user_id_enc, tier, issued_at, revoked_at
		FROM pseudonym_map
		WHERE user_tier_hash = $1 AND revoked_at IS NULL
	`
	row := s.db.QueryRowContext(ctx, query, s.userTierHash(userID, tier))
	return s.scan(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, pseudonymID id.PseudonymID) (Pseudonym, error) {
	query := `
		SELECT pseudonym_id, user_id_enc, tier, issued_at, revoked_at
		FROM pseudonym_map
		WHERE pseudonym_id = $1
	`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(pseudonymID))
	return s.scan(row)
}

func (s *PostgresStore) scan(row *sql.Row) (Pseudonym, error) {
	var (
		pid       uuid.UUID
		sealed    []byte
		tier      string
		issuedAt  time.Time
		revokedAt sql.NullTime
	)
	if err := row.Scan(&pid, &sealed, &tier, &issuedAt, &revokedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pseudonym{}, sentinel.ErrNotFound
		}
		return Pseudonym{}, fmt.Errorf("scan pseudonym: %w", err)
	}
	plaintext, err := s.open(sealed)
	if err != nil {
		return Pseudonym{}, fmt.Errorf("unseal user id: %w", err)
	}
	userUUID, err := uuid.Parse(string(plaintext))
	if err != nil {
		return Pseudonym{}, fmt.Errorf("parse unsealed user id: %w", err)
	}
	p := Pseudonym{
		ID:       id.PseudonymID(pid),
		UserID:   id.UserID(userUUID),
		Tier:     id.Tier(tier),
		IssuedAt: issuedAt,
	}
	if revokedAt.Valid {
		p.RevokedAt = &revokedAt.Time
	}
	return p, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, pseudonymID id.PseudonymID) error {
	query := `UPDATE pseudonym_map SET revoked_at = NOW() WHERE pseudonym_id = $1 AND revoked_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(pseudonymID)); err != nil {
		return fmt.Errorf("revoke pseudonym: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, pseudonymID id.PseudonymID) error {
	query := `DELETE FROM pseudonym_map WHERE pseudonym_id = $1`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(pseudonymID))
	if err != nil {
		return fmt.Errorf("delete pseudonym: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresProfileStore persists identity profiles with the field map sealed
// as a single encrypted JSON document.
type PostgresProfileStore struct {
	inner *PostgresStore
}

func NewPostgresProfileStore(store *PostgresStore) *PostgresProfileStore {
	return &PostgresProfileStore{inner: store}
}

func (s *PostgresProfileStore) Save(ctx context.Context, profile Profile) error {
	payload, err := json.Marshal(profile.Fields)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}
	sealed, err := s.inner.seal(payload)
	if err != nil {
		return fmt.Errorf("seal profile fields: %w", err)
	}
	query := `
		INSERT INTO identity_profiles (user_id, fields_enc, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET fields_enc = EXCLUDED.fields_enc, updated_at = NOW()
	`
	if _, err := s.inner.db.ExecContext(ctx, query, uuid.UUID(profile.UserID), sealed); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresProfileStore) FindByUser(ctx context.Context, userID id.UserID) (Profile, error) {
	var sealed []byte
	query := `SELECT fields_enc FROM identity_profiles WHERE user_id = $1`
	err := s.inner.db.QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("find profile: %w", err)
	}
	payload, err := s.inner.open(sealed)
	if err != nil {
		return Profile{}, fmt.Errorf("unseal profile fields: %w", err)
	}
	fields := make(map[id.IdentityField]string)
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Profile{}, fmt.Errorf("unmarshal profile fields: %w", err)
	}
	return Profile{UserID: userID, Fields: fields}, nil
}
