package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"classlog/auth-bridge/internal/apperr"
	"classlog/auth-bridge/internal/ledger"
	"classlog/auth-bridge/internal/model"
)

// ErrNotFound is returned by profile lookups with no matching row.
var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	var profile model.Profile
	var role string
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, full_name, role, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`, userID)
	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profile, ErrNotFound
		}
		return profile, apperr.New(apperr.Storage, "repository.GetProfile", err)
	}
	profile.Role = model.Role(role)
	return profile, nil
}

func (s *Store) RecordIssuance(ctx context.Context, userID, tokenID string) error {
	now := s.now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO extension_tokens (id, user_id, active, created_at, updated_at)
		VALUES ($1, $2, true, $3, $3)
	`, tokenID, userID, now)
	if err != nil {
		return apperr.New(apperr.Storage, "repository.RecordIssuance", err)
	}
	return nil
}

func (s *Store) RevokeAll(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE extension_tokens
		SET active = false, updated_at = $1
		WHERE user_id = $2 AND active = true
	`, s.now().UTC(), userID)
	if err != nil {
		return 0, apperr.New(apperr.Storage, "repository.RevokeAll", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Status(ctx context.Context, userID, tokenID string) (ledger.TokenStatus, error) {
	var active bool
	row := s.pool.QueryRow(ctx, `
		SELECT active
		FROM extension_tokens
		WHERE id = $1 AND user_id = $2
	`, tokenID, userID)
	if err := row.Scan(&active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ledger.StatusUnknown, nil
		}
		return ledger.StatusUnknown, apperr.New(apperr.Storage, "repository.Status", err)
	}
	if !active {
		return ledger.StatusRevoked, nil
	}
	return ledger.StatusActive, nil
}

func (s *Store) ListTokens(ctx context.Context, userID string) ([]model.ExtensionToken, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, active, created_at, updated_at
		FROM extension_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, apperr.New(apperr.Storage, "repository.ListTokens", err)
	}
	defer rows.Close()

	var tokens []model.ExtensionToken
	for rows.Next() {
		var token model.ExtensionToken
		if err := rows.Scan(&token.ID, &token.UserID, &token.Active, &token.CreatedAt, &token.UpdatedAt); err != nil {
			return nil, apperr.New(apperr.Storage, "repository.ListTokens", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.New(apperr.Storage, "repository.ListTokens", err)
	}
	return tokens, nil
}

var _ ledger.Ledger = (*Store)(nil)
