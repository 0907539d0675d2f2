// Package ledger tracks issued extension credentials so they can be revoked
// before they expire.
package ledger

import (
	"context"

	"classlog/auth-bridge/internal/model"
)

type TokenStatus int

const (
	// StatusUnknown means the ledger holds no row for the token.
	StatusUnknown TokenStatus = iota
	StatusActive
	StatusRevoked
)

func (s TokenStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Ledger is implemented by repository.Store (Postgres), Memory and Cached.
// Storage failures are returned as apperr Storage errors.
type Ledger interface {
	RecordIssuance(ctx context.Context, userID, tokenID string) error
	// RevokeAll deactivates every active token of the user and returns how
	// many rows changed. A second call returns 0.
	RevokeAll(ctx context.Context, userID string) (int64, error)
	Status(ctx context.Context, userID, tokenID string) (TokenStatus, error)
	// ListTokens returns every row of the user, newest first.
	ListTokens(ctx context.Context, userID string) ([]model.ExtensionToken, error)
}
