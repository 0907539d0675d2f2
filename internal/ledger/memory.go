package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"classlog/auth-bridge/internal/apperr"
	"classlog/auth-bridge/internal/model"
)

// Memory is an in-process Ledger for tests and local development.
type Memory struct {
	mu     sync.Mutex
	tokens map[string]*model.ExtensionToken
	now    func() time.Time
	// Err, when set, is returned from every call to simulate an outage.
	Err error
}

func NewMemory() *Memory {
	return &Memory{
		tokens: make(map[string]*model.ExtensionToken),
		now:    time.Now,
	}
}

func (m *Memory) RecordIssuance(_ context.Context, userID, tokenID string) error {
	const op = "ledger.Memory.RecordIssuance"
	if userID == "" || tokenID == "" {
		return apperr.Validationf(op, "user id and token id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return apperr.New(apperr.Storage, op, m.Err)
	}
	if _, exists := m.tokens[tokenID]; exists {
		return apperr.New(apperr.Storage, op, errors.New("duplicate token id"))
	}
	now := m.now().UTC()
	m.tokens[tokenID] = &model.ExtensionToken{
		ID:        tokenID,
		UserID:    userID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

func (m *Memory) RevokeAll(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, apperr.New(apperr.Storage, "ledger.Memory.RevokeAll", m.Err)
	}
	now := m.now().UTC()
	var count int64
	for _, token := range m.tokens {
		if token.UserID == userID && token.Active {
			token.Active = false
			token.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (m *Memory) Status(_ context.Context, userID, tokenID string) (TokenStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return StatusUnknown, apperr.New(apperr.Storage, "ledger.Memory.Status", m.Err)
	}
	token, ok := m.tokens[tokenID]
	if !ok || token.UserID != userID {
		return StatusUnknown, nil
	}
	if !token.Active {
		return StatusRevoked, nil
	}
	return StatusActive, nil
}

func (m *Memory) ListTokens(_ context.Context, userID string) ([]model.ExtensionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, apperr.New(apperr.Storage, "ledger.Memory.ListTokens", m.Err)
	}
	var out []model.ExtensionToken
	for _, token := range m.tokens {
		if token.UserID == userID {
			out = append(out, *token)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
