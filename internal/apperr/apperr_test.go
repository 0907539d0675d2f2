package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("revoke: %w", New(Storage, "repository.RevokeAll", base))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, Storage, kind)
	assert.True(t, IsKind(err, Storage))
	assert.False(t, IsKind(err, Validation))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "repository.RevokeAll: storage: connection refused", errors.Unwrap(err).Error())

	_, ok = KindOf(base)
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(Validation, "op", nil).HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, New(Authentication, "op", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New(Storage, "op", nil).HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New(Signing, "op", nil).HTTPStatus())
	assert.Equal(t, "op: signing", New(Signing, "op", nil).Error())
}
