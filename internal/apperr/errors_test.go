package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("classified error", func(t *testing.T) {
		err := Conflict("Payment for %d/%d already recorded for this member.", 3, 2025)
		assert.Equal(t, KindConflict, KindOf(err))
		assert.Equal(t, "Payment for 3/2025 already recorded for this member.", err.Error())
	})

	t.Run("wrapped with fmt", func(t *testing.T) {
		err := fmt.Errorf("record payment: %w", NotFound("Member not found."))
		assert.True(t, Is(err, KindNotFound))
		assert.Equal(t, "Member not found.", Message(err))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		err := errors.New("connection reset")
		assert.Equal(t, KindInternal, KindOf(err))
		assert.Equal(t, "Internal Server Error", Message(err))
	})

	t.Run("nil is not any kind", func(t *testing.T) {
		assert.False(t, Is(nil, KindInternal))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key")
	err := Wrap(KindConflict, cause, "A user with this email already exists.")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "A user with this email already exists.", Message(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindRateLimited:  http.StatusTooManyRequests,
		KindUnavailable:  http.StatusServiceUnavailable,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}
