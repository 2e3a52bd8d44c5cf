package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"store timeout", NewStoreTimeoutError("merge", context.DeadlineExceeded), true},
		{"store unavailable", NewStoreError("merge", fmt.Errorf("connection refused")), true},
		{"rate limit", NewRateLimitError("telegram", time.Second), true},
		{"validation", NewValidationError("id", "missing"), false},
		{"unauthorized", NewUnauthorizedError("bad signature"), false},
		{"store rejected", New(ErrCodeStoreRejected, "schema mismatch"), false},
		{"raw error defaults to transient", fmt.Errorf("socket closed"), true},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, Transient(tt.err))
		})
	}
}

func TestPermanentClassification(t *testing.T) {
	assert.True(t, Permanent(NewValidationError("id", "missing")))
	assert.True(t, Permanent(NewUnauthorizedError("expired")))
	assert.True(t, Permanent(New(ErrCodeStoreRejected, "rejected")))
	assert.False(t, Permanent(NewStoreTimeoutError("get", context.DeadlineExceeded)))
	assert.False(t, Permanent(fmt.Errorf("socket closed")))
	assert.False(t, Permanent(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: i/o timeout")
	wrapped := Wrap(cause, ErrCodeStoreUnavailable, "merge failed")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ErrCodeStoreUnavailable, wrapped.Code)
	assert.Contains(t, wrapped.Error(), "merge failed")
}

func TestWithContextAndUserID(t *testing.T) {
	err := New(ErrCodeCacheError, "set failed").
		WithContext("key", "user_42").
		WithUserID("42")

	assert.Equal(t, "user_42", err.Context["key"])
	assert.Equal(t, "42", err.UserID)
	assert.False(t, err.Timestamp.IsZero())
}
