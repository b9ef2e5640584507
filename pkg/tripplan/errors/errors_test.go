package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tperrors "github.com/randalmurphal/tripplan/pkg/tripplan/errors"
)

func TestTypedErrors_MatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		category tperrors.Category
	}{
		{"validation", &tperrors.ValidationError{Messages: []string{"missing required field: destination"}}, tperrors.ErrValidation, tperrors.CategoryRecoverable},
		{"not found", &tperrors.NotFoundError{Kind: "trip", ID: "t1"}, tperrors.ErrNotFound, tperrors.CategoryRecoverable},
		{"conflict", &tperrors.ConflictError{Kind: "trip", Field: "share_code", Value: "ABC1"}, tperrors.ErrConflict, tperrors.CategoryRetryable},
		{"invalid state", &tperrors.InvalidStateError{Op: "undo", Status: "pending", Want: "executed"}, tperrors.ErrInvalidState, tperrors.CategoryProgrammer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.category, tperrors.Categorize(wrapped))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	v := &tperrors.ValidationError{Operation: "trip.create", Messages: []string{"a", "b"}}
	assert.Equal(t, "trip.create: validation failed: a; b", v.Error())

	nf := &tperrors.NotFoundError{Kind: "trip", ID: "t1"}
	assert.Equal(t, `trip "t1" not found`, nf.Error())

	c := &tperrors.ConflictError{Kind: "trip", Field: "share_code", Value: "ABC1"}
	assert.Equal(t, `trip with share_code "ABC1" already exists`, c.Error())

	s := &tperrors.InvalidStateError{Op: "execute", Status: "executed", Want: "pending"}
	assert.Equal(t, "cannot execute: status is executed, want pending", s.Error())
}

func TestCategorize_Unknown(t *testing.T) {
	assert.Equal(t, tperrors.CategoryInternal, tperrors.Categorize(stderrors.New("boom")))
	assert.Equal(t, tperrors.CategoryInternal, tperrors.Categorize(nil))
	assert.False(t, tperrors.IsRecoverable(stderrors.New("boom")))
	assert.True(t, tperrors.IsRecoverable(&tperrors.ConflictError{Kind: "trip"}))
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "recoverable", tperrors.CategoryRecoverable.String())
	assert.Equal(t, "retryable", tperrors.CategoryRetryable.String())
	assert.Equal(t, "programmer", tperrors.CategoryProgrammer.String())
	assert.Equal(t, "internal", tperrors.CategoryInternal.String())
	assert.Equal(t, "unknown", tperrors.Category(99).String())
}

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after conflicts", func(t *testing.T) {
		res := tperrors.WithRetry(ctx, tperrors.ConflictRetry, func(_ context.Context, attempt int) (string, error) {
			if attempt < 2 {
				return "", &tperrors.ConflictError{Kind: "trip", Field: "share_code", Value: "X"}
			}
			return "ok", nil
		})
		require.NoError(t, res.Err)
		assert.Equal(t, "ok", res.Value)
		assert.Equal(t, 3, res.Attempts)
	})

	t.Run("non-retryable returned as is", func(t *testing.T) {
		nf := &tperrors.NotFoundError{Kind: "trip", ID: "x"}
		res := tperrors.WithRetry(ctx, tperrors.ConflictRetry, func(_ context.Context, _ int) (int, error) {
			return 0, nf
		})
		assert.Same(t, nf, res.Err)
		assert.Equal(t, 1, res.Attempts)
	})

	t.Run("exhausted keeps conflict identity", func(t *testing.T) {
		cfg := tperrors.ConflictRetry
		cfg.MaxAttempts = 3
		res := tperrors.WithRetry(ctx, cfg, func(_ context.Context, _ int) (int, error) {
			return 0, &tperrors.ConflictError{Kind: "trip"}
		})
		require.Error(t, res.Err)
		assert.True(t, tperrors.IsConflict(res.Err))
		assert.Equal(t, 3, res.Attempts)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		res := tperrors.WithRetry(cctx, tperrors.ConflictRetry, func(_ context.Context, _ int) (int, error) {
			return 1, nil
		})
		require.Error(t, res.Err)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Equal(t, 0, res.Attempts)
	})

	t.Run("backoff between attempts", func(t *testing.T) {
		cfg := tperrors.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: 5 * time.Millisecond,
			BackoffFactor:  2,
			RetryableFunc:  tperrors.IsConflict,
		}
		res := tperrors.WithRetry(ctx, cfg, func(_ context.Context, _ int) (int, error) {
			return 0, &tperrors.ConflictError{Kind: "trip"}
		})
		require.Error(t, res.Err)
		assert.GreaterOrEqual(t, res.Duration, 5*time.Millisecond)
	})
}
