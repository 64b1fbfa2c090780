package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"umrah-backoffice/internal/domain"
)

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), Options{MaxRetries: 3, InitialDelay: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestDo_LogsEachRetry(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	calls := 0
	_, err := Do(context.Background(), Options{MaxRetries: 2, InitialDelay: time.Millisecond, Logger: zap.New(core)}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("connection refused")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	entries := logs.FilterMessage("request failed, retrying").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ContextMap()["attempt"])
	assert.Equal(t, 2*time.Millisecond, entries[1].ContextMap()["delay"])
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Options{MaxRetries: 5, InitialDelay: time.Millisecond}, func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, fmt.Errorf("room r1: %w", domain.ErrNotFound)
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), Options{MaxRetries: 2, InitialDelay: time.Millisecond}, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Options{MaxRetries: 5, InitialDelay: time.Hour}, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("temporary")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithTimeout(t *testing.T) {
	_, err := WithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, domain.ErrStore)

	v, err := WithTimeout(context.Background(), time.Second, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
