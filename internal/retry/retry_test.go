package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("connection refused")

func TestDo_Success(t *testing.T) {
	called := 0
	err := Do(context.Background(), Policy{Attempts: 3, Backoff: time.Millisecond}, func() error {
		called++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, called)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	called := 0
	err := Do(context.Background(), Policy{Attempts: 5, Backoff: time.Millisecond}, func() error {
		called++
		if called < 3 {
			return errRefused
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, called)
}

func TestDo_Exhausted(t *testing.T) {
	called := 0
	err := Do(context.Background(), Policy{Attempts: 3, Backoff: time.Millisecond}, func() error {
		called++
		return errRefused
	}, nil)

	require.ErrorIs(t, err, errRefused)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, called)
}

func TestDo_NotRetryable(t *testing.T) {
	fatal := errors.New("no such host")
	called := 0
	err := Do(context.Background(), Policy{Attempts: 5, Backoff: time.Millisecond}, func() error {
		called++
		return fatal
	}, func(err error) bool { return errors.Is(err, errRefused) })

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, called)
}

func TestDo_ZeroPolicyTriesOnce(t *testing.T) {
	called := 0
	err := Do(context.Background(), Policy{}, func() error {
		called++
		return errRefused
	}, nil)

	assert.Equal(t, errRefused, err)
	assert.Equal(t, 1, called)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	called := 0
	err := Do(ctx, Policy{Attempts: 5, Backoff: time.Hour}, func() error {
		called++
		cancel()
		return errRefused
	}, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, called)
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{Attempts: 10, Backoff: 100 * time.Millisecond, MaxBackoff: time.Second}
	assert.Equal(t, 100*time.Millisecond, p.delay(1))
	assert.Equal(t, 200*time.Millisecond, p.delay(2))
	assert.Equal(t, 800*time.Millisecond, p.delay(4))
	assert.Equal(t, time.Second, p.delay(5))
	assert.Equal(t, time.Second, p.delay(70))
}
