package sagas

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func record(log *[]string, entry string, err error) func(context.Context) error {
	return func(context.Context) error {
		*log = append(*log, entry)
		return err
	}
}

func TestSaga_Execute_Completes(t *testing.T) {
	var log []string
	saga := New("ok", zap.NewNop()).
		Compensable("a", record(&log, "a", nil), record(&log, "undo a", nil)).
		Step("b", record(&log, "b", nil))

	require.NoError(t, saga.Execute(context.Background()))
	assert.Equal(t, []string{"a", "b"}, log)
	assert.Equal(t, StateCompleted, saga.State())
}

func TestSaga_Execute_CompensatesInReverse(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	saga := New("undo", zap.NewNop()).
		Compensable("a", record(&log, "a", nil), record(&log, "undo a", nil)).
		Step("b", record(&log, "b", nil)).
		Compensable("c", record(&log, "c", nil), record(&log, "undo c", nil)).
		Step("d", record(&log, "d", boom))

	err := saga.Execute(context.Background())

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step d")
	assert.Equal(t, []string{"a", "b", "c", "d", "undo c", "undo a"}, log)
	assert.Equal(t, StateCompensated, saga.State())
}

func TestSaga_Execute_FailedCompensation(t *testing.T) {
	var log []string
	saga := New("broken", zap.NewNop()).
		Compensable("a", record(&log, "a", nil), record(&log, "undo a", errors.New("gone"))).
		Step("b", record(&log, "b", errors.New("boom")))

	require.Error(t, saga.Execute(context.Background()))
	assert.Equal(t, StateFailed, saga.State())
}

func TestSaga_Execute_Retries(t *testing.T) {
	attempts := 0
	saga := New("retry", zap.NewNop()).Add(Step{
		Name: "flaky",
		Execute: func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("throttled")
			}
			return nil
		},
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	require.NoError(t, saga.Execute(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestSaga_Execute_RetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	saga := New("cancel", zap.NewNop()).Add(Step{
		Name: "slow",
		Execute: func(context.Context) error {
			cancel()
			return errors.New("throttled")
		},
		MaxRetries: 5,
		RetryDelay: time.Hour,
	})

	err := saga.Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
