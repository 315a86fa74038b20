package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	removed   int64
	err       error
	retention time.Duration
}

func (p *fakePruner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	p.retention = olderThan
	return p.removed, p.err
}

func TestIdempotencyCleanupHandle(t *testing.T) {
	pruner := &fakePruner{removed: 4}
	job := NewIdempotencyCleanupJob(pruner, 72*time.Hour, nil, nil)

	require.NoError(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()))
	require.Equal(t, 72*time.Hour, pruner.retention)
}

func TestIdempotencyCleanupErrors(t *testing.T) {
	boom := errors.New("pool closed")
	job := NewIdempotencyCleanupJob(&fakePruner{err: boom}, time.Hour, nil, nil)
	require.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), boom)

	job = NewIdempotencyCleanupJob(&fakePruner{}, 0, nil, nil)
	require.ErrorIs(t, job.Handle(context.Background(), NewIdempotencyCleanupTask()), asynq.SkipRetry)

	var missing *IdempotencyCleanupJob
	require.Error(t, missing.Handle(context.Background(), NewIdempotencyCleanupTask()))
}
