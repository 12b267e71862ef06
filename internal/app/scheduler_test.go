package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Freeeeeet/tutor_matching/internal/service"
)

type countingRepairer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRepairer) Repair(context.Context) (*service.RepairResult, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.RepairResult{}, nil
}

func TestScheduler_RunsImmediatelyAndOnTicker(t *testing.T) {
	repairer := &countingRepairer{}
	s := NewScheduler(repairer, 10*time.Millisecond, zap.NewNop())

	s.Start(context.Background())

	assert.Eventually(t, func() bool { return repairer.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	calls := repairer.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, repairer.calls.Load(), "no runs after Stop")
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	repairer := &countingRepairer{err: errors.New("db down")}
	s := NewScheduler(repairer, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.Equal(t, int32(1), repairer.calls.Load())
}
