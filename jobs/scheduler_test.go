package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedScan counts runs; fail/panic control the scripted behavior of each
// run in order.
type scriptedScan struct {
	name string
	mu   sync.Mutex
	runs int
	fn   func(run int) error
}

func (s *scriptedScan) Name() string { return s.name }

func (s *scriptedScan) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runs++
	run := s.runs
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(run)
	}
	return nil
}

func (s *scriptedScan) runCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func TestTickRunsAllScans(t *testing.T) {
	t.Parallel()

	first := &scriptedScan{name: "first"}
	second := &scriptedScan{name: "second"}
	sched := NewScheduler(zap.NewNop(), first, second)

	sched.RunTick(context.Background())
	require.Equal(t, 1, first.runCount())
	require.Equal(t, 1, second.runCount())
}

func TestScanErrorDoesNotStopOtherScan(t *testing.T) {
	t.Parallel()

	first := &scriptedScan{name: "first", fn: func(int) error { return errors.New("scan failed") }}
	second := &scriptedScan{name: "second"}
	sched := NewScheduler(zap.NewNop(), first, second)

	sched.RunTick(context.Background())
	sched.RunTick(context.Background())

	require.Equal(t, 2, first.runCount())
	require.Equal(t, 2, second.runCount())
}

func TestScanPanicDoesNotStopOtherScanOrFutureTicks(t *testing.T) {
	t.Parallel()

	first := &scriptedScan{name: "first", fn: func(run int) error {
		if run == 1 {
			panic("boom")
		}
		return nil
	}}
	second := &scriptedScan{name: "second"}
	sched := NewScheduler(zap.NewNop(), first, second)

	sched.RunTick(context.Background())
	require.Equal(t, 1, second.runCount())

	sched.RunTick(context.Background())
	require.Equal(t, 2, first.runCount())
	require.Equal(t, 2, second.runCount())
}

func TestOverlappingTickIsSkipped(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	slow := &scriptedScan{name: "slow", fn: func(int) error {
		close(started)
		<-release
		return nil
	}}
	sched := NewScheduler(zap.NewNop(), slow)

	done := make(chan struct{})
	go func() {
		sched.RunTick(context.Background())
		close(done)
	}()

	<-started
	// Second tick overlaps the first and must return without running the scan.
	sched.RunTick(context.Background())
	require.Equal(t, 1, slow.runCount())

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first tick did not finish")
	}

	sched.RunTick(context.Background())
	require.Equal(t, 2, slow.runCount())
}
