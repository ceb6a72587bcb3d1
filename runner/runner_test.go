package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunCycleRunsAllTasks(t *testing.T) {
	var mu sync.Mutex
	ran := map[string]bool{}

	tasks := []Task{}
	for _, name := range []string{"a", "b", "c", "d"} {
		name := name
		tasks = append(tasks, Task{
			Name: name,
			Run: func(ctx context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				ran[name] = true
				return nil
			},
		})
	}

	r := New(time.Second, 2, nil)
	r.RunCycle(context.Background(), tasks)

	assert.Len(t, ran, 4)
}

func TestRunCycleFailureDoesNotBlockOthers(t *testing.T) {
	var succeeded atomic.Int32

	tasks := []Task{
		{
			Name: "fails",
			Run: func(ctx context.Context) error {
				return errors.New("feed is down")
			},
		},
		{
			Name: "works",
			Run: func(ctx context.Context) error {
				succeeded.Add(1)
				return nil
			},
		},
	}

	r := New(time.Second, 2, nil)
	r.RunCycle(context.Background(), tasks)

	assert.Equal(t, int32(1), succeeded.Load())
}

func TestRunCycleAbandonsStuckTask(t *testing.T) {
	release := make(chan struct{})
	var fastDone atomic.Bool

	tasks := []Task{
		{
			Name: "stuck",
			Run: func(ctx context.Context) error {
				<-release
				return nil
			},
		},
		{
			Name: "fast",
			Run: func(ctx context.Context) error {
				fastDone.Store(true)
				return nil
			},
		},
	}

	r := New(50*time.Millisecond, 2, nil)

	start := time.Now()
	r.RunCycle(context.Background(), tasks)
	elapsed := time.Since(start)

	close(release)

	assert.True(t, fastDone.Load())
	// The cycle returned at the deadline instead of waiting for the
	// stuck task.
	assert.Less(t, elapsed, time.Second)
}

func TestRunCycleBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int32

	tasks := []Task{}
	for i := 0; i < 8; i++ {
		tasks = append(tasks, Task{
			Name: "task",
			Run: func(ctx context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			},
		})
	}

	r := New(time.Second, 2, nil)
	r.RunCycle(context.Background(), tasks)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunCycleHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tasks := []Task{{
		Name: "slow",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	r := New(10*time.Second, 1, nil)
	r.RunCycle(ctx, tasks)

	assert.Less(t, time.Since(start), time.Second)
}
