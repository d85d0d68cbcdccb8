package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/cert-verifier/constants"
	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
)

type fakeVerifier struct {
	inFlight, peak atomic.Int32
	delay          time.Duration
}

func (f *fakeVerifier) Verify(ctx context.Context, path string) (pipeline.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return pipeline.Result{}, ctx.Err()
	}
	if path == "bad.pdf" {
		return pipeline.Result{}, errors.New("boom")
	}
	res := pipeline.Result{Path: path}
	res.Verdict.Status = constants.VerdictPending
	return res, nil
}

func TestProcessorQueueProcessesAll(t *testing.T) {
	v := &fakeVerifier{delay: 10 * time.Millisecond}
	var (
		mu   sync.Mutex
		seen = map[string]error{}
	)
	q := NewProcessorQueue(v, nil,
		WithWorkers(2),
		WithQueueSize(1),
		WithResultHandler(func(job Job, res pipeline.Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			seen[job.Path] = err
		}),
	)

	paths := []string{"a.pdf", "b.png", "bad.pdf", "c.jpg", "d.pdf"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, len(paths))
	assert.Error(t, seen["bad.pdf"])
	assert.NoError(t, seen["a.pdf"])
	assert.LessOrEqual(t, v.peak.Load(), int32(2))
}

func TestProcessorQueueTimeout(t *testing.T) {
	v := &fakeVerifier{delay: time.Second}
	errs := make(chan error, 1)
	q := NewProcessorQueue(v, nil,
		WithWorkers(1),
		WithProcessTimeout(20*time.Millisecond),
		WithResultHandler(func(_ Job, _ pipeline.Result, err error) { errs <- err }),
	)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))
	assert.ErrorIs(t, <-errs, context.DeadlineExceeded)
	q.Shutdown(context.Background())
}

func TestProcessorQueueClosed(t *testing.T) {
	q := NewProcessorQueue(&fakeVerifier{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "x.pdf"}), ErrQueueClosed)
}

func TestProcessorQueueBaseContextCancelsRuns(t *testing.T) {
	v := &fakeVerifier{delay: time.Hour}
	base, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	q := NewProcessorQueue(v, nil,
		WithWorkers(1),
		WithBaseContext(base),
		WithResultHandler(func(_ Job, _ pipeline.Result, err error) { errs <- err }),
	)
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.pdf"}))

	cancel()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run was not cancelled")
	}
	q.Shutdown(context.Background())
}
