package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/cert-verifier/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to verify.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Verifier is the pipeline entry point the workers call.
type Verifier interface {
	Verify(ctx context.Context, path string) (pipeline.Result, error)
}

// ResultHandler receives every finished job. It is called from worker
// goroutines and must be safe for concurrent use.
type ResultHandler func(job Job, res pipeline.Result, err error)
