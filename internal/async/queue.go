package async

import (
	"context"
	"time"
)

// Job is one inbox file waiting to be drafted.
type Job struct {
	Path        string
	Force       bool // process even if the content was seen before
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Processor handles a single job.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job Job) error

func (f ProcessorFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }
