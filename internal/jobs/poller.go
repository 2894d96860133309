package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"docseal/internal/model"
	"docseal/internal/repository"
	"docseal/internal/sealing"
)

// Poller drains the seal job queue. Multiple pollers may run concurrently;
// row locking in the queue keeps any document's job on exactly one of them.
type Poller struct {
	jobs        repository.JobRepository
	runner      *Runner
	interval    time.Duration
	maxAttempts int
	log         *zap.Logger
}

// NewPoller creates a poller that wakes every interval.
func NewPoller(jobs repository.JobRepository, runner *Runner, interval time.Duration, maxAttempts int, log *zap.Logger) *Poller {
	return &Poller{
		jobs:        jobs,
		runner:      runner,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Run polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.drain(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain claims and runs jobs until the queue is empty.
func (p *Poller) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := p.jobs.ClaimPending(ctx)
		if errors.Is(err, repository.ErrNoPendingJobs) {
			return
		}
		if err != nil {
			p.log.Error("claim failed", zap.Error(err))
			return
		}
		p.process(ctx, job)
	}
}

func (p *Poller) process(ctx context.Context, job *model.SealJob) {
	err := p.runner.Execute(ctx, job)
	if err == nil {
		if err := p.jobs.MarkDone(ctx, job.ID); err != nil {
			p.log.Error("mark done failed", zap.String("job_id", job.ID), zap.Error(err))
		}
		return
	}

	// Precondition failures are poison: upstream state will not change by
	// retrying, the caller invoked sealing too early. Everything else gets
	// retried up to the attempt cap.
	permanent := sealing.IsPrecondition(err) ||
		errors.Is(err, repository.ErrNotFound) ||
		job.Attempts >= p.maxAttempts

	p.log.Warn("seal job failed",
		zap.String("job_id", job.ID),
		zap.String("document_id", job.DocumentID),
		zap.Int("attempts", job.Attempts),
		zap.Bool("permanent", permanent),
		zap.Error(err))

	if err := p.jobs.MarkFailed(ctx, job.ID, err.Error(), permanent); err != nil {
		p.log.Error("mark failed failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}
