package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"docseal/internal/model"
	"docseal/internal/repository"
	"docseal/internal/sealing"
)

// Step names. Each step commits its result durably so a crashed attempt
// resumes from the first uncompleted step instead of repeating side effects.
const (
	StepResolve       = "resolve"
	StepRenderAndSign = "render-and-sign"
	StepPersist       = "persist"
	StepNotify        = "notify"
)

// SealPipeline is the staged sealing contract the runner drives. Satisfied
// by *sealing.Sealer.
type SealPipeline interface {
	Prepare(ctx context.Context, req sealing.SealRequest) (*sealing.Plan, error)
	RenderAndSign(ctx context.Context, plan *sealing.Plan) ([]byte, error)
	StoreSigned(ctx context.Context, signed []byte) (string, error)
	Persist(ctx context.Context, plan *sealing.Plan, dataRef string) (*sealing.PersistOutcome, error)
	Notify(ctx context.Context, req sealing.SealRequest, plan *sealing.Plan, outcome *sealing.PersistOutcome)
}

// Runner executes one seal job as a sequence of checkpointed steps.
type Runner struct {
	jobs   repository.JobRepository
	sealer SealPipeline
	log    *zap.Logger
}

// NewRunner creates a runner over the given step cache and sealer.
func NewRunner(jobs repository.JobRepository, sealer SealPipeline, log *zap.Logger) *Runner {
	return &Runner{jobs: jobs, sealer: sealer, log: log}
}

// renderResult is the durable output of the render-and-sign step: the signed
// bytes live in blob storage, only their key enters the step cache.
type renderResult struct {
	DataRef string `json:"dataRef"`
}

// Execute runs the job to completion. Re-invocation after a crash skips
// steps whose results already committed; rendering re-runs freely because it
// is a pure function of the resolved plan.
func (r *Runner) Execute(ctx context.Context, job *model.SealJob) error {
	req := sealing.SealRequest{
		DocumentID:      job.DocumentID,
		SendEmail:       job.SendEmail,
		IsResealing:     job.IsResealing,
		RequestMetadata: job.RequestMetadata,
	}

	plan, err := runStep(ctx, r.jobs, job.ID, StepResolve, func(ctx context.Context) (*sealing.Plan, error) {
		return r.sealer.Prepare(ctx, req)
	})
	if err != nil {
		return fmt.Errorf("step %s: %w", StepResolve, err)
	}

	rendered, err := runStep(ctx, r.jobs, job.ID, StepRenderAndSign, func(ctx context.Context) (renderResult, error) {
		signed, err := r.sealer.RenderAndSign(ctx, plan)
		if err != nil {
			return renderResult{}, err
		}
		dataRef, err := r.sealer.StoreSigned(ctx, signed)
		if err != nil {
			return renderResult{}, err
		}
		return renderResult{DataRef: dataRef}, nil
	})
	if err != nil {
		return fmt.Errorf("step %s: %w", StepRenderAndSign, err)
	}

	outcome, err := runStep(ctx, r.jobs, job.ID, StepPersist, func(ctx context.Context) (*sealing.PersistOutcome, error) {
		return r.sealer.Persist(ctx, plan, rendered.DataRef)
	})
	if err != nil {
		return fmt.Errorf("step %s: %w", StepPersist, err)
	}

	_, err = runStep(ctx, r.jobs, job.ID, StepNotify, func(ctx context.Context) (struct{}, error) {
		r.sealer.Notify(ctx, req, plan, outcome)
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("step %s: %w", StepNotify, err)
	}

	r.log.Info("seal job finished",
		zap.String("job_id", job.ID),
		zap.String("document_id", job.DocumentID),
		zap.String("status", string(outcome.Status)))
	return nil
}

// runStep returns the cached result of a step, or executes it and commits
// the result. A step whose execution fails leaves no cache entry.
func runStep[T any](ctx context.Context, cache repository.JobRepository, jobID, name string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	data, ok, err := cache.GetStepResult(ctx, jobID, name)
	if err != nil {
		return out, err
	}
	if ok {
		if err := json.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("decode cached result: %w", err)
		}
		return out, nil
	}

	out, err = fn(ctx)
	if err != nil {
		return out, err
	}
	data, err = json.Marshal(out)
	if err != nil {
		return out, fmt.Errorf("encode result: %w", err)
	}
	if err := cache.PutStepResult(ctx, jobID, name, data); err != nil {
		return out, err
	}
	return out, nil
}
