package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"docseal/internal/model"
	"docseal/internal/repository"
	"docseal/internal/repository/mocks"
	"docseal/internal/sealing"
)

// failingPreparePipeline always fails resolve with a named error.
type failingPreparePipeline struct {
	stagePipeline
	err error
}

func (p *failingPreparePipeline) Prepare(context.Context, sealing.SealRequest) (*sealing.Plan, error) {
	return nil, p.err
}

func newTestPoller(jobs repository.JobRepository, pipeline SealPipeline) *Poller {
	runner := NewRunner(jobs, pipeline, zap.NewNop())
	return NewPoller(jobs, runner, 0, 3, zap.NewNop())
}

func TestPollerMarksDoneOnSuccess(t *testing.T) {
	repo := new(mocks.MockJobRepository)
	job := &model.SealJob{ID: "job-1", DocumentID: "doc-1", Attempts: 1}

	repo.On("GetStepResult", mock.Anything, "job-1", mock.Anything).Return(nil, false, nil)
	repo.On("PutStepResult", mock.Anything, "job-1", mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkDone", mock.Anything, "job-1").Return(nil)

	poller := newTestPoller(repo, &stagePipeline{})
	poller.process(context.Background(), job)

	repo.AssertCalled(t, "MarkDone", mock.Anything, "job-1")
	repo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPollerRetriesTransientFailure(t *testing.T) {
	repo := new(mocks.MockJobRepository)
	job := &model.SealJob{ID: "job-1", DocumentID: "doc-1", Attempts: 1}

	repo.On("GetStepResult", mock.Anything, "job-1", mock.Anything).Return(nil, false, nil)
	repo.On("PutStepResult", mock.Anything, "job-1", mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkFailed", mock.Anything, "job-1", mock.Anything, false).Return(nil)

	poller := newTestPoller(repo, &stagePipeline{failStage: StepRenderAndSign})
	poller.process(context.Background(), job)

	repo.AssertCalled(t, "MarkFailed", mock.Anything, "job-1", mock.Anything, false)
}

func TestPollerPoisonsPreconditionFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "document not complete", err: sealing.ErrDocumentNotComplete},
		{name: "unsigned required fields", err: sealing.ErrUnsignedRequiredFields},
		{name: "missing document data", err: sealing.ErrMissingDocumentData},
		{name: "document not found", err: repository.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockJobRepository)
			job := &model.SealJob{ID: "job-1", DocumentID: "doc-1", Attempts: 1}

			repo.On("GetStepResult", mock.Anything, "job-1", mock.Anything).Return(nil, false, nil)
			repo.On("MarkFailed", mock.Anything, "job-1", mock.Anything, true).Return(nil)

			poller := newTestPoller(repo, &failingPreparePipeline{err: tt.err})
			poller.process(context.Background(), job)

			repo.AssertCalled(t, "MarkFailed", mock.Anything, "job-1", mock.Anything, true)
		})
	}
}

func TestPollerPoisonsExhaustedAttempts(t *testing.T) {
	repo := new(mocks.MockJobRepository)
	job := &model.SealJob{ID: "job-1", DocumentID: "doc-1", Attempts: 3}

	repo.On("GetStepResult", mock.Anything, "job-1", mock.Anything).Return(nil, false, nil)
	repo.On("PutStepResult", mock.Anything, "job-1", mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkFailed", mock.Anything, "job-1", mock.Anything, true).Return(nil)

	poller := newTestPoller(repo, &stagePipeline{failStage: StepPersist})
	poller.process(context.Background(), job)

	repo.AssertCalled(t, "MarkFailed", mock.Anything, "job-1", mock.Anything, true)
}

func TestPollerDrainStopsOnEmptyQueue(t *testing.T) {
	repo := new(mocks.MockJobRepository)
	job := &model.SealJob{ID: "job-1", DocumentID: "doc-1", Attempts: 1}

	repo.On("ClaimPending", mock.Anything).Return(job, nil).Once()
	repo.On("ClaimPending", mock.Anything).Return(nil, repository.ErrNoPendingJobs)
	repo.On("GetStepResult", mock.Anything, "job-1", mock.Anything).Return(nil, false, nil)
	repo.On("PutStepResult", mock.Anything, "job-1", mock.Anything, mock.Anything).Return(nil)
	repo.On("MarkDone", mock.Anything, "job-1").Return(nil)

	poller := newTestPoller(repo, &stagePipeline{})
	poller.drain(context.Background())

	repo.AssertNumberOfCalls(t, "ClaimPending", 2)
	repo.AssertCalled(t, "MarkDone", mock.Anything, "job-1")
}

func TestPollerDrainRespectsCancellation(t *testing.T) {
	repo := new(mocks.MockJobRepository)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := newTestPoller(repo, &stagePipeline{})
	poller.drain(ctx)

	repo.AssertNotCalled(t, "ClaimPending", mock.Anything)
}
