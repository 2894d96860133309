package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docseal/internal/model"
	"docseal/internal/sealing"
)

// memSteps is an in-memory step cache mimicking the first-write-wins store.
type memSteps struct {
	results map[string][]byte
}

func newMemSteps() *memSteps {
	return &memSteps{results: make(map[string][]byte)}
}

func (m *memSteps) Enqueue(context.Context, *model.SealJob) error     { return nil }
func (m *memSteps) ClaimPending(context.Context) (*model.SealJob, error) {
	return nil, errors.New("not implemented")
}
func (m *memSteps) MarkDone(context.Context, string) error              { return nil }
func (m *memSteps) MarkFailed(context.Context, string, string, bool) error { return nil }

func (m *memSteps) GetStepResult(_ context.Context, jobID, step string) ([]byte, bool, error) {
	data, ok := m.results[jobID+"/"+step]
	return data, ok, nil
}

func (m *memSteps) PutStepResult(_ context.Context, jobID, step string, result []byte) error {
	key := jobID + "/" + step
	if _, exists := m.results[key]; !exists {
		m.results[key] = result
	}
	return nil
}

// stagePipeline counts stage executions and can fail a chosen stage.
type stagePipeline struct {
	prepareCalls int
	renderCalls  int
	storeCalls   int
	persistCalls int
	notifyCalls  int
	failStage    string
}

var errStageFailed = errors.New("stage failed")

func (p *stagePipeline) Prepare(context.Context, sealing.SealRequest) (*sealing.Plan, error) {
	p.prepareCalls++
	if p.failStage == StepResolve {
		return nil, errStageFailed
	}
	return &sealing.Plan{Document: model.Document{ID: "doc-1"}}, nil
}

func (p *stagePipeline) RenderAndSign(context.Context, *sealing.Plan) ([]byte, error) {
	p.renderCalls++
	if p.failStage == StepRenderAndSign {
		return nil, errStageFailed
	}
	return []byte("signed"), nil
}

func (p *stagePipeline) StoreSigned(context.Context, []byte) (string, error) {
	p.storeCalls++
	return "document-data/blob.pdf", nil
}

func (p *stagePipeline) Persist(context.Context, *sealing.Plan, string) (*sealing.PersistOutcome, error) {
	p.persistCalls++
	if p.failStage == StepPersist {
		return nil, errStageFailed
	}
	return &sealing.PersistOutcome{Status: model.DocumentStatusCompleted}, nil
}

func (p *stagePipeline) Notify(context.Context, sealing.SealRequest, *sealing.Plan, *sealing.PersistOutcome) {
	p.notifyCalls++
}

func testJob() *model.SealJob {
	return &model.SealJob{ID: "job-1", DocumentID: "doc-1", SendEmail: true}
}

func TestRunnerExecutesAllSteps(t *testing.T) {
	steps := newMemSteps()
	pipeline := &stagePipeline{}
	runner := NewRunner(steps, pipeline, zap.NewNop())

	require.NoError(t, runner.Execute(context.Background(), testJob()))

	assert.Equal(t, 1, pipeline.prepareCalls)
	assert.Equal(t, 1, pipeline.renderCalls)
	assert.Equal(t, 1, pipeline.storeCalls)
	assert.Equal(t, 1, pipeline.persistCalls)
	assert.Equal(t, 1, pipeline.notifyCalls)

	// Every step committed its result.
	for _, step := range []string{StepResolve, StepRenderAndSign, StepPersist, StepNotify} {
		_, ok, err := steps.GetStepResult(context.Background(), "job-1", step)
		require.NoError(t, err)
		assert.True(t, ok, "step %s not cached", step)
	}
}

func TestRunnerReExecutionSkipsCommittedSteps(t *testing.T) {
	steps := newMemSteps()
	pipeline := &stagePipeline{failStage: StepPersist}
	runner := NewRunner(steps, pipeline, zap.NewNop())

	// First attempt dies at persist.
	err := runner.Execute(context.Background(), testJob())
	require.ErrorIs(t, err, errStageFailed)
	assert.Equal(t, 1, pipeline.prepareCalls)
	assert.Equal(t, 1, pipeline.renderCalls)
	assert.Equal(t, 0, pipeline.notifyCalls)

	// Second attempt resumes after render-and-sign: the plan and the blob
	// reference come from the cache, only persist and notify run.
	pipeline.failStage = ""
	require.NoError(t, runner.Execute(context.Background(), testJob()))
	assert.Equal(t, 1, pipeline.prepareCalls)
	assert.Equal(t, 1, pipeline.renderCalls)
	assert.Equal(t, 1, pipeline.storeCalls)
	assert.Equal(t, 2, pipeline.persistCalls)
	assert.Equal(t, 1, pipeline.notifyCalls)
}

func TestRunnerThirdExecutionIsNoop(t *testing.T) {
	steps := newMemSteps()
	pipeline := &stagePipeline{}
	runner := NewRunner(steps, pipeline, zap.NewNop())

	require.NoError(t, runner.Execute(context.Background(), testJob()))
	require.NoError(t, runner.Execute(context.Background(), testJob()))

	// All results cached: nothing re-runs, notably no duplicate side
	// effects.
	assert.Equal(t, 1, pipeline.prepareCalls)
	assert.Equal(t, 1, pipeline.persistCalls)
	assert.Equal(t, 1, pipeline.notifyCalls)
}

func TestRunnerFailedStepCachesNothing(t *testing.T) {
	steps := newMemSteps()
	pipeline := &stagePipeline{failStage: StepResolve}
	runner := NewRunner(steps, pipeline, zap.NewNop())

	err := runner.Execute(context.Background(), testJob())
	require.ErrorIs(t, err, errStageFailed)

	_, ok, _ := steps.GetStepResult(context.Background(), "job-1", StepResolve)
	assert.False(t, ok)
}

func TestRunnerCachedPlanRoundTrips(t *testing.T) {
	steps := newMemSteps()
	plan := &sealing.Plan{
		Document:  model.Document{ID: "doc-1", Title: "NDA"},
		SourceRef: "document-data/initial.pdf",
		Rejected:  true,
	}
	data, err := json.Marshal(plan)
	require.NoError(t, err)
	require.NoError(t, steps.PutStepResult(context.Background(), "job-1", StepResolve, data))

	pipeline := &stagePipeline{}
	runner := NewRunner(steps, pipeline, zap.NewNop())
	require.NoError(t, runner.Execute(context.Background(), testJob()))

	// The cached plan was used instead of a fresh Prepare.
	assert.Equal(t, 0, pipeline.prepareCalls)
	assert.Equal(t, 1, pipeline.renderCalls)
}
