package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docseal/internal/model"
)

type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Enqueue(ctx context.Context, job *model.SealJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) ClaimPending(ctx context.Context) (*model.SealJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SealJob), args.Error(1)
}

func (m *MockJobRepository) MarkDone(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockJobRepository) MarkFailed(ctx context.Context, jobID, reason string, permanent bool) error {
	args := m.Called(ctx, jobID, reason, permanent)
	return args.Error(0)
}

func (m *MockJobRepository) GetStepResult(ctx context.Context, jobID, step string) ([]byte, bool, error) {
	args := m.Called(ctx, jobID, step)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Bool(1), args.Error(2)
}

func (m *MockJobRepository) PutStepResult(ctx context.Context, jobID, step string, result []byte) error {
	args := m.Called(ctx, jobID, step, result)
	return args.Error(0)
}
