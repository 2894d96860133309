package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"docseal/internal/model"
	"docseal/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*model.DocumentBundle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentBundle), args.Error(1)
}

func (m *MockDocumentService) RequestSeal(ctx context.Context, id string, opts service.SealOptions) (*model.SealJob, error) {
	args := m.Called(ctx, id, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SealJob), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}
