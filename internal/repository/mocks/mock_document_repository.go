package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docseal/internal/model"
	"docseal/internal/repository"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) FindBundle(ctx context.Context, documentID string) (*model.DocumentBundle, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentBundle), args.Error(1)
}

func (m *MockDocumentRepository) AssignQRToken(ctx context.Context, documentID, token string) error {
	args := m.Called(ctx, documentID, token)
	return args.Error(0)
}

func (m *MockDocumentRepository) CompleteSeal(ctx context.Context, p repository.CompleteSealParams) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindWebhookBundle(ctx context.Context, documentID string) (*model.DocumentBundle, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentBundle), args.Error(1)
}
