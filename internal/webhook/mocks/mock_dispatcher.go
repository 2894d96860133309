package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docseal/internal/webhook"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Trigger(ctx context.Context, event webhook.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
