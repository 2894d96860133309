package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docseal/internal/notify"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendCompletedEmail(ctx context.Context, email notify.CompletedEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}
