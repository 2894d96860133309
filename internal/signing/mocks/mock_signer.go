package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) Sign(ctx context.Context, pdfBytes []byte) ([]byte, error) {
	args := m.Called(ctx, pdfBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
