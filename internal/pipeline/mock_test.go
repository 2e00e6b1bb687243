package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nestboard/listing-cli/pkg/anthropic"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// Compile-time interface checks.
var _ anthropic.Client = (*mockAnthropicClient)(nil)
