package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/model"
)

// MockModelImpl for testing model-backed agents.
type MockModelImpl struct{ mock.Mock }

func (m *MockModelImpl) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	args := m.Called(ctx, req)

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	if err := args.Error(1); err != nil {
		errCh <- err
	} else {
		respCh <- model.Response{Text: args.String(0), FinishReason: "stop"}
	}

	close(respCh)
	close(errCh)

	return respCh, errCh
}

func (m *MockModelImpl) Info() model.Info {
	args := m.Called()
	return args.Get(0).(model.Info)
}

func TestModelAgent_Generate(t *testing.T) {
	llm := &MockModelImpl{}
	llm.On("Info").Return(model.Info{Name: "mock", Provider: "test"})
	llm.On("Generate", mock.Anything, mock.MatchedBy(func(req model.Request) bool {
		return req.Instructions == "You are Coder, acting as the primary agent in a supervised multi-agent session." &&
			len(req.Turns) == 3 &&
			req.Turns[0].Role == model.RoleUser && req.Turns[0].Text == "[Critic] please fix" &&
			req.Turns[1].Role == model.RoleAssistant && req.Turns[1].Text == "done" &&
			req.Turns[2].Text == "Continue."
	})).Return("  fixed it  ", nil)

	a := NewModelAgent("Coder", core.RolePrimary, llm)
	history := []core.Message{
		core.NewMessage("Critic", core.RoleReviewer, "please fix"),
		core.NewMessage("Coder", core.RolePrimary, "done"),
	}

	out, err := a.Generate(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "fixed it", out)
	llm.AssertExpectations(t)
}

func TestModelAgent_Error(t *testing.T) {
	llm := &MockModelImpl{}
	llm.On("Info").Return(model.Info{Name: "mock"})
	llm.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	_, err := NewModelAgent("Coder", core.RolePrimary, llm).Generate(context.Background(), nil)
	assert.ErrorContains(t, err, "rate limited")
}

func TestModelAgent_HistoryCap(t *testing.T) {
	m := model.NewMockModel("mock", "test")
	a := NewModelAgent("A", core.RolePrimary, m, WithMaxHistoryMessages(2), WithStreaming(true))

	history := []core.Message{
		core.NewMessage("B", core.RoleReviewer, "1"),
		core.NewMessage("B", core.RoleReviewer, "2"),
		core.NewMessage("B", core.RoleReviewer, "3"),
	}
	out, err := a.Generate(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: [B] 3", out)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Turns, 2)
	assert.True(t, reqs[0].Stream)
}
