package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentguard/core"
)

func TestBaseAgent(t *testing.T) {
	b := NewBaseAgent("Coder", core.RolePrimary)
	assert.Equal(t, "Coder", b.Name())
	assert.Equal(t, core.RolePrimary, b.Role())
	assert.Equal(t, "Agent Coder (primary)", b.Description())

	b.SetDescription("writes code")
	assert.Equal(t, "writes code", b.Description())
}

func TestFuncAgent(t *testing.T) {
	a := NewFuncAgent("Echo", core.RoleReviewer, func(_ context.Context, h []core.Message) (string, error) {
		return h[len(h)-1].Content, nil
	})

	out, err := a.Generate(context.Background(), []core.Message{core.NewMessage("x", core.RolePrimary, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, core.RoleReviewer, a.Role())
}

func TestScriptedAgent(t *testing.T) {
	a := NewScriptedAgent("S", core.RolePrimary, "one", "two")

	var got []string
	for i := 0; i < 3; i++ {
		out, err := a.Generate(context.Background(), nil)
		require.NoError(t, err)
		got = append(got, out)
	}
	assert.Equal(t, []string{"one", "two", "one"}, got)
	assert.Equal(t, 3, a.Calls())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Generate(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Panics(t, func() { NewScriptedAgent("S", core.RolePrimary) })
}

func TestFaultAgents(t *testing.T) {
	ctx := context.Background()

	out, _ := NewStubborn("A", core.RolePrimary).Generate(ctx, nil)
	assert.Equal(t, StubbornReply, out)

	out, _ = NewPrematureCloser("A", core.RolePrimary).Generate(ctx, nil)
	assert.Contains(t, out, core.DefaultStopCondition)
	assert.NotContains(t, out, "verified_proof")

	rb := NewRoleBreaker("Worker", core.RoleObserver)
	out, _ = rb.Generate(ctx, nil)
	assert.Contains(t, out, "EXECUTE_CODE")
	assert.Equal(t, core.RoleObserver, rb.Role())

	d := NewDrifting("D", core.RoleReviewer)
	out, _ = d.Generate(ctx, []core.Message{{Content: "a"}})
	assert.Equal(t, DriftOpeningReply, out)
	out, _ = d.Generate(ctx, []core.Message{{Content: "a"}, {Content: "b"}})
	assert.Equal(t, DriftReply, out)
}
