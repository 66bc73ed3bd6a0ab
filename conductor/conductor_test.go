package conductor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/internal/testutil"
)

type scripted struct {
	name    string
	role    core.Role
	replies []string
	calls   int
}

func (s *scripted) Name() string    { return s.name }
func (s *scripted) Role() core.Role { return s.role }
func (s *scripted) Generate(_ context.Context, _ []core.Message) (string, error) {
	r := s.replies[s.calls%len(s.replies)]
	s.calls++
	return r, nil
}

type mockAgent struct{ mock.Mock }

func (m *mockAgent) Name() string    { return m.Called().String(0) }
func (m *mockAgent) Role() core.Role { return m.Called().Get(0).(core.Role) }
func (m *mockAgent) Generate(ctx context.Context, h []core.Message) (string, error) {
	args := m.Called(ctx, h)
	return args.String(0), args.Error(1)
}

func newConductor(t *testing.T, roles map[string]core.Role, optFns ...func(o *Options)) *Conductor {
	t.Helper()
	c, err := New(core.TaskSpec{ID: "test", Goal: "finish", Roles: roles}, optFns...)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(core.TaskSpec{})
	assert.ErrorIs(t, err, core.ErrInvalidTaskSpec)
}

func TestStep_Accepts(t *testing.T) {
	c := newConductor(t, nil)
	a := &scripted{name: "Coder", role: core.RolePrimary, replies: []string{"step one"}}

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindAccepted, res.Kind)
	assert.Equal(t, "step one", res.Response())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, core.RolePrimary, c.History()[0].Role)
}

func TestStep_RepeatIsLoop(t *testing.T) {
	c := newConductor(t, nil)
	a := &scripted{name: "Stubborn", role: core.RolePrimary, replies: []string{"same"}}

	_, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindLoop, res.Kind)
	assert.True(t, strings.HasPrefix(res.Response(), "SYSTEM_INTERVENTION"))
	assert.Equal(t, "SYSTEM_INTERVENTION: Content identical to recent message - potential loop. Please rephrase or change strategy.", res.Response())
	assert.Equal(t, 1, c.Len(), "rejected turn must not be appended")
	assert.Len(t, c.Interventions(), 1)
}

func TestStep_AlternatingAgentsLoop(t *testing.T) {
	c := newConductor(t, nil)
	a := &scripted{name: "A", role: core.RolePrimary, replies: []string{"ping"}}
	b := &scripted{name: "B", role: core.RoleReviewer, replies: []string{"pong"}}

	var kinds []Kind
	for i := 0; i < 4; i++ {
		agent := core.Agent(a)
		if i%2 == 1 {
			agent = b
		}
		res, err := c.Step(context.Background(), agent, nil)
		require.NoError(t, err)
		kinds = append(kinds, res.Kind)
	}

	assert.Equal(t, []Kind{KindAccepted, KindAccepted, KindLoop, KindLoop}, kinds)
	assert.Equal(t, 2, c.Len())
}

func TestStep_WindowBoundary(t *testing.T) {
	c := newConductor(t, nil)
	a := &scripted{name: "A", role: core.RolePrimary, replies: []string{"m1", "m2", "m3", "m4", "m5", "m1"}}

	for i := 0; i < 5; i++ {
		res, err := c.Step(context.Background(), a, nil)
		require.NoError(t, err)
		require.True(t, res.Accepted())
	}

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted(), "repeat outside the window is allowed")
}

func TestStep_OscillationLagBeyondWindow(t *testing.T) {
	c := newConductor(t, nil, WithLoopWindow(1), WithOscillationLag(3))
	a := &scripted{name: "A", role: core.RolePrimary, replies: []string{"x", "y", "z", "w", "y"}}

	for i := 0; i < 4; i++ {
		res, err := c.Step(context.Background(), a, nil)
		require.NoError(t, err)
		require.True(t, res.Accepted())
	}

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindLoop, res.Kind)
	assert.Equal(t, ReasonOscillating, res.Reason)
}

func TestStep_RoleMismatch(t *testing.T) {
	c := newConductor(t, map[string]core.Role{"Worker": core.RoleObserver})
	a := &scripted{name: "Worker", role: core.RolePrimary, replies: []string{"EXECUTE_CODE: rm -rf /"}}

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindViolation, res.Kind)
	assert.Equal(t, "SYSTEM_BLOCK: Agent Worker claimed role primary but is assigned observer", res.Response())
	assert.Zero(t, c.Len())
}

func TestStep_PrivilegedMarker(t *testing.T) {
	c := newConductor(t, nil)
	reviewer := &scripted{name: "Critic", role: core.RoleReviewer, replies: []string{"EXECUTE_CODE: ls"}}

	res, err := c.Step(context.Background(), reviewer, nil)
	require.NoError(t, err)
	assert.Equal(t, KindViolation, res.Kind)
	assert.Equal(t, "SYSTEM_BLOCK: Role reviewer is not authorized to EXECUTE_CODE", res.Response())

	primary := &scripted{name: "Coder", role: core.RolePrimary, replies: []string{"EXECUTE_CODE: ls"}}
	res, err = c.Step(context.Background(), primary, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())

	lower := &scripted{name: "Critic", role: core.RoleReviewer, replies: []string{"execute_code: ls"}}
	res, err = c.Step(context.Background(), lower, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted(), "marker matching is case-sensitive")
}

func TestStep_UnknownRole(t *testing.T) {
	c := newConductor(t, nil)
	a := &scripted{name: "Ghost", role: core.Role(42), replies: []string{"hello"}}

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindViolation, res.Kind)
}

func TestStep_CompletionRequiresProof(t *testing.T) {
	c := newConductor(t, nil)
	closer := &scripted{name: "Closer", role: core.RolePrimary, replies: []string{"TASK_DONE: verification_successful"}}

	res, err := c.Step(context.Background(), closer, nil)
	require.NoError(t, err)
	assert.Equal(t, KindOverride, res.Kind)
	assert.Equal(t, "SYSTEM_OVERRIDE: Task not accepted as done. Please provide 'verified_proof'.", res.Response())
	assert.Zero(t, c.Len())
	assert.False(t, c.Completed())

	prover := &scripted{name: "Closer", role: core.RolePrimary, replies: []string{"TASK_DONE verified_proof=sha:abc"}}
	res, err = c.Step(context.Background(), prover, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.True(t, res.Completion)
	assert.True(t, c.Completed())
	assert.Equal(t, 1, c.Len())

	worker := &scripted{name: "Worker", role: core.RoleReviewer, replies: []string{"follow-up note"}}
	res, err = c.Step(context.Background(), worker, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.False(t, res.Completion, "only the claiming turn carries the flag")
	assert.True(t, c.Completed())
}

func TestStep_CustomStopConditionAndMarkers(t *testing.T) {
	c, err := New(core.TaskSpec{ID: "t", StopCondition: "DONE!"}, WithMarkers(Markers{Proof: "PROOF"}))
	require.NoError(t, err)

	a := &scripted{name: "A", role: core.RoleReviewer, replies: []string{"DONE! verified_proof", "DONE! PROOF", "EXECUTE_CODE"}}

	res, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindOverride, res.Kind)

	res, err = c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())

	res, err = c.Step(context.Background(), a, nil)
	require.NoError(t, err)
	assert.Equal(t, KindViolation, res.Kind, "empty privileged marker keeps the default")
}

func TestStep_LoopCheckedBeforeRole(t *testing.T) {
	c := newConductor(t, map[string]core.Role{"B": core.RoleObserver})
	a := &scripted{name: "A", role: core.RolePrimary, replies: []string{"EXECUTE_CODE"}}
	b := &scripted{name: "B", role: core.RolePrimary, replies: []string{"EXECUTE_CODE"}}

	_, err := c.Step(context.Background(), a, nil)
	require.NoError(t, err)

	res, err := c.Step(context.Background(), b, nil)
	require.NoError(t, err)
	assert.Equal(t, KindLoop, res.Kind)
}

func TestStep_GenerationError(t *testing.T) {
	c := newConductor(t, nil)

	m := new(mockAgent)
	m.On("Name").Return("Flaky")
	m.On("Role").Return(core.RolePrimary)
	m.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("backend down"))

	res, err := c.Step(context.Background(), m, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGeneration)
	assert.Equal(t, Result{}, res)
	assert.Zero(t, c.Len())
	m.AssertExpectations(t)
}

func TestStep_PassesInput(t *testing.T) {
	c := newConductor(t, nil)
	input := []core.Message{core.NewMessage("user", core.RoleObserver, "context")}

	m := new(mockAgent)
	m.On("Name").Return("A")
	m.On("Role").Return(core.RolePrimary)
	m.On("Generate", mock.Anything, input).Return("ok", nil)

	res, err := c.Step(context.Background(), m, input)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	m.AssertExpectations(t)
}

func TestReset(t *testing.T) {
	c := newConductor(t, nil)
	a := &scripted{name: "A", role: core.RolePrimary, replies: []string{"x", "x", "TASK_DONE verified_proof"}}

	for i := 0; i < 3; i++ {
		_, err := c.Step(context.Background(), a, nil)
		require.NoError(t, err)
	}
	require.True(t, c.Completed())
	require.Len(t, c.Interventions(), 1)

	c.Reset()
	assert.Zero(t, c.Len())
	assert.False(t, c.Completed())
	assert.Empty(t, c.Interventions())
}

func TestSpec_IsCopied(t *testing.T) {
	roles := map[string]core.Role{"A": core.RolePrimary}
	c := newConductor(t, roles)
	roles["A"] = core.RoleObserver

	got, _ := c.Spec().ExpectedRole("A")
	assert.Equal(t, core.RolePrimary, got)
	assert.Equal(t, core.DefaultStopCondition, c.Spec().StopCondition)
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{KindAccepted, KindViolation, KindLoop, KindOverride} {
		text, err := k.MarshalText()
		require.NoError(t, err)
		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}
	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("nope")))
}

func TestLoopDetector(t *testing.T) {
	d := NewLoopDetector()
	h := []core.Message{{Content: "a"}, {Content: "b"}, {Content: "c"}, {Content: "d"}, {Content: "e"}}

	_, looped := d.Check("a", h)
	assert.False(t, looped)

	reason, looped := d.Check("b", h)
	assert.True(t, looped)
	assert.Equal(t, ReasonRepeat, reason)

	_, looped = d.Check("anything", nil)
	assert.False(t, looped)
}

func TestLoopDetector_LagBeyondWindow(t *testing.T) {
	d := LoopDetector{Window: 1, Lag: 3}
	h := testutil.NewHistoryBuilder().
		Say("A", core.RolePrimary, "propose x").
		Say("B", core.RoleReviewer, "counter y").
		Say("A", core.RolePrimary, "propose z").
		Say("B", core.RoleReviewer, "counter w").
		Messages()

	_, looped := d.Check("propose x", h)
	assert.False(t, looped, "outside both the window and the lag")

	reason, looped := d.Check("counter y", h)
	assert.True(t, looped)
	assert.Equal(t, ReasonOscillating, reason)

	reason, _ = d.Check("counter w", h)
	assert.Equal(t, ReasonRepeat, reason)

	_, looped = d.Check("counter y", h[:3])
	assert.False(t, looped, "lag applies only once history is longer than it")
}

func TestNew_FromBuiltSpec(t *testing.T) {
	spec := testutil.NewTaskSpecBuilder("built").
		Role("Coder", core.RolePrimary).
		StopCondition("SHIP_IT").
		MaxTurns(3).
		Build()
	c, err := New(spec)
	require.NoError(t, err)

	coder := &scripted{name: "Coder", role: core.RolePrimary, replies: []string{"SHIP_IT verified_proof"}}
	res, err := c.Step(context.Background(), coder, nil)
	require.NoError(t, err)
	assert.True(t, res.Accepted())
	assert.True(t, c.Completed())
}
