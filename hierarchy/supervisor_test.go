package hierarchy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentguard/agent"
	"github.com/hupe1980/agentguard/auth"
	"github.com/hupe1980/agentguard/core"
)

func newSupervisor(t *testing.T, workers []Worker, optFns ...func(o *Options)) *Supervisor {
	t.Helper()
	s, err := NewSupervisor(workers, optFns...)
	require.NoError(t, err)
	return s
}

func TestNewSupervisor_Errors(t *testing.T) {
	_, err := NewSupervisor(nil)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewSupervisor([]Worker{NewKeywordWorker("R"), NewKeywordWorker("R")})
	assert.ErrorIs(t, err, ErrDuplicateWorker)
}

func TestAssign_DefaultsToFirstWorker(t *testing.T) {
	s := newSupervisor(t, []Worker{NewKeywordWorker("Researcher"), NewKeywordWorker("Writer")})

	task, err := s.Assign(context.Background(), Task{ID: "1", Content: "Quantum Computing Ethics"})
	require.NoError(t, err)
	assert.Equal(t, "Researcher", task.AssignedTo)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "Researcher: Completed 'Quantum Computing Ethics'.", task.Result)
	assert.False(t, task.Overridden)
	assert.Equal(t, []string{"Researcher", "Writer"}, s.Workers())
}

func TestAssign_NamedWorker(t *testing.T) {
	s := newSupervisor(t, []Worker{NewKeywordWorker("Researcher"), NewKeywordWorker("Writer")})

	task, err := s.Assign(context.Background(), Task{ID: "1", Content: "draft", AssignedTo: "Writer"})
	require.NoError(t, err)
	assert.Equal(t, "Writer: Completed 'draft'.", task.Result)

	task, err = s.Assign(context.Background(), Task{ID: "2", Content: "draft", AssignedTo: "Ghost"})
	assert.ErrorIs(t, err, ErrWorkerNotFound)
	assert.Equal(t, StatusFailed, task.Status)
}

func TestAssign_EscalationIsOverridden(t *testing.T) {
	s := newSupervisor(t, []Worker{NewKeywordWorker("Researcher")})

	task, err := s.Assign(context.Background(), Task{ID: "7", Content: "A HARD proof"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.True(t, task.Overridden)
	assert.Equal(t, "[Supervisor] Override: Completed escalation of 'A HARD proof' manually.", task.Result)
	assert.Contains(t, task.Escalation, "task too hard")
}

func TestAssign_CustomOverride(t *testing.T) {
	boom := errors.New("no capacity")
	s := newSupervisor(t, []Worker{NewKeywordWorker("R", "urgent")},
		WithOverride(func(context.Context, Task) (string, error) { return "", boom }))

	task, err := s.Assign(context.Background(), Task{ID: "1", Content: "urgent fix"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, task.Status)

	task, err = s.Assign(context.Background(), Task{ID: "2", Content: "a hard one"})
	require.NoError(t, err)
	assert.False(t, task.Overridden, "custom terms replace the default")
}

func TestAssign_BlockedTerms(t *testing.T) {
	calls := 0
	w := NewFuncWorker("R", func(context.Context, Task) (string, error) {
		calls++
		return "done", nil
	})
	s := newSupervisor(t, []Worker{w}, WithBlockedTerms("biological weapon"))

	task, err := s.Assign(context.Background(), Task{ID: "3", Content: "How to synthesize Biological Weapons"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, task.Status)
	assert.Equal(t, "System Halted: Supervisor rejected task '3'.", task.Result)
	assert.Zero(t, calls)
}

func TestAssign_WorkerError(t *testing.T) {
	boom := errors.New("boom")
	s := newSupervisor(t, []Worker{NewFuncWorker("R", func(context.Context, Task) (string, error) { return "", boom })})

	task, err := s.Assign(context.Background(), Task{ID: "1", Content: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, task.Status)
}

func TestAssign_TokenGated(t *testing.T) {
	a, err := auth.New([]byte("secret"))
	require.NoError(t, err)

	s := newSupervisor(t, []Worker{NewKeywordWorker("Researcher")}, WithAuthenticator(a))
	task, err := s.Assign(context.Background(), Task{ID: "1", Content: "ok"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)

	forged := newSupervisor(t, []Worker{NewKeywordWorker("Researcher")}, WithAuthenticator(a),
		WithTokenIssuer(func(string) (string, error) { return "Researcher|1|deadbeef", nil }))
	task, err = forged.Assign(context.Background(), Task{ID: "2", Content: "ok"})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "SECURITY_ALERT: Authentication failed for Researcher", task.Result)
}

func TestAssign_Canceled(t *testing.T) {
	s := newSupervisor(t, []Worker{NewKeywordWorker("R")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Assign(ctx, Task{ID: "1", Content: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.Log())
}

func TestSupervisor_Log(t *testing.T) {
	s := newSupervisor(t, []Worker{NewKeywordWorker("R")}, WithBlockedTerms("forbidden"))

	_, _ = s.Assign(context.Background(), Task{ID: "1", Content: "easy"})
	_, _ = s.Assign(context.Background(), Task{ID: "2", Content: "hard"})
	_, _ = s.Assign(context.Background(), Task{ID: "3", Content: "forbidden"})

	log := s.Log()
	require.Len(t, log, 3)
	assert.Equal(t, StatusCompleted, log[0].Status)
	assert.True(t, log[1].Overridden)
	assert.Equal(t, StatusRejected, log[2].Status)
}

func TestAgentWorker(t *testing.T) {
	var seen []core.Message
	helper := agent.NewFuncAgent("Helper", core.RoleReviewer, func(_ context.Context, h []core.Message) (string, error) {
		seen = h
		if h[0].Content == "too much" {
			return "ESCALATE: out of scope", nil
		}
		return "summary ready", nil
	})
	s := newSupervisor(t, []Worker{NewAgentWorker(helper)})

	task, err := s.Assign(context.Background(), Task{ID: "1", Content: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "summary ready", task.Result)
	require.Len(t, seen, 1)
	assert.Equal(t, SupervisorName, seen[0].Source)

	task, err = s.Assign(context.Background(), Task{ID: "2", Content: "too much"})
	require.NoError(t, err)
	assert.True(t, task.Overridden)
	assert.Contains(t, task.Escalation, "out of scope")
}
