package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*GuardLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Output = buf
	cfg.Level = level
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestGuardLogger_ContextAndKeyValues(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.WithComponent("conductor").WithSession("s-1").WithContext("task", "t1").Info("hello", "agent", "Worker")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello", lines[0]["msg"])
	assert.Equal(t, "conductor", lines[0]["component"])
	assert.Equal(t, "s-1", lines[0]["session_id"])
	assert.Equal(t, "t1", lines[0]["task"])
	assert.Equal(t, "Worker", lines[0]["agent"])
}

func TestGuardLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Debug("d")
	l.Info("i")
	l.LogTurn("a", "accepted", time.Millisecond)
	l.LogAuth("a", true)
	assert.Empty(t, buf.String())

	l.LogIntervention("a", "loop", "repeat", "same again")
	l.LogAuth("a", false)
	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Turn rejected", lines[0]["msg"])
	assert.Equal(t, "Token rejected", lines[1]["msg"])
}

func TestGuardLogger_Clone(t *testing.T) {
	base, _ := newBufferLogger(LogLevelInfo)
	child := base.WithContext("k", "v")
	assert.Empty(t, base.context)
	assert.Equal(t, "v", child.context["k"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("bogus"))
}

func TestOrNoOpAndDescribe(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrNoOp(nil))
	assert.Equal(t, "abc...", Describe("abcdef", 3))
	assert.Equal(t, "abc", Describe("abc", 0))
	assert.Equal(t, "héé...", Describe("héééé", 3))
}

func TestArgsToAttrs_DanglingValue(t *testing.T) {
	attrs := argsToAttrs([]any{"k", 1, "dangling"})
	require.Len(t, attrs, 2)
	assert.Equal(t, "k", attrs[0].Key)
	assert.Equal(t, "!BADKEY", attrs[1].Key)
}
