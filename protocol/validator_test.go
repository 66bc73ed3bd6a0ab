package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAgentMessage(t *testing.T) {
	m := NewAgentMessage("planner", "coder", "draft the patch", WithType(TypeCommand))

	assert.Equal(t, TypeCommand, m.Type)
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.Timestamp.IsZero())

	other := NewAgentMessage("planner", "coder", "draft the patch")
	assert.NotEqual(t, m.ID, other.ID)
	assert.Equal(t, TypeText, other.Type)
}

func TestAgentMessage_JSON(t *testing.T) {
	m := NewAgentMessage("a", "b", "hi", WithSensitivity(SensitivityHigh))
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message_type":"text"`)

	var decoded AgentMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, SensitivityHigh, decoded.Metadata[SensitivityKey])
}

func TestAgentMessage_CloneIsIndependent(t *testing.T) {
	m := NewAgentMessage("a", "b", "hi", WithMetadata(map[string]any{"k": "v"}))
	c := m.Clone()
	c.Metadata["k"] = "changed"
	assert.Equal(t, "v", m.Metadata["k"])
}

func TestParseMessageType(t *testing.T) {
	mt, err := ParseMessageType(" Data ")
	require.NoError(t, err)
	assert.Equal(t, TypeData, mt)

	_, err = ParseMessageType("binary")
	assert.Error(t, err)
}

func TestValidate_Valid(t *testing.T) {
	v := NewValidator()
	res := v.Validate(NewAgentMessage("a", "b", "hello"))
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.NoError(t, res.Err())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	v := NewValidator(WithAuthorizedPairs(Pair{Sender: "a", Recipient: "b"}))
	msg := AgentMessage{SenderID: "", RecipientID: "b", Content: ""}

	res := v.Validate(msg)
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{
		"Missing Sender or Recipient ID",
		"Empty content",
		"Unauthorized communication path:  -> b",
	}, res.Errors)

	var verr *ValidationError
	require.ErrorAs(t, res.Err(), &verr)
	assert.Len(t, verr.Reasons, 3)
}

func TestValidate_AuthorizedPairs(t *testing.T) {
	v := NewValidator(WithAuthorizedPairs(Pair{Sender: "a", Recipient: "b"}))

	assert.True(t, v.Validate(NewAgentMessage("a", "b", "x")).IsValid)

	res := v.Validate(NewAgentMessage("b", "a", "x"))
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"Unauthorized communication path: b -> a"}, res.Errors)

	assert.Len(t, v.AuthorizedPairs(), 1)
	assert.Nil(t, NewValidator(WithAuthorizedPairs()).AuthorizedPairs())
}

func TestValidate_Sensitivity(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		msg     AgentMessage
		isValid bool
	}{
		{"untagged secret", NewAgentMessage("a", "b", "the secret is 42"), false},
		{"case insensitive", NewAgentMessage("a", "b", "TOP SECRET plans"), false},
		{"low tag", NewAgentMessage("a", "b", "secret", WithSensitivity("low")), false},
		{"non-string tag", NewAgentMessage("a", "b", "secret", WithMetadata(map[string]any{SensitivityKey: 1})), false},
		{"high tag", NewAgentMessage("a", "b", "secret", WithSensitivity(SensitivityHigh)), true},
		{"no keyword", NewAgentMessage("a", "b", "public notes"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.msg)
			assert.Equal(t, tt.isValid, res.IsValid, res.Errors)
			if !tt.isValid {
				assert.Contains(t, res.Errors, "Sensitive content detected without 'high' sensitivity tag")
			}
		})
	}
}

func TestValidate_UnknownType(t *testing.T) {
	msg := NewAgentMessage("a", "b", "x", WithType(MessageType("binary")))
	res := Validate(msg)
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 1)
}

func TestValidate_Idempotent(t *testing.T) {
	v := NewValidator(WithAuthorizedPairs(Pair{Sender: "x", Recipient: "y"}))
	msg := NewAgentMessage("a", "", "secret")

	first := v.Validate(msg)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, v.Validate(msg))
	}
}
