package protocol

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentguard/logging"
)

const (
	// SensitiveKeyword marks content that must carry a sensitivity tag.
	SensitiveKeyword = "secret"
	// SensitivityKey is the metadata key holding the sensitivity tag.
	SensitivityKey = "sensitivity"
	// SensitivityHigh is the tag value required for sensitive content.
	SensitivityHigh = "high"
)

// Pair is a directed (sender, recipient) communication path.
type Pair struct {
	Sender    string
	Recipient string
}

// String renders the pair as "sender -> recipient".
func (p Pair) String() string { return p.Sender + " -> " + p.Recipient }

// ValidationResult lists every violation found in a message.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// Err returns nil for a valid result, otherwise a *ValidationError.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Reasons: r.Errors}
}

// ValidationError reports why a message was refused.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "invalid message: " + strings.Join(e.Reasons, "; ")
}

// Validator checks messages for schema and authorization compliance. It is
// immutable after construction and safe for concurrent use.
type Validator struct {
	authorized map[Pair]struct{}
	logger     logging.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(v *Validator)

// WithAuthorizedPairs restricts delivery to the listed directed paths. An
// empty list leaves every path open.
func WithAuthorizedPairs(pairs ...Pair) ValidatorOption {
	return func(v *Validator) {
		if len(pairs) == 0 {
			v.authorized = nil
			return
		}
		v.authorized = make(map[Pair]struct{}, len(pairs))
		for _, p := range pairs {
			v.authorized[p] = struct{}{}
		}
	}
}

// WithValidatorLogger sets the logger used to report rejected messages.
func WithValidatorLogger(l logging.Logger) ValidatorOption {
	return func(v *Validator) { v.logger = l }
}

// NewValidator creates a validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{}
	for _, o := range opts {
		o(v)
	}
	v.logger = logging.OrNoOp(v.logger)
	return v
}

// Validate checks msg against the given allow-list without building a
// Validator first.
func Validate(msg AgentMessage, pairs ...Pair) ValidationResult {
	return NewValidator(WithAuthorizedPairs(pairs...)).Validate(msg)
}

// AuthorizedPairs returns the configured allow-list (nil when open).
func (v *Validator) AuthorizedPairs() []Pair {
	if v.authorized == nil {
		return nil
	}
	out := make([]Pair, 0, len(v.authorized))
	for p := range v.authorized {
		out = append(out, p)
	}
	return out
}

// Validate checks msg and collects all violations rather than stopping at
// the first. It has no side effects, so repeated calls on the same message
// yield identical results.
func (v *Validator) Validate(msg AgentMessage) ValidationResult {
	var errs []string

	if msg.SenderID == "" || msg.RecipientID == "" {
		errs = append(errs, "Missing Sender or Recipient ID")
	}
	if msg.Content == "" {
		errs = append(errs, "Empty content")
	}
	if msg.Type != "" && !msg.Type.Valid() {
		errs = append(errs, fmt.Sprintf("Unknown message type %q", msg.Type))
	}

	if v.authorized != nil {
		p := Pair{Sender: msg.SenderID, Recipient: msg.RecipientID}
		if _, ok := v.authorized[p]; !ok {
			errs = append(errs, fmt.Sprintf("Unauthorized communication path: %s", p))
		}
	}

	if strings.Contains(strings.ToLower(msg.Content), SensitiveKeyword) {
		if tag, _ := msg.Metadata[SensitivityKey].(string); tag != SensitivityHigh {
			errs = append(errs, "Sensitive content detected without 'high' sensitivity tag")
		}
	}

	if len(errs) > 0 {
		v.logger.Debug("message rejected", "message_id", msg.ID, "sender", msg.SenderID, "errors", len(errs))
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
