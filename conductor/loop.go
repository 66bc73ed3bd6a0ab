package conductor

import "github.com/hupe1980/agentguard/core"

const (
	// DefaultLoopWindow is how many recent accepted messages are compared.
	DefaultLoopWindow = 4
	// DefaultOscillationLag is the distance back checked for A-B-A-B patterns.
	DefaultOscillationLag = 2
)

// Loop reasons.
const (
	ReasonRepeat      = "Content identical to recent message - potential loop."
	ReasonOscillating = "Oscillating loop detected."
)

// LoopDetector flags content that repeats recent accepted history by exact
// string match.
type LoopDetector struct {
	// Window is the number of most recent messages searched for a repeat.
	Window int
	// Lag is checked separately once the history is longer than Lag. It only
	// matters when Lag exceeds Window.
	Lag int
}

// NewLoopDetector returns a detector with the default tuning.
func NewLoopDetector() LoopDetector {
	return LoopDetector{Window: DefaultLoopWindow, Lag: DefaultOscillationLag}
}

// Check returns a reason and true when content loops against history.
func (d LoopDetector) Check(content string, history []core.Message) (string, bool) {
	start := len(history) - d.Window
	if start < 0 {
		start = 0
	}
	if d.Window > 0 {
		for _, m := range history[start:] {
			if m.Content == content {
				return ReasonRepeat, true
			}
		}
	}

	if d.Lag > 0 && len(history) > d.Lag && history[len(history)-d.Lag].Content == content {
		return ReasonOscillating, true
	}

	return "", false
}
