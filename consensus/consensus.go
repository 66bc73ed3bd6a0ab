// Package consensus resolves weighted agent votes into a collective decision.
//
// Votes are trusted inputs. The engine does not solicit them, retry them or
// defend against equivocating voters; relative voting power is controlled
// entirely by the caller through Vote.Weight.
package consensus

import (
	"sort"

	"github.com/hupe1980/agentguard/logging"
)

// Decision is a vote label. The three standard labels are predefined but
// callers may vote on any label.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
	Abstain Decision = "abstain"
)

const (
	// OutcomeNoVotes is returned when there is nothing to resolve.
	OutcomeNoVotes = "no_votes"
	// OutcomeTieOrMinority is returned by majority resolution when no label
	// holds strictly more than half the total weight.
	OutcomeTieOrMinority = "tie_or_minority"
	// OutcomeBlocked is returned by unanimity resolution on any dissent.
	OutcomeBlocked = "blocked"
)

// Rule names a resolution rule.
type Rule string

const (
	RuleMajority  Rule = "majority"
	RuleUnanimity Rule = "unanimity"
)

// DefaultWeight is the weight assigned by NewVote.
const DefaultWeight = 1.0

// Vote is one agent's ballot for a single round.
type Vote struct {
	AgentID  string   `json:"agent_id"`
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
	Weight   float64  `json:"weight"`
}

// NewVote creates a vote with the default weight.
func NewVote(agentID string, decision Decision, reason string) Vote {
	return Vote{AgentID: agentID, Decision: decision, Reason: reason, Weight: DefaultWeight}
}

// WithWeight returns a copy of v carrying weight w.
func (v Vote) WithWeight(w float64) Vote {
	v.Weight = w
	return v
}

// FinalDecision is the derived result of a voting round.
type FinalDecision struct {
	Outcome          string             `json:"outcome"`
	VoteSummary      map[string]float64 `json:"vote_summary"`
	ConsensusReached bool               `json:"consensus_reached"`
}

// Options configures an Engine.
type Options struct {
	Logger logging.Logger
}

// Engine applies consensus rules. It holds no state between calls.
type Engine struct {
	logger logging.Logger
}

// New creates an Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{logger: logging.ForComponent(opts.Logger, "consensus")}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Resolve dispatches to the named rule. target is only used by unanimity.
func (e *Engine) Resolve(rule Rule, votes []Vote, target Decision) FinalDecision {
	if rule == RuleUnanimity {
		return e.ResolveUnanimity(votes, target)
	}
	return e.ResolveMajority(votes)
}

// ResolveMajority picks the label with the largest summed weight. Consensus
// is reached only when that weight is strictly greater than half the total;
// a tie between the top labels never reaches consensus.
func (e *Engine) ResolveMajority(votes []Vote) FinalDecision {
	if len(votes) == 0 {
		return e.record(RuleMajority, FinalDecision{Outcome: OutcomeNoVotes, VoteSummary: map[string]float64{}})
	}

	tally, total := sum(votes)

	labels := make([]string, 0, len(tally))
	for label := range tally {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if tally[labels[i]] != tally[labels[j]] {
			return tally[labels[i]] > tally[labels[j]]
		}
		return labels[i] < labels[j]
	})

	winner := labels[0]
	tied := len(labels) > 1 && tally[labels[1]] == tally[winner]

	if tied || !(tally[winner] > total/2) {
		return e.record(RuleMajority, FinalDecision{Outcome: OutcomeTieOrMinority, VoteSummary: tally})
	}

	return e.record(RuleMajority, FinalDecision{Outcome: winner, VoteSummary: tally, ConsensusReached: true})
}

// ResolveUnanimity reaches consensus only when every vote carries target.
// Zero-weight votes still count as participants.
func (e *Engine) ResolveUnanimity(votes []Vote, target Decision) FinalDecision {
	if len(votes) == 0 {
		return e.record(RuleUnanimity, FinalDecision{Outcome: OutcomeNoVotes, VoteSummary: map[string]float64{}})
	}

	tally, _ := sum(votes)

	for _, v := range votes {
		if v.Decision != target {
			return e.record(RuleUnanimity, FinalDecision{Outcome: OutcomeBlocked, VoteSummary: tally})
		}
	}

	return e.record(RuleUnanimity, FinalDecision{Outcome: string(target), VoteSummary: tally, ConsensusReached: true})
}

func (e *Engine) record(rule Rule, d FinalDecision) FinalDecision {
	logging.Decision(e.logger, string(rule), d.Outcome, d.ConsensusReached, d.VoteSummary)
	return d
}

// sum tallies weight per label. Negative and NaN weights count as zero.
func sum(votes []Vote) (map[string]float64, float64) {
	tally := make(map[string]float64, 3)
	var total float64
	for _, v := range votes {
		w := v.Weight
		if !(w > 0) {
			w = 0
		}
		tally[string(v.Decision)] += w
		total += w
	}
	return tally, total
}
