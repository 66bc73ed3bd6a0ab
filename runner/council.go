package runner

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentguard/conductor"
	"github.com/hupe1980/agentguard/consensus"
	"github.com/hupe1980/agentguard/core"
)

// Voter casts a vote on a completion claim.
type Voter interface {
	Vote(ctx context.Context, claim conductor.Result, history []core.Message) (consensus.Vote, error)
}

// VoterFunc adapts a function to Voter.
type VoterFunc func(ctx context.Context, claim conductor.Result, history []core.Message) (consensus.Vote, error)

// Vote implements Voter.
func (f VoterFunc) Vote(ctx context.Context, claim conductor.Result, history []core.Message) (consensus.Vote, error) {
	return f(ctx, claim, history)
}

// FixedVoter always returns the same vote.
func FixedVoter(v consensus.Vote) Voter {
	return VoterFunc(func(context.Context, conductor.Result, []core.Message) (consensus.Vote, error) {
		return v, nil
	})
}

// Council ratifies completion claims by weighted vote. A claim is ratified
// when the rule reaches consensus on the approve label.
type Council struct {
	Engine *consensus.Engine
	Voters []Voter
	// Rule defaults to majority.
	Rule consensus.Rule
}

// NewCouncil creates a majority council.
func NewCouncil(engine *consensus.Engine, voters ...Voter) *Council {
	return &Council{Engine: engine, Voters: voters, Rule: consensus.RuleMajority}
}

// Ratify collects every vote and resolves them.
func (c *Council) Ratify(ctx context.Context, claim conductor.Result, history []core.Message) (consensus.FinalDecision, bool, error) {
	engine := c.Engine
	if engine == nil {
		engine = consensus.New()
	}

	votes := make([]consensus.Vote, 0, len(c.Voters))
	for i, v := range c.Voters {
		vote, err := v.Vote(ctx, claim, history)
		if err != nil {
			return consensus.FinalDecision{}, false, fmt.Errorf("voter %d: %w", i, err)
		}
		votes = append(votes, vote)
	}

	rule := c.Rule
	if rule == "" {
		rule = consensus.RuleMajority
	}

	d := engine.Resolve(rule, votes, consensus.Approve)
	return d, d.ConsensusReached && d.Outcome == string(consensus.Approve), nil
}
