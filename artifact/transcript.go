package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/runner"
)

// TranscriptPrefix starts the name of every archived transcript.
const TranscriptPrefix = "transcript-"

// SaveTranscript archives tr under a fresh name and returns that name.
func SaveTranscript(s Store, sessionID string, tr *runner.Transcript) (string, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}
	name := TranscriptPrefix + core.NewID() + ".json"
	if err := s.Save(sessionID, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// LoadTranscript decodes an archived transcript.
func LoadTranscript(s Store, sessionID, name string) (*runner.Transcript, error) {
	data, err := s.Get(sessionID, name)
	if err != nil {
		return nil, err
	}
	var tr runner.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", name, err)
	}
	return &tr, nil
}

// Transcripts loads every archived transcript of a session in save order.
func Transcripts(s Store, sessionID string) ([]*runner.Transcript, error) {
	names, err := s.List(sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]*runner.Transcript, 0, len(names))
	for _, name := range names {
		if !strings.HasPrefix(name, TranscriptPrefix) {
			continue
		}
		tr, err := LoadTranscript(s, sessionID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}
