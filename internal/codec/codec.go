// Package codec encodes persisted sessions.
package codec

import (
	"fmt"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/bytedance/sonic"
)

// api mirrors encoding/json behavior (sorted map keys, HTML escaping) so stored
// documents stay byte-compatible with the standard library.
var api = sonic.ConfigStd

// EncodeSession serializes a session snapshot.
func EncodeSession(s *domain.Session) ([]byte, error) {
	data, err := api.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// EncodeSessionIndent is EncodeSession with indentation, for files meant to be read by humans.
func EncodeSessionIndent(s *domain.Session) ([]byte, error) {
	data, err := api.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}

// DecodeSession parses a stored snapshot. File references come back as maps;
// the wizard coerces them against the guide on resume.
func DecodeSession(data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := api.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Answers == nil {
		s.Answers = make(domain.Answers)
	}
	return &s, nil
}
