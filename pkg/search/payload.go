// Package search receives the documents drained from the message bus and
// writes them into the search backend.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action tells the sink what to do with a payload.
type Action string

const (
	ActionIndex  Action = "I"
	ActionDelete Action = "D"
)

// Payload is an indexing request published by another node.
type Payload struct {
	ID       string         `json:"id"`
	Action   Action         `json:"action,omitempty"`
	Type     string         `json:"type,omitempty"`
	Document map[string]any `json:"document,omitempty"`
}

// Sink receives decoded payloads.
type Sink interface {
	Ingest(ctx context.Context, p Payload) error
}

// DecodePayload parses message content. A missing action means ActionIndex.
func DecodePayload(content []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(content, &p); err != nil {
		return Payload{}, errors.Join(ErrInvalidPayload, err)
	}

	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return Payload{}, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}

	switch p.Action {
	case "":
		p.Action = ActionIndex
	case ActionIndex, ActionDelete:
	default:
		return Payload{}, fmt.Errorf("%w: unknown action %q", ErrInvalidPayload, p.Action)
	}

	return p, nil
}
