package message

import (
	"fmt"
	"slices"
	"time"
)

// Tag marks what a message carries. Tags are persisted as their names and
// decoded back with ParseTag.
type Tag string

const (
	// TagDataToIndex marks messages whose content is a search indexing payload.
	TagDataToIndex Tag = "DATA_TO_INDEX"
)

var knownTags = []Tag{TagDataToIndex}

func (t Tag) String() string {
	return string(t)
}

// Valid reports whether t is one of the defined tags.
func (t Tag) Valid() bool {
	return slices.Contains(knownTags, t)
}

// ParseTag decodes a persisted tag name. Names outside the defined set fail
// with ErrUnknownTag.
func ParseTag(name string) (Tag, error) {
	t := Tag(name)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTag, name)
	}
	return t, nil
}

// EncodeTags converts typed tags to their persisted names. A nil or empty
// input yields an empty, non-nil slice.
func EncodeTags(tags []Tag) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !t.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTag, string(t))
		}
		out = append(out, t.String())
	}
	return out, nil
}

// DecodeTags converts persisted tag names back to typed tags.
func DecodeTags(names []string) ([]Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]Tag, 0, len(names))
	for _, name := range names {
		t, err := ParseTag(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Recipient is the class of consumers a message is addressed to.
type Recipient string

const (
	// RecipientManagementAPIs addresses the management API nodes themselves.
	RecipientManagementAPIs Recipient = "MANAGEMENT_APIS"
)

func (r Recipient) String() string {
	return string(r)
}

// Message is the persisted store-and-forward envelope.
type Message struct {
	ID              string
	From            string
	To              string
	Tags            []string
	Content         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeleteAt        time.Time
	Acknowledgments []string
}

// AckedBy reports whether nodeID has acknowledged the message.
func (m Message) AckedBy(nodeID string) bool {
	return slices.Contains(m.Acknowledgments, nodeID)
}

// Expired reports whether the message is past its delete time at now.
// A zero DeleteAt never expires.
func (m Message) Expired(now time.Time) bool {
	return !m.DeleteAt.IsZero() && !now.Before(m.DeleteAt)
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	m.Tags = slices.Clone(m.Tags)
	m.Acknowledgments = slices.Clone(m.Acknowledgments)
	return m
}

// Criteria selects messages in a store search. Zero values disable the
// corresponding filter.
type Criteria struct {
	To         string
	Tags       []string // matches messages carrying any of the tags
	NotAckBy   string
	NotDeleted bool
}

// Matches reports whether m satisfies the criteria at time now.
func (c Criteria) Matches(m Message, now time.Time) bool {
	if c.To != "" && m.To != c.To {
		return false
	}
	if len(c.Tags) > 0 && !slices.ContainsFunc(m.Tags, func(t string) bool {
		return slices.Contains(c.Tags, t)
	}) {
		return false
	}
	if c.NotAckBy != "" && m.AckedBy(c.NotAckBy) {
		return false
	}
	if c.NotDeleted && m.Expired(now) {
		return false
	}
	return true
}

// NewMessage is the input of Service.Send.
type NewMessage struct {
	To      string
	Tags    []Tag
	Content string
	TTL     time.Duration
}

// TTLSeconds converts a time-to-live expressed in seconds.
func TTLSeconds(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// Query is the input of Service.Search.
type Query struct {
	To   string
	Tags []Tag
}

// Entity is the read-side view of a message handed to consumers.
type Entity struct {
	ID      string
	To      string
	Content string
	Tags    []Tag
}
