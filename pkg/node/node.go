// Package node holds the identity of the running management API node.
//
// The identity is used as the origin of every message this node sends and
// as its acknowledgement key: a message stays visible to a node until that
// node has acknowledged it. It is passed explicitly to the services that
// need it instead of being read from global state.
package node

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyID is returned when a node is created with a blank identifier.
var ErrEmptyID = errors.New("node id cannot be empty")

// Config configures the node identity. An empty ID yields a generated one.
type Config struct {
	ID string `env:"NODE_ID"`
}

// Node is a process-wide stable identifier.
type Node struct {
	id string
}

// New returns a node with the given identifier.
func New(id string) (Node, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Node{}, ErrEmptyID
	}
	return Node{id: id}, nil
}

// Generate returns a node with a random identifier. The identifier is only
// stable for the lifetime of the process, so a restarted node will see
// messages it acknowledged before the restart again.
func Generate() Node {
	return Node{id: uuid.NewString()}
}

// FromConfig builds the node from configuration, generating an identifier
// when none is configured.
func FromConfig(cfg Config) Node {
	n, err := New(cfg.ID)
	if err != nil {
		return Generate()
	}
	return n
}

// ID returns the node identifier.
func (n Node) ID() string {
	return n.id
}

func (n Node) String() string {
	return n.id
}
