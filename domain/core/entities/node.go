package entities

import (
	"time"

	"github.com/google/uuid"

	"netsync/domain/core/valueobjects"
	pkgerrors "netsync/pkg/errors"
)

// NodeKind classifies what a node represents in the network
type NodeKind string

const (
	KindPerson        NodeKind = "person"
	KindOrganization  NodeKind = "organization"
	KindEvent         NodeKind = "event"
	KindVenue         NodeKind = "venue"
	KindText          NodeKind = "text"
	KindUncategorized NodeKind = "uncategorized"
)

// IsValid reports whether the kind is one of the known node kinds
func (k NodeKind) IsValid() bool {
	switch k {
	case KindPerson, KindOrganization, KindEvent, KindVenue, KindText, KindUncategorized:
		return true
	}
	return false
}

// Node is a vertex of a network graph. It is owned exclusively by its
// network; Position is the most frequently mutated field and the primary
// target of the sync differ.
type Node struct {
	ID         string                `json:"id"`
	NetworkID  string                `json:"network_id"`
	Kind       NodeKind              `json:"kind"`
	Name       string                `json:"name"`
	Position   valueobjects.Position `json:"position"`
	Color      string                `json:"color,omitempty"`
	Notes      string                `json:"notes,omitempty"`
	ProfileURL string                `json:"profile_url,omitempty"`
	ImageURL   string                `json:"image_url,omitempty"`
	Address    string                `json:"address,omitempty"`
	Date       string                `json:"date,omitempty"`
}

// NewNode creates a node inside networkID. Unknown kinds fall back to
// uncategorized rather than failing, matching how imported rows behave.
func NewNode(networkID, name string, kind NodeKind, position valueobjects.Position) (*Node, error) {
	if networkID == "" {
		return nil, pkgerrors.NewValidationError("networkID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("node name cannot be empty")
	}
	if !kind.IsValid() {
		kind = KindUncategorized
	}

	return &Node{
		ID:        uuid.NewString(),
		NetworkID: networkID,
		Kind:      kind,
		Name:      name,
		Position:  position,
	}, nil
}

// Todo is a task attached to a node, surfaced denormalized with the node's
// name for cross-network task views.
type Todo struct {
	ID        string     `json:"id"`
	NodeID    string     `json:"node_id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// NewTodo creates a todo attached to nodeID
func NewTodo(nodeID, text string) (*Todo, error) {
	if nodeID == "" {
		return nil, pkgerrors.NewValidationError("nodeID cannot be empty")
	}
	if text == "" {
		return nil, pkgerrors.NewValidationError("todo text cannot be empty")
	}
	return &Todo{
		ID:     uuid.NewString(),
		NodeID: nodeID,
		Text:   text,
	}, nil
}
