package ports

import (
	"context"

	"netsync/domain/core/entities"
)

// NetworkRepository is the remote-store port for network rows.
// Implementations perform no retries of their own: any failure is returned
// as-is and retry is the caller's responsibility.
type NetworkRepository interface {
	// ListByOwner retrieves all networks owned by ownerID
	ListByOwner(ctx context.Context, ownerID string) ([]*entities.Network, error)

	// Insert persists a new network row
	Insert(ctx context.Context, network *entities.Network) error

	// Update persists changed fields of an existing network row
	Update(ctx context.Context, network *entities.Network) error

	// UpdateOrder persists only the order column of a network row
	UpdateOrder(ctx context.Context, networkID string, order int) error

	// Delete removes a network row
	Delete(ctx context.Context, networkID string) error
}

// NodeRepository is the remote-store port for node rows
type NodeRepository interface {
	// ListByNetwork retrieves all nodes of a network
	ListByNetwork(ctx context.Context, networkID string) ([]*entities.Node, error)

	// Upsert inserts or replaces node rows by id
	Upsert(ctx context.Context, nodes []*entities.Node) error

	// Delete removes a node row
	Delete(ctx context.Context, nodeID string) error

	// DeleteByNetwork removes all node rows of a network
	DeleteByNetwork(ctx context.Context, networkID string) error
}

// EdgeRepository is the remote-store port for edge rows
type EdgeRepository interface {
	// ListByNetwork retrieves all edges of a network
	ListByNetwork(ctx context.Context, networkID string) ([]*entities.Edge, error)

	// Upsert inserts or replaces edge rows by id
	Upsert(ctx context.Context, edges []*entities.Edge) error

	// Delete removes an edge row
	Delete(ctx context.Context, edgeID string) error

	// DeleteByNetwork removes all edge rows of a network
	DeleteByNetwork(ctx context.Context, networkID string) error
}

// TodoRepository is the remote-store port for todo rows
type TodoRepository interface {
	// ListByNodes retrieves todos attached to any of the given nodes
	ListByNodes(ctx context.Context, nodeIDs []string) ([]*entities.Todo, error)

	// Insert persists a new todo row
	Insert(ctx context.Context, todo *entities.Todo) error

	// SetCompleted persists the completed flag of a todo row
	SetCompleted(ctx context.Context, todoID string, completed bool) error

	// Delete removes a todo row
	Delete(ctx context.Context, todoID string) error

	// DeleteByNodes removes all todo rows attached to the given nodes
	DeleteByNodes(ctx context.Context, nodeIDs []string) error
}

// RemoteStore bundles the four row-level ports behind one dependency
type RemoteStore struct {
	Networks NetworkRepository
	Nodes    NodeRepository
	Edges    EdgeRepository
	Todos    TodoRepository
}
