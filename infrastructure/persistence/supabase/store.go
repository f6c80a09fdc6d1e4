// Package supabase implements the remote-store ports over the Supabase
// PostgREST API. The implementations perform no retries and no cancellation
// of in-flight requests: the coherency layer treats a slow fetch with a
// watchdog timeout instead (stale results are discarded by identity checks),
// so ctx is only consulted before a request is issued.
package supabase

import (
	"context"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"netsync/application/ports"
	"netsync/domain/core/entities"
	pkgerrors "netsync/pkg/errors"
)

const (
	tableNetworks = "networks"
	tableNodes    = "nodes"
	tableEdges    = "edges"
	tableTodos    = "todos"
)

// Store exposes the four row-level repositories over one Supabase client
type Store struct {
	client *supa.Client
}

// New creates a Store from Supabase project credentials
func New(url, key string) (*Store, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, pkgerrors.NewTransportError("connect", err)
	}
	return &Store{client: client}, nil
}

// Ports returns the store wired into the port bundle
func (s *Store) Ports() ports.RemoteStore {
	return ports.RemoteStore{
		Networks: &networkRepository{client: s.client},
		Nodes:    &nodeRepository{client: s.client},
		Edges:    &edgeRepository{client: s.client},
		Todos:    &todoRepository{client: s.client},
	}
}

type networkRepository struct {
	client *supa.Client
}

var _ ports.NetworkRepository = (*networkRepository)(nil)

func (r *networkRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Network, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewTransportError("networks.list", err)
	}
	var rows []networkRow
	_, err := r.client.From(tableNetworks).
		Select("*", "", false).
		Eq("owner_id", ownerID).
		Order("order", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&rows)
	if err != nil {
		return nil, pkgerrors.NewTransportError("networks.list", err)
	}
	networks := make([]*entities.Network, 0, len(rows))
	for _, row := range rows {
		networks = append(networks, row.toEntity())
	}
	return networks, nil
}

func (r *networkRepository) Insert(ctx context.Context, network *entities.Network) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("networks.insert", err)
	}
	_, _, err := r.client.From(tableNetworks).
		Insert(networkRowFromEntity(network), false, "", "", "").
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("networks.insert", err)
	}
	return nil
}

func (r *networkRepository) Update(ctx context.Context, network *entities.Network) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("networks.update", err)
	}
	_, _, err := r.client.From(tableNetworks).
		Update(networkRowFromEntity(network), "", "").
		Eq("id", network.ID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("networks.update", err)
	}
	return nil
}

func (r *networkRepository) UpdateOrder(ctx context.Context, networkID string, order int) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("networks.update_order", err)
	}
	_, _, err := r.client.From(tableNetworks).
		Update(map[string]interface{}{"order": order}, "", "").
		Eq("id", networkID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("networks.update_order", err)
	}
	return nil
}

func (r *networkRepository) Delete(ctx context.Context, networkID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("networks.delete", err)
	}
	_, _, err := r.client.From(tableNetworks).
		Delete("", "").
		Eq("id", networkID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("networks.delete", err)
	}
	return nil
}

type nodeRepository struct {
	client *supa.Client
}

var _ ports.NodeRepository = (*nodeRepository)(nil)

func (r *nodeRepository) ListByNetwork(ctx context.Context, networkID string) ([]*entities.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewTransportError("nodes.list", err)
	}
	var rows []nodeRow
	_, err := r.client.From(tableNodes).
		Select("*", "", false).
		Eq("network_id", networkID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, pkgerrors.NewTransportError("nodes.list", err)
	}
	nodes := make([]*entities.Node, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, row.toEntity())
	}
	return nodes, nil
}

func (r *nodeRepository) Upsert(ctx context.Context, nodes []*entities.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("nodes.upsert", err)
	}
	rows := make([]nodeRow, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, nodeRowFromEntity(n))
	}
	_, _, err := r.client.From(tableNodes).
		Insert(rows, true, "id", "", "").
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("nodes.upsert", err)
	}
	return nil
}

func (r *nodeRepository) Delete(ctx context.Context, nodeID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("nodes.delete", err)
	}
	_, _, err := r.client.From(tableNodes).
		Delete("", "").
		Eq("id", nodeID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("nodes.delete", err)
	}
	return nil
}

func (r *nodeRepository) DeleteByNetwork(ctx context.Context, networkID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("nodes.delete_by_network", err)
	}
	_, _, err := r.client.From(tableNodes).
		Delete("", "").
		Eq("network_id", networkID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("nodes.delete_by_network", err)
	}
	return nil
}

type edgeRepository struct {
	client *supa.Client
}

var _ ports.EdgeRepository = (*edgeRepository)(nil)

func (r *edgeRepository) ListByNetwork(ctx context.Context, networkID string) ([]*entities.Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewTransportError("edges.list", err)
	}
	var rows []edgeRow
	_, err := r.client.From(tableEdges).
		Select("*", "", false).
		Eq("network_id", networkID).
		ExecuteTo(&rows)
	if err != nil {
		return nil, pkgerrors.NewTransportError("edges.list", err)
	}
	edges := make([]*entities.Edge, 0, len(rows))
	for _, row := range rows {
		edges = append(edges, row.toEntity())
	}
	return edges, nil
}

func (r *edgeRepository) Upsert(ctx context.Context, edges []*entities.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("edges.upsert", err)
	}
	rows := make([]edgeRow, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, edgeRowFromEntity(e))
	}
	_, _, err := r.client.From(tableEdges).
		Insert(rows, true, "id", "", "").
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("edges.upsert", err)
	}
	return nil
}

func (r *edgeRepository) Delete(ctx context.Context, edgeID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("edges.delete", err)
	}
	_, _, err := r.client.From(tableEdges).
		Delete("", "").
		Eq("id", edgeID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("edges.delete", err)
	}
	return nil
}

func (r *edgeRepository) DeleteByNetwork(ctx context.Context, networkID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("edges.delete_by_network", err)
	}
	_, _, err := r.client.From(tableEdges).
		Delete("", "").
		Eq("network_id", networkID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("edges.delete_by_network", err)
	}
	return nil
}

type todoRepository struct {
	client *supa.Client
}

var _ ports.TodoRepository = (*todoRepository)(nil)

func (r *todoRepository) ListByNodes(ctx context.Context, nodeIDs []string) ([]*entities.Todo, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.NewTransportError("todos.list", err)
	}
	var rows []todoRow
	_, err := r.client.From(tableTodos).
		Select("*", "", false).
		In("node_id", nodeIDs).
		ExecuteTo(&rows)
	if err != nil {
		return nil, pkgerrors.NewTransportError("todos.list", err)
	}
	todos := make([]*entities.Todo, 0, len(rows))
	for _, row := range rows {
		todos = append(todos, row.toEntity())
	}
	return todos, nil
}

func (r *todoRepository) Insert(ctx context.Context, todo *entities.Todo) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("todos.insert", err)
	}
	_, _, err := r.client.From(tableTodos).
		Insert(todoRowFromEntity(todo), false, "", "", "").
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("todos.insert", err)
	}
	return nil
}

func (r *todoRepository) SetCompleted(ctx context.Context, todoID string, completed bool) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("todos.set_completed", err)
	}
	_, _, err := r.client.From(tableTodos).
		Update(map[string]interface{}{"completed": completed}, "", "").
		Eq("id", todoID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("todos.set_completed", err)
	}
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, todoID string) error {
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("todos.delete", err)
	}
	_, _, err := r.client.From(tableTodos).
		Delete("", "").
		Eq("id", todoID).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("todos.delete", err)
	}
	return nil
}

func (r *todoRepository) DeleteByNodes(ctx context.Context, nodeIDs []string) error {
	if len(nodeIDs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return pkgerrors.NewTransportError("todos.delete_by_nodes", err)
	}
	_, _, err := r.client.From(tableTodos).
		Delete("", "").
		In("node_id", nodeIDs).
		Execute()
	if err != nil {
		return pkgerrors.NewTransportError("todos.delete_by_nodes", err)
	}
	return nil
}
