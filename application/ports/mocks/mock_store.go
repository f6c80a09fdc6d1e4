// Package mocks provides in-memory implementations of the persistence ports
// for tests: deterministic, with per-operation error injection and call
// counting.
package mocks

import (
	"context"
	"sync"
	"time"

	"netsync/application/ports"
	"netsync/domain/core/entities"
	pkgerrors "netsync/pkg/errors"
)

// MockRemoteStore is an in-memory remote store. Inject failures with
// FailOn("nodes.upsert", err) and inspect traffic with Calls.
type MockRemoteStore struct {
	mu sync.Mutex

	Networks map[string]*entities.Network
	Nodes    map[string]*entities.Node
	Edges    map[string]*entities.Edge
	Todos    map[string]*entities.Todo

	failures map[string]error
	calls    map[string]int
	hooks    map[string]func()
}

// NewMockRemoteStore creates an empty mock store
func NewMockRemoteStore() *MockRemoteStore {
	return &MockRemoteStore{
		Networks: make(map[string]*entities.Network),
		Nodes:    make(map[string]*entities.Node),
		Edges:    make(map[string]*entities.Edge),
		Todos:    make(map[string]*entities.Todo),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		hooks:    make(map[string]func()),
	}
}

// Ports returns the mock wired into the port bundle
func (m *MockRemoteStore) Ports() ports.RemoteStore {
	return ports.RemoteStore{
		Networks: &mockNetworkRepo{store: m},
		Nodes:    &mockNodeRepo{store: m},
		Edges:    &mockEdgeRepo{store: m},
		Todos:    &mockTodoRepo{store: m},
	}
}

// FailOn makes every call of the named operation return err. Pass nil to
// clear the failure.
func (m *MockRemoteStore) FailOn(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, operation)
		return
	}
	m.failures[operation] = err
}

// Calls returns how many times the named operation ran (including failures)
func (m *MockRemoteStore) Calls(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[operation]
}

// HookOn runs fn at the start of every call of the named operation, outside
// the store lock, so tests can gate a call on a channel.
func (m *MockRemoteStore) HookOn(operation string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks[operation] = fn
}

// enter records the call, runs the hook if one is set, and returns the
// injected failure, if any. Callers hold no lock.
func (m *MockRemoteStore) enter(operation string) error {
	m.mu.Lock()
	m.calls[operation]++
	failure := m.failures[operation]
	hook := m.hooks[operation]
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return failure
}

type mockNetworkRepo struct {
	store *MockRemoteStore
}

func (r *mockNetworkRepo) ListByOwner(_ context.Context, ownerID string) ([]*entities.Network, error) {
	if err := r.store.enter("networks.list"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entities.Network
	for _, n := range r.store.Networks {
		if n.OwnerID == ownerID {
			clone := *n
			out = append(out, &clone)
		}
	}
	entities.SortNetworks(out)
	return out, nil
}

func (r *mockNetworkRepo) Insert(_ context.Context, network *entities.Network) error {
	if err := r.store.enter("networks.insert"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *network
	r.store.Networks[network.ID] = &clone
	return nil
}

func (r *mockNetworkRepo) Update(_ context.Context, network *entities.Network) error {
	if err := r.store.enter("networks.update"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.Networks[network.ID]; !ok {
		return pkgerrors.NewNotFoundError("network")
	}
	clone := *network
	r.store.Networks[network.ID] = &clone
	return nil
}

func (r *mockNetworkRepo) UpdateOrder(_ context.Context, networkID string, order int) error {
	if err := r.store.enter("networks.update_order:" + networkID); err != nil {
		return err
	}
	if err := r.store.enter("networks.update_order"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n, ok := r.store.Networks[networkID]
	if !ok {
		return pkgerrors.NewNotFoundError("network")
	}
	n.Order = order
	return nil
}

func (r *mockNetworkRepo) Delete(_ context.Context, networkID string) error {
	if err := r.store.enter("networks.delete"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.Networks, networkID)
	return nil
}

type mockNodeRepo struct {
	store *MockRemoteStore
}

func (r *mockNodeRepo) ListByNetwork(_ context.Context, networkID string) ([]*entities.Node, error) {
	if err := r.store.enter("nodes.list"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entities.Node
	for _, n := range r.store.Nodes {
		if n.NetworkID == networkID {
			clone := *n
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *mockNodeRepo) Upsert(_ context.Context, nodes []*entities.Node) error {
	if err := r.store.enter("nodes.upsert"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, n := range nodes {
		clone := *n
		r.store.Nodes[n.ID] = &clone
	}
	return nil
}

func (r *mockNodeRepo) Delete(_ context.Context, nodeID string) error {
	if err := r.store.enter("nodes.delete"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.Nodes, nodeID)
	return nil
}

func (r *mockNodeRepo) DeleteByNetwork(_ context.Context, networkID string) error {
	if err := r.store.enter("nodes.delete_by_network"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, n := range r.store.Nodes {
		if n.NetworkID == networkID {
			delete(r.store.Nodes, id)
		}
	}
	return nil
}

type mockEdgeRepo struct {
	store *MockRemoteStore
}

func (r *mockEdgeRepo) ListByNetwork(_ context.Context, networkID string) ([]*entities.Edge, error) {
	if err := r.store.enter("edges.list"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entities.Edge
	for _, e := range r.store.Edges {
		if e.NetworkID == networkID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *mockEdgeRepo) Upsert(_ context.Context, edges []*entities.Edge) error {
	if err := r.store.enter("edges.upsert"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range edges {
		clone := *e
		r.store.Edges[e.ID] = &clone
	}
	return nil
}

func (r *mockEdgeRepo) Delete(_ context.Context, edgeID string) error {
	if err := r.store.enter("edges.delete"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.Edges, edgeID)
	return nil
}

func (r *mockEdgeRepo) DeleteByNetwork(_ context.Context, networkID string) error {
	if err := r.store.enter("edges.delete_by_network"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, e := range r.store.Edges {
		if e.NetworkID == networkID {
			delete(r.store.Edges, id)
		}
	}
	return nil
}

type mockTodoRepo struct {
	store *MockRemoteStore
}

func (r *mockTodoRepo) ListByNodes(_ context.Context, nodeIDs []string) ([]*entities.Todo, error) {
	if err := r.store.enter("todos.list"); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		wanted[id] = struct{}{}
	}
	var out []*entities.Todo
	for _, t := range r.store.Todos {
		if _, ok := wanted[t.NodeID]; ok {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *mockTodoRepo) Insert(_ context.Context, todo *entities.Todo) error {
	if err := r.store.enter("todos.insert"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clone := *todo
	r.store.Todos[todo.ID] = &clone
	return nil
}

func (r *mockTodoRepo) SetCompleted(_ context.Context, todoID string, completed bool) error {
	if err := r.store.enter("todos.set_completed"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.Todos[todoID]
	if !ok {
		return pkgerrors.NewNotFoundError("todo")
	}
	t.Completed = completed
	return nil
}

func (r *mockTodoRepo) Delete(_ context.Context, todoID string) error {
	if err := r.store.enter("todos.delete"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.Todos, todoID)
	return nil
}

func (r *mockTodoRepo) DeleteByNodes(_ context.Context, nodeIDs []string) error {
	if err := r.store.enter("todos.delete_by_nodes"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[string]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		wanted[id] = struct{}{}
	}
	for id, t := range r.store.Todos {
		if _, ok := wanted[t.NodeID]; ok {
			delete(r.store.Todos, id)
		}
	}
	return nil
}

// MockCache is an in-memory PersistentCache
type MockCache struct {
	mu sync.Mutex

	workingSets map[string]workingSet
	networks    []*entities.Network
	hasNetworks bool
	currentID   string
	lastFetch   time.Time
	reload      bool

	// ClearCalls records working-set clears in order
	ClearCalls []string
}

type workingSet struct {
	nodes []*entities.Node
	edges []*entities.Edge
}

// NewMockCache creates an empty mock cache
func NewMockCache() *MockCache {
	return &MockCache{workingSets: make(map[string]workingSet)}
}

func (c *MockCache) LoadWorkingSet(networkID string) ([]*entities.Node, []*entities.Edge, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ws, ok := c.workingSets[networkID]
	if !ok {
		return nil, nil, false
	}
	return ws.nodes, ws.edges, true
}

func (c *MockCache) SaveWorkingSet(networkID string, nodes []*entities.Node, edges []*entities.Edge) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workingSets[networkID] = workingSet{nodes: nodes, edges: edges}
}

func (c *MockCache) ClearWorkingSet(networkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.workingSets, networkID)
	c.ClearCalls = append(c.ClearCalls, networkID)
}

func (c *MockCache) LoadNetworks() ([]*entities.Network, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.networks, c.hasNetworks
}

func (c *MockCache) SaveNetworks(networks []*entities.Network) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networks = networks
	c.hasNetworks = true
}

func (c *MockCache) CurrentNetworkID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

func (c *MockCache) SetCurrentNetworkID(networkID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentID = networkID
}

func (c *MockCache) LastFetch() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFetch
}

func (c *MockCache) SetLastFetch(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastFetch = t
}

func (c *MockCache) ReloadRecommended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reload
}

func (c *MockCache) SetReloadRecommended(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reload = v
}

var _ ports.PersistentCache = (*MockCache)(nil)
