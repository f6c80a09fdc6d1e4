package coherency

import (
	"context"

	"go.uber.org/zap"

	"netsync/domain/core/entities"
	"netsync/domain/events"
	pkgerrors "netsync/pkg/errors"
)

// beginOperation raises the guard that suppresses remote-driven refreshes
// for the duration of a multi-step mutation. Always paired with
// endOperation in a defer so the guard clears on failure too.
func (e *Engine) beginOperation() {
	e.mu.Lock()
	e.operationInProgress = true
	e.mu.Unlock()
}

func (e *Engine) endOperation() {
	e.mu.Lock()
	e.operationInProgress = false
	e.mu.Unlock()
}

// CreateNetwork creates a network owned by the session user, applies it
// optimistically, persists it, and broadcasts network-created. On a
// persistence failure the optimistic entry is rolled back.
func (e *Engine) CreateNetwork(ctx context.Context, name string, isAI bool, source string) (*entities.Network, error) {
	e.beginOperation()
	defer e.endOperation()

	e.mu.Lock()
	order := len(e.networks)
	e.mu.Unlock()

	network, err := entities.NewNetwork(e.ownerID, name, order, isAI)
	if err != nil {
		return nil, err
	}

	// Optimistic commit with captured pre-image.
	e.mu.Lock()
	preImage := e.networks
	e.networks = append(append([]*entities.Network{}, e.networks...), network)
	e.mu.Unlock()
	e.cache.SaveNetworks(e.Networks())

	if err := e.store.Networks.Insert(ctx, network); err != nil {
		e.mu.Lock()
		e.networks = preImage
		e.mu.Unlock()
		e.cache.SaveNetworks(preImage)
		e.notify(err)
		return nil, err
	}

	e.bus.Publish(events.NewNetworkCreated(network.ID, isAI, source))
	e.logger.Info("network created",
		zap.String("networkID", network.ID),
		zap.String("source", source))
	return network, nil
}

// RenameNetwork renames a network optimistically and persists the change,
// restoring the pre-image on failure. Broadcasts network-renamed.
func (e *Engine) RenameNetwork(ctx context.Context, networkID, newName string) error {
	e.beginOperation()
	defer e.endOperation()

	e.mu.Lock()
	preImage := e.networks
	var renamed *entities.Network
	next := make([]*entities.Network, 0, len(e.networks))
	for _, n := range e.networks {
		if n.ID != networkID {
			next = append(next, n)
			continue
		}
		clone := *n
		if err := clone.Rename(newName); err != nil {
			e.mu.Unlock()
			return err
		}
		renamed = &clone
		next = append(next, &clone)
	}
	if renamed == nil {
		e.mu.Unlock()
		return pkgerrors.NewNotFoundError("network")
	}
	e.networks = next
	e.mu.Unlock()
	e.cache.SaveNetworks(next)

	if err := e.store.Networks.Update(ctx, renamed); err != nil {
		e.mu.Lock()
		e.networks = preImage
		e.mu.Unlock()
		e.cache.SaveNetworks(preImage)
		e.notify(err)
		return err
	}

	e.bus.Publish(events.NewNetworkRenamed(networkID, newName))
	return nil
}

// DeleteNetwork removes a network and everything it owns: todos, edges,
// nodes, then the network row. The list entry is removed optimistically and
// restored if any cascade step fails. On success the cache entries are
// purged, selection falls back if needed, and network-deleted is broadcast.
func (e *Engine) DeleteNetwork(ctx context.Context, networkID string) error {
	e.beginOperation()
	defer e.endOperation()

	e.mu.Lock()
	if e.findNetworkLocked(networkID) == nil {
		e.mu.Unlock()
		return pkgerrors.NewNotFoundError("network")
	}
	preImage := e.networks
	next := make([]*entities.Network, 0, len(e.networks)-1)
	for _, n := range e.networks {
		if n.ID != networkID {
			next = append(next, n)
		}
	}
	e.networks = next
	wasCurrent := e.current == networkID
	nodesForCascade := e.nodes
	e.mu.Unlock()
	e.cache.SaveNetworks(next)

	rollback := func(err error) error {
		e.mu.Lock()
		e.networks = preImage
		e.mu.Unlock()
		e.cache.SaveNetworks(preImage)
		e.notify(err)
		return err
	}

	// The cascade needs node ids for the todo tier. For the current network
	// the working set already has them; otherwise fetch.
	if !wasCurrent {
		fetched, err := e.store.Nodes.ListByNetwork(ctx, networkID)
		if err != nil {
			return rollback(err)
		}
		nodesForCascade = fetched
	}
	nodeIDs := make([]string, 0, len(nodesForCascade))
	for _, n := range nodesForCascade {
		nodeIDs = append(nodeIDs, n.ID)
	}

	if err := e.store.Todos.DeleteByNodes(ctx, nodeIDs); err != nil {
		return rollback(err)
	}
	if err := e.store.Edges.DeleteByNetwork(ctx, networkID); err != nil {
		return rollback(err)
	}
	if err := e.store.Nodes.DeleteByNetwork(ctx, networkID); err != nil {
		return rollback(err)
	}
	if err := e.store.Networks.Delete(ctx, networkID); err != nil {
		return rollback(err)
	}

	e.cache.ClearWorkingSet(networkID)
	if wasCurrent {
		e.fallbackSelection(ctx)
	}

	e.bus.Publish(events.NewNetworkDeleted(networkID))
	e.logger.Info("network deleted", zap.String("networkID", networkID))
	return nil
}

// UpsertNode applies a node change to the working set optimistically. The
// write-through to the remote store happens on the next SaveWorkingSet
// settle, not per fine-grained change.
func (e *Engine) UpsertNode(node *entities.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if node.NetworkID != e.current {
		return pkgerrors.NewRaceStaleError("node upsert")
	}

	next := make([]*entities.Node, 0, len(e.nodes)+1)
	replaced := false
	for _, n := range e.nodes {
		if n.ID == node.ID {
			next = append(next, node)
			replaced = true
			continue
		}
		next = append(next, n)
	}
	if !replaced {
		next = append(next, node)
	}
	e.nodes = next
	e.state = StateReady
	return nil
}

// RemoveNode drops a node, its touching edges, and its tasks from the
// working set, then deletes the rows remotely. A remote failure is surfaced
// and followed by a refresh so the tiers reconverge.
func (e *Engine) RemoveNode(ctx context.Context, nodeID string) error {
	e.mu.Lock()
	networkID := e.current
	if networkID == "" {
		e.mu.Unlock()
		return pkgerrors.NewNotFoundError("current network")
	}

	nextNodes := make([]*entities.Node, 0, len(e.nodes))
	found := false
	for _, n := range e.nodes {
		if n.ID == nodeID {
			found = true
			continue
		}
		nextNodes = append(nextNodes, n)
	}
	if !found {
		e.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}

	var removedEdges []string
	nextEdges := make([]*entities.Edge, 0, len(e.edges))
	for _, edge := range e.edges {
		if edge.SourceNodeID == nodeID || edge.TargetNodeID == nodeID {
			removedEdges = append(removedEdges, edge.ID)
			continue
		}
		nextEdges = append(nextEdges, edge)
	}

	nextTasks := make([]TaskView, 0, len(e.tasks))
	for _, t := range e.tasks {
		if t.Todo.NodeID != nodeID {
			nextTasks = append(nextTasks, t)
		}
	}

	e.nodes = nextNodes
	e.edges = nextEdges
	e.tasks = nextTasks
	e.mu.Unlock()

	e.cache.SaveWorkingSet(networkID, nextNodes, nextEdges)

	if err := e.store.Todos.DeleteByNodes(ctx, []string{nodeID}); err != nil {
		e.notify(err)
		go e.refreshWorkingSet(context.Background(), networkID)
		return err
	}
	for _, edgeID := range removedEdges {
		if err := e.store.Edges.Delete(ctx, edgeID); err != nil {
			e.notify(err)
			go e.refreshWorkingSet(context.Background(), networkID)
			return err
		}
	}
	if err := e.store.Nodes.Delete(ctx, nodeID); err != nil {
		e.notify(err)
		go e.refreshWorkingSet(context.Background(), networkID)
		return err
	}
	return nil
}

// UpsertEdge applies an edge change to the working set optimistically
func (e *Engine) UpsertEdge(edge *entities.Edge) error {
	if !edge.HandlesValid() {
		return pkgerrors.NewInvariantError("edge handles violate role-tag invariant")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if edge.NetworkID != e.current {
		return pkgerrors.NewRaceStaleError("edge upsert")
	}

	next := make([]*entities.Edge, 0, len(e.edges)+1)
	replaced := false
	for _, existing := range e.edges {
		if existing.ID == edge.ID {
			next = append(next, edge)
			replaced = true
			continue
		}
		next = append(next, existing)
	}
	if !replaced {
		next = append(next, edge)
	}
	e.edges = next
	e.state = StateReady
	return nil
}

// RemoveEdge drops an edge from the working set and deletes the row remotely
func (e *Engine) RemoveEdge(ctx context.Context, edgeID string) error {
	e.mu.Lock()
	networkID := e.current
	next := make([]*entities.Edge, 0, len(e.edges))
	found := false
	for _, edge := range e.edges {
		if edge.ID == edgeID {
			found = true
			continue
		}
		next = append(next, edge)
	}
	if !found {
		e.mu.Unlock()
		return pkgerrors.NewNotFoundError("edge")
	}
	e.edges = next
	nodes := e.nodes
	e.mu.Unlock()

	e.cache.SaveWorkingSet(networkID, nodes, next)

	if err := e.store.Edges.Delete(ctx, edgeID); err != nil {
		e.notify(err)
		go e.refreshWorkingSet(context.Background(), networkID)
		return err
	}
	return nil
}

// SaveWorkingSet is the settle-event write-through: the persistent cache is
// written synchronously, then the remote delta is pushed asynchronously.
// Callers invoke it when a drag settles or an editor closes, never per
// fine-grained change, to bound cache write volume.
func (e *Engine) SaveWorkingSet() {
	e.mu.Lock()
	networkID := e.current
	if networkID == "" {
		e.mu.Unlock()
		return
	}
	nodes := e.nodes
	edges := e.edges
	lastNodes := e.lastKnownNodes
	lastEdges := e.lastKnownEdges
	e.mu.Unlock()

	e.cache.SaveWorkingSet(networkID, nodes, edges)

	e.saves.Add(1)
	go func() {
		defer e.saves.Done()
		_, _, err := e.syncer.Push(context.Background(), nodes, lastNodes, edges, lastEdges)
		if err != nil {
			e.notify(err)
			return
		}
		e.mu.Lock()
		if e.current == networkID {
			e.lastKnownNodes = nodes
			e.lastKnownEdges = edges
		}
		e.mu.Unlock()
	}()
}

// Flush waits for outstanding asynchronous write-throughs. Called on
// shutdown and by tests.
func (e *Engine) Flush() {
	e.saves.Wait()
	e.syncer.Flush()
}
