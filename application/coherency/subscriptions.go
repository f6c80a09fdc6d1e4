package coherency

import (
	"context"

	"go.uber.org/zap"

	"netsync/domain/core/entities"
	"netsync/domain/events"
)

// subscribe attaches the engine's signal handlers. Signals from different
// logical operations can interleave in any order, so every handler checks
// identity before mutating and tolerates redundant delivery.
func (e *Engine) subscribe() {
	e.unsubscribers = append(e.unsubscribers,
		e.bus.Subscribe(events.NetworkCreated, e.onNetworkCreated),
		e.bus.Subscribe(events.NetworkRenamed, e.onNetworkRenamed),
		e.bus.Subscribe(events.ForceNetworkUpdate, e.onForceNetworkUpdate),
		e.bus.Subscribe(events.NetworkDeleted, e.onNetworkDeleted),
		e.bus.Subscribe(events.PreGenerationComplete, e.onPreGenerationComplete),
		e.bus.Subscribe(events.NetworkGenerationComplete, e.onGenerationComplete),
		e.bus.Subscribe(events.NodeAdded, e.onNodeAdded),
		e.bus.Subscribe(events.TodoCompleted, e.onTodoCompleted),
		e.bus.Subscribe(events.TodoDeleted, e.onTodoDeleted),
		e.bus.Subscribe(events.ForceNetworkDataRefresh, e.onForceDataRefresh),
	)
}

// onNetworkCreated merges an externally created network. The signal only
// promises the network exists, not that its data is fully present, so the
// list is refetched rather than patched.
func (e *Engine) onNetworkCreated(signal events.Signal) {
	s, ok := signal.(events.NetworkCreatedSignal)
	if !ok {
		return
	}

	e.mu.Lock()
	known := e.findNetworkLocked(s.NetworkID) != nil
	e.mu.Unlock()
	if known {
		return
	}

	go func() {
		if err := e.refreshNetworkList(context.Background()); err != nil {
			e.logger.Warn("network list refresh after creation failed",
				zap.String("networkID", s.NetworkID), zap.Error(err))
		}
	}()
}

// onNetworkRenamed applies an authoritative rename by identity
func (e *Engine) onNetworkRenamed(signal events.Signal) {
	s, ok := signal.(events.NetworkRenamedSignal)
	if !ok {
		return
	}
	e.applyRename(s.NetworkID, s.NewName)
}

// onForceNetworkUpdate merges a rename and, when requested, discards the
// cache entry and refetches from the remote store.
func (e *Engine) onForceNetworkUpdate(signal events.Signal) {
	s, ok := signal.(events.ForceNetworkUpdateSignal)
	if !ok {
		return
	}

	if s.NewName != "" {
		e.applyRename(s.NetworkID, s.NewName)
	}

	if s.ForceServerRefresh {
		e.cache.ClearWorkingSet(s.NetworkID)
		e.mu.Lock()
		isCurrent := e.current == s.NetworkID
		e.mu.Unlock()
		if isCurrent {
			go e.refreshWorkingSet(context.Background(), s.NetworkID)
		}
	}
}

// applyRename patches the list entry if the id is known. Unknown ids are
// ignored: the rename may race a deletion or belong to a not-yet-merged
// network.
func (e *Engine) applyRename(networkID, newName string) {
	if newName == "" {
		return
	}

	e.mu.Lock()
	found := false
	next := make([]*entities.Network, 0, len(e.networks))
	for _, n := range e.networks {
		if n.ID != networkID || n.Name == newName {
			next = append(next, n)
			continue
		}
		clone := *n
		clone.Name = newName
		next = append(next, &clone)
		found = true
	}
	if found {
		e.networks = next
	}
	e.mu.Unlock()

	if found {
		e.cache.SaveNetworks(next)
	}
}

// onNetworkDeleted purges all derived state for the id. Idempotent: the
// engine's own DeleteNetwork already removed the entry before publishing,
// and external deletions arrive with nothing removed yet.
func (e *Engine) onNetworkDeleted(signal events.Signal) {
	s, ok := signal.(events.NetworkDeletedSignal)
	if !ok {
		return
	}

	e.cache.ClearWorkingSet(s.NetworkID)

	e.mu.Lock()
	next := make([]*entities.Network, 0, len(e.networks))
	for _, n := range e.networks {
		if n.ID != s.NetworkID {
			next = append(next, n)
		}
	}
	removed := len(next) != len(e.networks)
	e.networks = next
	wasCurrent := e.current == s.NetworkID
	delete(e.pendingGeneration, s.NetworkID)
	e.mu.Unlock()

	if removed {
		e.cache.SaveNetworks(next)
	}
	if wasCurrent {
		// Off the publisher's goroutine: the fallback can block on a remote
		// fetch when the next network has no cache entry.
		go e.fallbackSelection(context.Background())
	}
}

// onPreGenerationComplete marks the network as having a bulk write in
// flight, so the coming generation-complete refresh is interpreted against
// possible replication lag.
func (e *Engine) onPreGenerationComplete(signal events.Signal) {
	s, ok := signal.(events.PreGenerationCompleteSignal)
	if !ok {
		return
	}
	e.mu.Lock()
	e.pendingGeneration[s.NetworkID] = true
	e.mu.Unlock()
}

// onGenerationComplete clears the pending mark. The staged refresher holds
// its own subscription and drives the refetch sequence.
func (e *Engine) onGenerationComplete(signal events.Signal) {
	s, ok := signal.(events.GenerationCompleteSignal)
	if !ok {
		return
	}
	e.mu.Lock()
	delete(e.pendingGeneration, s.NetworkID)
	e.mu.Unlock()
}

// onNodeAdded reconciles an externally created node (the CSV importer emits
// one signal per row). The payload carries ids only, so an unknown node
// triggers a working-set refresh rather than a patch.
func (e *Engine) onNodeAdded(signal events.Signal) {
	s, ok := signal.(events.NodeAddedSignal)
	if !ok {
		return
	}

	e.mu.Lock()
	if e.current != s.NetworkID {
		e.mu.Unlock()
		return
	}
	known := false
	for _, n := range e.nodes {
		if n.ID == s.NodeID {
			known = true
			break
		}
	}
	e.mu.Unlock()
	if known {
		return
	}

	go e.refreshWorkingSet(context.Background(), s.NetworkID)
}

// onTodoCompleted patches the denormalized task list by identity
func (e *Engine) onTodoCompleted(signal events.Signal) {
	s, ok := signal.(events.TodoCompletedSignal)
	if !ok {
		return
	}

	e.mu.Lock()
	next := make([]TaskView, 0, len(e.tasks))
	for _, t := range e.tasks {
		if t.Todo.ID == s.TaskID {
			t.Todo.Completed = true
		}
		next = append(next, t)
	}
	e.tasks = next
	e.mu.Unlock()
}

// onTodoDeleted drops the task from the denormalized list by identity
func (e *Engine) onTodoDeleted(signal events.Signal) {
	s, ok := signal.(events.TodoDeletedSignal)
	if !ok {
		return
	}

	e.mu.Lock()
	next := make([]TaskView, 0, len(e.tasks))
	for _, t := range e.tasks {
		if t.Todo.ID != s.TaskID {
			next = append(next, t)
		}
	}
	e.tasks = next
	e.mu.Unlock()
}

// onForceDataRefresh refetches the current network's working set, bypassing
// the staleness window.
func (e *Engine) onForceDataRefresh(signal events.Signal) {
	s, ok := signal.(events.ForceDataRefreshSignal)
	if !ok {
		return
	}

	e.mu.Lock()
	isCurrent := e.current == s.NetworkID
	e.mu.Unlock()
	if !isCurrent {
		return
	}

	go e.refreshWorkingSet(context.Background(), s.NetworkID)
}
