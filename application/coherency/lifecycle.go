package coherency

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"netsync/domain/core/entities"
	pkgerrors "netsync/pkg/errors"
)

// fetchResult carries a completed working-set fetch back to the selection
// that initiated it.
type fetchResult struct {
	nodes []*entities.Node
	edges []*entities.Edge
	err   error
}

// SelectNetwork makes networkID the current network. The in-memory working
// set is cleared atomically before any of the new network's data is adopted,
// so node and edge slices never briefly belong to the wrong network.
//
// Cached data is adopted immediately and refreshed from the remote store in
// the background; on a cache miss the call blocks on the remote fetch, up to
// the fetch timeout.
func (e *Engine) SelectNetwork(ctx context.Context, networkID string) error {
	if networkID == "" {
		return pkgerrors.NewValidationError("networkID cannot be empty")
	}

	ctx, span := e.tracer.Start(ctx, "Engine.SelectNetwork",
		trace.WithAttributes(attribute.String("network.id", networkID)),
	)
	defer span.End()

	e.mu.Lock()
	if e.current == networkID && e.state == StateReady {
		e.mu.Unlock()
		return nil
	}
	e.state = StateSwitching
	e.current = networkID
	e.nodes = nil
	e.edges = nil
	e.tasks = nil
	e.lastKnownNodes = nil
	e.lastKnownEdges = nil
	e.mu.Unlock()

	e.cache.SetCurrentNetworkID(networkID)

	if nodes, edges, ok := e.cache.LoadWorkingSet(networkID); ok {
		e.metrics.CacheHits.Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		e.mu.Lock()
		// Selection may have moved on while the cache read ran.
		if e.current != networkID {
			e.mu.Unlock()
			return nil
		}
		e.nodes = nodes
		e.edges = edges
		e.state = StateReady
		e.mu.Unlock()

		// The cache is a point-in-time copy, not authoritative; catch up
		// with the remote tier in the background.
		go e.refreshWorkingSet(context.Background(), networkID)
		return nil
	}

	e.metrics.CacheMisses.Inc()
	span.SetAttributes(attribute.Bool("cache.hit", false))
	e.mu.Lock()
	e.state = StateLoading
	e.mu.Unlock()

	done := make(chan fetchResult, 1)
	go func() {
		nodes, edges, err := e.fetchAndAdopt(ctx, networkID)
		done <- fetchResult{nodes: nodes, edges: edges, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			span.RecordError(res.err)
			span.SetStatus(codes.Error, "working set fetch failed")
			e.clearLoading(networkID)
			e.notify(res.err)
			return res.err
		}
		return nil
	case <-time.After(e.opts.FetchTimeout):
		// Watchdog, not cancellation: the fetch keeps running and a late
		// result is still adopted if the selection has not moved on.
		e.clearLoading(networkID)
		err := pkgerrors.NewTimeoutError("select network")
		span.RecordError(err)
		span.SetStatus(codes.Error, "watchdog timeout")
		e.notify(err)
		return err
	}
}

// clearLoading forces the engine out of Loading for networkID so the UI is
// not stuck on a spinner.
func (e *Engine) clearLoading(networkID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == networkID && e.state == StateLoading {
		e.state = StateReady
	}
}

// refreshWorkingSet refetches the working set of networkID from the remote
// store. Concurrent refreshes of the same network are deduplicated.
func (e *Engine) refreshWorkingSet(ctx context.Context, networkID string) {
	_, _, _ = e.refreshGroup.Do(networkID, func() (interface{}, error) {
		_, _, err := e.fetchAndAdopt(ctx, networkID)
		return nil, err
	})
}

// RefreshNetworkData force-refetches networkID's working set and reports how
// many nodes were observed. Used by the staged refresher after bulk
// generation, where empty results indicate replication lag.
func (e *Engine) RefreshNetworkData(ctx context.Context, networkID string) (int, error) {
	nodes, _, err := e.fetchAndAdopt(ctx, networkID)
	if err != nil {
		if pkgerrors.IsRaceStale(err) {
			return 0, nil
		}
		return 0, err
	}
	return len(nodes), nil
}

// fetchAndAdopt performs the remote fetch and, if networkID is still the
// current selection when the result arrives, adopts it into the in-memory
// tier and writes it through to the cache. A result whose network no longer
// matches the selection is discarded: the standard stale-response guard
// required on every async read.
func (e *Engine) fetchAndAdopt(ctx context.Context, networkID string) ([]*entities.Node, []*entities.Edge, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.FetchWorkingSet",
		trace.WithAttributes(attribute.String("network.id", networkID)),
	)
	defer span.End()

	nodes, err := e.store.Nodes.ListByNetwork(ctx, networkID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "node list failed")
		return nil, nil, err
	}
	edges, err := e.syncer.FetchEdges(ctx, networkID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edge fetch failed")
		return nil, nil, err
	}

	e.mu.Lock()
	if e.current != networkID {
		e.mu.Unlock()
		e.metrics.StaleDiscards.Inc()
		span.AddEvent("stale_result_discarded")
		e.logger.Debug("discarding stale fetch result",
			zap.String("networkID", networkID))
		return nil, nil, pkgerrors.NewRaceStaleError("working set fetch")
	}
	e.nodes = nodes
	e.edges = edges
	e.lastKnownNodes = nodes
	e.lastKnownEdges = edges
	e.state = StateReady
	e.mu.Unlock()

	e.cache.SaveWorkingSet(networkID, nodes, edges)
	e.cache.SetLastFetch(time.Now().UTC())

	go e.refreshTasks(context.Background(), networkID)
	return nodes, edges, nil
}

// HandleVisibility reacts to the tab becoming visible again. Cached state
// inside the staleness window is trusted as-is to avoid loading flicker on
// short tab switches; older state schedules a background refresh. Both paths
// are suppressed while an optimistic operation or reorder is outstanding.
func (e *Engine) HandleVisibility(ctx context.Context, visible bool) {
	if !visible {
		return
	}

	e.mu.Lock()
	if e.current == "" || e.refreshSuppressedLocked() {
		e.mu.Unlock()
		return
	}
	networkID := e.current
	e.mu.Unlock()

	if time.Since(e.cache.LastFetch()) > e.opts.StalenessWindow {
		go e.refreshWorkingSet(context.Background(), networkID)
		return
	}

	if nodes, edges, ok := e.cache.LoadWorkingSet(networkID); ok {
		e.metrics.CacheHits.Inc()
		e.mu.Lock()
		if e.current == networkID {
			e.nodes = nodes
			e.edges = edges
			e.state = StateReady
		}
		e.mu.Unlock()
	}
}

// refreshNetworkList replaces the network list from the remote store. The
// replacement is skipped while a mutation is in flight so it cannot stomp an
// optimistic update.
func (e *Engine) refreshNetworkList(ctx context.Context) error {
	networks, err := e.store.Networks.ListByOwner(ctx, e.ownerID)
	if err != nil {
		return err
	}
	entities.SortNetworks(networks)

	e.mu.Lock()
	if e.refreshSuppressedLocked() {
		e.mu.Unlock()
		e.logger.Debug("network list refresh suppressed by in-flight operation")
		return nil
	}
	e.networks = networks
	currentGone := e.current != "" && e.findNetworkLocked(e.current) == nil
	e.mu.Unlock()

	e.cache.SaveNetworks(networks)

	if currentGone {
		e.fallbackSelection(ctx)
	}
	return nil
}

// fallbackSelection moves the selection to the first remaining network, or
// to none when the list is empty.
func (e *Engine) fallbackSelection(ctx context.Context) {
	e.mu.Lock()
	var next string
	if len(e.networks) > 0 {
		next = e.networks[0].ID
	}
	if next == "" {
		e.current = ""
		e.nodes = nil
		e.edges = nil
		e.tasks = nil
		e.lastKnownNodes = nil
		e.lastKnownEdges = nil
		e.state = StateIdle
		e.mu.Unlock()
		e.cache.SetCurrentNetworkID("")
		return
	}
	e.mu.Unlock()

	if err := e.SelectNetwork(ctx, next); err != nil {
		e.logger.Warn("fallback selection failed",
			zap.String("networkID", next), zap.Error(err))
	}
}
