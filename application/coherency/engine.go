// Package coherency holds the canonical reactive store of the sync engine:
// the network list, the current selection, the working set, and the guards
// that keep three state tiers (remote store, persistent cache, in-memory
// copy) consistent under interleaved asynchronous mutation sources.
package coherency

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"netsync/application/bus"
	"netsync/application/diffsync"
	"netsync/application/ports"
	"netsync/domain/core/entities"
	"netsync/pkg/observability"
)

// Options tunes the engine's timing behavior
type Options struct {
	// StalenessWindow is how long cached data is trusted on tab
	// re-visibility before a background refresh is scheduled
	StalenessWindow time.Duration

	// FetchTimeout bounds how long a fetch may keep the engine in Loading
	// before the loading state is force-cleared. The underlying request is
	// not cancelled; a late result is handled by the stale-response guard.
	FetchTimeout time.Duration

	// Notify surfaces user-visible errors without blocking. Transport
	// failures are reported once per user-initiated action. Optional.
	Notify func(err error)
}

// DefaultOptions returns the production timing defaults
func DefaultOptions() Options {
	return Options{
		StalenessWindow: 5 * time.Minute,
		FetchTimeout:    8 * time.Second,
	}
}

// Engine is the canonical owner of the in-memory tier. It is constructed
// once per session and injected into every consumer; there is no package
// level shared state.
//
// The working-set slices are only ever replaced wholesale (new slice from
// old plus patch), never mutated in place, so a reader mid-iteration never
// observes a torn state.
type Engine struct {
	cache   ports.PersistentCache
	store   ports.RemoteStore
	syncer  *diffsync.Syncer
	bus     *bus.EventBus
	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
	opts    Options
	ownerID string

	mu       sync.Mutex
	state    State
	networks []*entities.Network
	current  string // current network id, empty when Idle
	nodes    []*entities.Node
	edges    []*entities.Edge
	tasks    []TaskView

	// last known remote snapshot, the diff baseline
	lastKnownNodes []*entities.Node
	lastKnownEdges []*entities.Edge

	// guards
	operationInProgress  bool
	reorderingInProgress bool

	// networks with a bulk generation in flight (pre-generation signal seen)
	pendingGeneration map[string]bool

	refreshGroup  singleflight.Group
	unsubscribers []bus.UnsubscribeFunc

	// outstanding asynchronous write-throughs, waited on by Flush
	saves sync.WaitGroup
}

// TaskView is a todo denormalized with its node's name for cross-network
// task lists.
type TaskView struct {
	Todo      entities.Todo `json:"todo"`
	NodeName  string        `json:"node_name"`
	NetworkID string        `json:"network_id"`
}

// NewEngine creates the engine. Call Start to adopt cached state and attach
// the signal subscriptions.
func NewEngine(
	ownerID string,
	cache ports.PersistentCache,
	store ports.RemoteStore,
	syncer *diffsync.Syncer,
	eventBus *bus.EventBus,
	logger *zap.Logger,
	metrics *observability.Metrics,
	opts Options,
) *Engine {
	if opts.StalenessWindow <= 0 {
		opts.StalenessWindow = DefaultOptions().StalenessWindow
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultOptions().FetchTimeout
	}
	return &Engine{
		cache:             cache,
		store:             store,
		syncer:            syncer,
		bus:               eventBus,
		logger:            logger.Named("coherency"),
		metrics:           metrics,
		tracer:            otel.Tracer("netsync.coherency"),
		opts:              opts,
		ownerID:           ownerID,
		state:             StateIdle,
		pendingGeneration: make(map[string]bool),
	}
}

// Start restores the network list and selection from the persistent cache,
// attaches the signal subscriptions, and refreshes the network list from the
// remote store.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if cached, ok := e.cache.LoadNetworks(); ok {
		entities.SortNetworks(cached)
		e.networks = cached
	}
	restored := e.cache.CurrentNetworkID()
	e.mu.Unlock()

	e.subscribe()

	if restored != "" {
		if err := e.SelectNetwork(ctx, restored); err != nil {
			e.logger.Warn("could not restore previous selection",
				zap.String("networkID", restored), zap.Error(err))
		}
	}

	if err := e.refreshNetworkList(ctx); err != nil {
		// Cached list keeps the UI usable; the remote list catches up on
		// the next refresh.
		e.logger.Warn("initial network list refresh failed", zap.Error(err))
	}
	return nil
}

// Close detaches the signal subscriptions and waits for outstanding
// fire-and-forget writes.
func (e *Engine) Close() {
	for _, unsub := range e.unsubscribers {
		unsub()
	}
	e.unsubscribers = nil
	e.Flush()
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Networks returns the current network list. The returned slice is a copy;
// the entries are shared and must be treated as read-only.
func (e *Engine) Networks() []*entities.Network {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*entities.Network, len(e.networks))
	copy(out, e.networks)
	return out
}

// CurrentNetwork returns the selected network, or nil when Idle
func (e *Engine) CurrentNetwork() *entities.Network {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findNetworkLocked(e.current)
}

// WorkingSet returns the in-memory nodes and edges of the current network.
// The slices are replaced wholesale on every change and safe to iterate.
func (e *Engine) WorkingSet() ([]*entities.Node, []*entities.Edge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nodes, e.edges
}

// Tasks returns the denormalized cross-network task list
func (e *Engine) Tasks() []TaskView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks
}

// ReloadRecommended reports whether the staged refresher gave up and flagged
// a full reload.
func (e *Engine) ReloadRecommended() bool {
	return e.cache.ReloadRecommended()
}

// SetReordering toggles the guard that suppresses periodic and visibility
// triggered refetches while a drag-reorder commit is outstanding. A refetch
// mid-reorder would revert the optimistic order.
func (e *Engine) SetReordering(v bool) {
	e.mu.Lock()
	e.reorderingInProgress = v
	e.mu.Unlock()
}

// ReplaceNetworks swaps the network list wholesale and writes it through to
// the cache. Used by the reorder controller for optimistic commit and
// rollback.
func (e *Engine) ReplaceNetworks(networks []*entities.Network) {
	e.mu.Lock()
	e.networks = networks
	e.mu.Unlock()
	e.cache.SaveNetworks(networks)
}

// notify surfaces an error to the embedding UI without blocking
func (e *Engine) notify(err error) {
	if e.opts.Notify != nil {
		e.opts.Notify(err)
		return
	}
	e.logger.Warn("unhandled user-facing error", zap.Error(err))
}

// findNetworkLocked returns the list entry with the given id, nil if absent.
// Callers hold e.mu.
func (e *Engine) findNetworkLocked(id string) *entities.Network {
	if id == "" {
		return nil
	}
	for _, n := range e.networks {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// refreshSuppressedLocked reports whether remote-driven refreshes must be
// suppressed so they cannot stomp an in-flight optimistic update. Callers
// hold e.mu.
func (e *Engine) refreshSuppressedLocked() bool {
	return e.operationInProgress || e.reorderingInProgress
}
