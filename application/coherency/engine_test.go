package coherency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"netsync/application/bus"
	"netsync/application/diffsync"
	"netsync/application/ports/mocks"
	"netsync/domain/core/entities"
	"netsync/domain/core/valueobjects"
	"netsync/domain/events"
	pkgerrors "netsync/pkg/errors"
	"netsync/pkg/observability"
)

type engineHarness struct {
	t       *testing.T
	engine  *Engine
	store   *mocks.MockRemoteStore
	cache   *mocks.MockCache
	bus     *bus.EventBus
	metrics *observability.Metrics

	mu       sync.Mutex
	notified []error
}

func newEngineHarness(t *testing.T, opts Options) *engineHarness {
	h := &engineHarness{
		t:       t,
		store:   mocks.NewMockRemoteStore(),
		cache:   mocks.NewMockCache(),
		bus:     bus.NewEventBus(zap.NewNop()),
		metrics: observability.NewNopMetrics(),
	}
	opts.Notify = func(err error) {
		h.mu.Lock()
		h.notified = append(h.notified, err)
		h.mu.Unlock()
	}
	syncer := diffsync.NewSyncer(h.store.Ports(), zap.NewNop(), h.metrics)
	h.engine = NewEngine("user123", h.cache, h.store.Ports(), syncer,
		h.bus, zap.NewNop(), h.metrics, opts)
	return h
}

func (h *engineHarness) start() {
	require.NoError(h.t, h.engine.Start(context.Background()))
}

// awaitTodoList waits until the background task refresh spawned by a fetch
// has hit the remote store, so a following optimistic task mutation cannot
// race it.
func (h *engineHarness) awaitTodoList(calls int) {
	require.Eventually(h.t, func() bool {
		return h.store.Calls("todos.list") >= calls
	}, time.Second, 5*time.Millisecond)
}

func (h *engineHarness) notifiedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.notified)
}

func (h *engineHarness) seedNetwork(id string, order int) *entities.Network {
	n := &entities.Network{
		ID:        id,
		Name:      id,
		Order:     order,
		OwnerID:   "user123",
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(order) * time.Minute),
	}
	h.store.Networks[id] = n
	return n
}

func (h *engineHarness) seedNode(networkID, id string) *entities.Node {
	n := &entities.Node{
		ID:        id,
		NetworkID: networkID,
		Kind:      entities.KindPerson,
		Name:      "Node " + id,
		Position:  valueobjects.NewPosition(0, 0),
	}
	h.store.Nodes[id] = n
	return n
}

func (h *engineHarness) seedEdge(networkID, id, source, target string) *entities.Edge {
	e := &entities.Edge{
		ID:           id,
		NetworkID:    networkID,
		SourceNodeID: source,
		TargetNodeID: target,
		SourceHandle: "right-source",
		TargetHandle: "left-target",
	}
	h.store.Edges[id] = e
	return e
}

func TestEngine_Start_RestoresCachedListAndSelection(t *testing.T) {
	// Arrange
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.cache.SaveNetworks([]*entities.Network{{ID: "N1", Name: "N1", OwnerID: "user123"}})
	h.cache.SetCurrentNetworkID("N1")

	// Act
	h.start()
	defer h.engine.Close()

	// Assert
	require.NotNil(t, h.engine.CurrentNetwork())
	assert.Equal(t, "N1", h.engine.CurrentNetwork().ID)
	assert.Equal(t, StateReady, h.engine.State())
	nodes, _ := h.engine.WorkingSet()
	assert.Len(t, nodes, 1)
}

func TestEngine_SelectNetwork_CacheMissFetchesAndCaches(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.seedNode("N1", "b")
	h.start()
	defer h.engine.Close()

	err := h.engine.SelectNetwork(context.Background(), "N1")

	require.NoError(t, err)
	assert.Equal(t, StateReady, h.engine.State())
	nodes, _ := h.engine.WorkingSet()
	assert.Len(t, nodes, 2)
	_, _, ok := h.cache.LoadWorkingSet("N1")
	assert.True(t, ok)
	assert.Equal(t, "N1", h.cache.CurrentNetworkID())
}

func TestEngine_SelectNetwork_CacheHitAdoptsImmediately(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.cache.SaveWorkingSet("N1", []*entities.Node{h.store.Nodes["a"]}, nil)
	h.start()
	defer h.engine.Close()

	err := h.engine.SelectNetwork(context.Background(), "N1")

	require.NoError(t, err)
	assert.Equal(t, StateReady, h.engine.State())
	nodes, _ := h.engine.WorkingSet()
	assert.Len(t, nodes, 1)
	// The cached copy is not authoritative: a background refresh must hit
	// the remote store.
	assert.Eventually(t, func() bool {
		return h.store.Calls("nodes.list") >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_SelectNetwork_EmptyIDRejected(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())

	err := h.engine.SelectNetwork(context.Background(), "")

	assert.True(t, pkgerrors.IsValidation(err))
}

func TestEngine_SelectNetwork_WatchdogClearsLoading(t *testing.T) {
	// The fetch stalls past the timeout: the engine must leave Loading on
	// its own, without cancelling the request.
	opts := DefaultOptions()
	opts.FetchTimeout = 30 * time.Millisecond
	h := newEngineHarness(t, opts)
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")

	release := make(chan struct{})
	var gated int32
	h.store.HookOn("nodes.list", func() {
		if atomic.CompareAndSwapInt32(&gated, 0, 1) {
			<-release
		}
	})
	h.start()
	defer h.engine.Close()

	err := h.engine.SelectNetwork(context.Background(), "N1")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsTimeout(err))
	assert.Equal(t, StateReady, h.engine.State())

	// The stalled fetch finishes later; the selection has not moved, so the
	// late result is still adopted.
	close(release)
	assert.Eventually(t, func() bool {
		nodes, _ := h.engine.WorkingSet()
		return len(nodes) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_SelectNetwork_StaleResultDiscardedAfterSwitch(t *testing.T) {
	// Switch away while the first network's fetch is still in flight. The
	// late result belongs to the wrong network and must be discarded.
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("A", 0)
	h.seedNetwork("B", 1)
	h.seedNode("A", "a1")
	nodeB := h.seedNode("B", "b1")
	h.cache.SaveWorkingSet("B", []*entities.Node{nodeB}, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var gated int32
	h.store.HookOn("nodes.list", func() {
		if atomic.CompareAndSwapInt32(&gated, 0, 1) {
			close(entered)
			<-release
		}
	})
	h.start()
	defer h.engine.Close()

	selectDone := make(chan error, 1)
	go func() {
		selectDone <- h.engine.SelectNetwork(context.Background(), "A")
	}()
	<-entered

	require.NoError(t, h.engine.SelectNetwork(context.Background(), "B"))
	close(release)

	err := <-selectDone
	assert.True(t, pkgerrors.IsRaceStale(err))
	require.NotNil(t, h.engine.CurrentNetwork())
	assert.Equal(t, "B", h.engine.CurrentNetwork().ID)
	nodes, _ := h.engine.WorkingSet()
	require.Len(t, nodes, 1)
	assert.Equal(t, "b1", nodes[0].ID)
}

func TestEngine_CreateNetwork_OptimisticAndPersisted(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.start()
	defer h.engine.Close()
	var created events.NetworkCreatedSignal
	h.bus.Subscribe(events.NetworkCreated, func(s events.Signal) {
		created = s.(events.NetworkCreatedSignal)
	})

	network, err := h.engine.CreateNetwork(context.Background(), "Berlin Scene", false, "manual")

	require.NoError(t, err)
	require.Len(t, h.engine.Networks(), 1)
	assert.Contains(t, h.store.Networks, network.ID)
	cached, ok := h.cache.LoadNetworks()
	require.True(t, ok)
	assert.Len(t, cached, 1)
	assert.Equal(t, network.ID, created.NetworkID)
	assert.Equal(t, "manual", created.Source)
}

func TestEngine_CreateNetwork_RollbackOnPersistenceFailure(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.store.FailOn("networks.insert", assert.AnError)
	h.start()
	defer h.engine.Close()

	_, err := h.engine.CreateNetwork(context.Background(), "Doomed", false, "manual")

	require.Error(t, err)
	assert.Empty(t, h.engine.Networks())
	assert.Equal(t, 1, h.notifiedCount())
}

func TestEngine_RenameNetwork_Success(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.start()
	defer h.engine.Close()

	err := h.engine.RenameNetwork(context.Background(), "N1", "Renamed")

	require.NoError(t, err)
	assert.Equal(t, "Renamed", h.engine.Networks()[0].Name)
	assert.Equal(t, "Renamed", h.store.Networks["N1"].Name)
}

func TestEngine_RenameNetwork_RollbackOnPersistenceFailure(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.start()
	defer h.engine.Close()
	h.store.FailOn("networks.update", assert.AnError)

	err := h.engine.RenameNetwork(context.Background(), "N1", "Renamed")

	require.Error(t, err)
	assert.Equal(t, "N1", h.engine.Networks()[0].Name)
}

func TestEngine_DeleteNetwork_PurgesEverything(t *testing.T) {
	// Deleting the current network must leave no trace in any tier and move
	// the selection to the first remaining network.
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNetwork("N2", 1)
	h.seedNode("N1", "a")
	h.seedNode("N1", "b")
	h.seedEdge("N1", "e1", "a", "b")
	h.store.Todos["t1"] = &entities.Todo{ID: "t1", NodeID: "a", Text: "call"}
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))

	err := h.engine.DeleteNetwork(context.Background(), "N1")

	require.NoError(t, err)
	assert.NotContains(t, h.store.Networks, "N1")
	assert.NotContains(t, h.store.Nodes, "a")
	assert.NotContains(t, h.store.Edges, "e1")
	assert.NotContains(t, h.store.Todos, "t1")
	_, _, ok := h.cache.LoadWorkingSet("N1")
	assert.False(t, ok)
	require.Len(t, h.engine.Networks(), 1)
	require.NotNil(t, h.engine.CurrentNetwork())
	assert.Equal(t, "N2", h.engine.CurrentNetwork().ID)
}

func TestEngine_DeleteNetwork_RollbackOnCascadeFailure(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))
	h.store.FailOn("nodes.delete_by_network", assert.AnError)

	err := h.engine.DeleteNetwork(context.Background(), "N1")

	require.Error(t, err)
	require.Len(t, h.engine.Networks(), 1)
	assert.Equal(t, "N1", h.engine.Networks()[0].ID)
}

func TestEngine_UpsertNode_WrongNetworkRejected(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))

	err := h.engine.UpsertNode(&entities.Node{ID: "x", NetworkID: "N2"})

	assert.True(t, pkgerrors.IsRaceStale(err))
}

func TestEngine_SaveWorkingSet_PushesOnlyTheDelta(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))

	added := &entities.Node{ID: "b", NetworkID: "N1", Kind: entities.KindPerson, Name: "B"}
	require.NoError(t, h.engine.UpsertNode(added))
	h.engine.SaveWorkingSet()
	h.engine.Flush()

	assert.Contains(t, h.store.Nodes, "b")
	assert.Equal(t, 1, h.store.Calls("nodes.upsert"))

	// The snapshot advanced: an unchanged working set pushes nothing.
	h.engine.SaveWorkingSet()
	h.engine.Flush()
	assert.Equal(t, 1, h.store.Calls("nodes.upsert"))
}

func TestEngine_RemoveNode_DropsTouchingEdges(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.seedNode("N1", "b")
	h.seedEdge("N1", "e1", "a", "b")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))

	err := h.engine.RemoveNode(context.Background(), "a")

	require.NoError(t, err)
	nodes, edges := h.engine.WorkingSet()
	assert.Len(t, nodes, 1)
	assert.Empty(t, edges)
	assert.NotContains(t, h.store.Nodes, "a")
	assert.NotContains(t, h.store.Edges, "e1")
}

func TestEngine_HandleVisibility_FreshCacheRestoredWithoutRemoteTraffic(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))
	before := h.store.Calls("nodes.list")

	h.engine.HandleVisibility(context.Background(), true)

	assert.Equal(t, before, h.store.Calls("nodes.list"))
	assert.Equal(t, StateReady, h.engine.State())
}

func TestEngine_HandleVisibility_StaleCacheSchedulesRefresh(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))
	before := h.store.Calls("nodes.list")
	h.cache.SetLastFetch(time.Now().Add(-10 * time.Minute))

	h.engine.HandleVisibility(context.Background(), true)

	assert.Eventually(t, func() bool {
		return h.store.Calls("nodes.list") > before
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_HandleVisibility_SuppressedDuringReorder(t *testing.T) {
	// A refetch mid-reorder would revert the optimistic order.
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNode("N1", "a")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))
	h.cache.SetLastFetch(time.Now().Add(-10 * time.Minute))
	before := h.store.Calls("nodes.list")

	h.engine.SetReordering(true)
	h.engine.HandleVisibility(context.Background(), true)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, h.store.Calls("nodes.list"))
}

func TestEngine_RefreshNetworkList_SuppressedDuringOperation(t *testing.T) {
	h := newEngineHarness(t, DefaultOptions())
	h.start()
	defer h.engine.Close()
	h.seedNetwork("N1", 0)
	h.engine.beginOperation()
	defer h.engine.endOperation()

	err := h.engine.refreshNetworkList(context.Background())

	require.NoError(t, err)
	assert.Empty(t, h.engine.Networks())
}

func TestEngine_RefreshNetworkData_StaleNetworkReportsZero(t *testing.T) {
	// The staged refresher treats a discarded result as "no data yet", not
	// as a failure.
	h := newEngineHarness(t, DefaultOptions())
	h.seedNetwork("N1", 0)
	h.seedNetwork("N2", 1)
	h.seedNode("N2", "x")
	h.start()
	defer h.engine.Close()
	require.NoError(t, h.engine.SelectNetwork(context.Background(), "N1"))

	count, err := h.engine.RefreshNetworkData(context.Background(), "N2")

	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
