package reorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"netsync/application/ports/mocks"
	"netsync/domain/core/entities"
	"netsync/pkg/observability"
)

// fakeListOwner is a minimal in-memory stand-in for the coherency engine
type fakeListOwner struct {
	networks       []*entities.Network
	reorderToggles []bool
	replaceHistory [][]*entities.Network
}

func (f *fakeListOwner) Networks() []*entities.Network {
	out := make([]*entities.Network, len(f.networks))
	copy(out, f.networks)
	return out
}

func (f *fakeListOwner) ReplaceNetworks(networks []*entities.Network) {
	f.networks = networks
	f.replaceHistory = append(f.replaceHistory, networks)
}

func (f *fakeListOwner) SetReordering(v bool) {
	f.reorderToggles = append(f.reorderToggles, v)
}

func seedNetworks(store *mocks.MockRemoteStore, owner *fakeListOwner, names ...string) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range names {
		n := &entities.Network{
			ID:        name,
			Name:      name,
			Order:     i,
			OwnerID:   "user123",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		owner.networks = append(owner.networks, n)
		clone := *n
		store.Networks[n.ID] = &clone
	}
}

func newTestController(owner *fakeListOwner, store *mocks.MockRemoteStore) *Controller {
	return NewController(owner, store.Ports().Networks, zap.NewNop(), observability.NewNopMetrics())
}

func TestController_Reorder_MoveSecondAboveFirst(t *testing.T) {
	// Arrange
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "N1", "N2")
	controller := newTestController(owner, store)

	// Act
	err := controller.Reorder(context.Background(), 1, 0)

	// Assert
	require.NoError(t, err)
	require.Len(t, owner.networks, 2)
	assert.Equal(t, "N2", owner.networks[0].ID)
	assert.Equal(t, 0, owner.networks[0].Order)
	assert.Equal(t, "N1", owner.networks[1].ID)
	assert.Equal(t, 1, owner.networks[1].Order)
	assert.Equal(t, 0, store.Networks["N2"].Order)
	assert.Equal(t, 1, store.Networks["N1"].Order)
}

func TestController_Reorder_RenumbersSequentiallyFromZero(t *testing.T) {
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "A", "B", "C", "D")
	controller := newTestController(owner, store)

	err := controller.Reorder(context.Background(), 0, 3)

	require.NoError(t, err)
	ids := make([]string, 0, 4)
	for i, n := range owner.networks {
		ids = append(ids, n.ID)
		assert.Equal(t, i, n.Order)
	}
	assert.Equal(t, []string{"B", "C", "D", "A"}, ids)
}

func TestController_Reorder_PersistenceFailureRestoresPreImage(t *testing.T) {
	// All-or-nothing: one failed row write reverts the whole list.
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "N1", "N2", "N3")
	store.FailOn("networks.update_order:N3", assert.AnError)
	controller := newTestController(owner, store)

	err := controller.Reorder(context.Background(), 2, 0)

	require.Error(t, err)
	require.Len(t, owner.networks, 3)
	assert.Equal(t, "N1", owner.networks[0].ID)
	assert.Equal(t, 0, owner.networks[0].Order)
	assert.Equal(t, "N2", owner.networks[1].ID)
	assert.Equal(t, 1, owner.networks[1].Order)
	assert.Equal(t, "N3", owner.networks[2].ID)
	assert.Equal(t, 2, owner.networks[2].Order)
}

func TestController_Reorder_GuardRaisedForTheDuration(t *testing.T) {
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "N1", "N2")
	controller := newTestController(owner, store)

	err := controller.Reorder(context.Background(), 0, 1)

	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, owner.reorderToggles)
}

func TestController_Reorder_SameIndexIsNoOp(t *testing.T) {
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "N1", "N2")
	controller := newTestController(owner, store)

	err := controller.Reorder(context.Background(), 1, 1)

	require.NoError(t, err)
	assert.Equal(t, 0, store.Calls("networks.update_order"))
	assert.Empty(t, owner.replaceHistory)
}

func TestController_Reorder_IndexOutOfRange(t *testing.T) {
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "N1", "N2")
	controller := newTestController(owner, store)

	assert.Error(t, controller.Reorder(context.Background(), -1, 0))
	assert.Error(t, controller.Reorder(context.Background(), 0, 2))
}

func TestController_Reorder_PreImageEntriesNotMutated(t *testing.T) {
	// Readers holding the old slice must never observe the new order values.
	store := mocks.NewMockRemoteStore()
	owner := &fakeListOwner{}
	seedNetworks(store, owner, "N1", "N2")
	preImage := owner.Networks()
	controller := newTestController(owner, store)

	err := controller.Reorder(context.Background(), 1, 0)

	require.NoError(t, err)
	assert.Equal(t, 0, preImage[0].Order)
	assert.Equal(t, 1, preImage[1].Order)
}
