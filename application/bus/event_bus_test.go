package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"netsync/domain/events"
)

func TestEventBus_Publish_DeliversInRegistrationOrder(t *testing.T) {
	// Arrange
	b := NewEventBus(zap.NewNop())
	var order []string
	b.Subscribe(events.NetworkCreated, func(events.Signal) { order = append(order, "first") })
	b.Subscribe(events.NetworkCreated, func(events.Signal) { order = append(order, "second") })
	b.Subscribe(events.NetworkCreated, func(events.Signal) { order = append(order, "third") })

	// Act
	b.Publish(events.NewNetworkCreated("n1", false, "test"))

	// Assert
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEventBus_Publish_AtMostOncePerListener(t *testing.T) {
	b := NewEventBus(zap.NewNop())
	count := 0
	b.Subscribe(events.NodeAdded, func(events.Signal) { count++ })

	b.Publish(events.NewNodeAdded("n1", "node1"))

	assert.Equal(t, 1, count)
}

func TestEventBus_Publish_OnlyMatchingSignalName(t *testing.T) {
	b := NewEventBus(zap.NewNop())
	count := 0
	b.Subscribe(events.NetworkDeleted, func(events.Signal) { count++ })

	b.Publish(events.NewNetworkCreated("n1", false, "test"))

	assert.Equal(t, 0, count)
}

func TestEventBus_Subscribe_LateListenerMissesEarlierSignals(t *testing.T) {
	// No persistence or replay: a listener registered after the signal
	// fired must never see it.
	b := NewEventBus(zap.NewNop())
	b.Publish(events.NewNetworkCreated("n1", false, "test"))

	count := 0
	b.Subscribe(events.NetworkCreated, func(events.Signal) { count++ })

	assert.Equal(t, 0, count)
}

func TestEventBus_Unsubscribe_StopsDelivery(t *testing.T) {
	b := NewEventBus(zap.NewNop())
	count := 0
	unsubscribe := b.Subscribe(events.NetworkRenamed, func(events.Signal) { count++ })

	b.Publish(events.NewNetworkRenamed("n1", "one"))
	unsubscribe()
	b.Publish(events.NewNetworkRenamed("n1", "two"))

	assert.Equal(t, 1, count)
}

func TestEventBus_Unsubscribe_OtherListenersUnaffected(t *testing.T) {
	b := NewEventBus(zap.NewNop())
	var survived int
	unsubscribe := b.Subscribe(events.NetworkRenamed, func(events.Signal) {})
	b.Subscribe(events.NetworkRenamed, func(events.Signal) { survived++ })
	unsubscribe()

	b.Publish(events.NewNetworkRenamed("n1", "new"))

	assert.Equal(t, 1, survived)
}

func TestEventBus_Publish_PanickingListenerDoesNotStarveOthers(t *testing.T) {
	b := NewEventBus(zap.NewNop())
	delivered := false
	b.Subscribe(events.ForceNetworkDataRefresh, func(events.Signal) { panic("listener bug") })
	b.Subscribe(events.ForceNetworkDataRefresh, func(events.Signal) { delivered = true })

	b.Publish(events.NewForceDataRefresh("n1"))

	assert.True(t, delivered)
}

func TestEventBus_Publish_PayloadReachesListener(t *testing.T) {
	b := NewEventBus(zap.NewNop())
	var got events.ForceNetworkUpdateSignal
	b.Subscribe(events.ForceNetworkUpdate, func(s events.Signal) {
		got = s.(events.ForceNetworkUpdateSignal)
	})

	b.Publish(events.NewForceNetworkUpdate("n1", "Renamed", true))

	assert.Equal(t, "n1", got.NetworkID)
	assert.Equal(t, "Renamed", got.NewName)
	assert.True(t, got.ForceServerRefresh)
}
