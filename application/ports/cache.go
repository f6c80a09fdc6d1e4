package ports

import (
	"time"

	"netsync/domain/core/entities"
)

// PersistentCache is the local durable tier keyed by entity kind and network
// id. Reads never fail: a malformed entry is logged by the implementation
// and reported as a miss. Writes are synchronous and block the caller, so
// callers save only on settle events, never per fine-grained change.
type PersistentCache interface {
	// LoadWorkingSet returns the cached nodes and edges of a network, or
	// ok=false on a miss (including corrupt entries)
	LoadWorkingSet(networkID string) (nodes []*entities.Node, edges []*entities.Edge, ok bool)

	// SaveWorkingSet stores a point-in-time copy of a network's nodes and
	// edges. Idempotent, fire-and-forget.
	SaveWorkingSet(networkID string, nodes []*entities.Node, edges []*entities.Edge)

	// ClearWorkingSet removes the cached nodes and edges of a network
	ClearWorkingSet(networkID string)

	// LoadNetworks returns the cached network list, or ok=false on a miss
	LoadNetworks() (networks []*entities.Network, ok bool)

	// SaveNetworks stores the network list
	SaveNetworks(networks []*entities.Network)

	// CurrentNetworkID returns the persisted selection, empty when unset
	CurrentNetworkID() string

	// SetCurrentNetworkID persists the selection
	SetCurrentNetworkID(networkID string)

	// LastFetch returns the timestamp of the last successful remote fetch,
	// zero when never recorded
	LastFetch() time.Time

	// SetLastFetch records a successful remote fetch
	SetLastFetch(t time.Time)

	// ReloadRecommended reports whether the refresher gave up and flagged a
	// full reload
	ReloadRecommended() bool

	// SetReloadRecommended persists the reload-recommended flag
	SetReloadRecommended(v bool)
}
