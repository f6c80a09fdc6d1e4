// Package diffsync computes the minimal set of rows that must be written
// through to the remote store, and repairs structurally invalid edge records
// on the way in.
package diffsync

import (
	"netsync/domain/core/entities"
)

// PositionTolerance is the per-axis movement below which a node is treated
// as unchanged. Drag events produce floating-point jitter well under one
// canvas unit; upserting on it would flood the remote store.
const PositionTolerance = 1.0

// NodeDelta returns the nodes of inMemory that must be upserted: nodes
// absent from the last known remote snapshot, nodes whose position moved
// beyond the tolerance, and nodes whose name, kind or color changed.
func NodeDelta(inMemory, lastKnownRemote []*entities.Node) []*entities.Node {
	remote := make(map[string]*entities.Node, len(lastKnownRemote))
	for _, n := range lastKnownRemote {
		remote[n.ID] = n
	}

	var delta []*entities.Node
	for _, n := range inMemory {
		prev, ok := remote[n.ID]
		if !ok {
			delta = append(delta, n)
			continue
		}
		if n.Position.MovedBeyond(prev.Position, PositionTolerance) ||
			n.Name != prev.Name ||
			n.Kind != prev.Kind ||
			n.Color != prev.Color {
			delta = append(delta, n)
		}
	}
	return delta
}

// EdgeDelta returns the edges of inMemory absent from the last known remote
// snapshot. Edges are append-mostly: edits beyond creation are rare and go
// through a full replace, so presence by id is the only check.
func EdgeDelta(inMemory, lastKnownRemote []*entities.Edge) []*entities.Edge {
	remote := make(map[string]struct{}, len(lastKnownRemote))
	for _, e := range lastKnownRemote {
		remote[e.ID] = struct{}{}
	}

	var delta []*entities.Edge
	for _, e := range inMemory {
		if _, ok := remote[e.ID]; !ok {
			delta = append(delta, e)
		}
	}
	return delta
}
