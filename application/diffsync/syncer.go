package diffsync

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"netsync/application/ports"
	"netsync/domain/core/entities"
	"netsync/pkg/observability"
)

// Syncer pushes working-set changes through to the remote store and fetches
// edges with handle repair.
type Syncer struct {
	store   ports.RemoteStore
	logger  *zap.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	// outstanding repair write-backs, waited on by Flush
	repairs sync.WaitGroup
}

// NewSyncer creates a syncer over the remote store
func NewSyncer(store ports.RemoteStore, logger *zap.Logger, metrics *observability.Metrics) *Syncer {
	return &Syncer{
		store:   store,
		logger:  logger.Named("diffsync"),
		metrics: metrics,
		tracer:  otel.Tracer("netsync.diffsync"),
	}
}

// Push upserts only the rows of the working set that differ from the last
// known remote snapshot. Returns the deltas it wrote so the caller can fold
// them into its snapshot on success.
func (s *Syncer) Push(
	ctx context.Context,
	nodes, lastKnownNodes []*entities.Node,
	edges, lastKnownEdges []*entities.Edge,
) (nodeDelta []*entities.Node, edgeDelta []*entities.Edge, err error) {
	ctx, span := s.tracer.Start(ctx, "Syncer.Push")
	defer span.End()

	nodeDelta = NodeDelta(nodes, lastKnownNodes)
	edgeDelta = EdgeDelta(edges, lastKnownEdges)
	span.SetAttributes(
		attribute.Int("nodes.delta", len(nodeDelta)),
		attribute.Int("edges.delta", len(edgeDelta)),
	)

	if len(nodeDelta) > 0 {
		if err := s.store.Nodes.Upsert(ctx, nodeDelta); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "node upsert failed")
			return nil, nil, err
		}
		s.metrics.NodesUpserted.Add(float64(len(nodeDelta)))
	}
	if len(edgeDelta) > 0 {
		if err := s.store.Edges.Upsert(ctx, edgeDelta); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "edge upsert failed")
			return nil, nil, err
		}
		s.metrics.EdgesUpserted.Add(float64(len(edgeDelta)))
	}

	s.logger.Debug("pushed working set delta",
		zap.Int("nodes", len(nodeDelta)),
		zap.Int("edges", len(edgeDelta)),
	)
	return nodeDelta, edgeDelta, nil
}

// FetchEdges retrieves a network's edges and enforces the handle role-tag
// invariant on each. A violating edge is corrected in place, each bad
// endpoint falling back to its canonical handle, and the correction written
// back exactly once, asynchronously. An edge still invalid after repair is
// dropped rather than rendered with dangling connector points.
func (s *Syncer) FetchEdges(ctx context.Context, networkID string) ([]*entities.Edge, error) {
	ctx, span := s.tracer.Start(ctx, "Syncer.FetchEdges",
		trace.WithAttributes(attribute.String("network.id", networkID)),
	)
	defer span.End()

	fetched, err := s.store.Edges.ListByNetwork(ctx, networkID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "edge list failed")
		return nil, err
	}

	edges := make([]*entities.Edge, 0, len(fetched))
	var repairedEdges []*entities.Edge
	for _, e := range fetched {
		repaired, usable := e.RepairHandles()
		if !usable {
			s.metrics.EdgesDropped.Inc()
			s.logger.Warn("dropping edge with unrepairable handles",
				zap.String("edgeID", e.ID),
				zap.String("networkID", networkID),
			)
			continue
		}
		if repaired {
			s.metrics.HandleRepairs.Inc()
			repairedEdges = append(repairedEdges, e)
		}
		edges = append(edges, e)
	}

	span.SetAttributes(
		attribute.Int("edges.count", len(edges)),
		attribute.Int("edges.repaired", len(repairedEdges)),
	)
	if len(repairedEdges) > 0 {
		s.writeBackRepairs(repairedEdges)
	}
	return edges, nil
}

// writeBackRepairs persists handle corrections fire-and-forget. A failure is
// logged, not retried: the in-memory copy is already corrected and usable.
func (s *Syncer) writeBackRepairs(edges []*entities.Edge) {
	s.repairs.Add(1)
	go func() {
		defer s.repairs.Done()
		if err := s.store.Edges.Upsert(context.Background(), edges); err != nil {
			s.logger.Warn("failed to persist handle repairs",
				zap.Int("edges", len(edges)),
				zap.Error(err),
			)
		}
	}()
}

// Flush waits for outstanding repair write-backs. Called on shutdown and by
// tests that assert on write-back behavior.
func (s *Syncer) Flush() {
	s.repairs.Wait()
}
