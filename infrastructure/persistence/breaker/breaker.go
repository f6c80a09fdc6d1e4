// Package breaker decorates the remote-store ports with a shared circuit
// breaker. When the remote tier is failing hard, calls fail fast with a
// transport error instead of stacking timeouts. The breaker never retries:
// retry remains the caller's responsibility.
package breaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"netsync/application/ports"
	"netsync/domain/core/entities"
	pkgerrors "netsync/pkg/errors"
)

// Wrap decorates every repository of the store with one shared breaker, so
// a failing remote tier opens the circuit for all four tables at once.
func Wrap(store ports.RemoteStore, logger *zap.Logger) ports.RemoteStore {
	log := logger.Named("breaker")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "remote-store",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 10 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return ports.RemoteStore{
		Networks: &networkBreaker{inner: store.Networks, cb: cb},
		Nodes:    &nodeBreaker{inner: store.Nodes, cb: cb},
		Edges:    &edgeBreaker{inner: store.Edges, cb: cb},
		Todos:    &todoBreaker{inner: store.Todos, cb: cb},
	}
}

func execute(cb *gobreaker.CircuitBreaker, operation string, fn func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return pkgerrors.NewTransportError(operation, err)
	}
	return err
}

type networkBreaker struct {
	inner ports.NetworkRepository
	cb    *gobreaker.CircuitBreaker
}

func (b *networkBreaker) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Network, error) {
	var result []*entities.Network
	err := execute(b.cb, "networks.list", func() error {
		var err error
		result, err = b.inner.ListByOwner(ctx, ownerID)
		return err
	})
	return result, err
}

func (b *networkBreaker) Insert(ctx context.Context, network *entities.Network) error {
	return execute(b.cb, "networks.insert", func() error {
		return b.inner.Insert(ctx, network)
	})
}

func (b *networkBreaker) Update(ctx context.Context, network *entities.Network) error {
	return execute(b.cb, "networks.update", func() error {
		return b.inner.Update(ctx, network)
	})
}

func (b *networkBreaker) UpdateOrder(ctx context.Context, networkID string, order int) error {
	return execute(b.cb, "networks.update_order", func() error {
		return b.inner.UpdateOrder(ctx, networkID, order)
	})
}

func (b *networkBreaker) Delete(ctx context.Context, networkID string) error {
	return execute(b.cb, "networks.delete", func() error {
		return b.inner.Delete(ctx, networkID)
	})
}

type nodeBreaker struct {
	inner ports.NodeRepository
	cb    *gobreaker.CircuitBreaker
}

func (b *nodeBreaker) ListByNetwork(ctx context.Context, networkID string) ([]*entities.Node, error) {
	var result []*entities.Node
	err := execute(b.cb, "nodes.list", func() error {
		var err error
		result, err = b.inner.ListByNetwork(ctx, networkID)
		return err
	})
	return result, err
}

func (b *nodeBreaker) Upsert(ctx context.Context, nodes []*entities.Node) error {
	return execute(b.cb, "nodes.upsert", func() error {
		return b.inner.Upsert(ctx, nodes)
	})
}

func (b *nodeBreaker) Delete(ctx context.Context, nodeID string) error {
	return execute(b.cb, "nodes.delete", func() error {
		return b.inner.Delete(ctx, nodeID)
	})
}

func (b *nodeBreaker) DeleteByNetwork(ctx context.Context, networkID string) error {
	return execute(b.cb, "nodes.delete_by_network", func() error {
		return b.inner.DeleteByNetwork(ctx, networkID)
	})
}

type edgeBreaker struct {
	inner ports.EdgeRepository
	cb    *gobreaker.CircuitBreaker
}

func (b *edgeBreaker) ListByNetwork(ctx context.Context, networkID string) ([]*entities.Edge, error) {
	var result []*entities.Edge
	err := execute(b.cb, "edges.list", func() error {
		var err error
		result, err = b.inner.ListByNetwork(ctx, networkID)
		return err
	})
	return result, err
}

func (b *edgeBreaker) Upsert(ctx context.Context, edges []*entities.Edge) error {
	return execute(b.cb, "edges.upsert", func() error {
		return b.inner.Upsert(ctx, edges)
	})
}

func (b *edgeBreaker) Delete(ctx context.Context, edgeID string) error {
	return execute(b.cb, "edges.delete", func() error {
		return b.inner.Delete(ctx, edgeID)
	})
}

func (b *edgeBreaker) DeleteByNetwork(ctx context.Context, networkID string) error {
	return execute(b.cb, "edges.delete_by_network", func() error {
		return b.inner.DeleteByNetwork(ctx, networkID)
	})
}

type todoBreaker struct {
	inner ports.TodoRepository
	cb    *gobreaker.CircuitBreaker
}

func (b *todoBreaker) ListByNodes(ctx context.Context, nodeIDs []string) ([]*entities.Todo, error) {
	var result []*entities.Todo
	err := execute(b.cb, "todos.list", func() error {
		var err error
		result, err = b.inner.ListByNodes(ctx, nodeIDs)
		return err
	})
	return result, err
}

func (b *todoBreaker) Insert(ctx context.Context, todo *entities.Todo) error {
	return execute(b.cb, "todos.insert", func() error {
		return b.inner.Insert(ctx, todo)
	})
}

func (b *todoBreaker) SetCompleted(ctx context.Context, todoID string, completed bool) error {
	return execute(b.cb, "todos.set_completed", func() error {
		return b.inner.SetCompleted(ctx, todoID, completed)
	})
}

func (b *todoBreaker) Delete(ctx context.Context, todoID string) error {
	return execute(b.cb, "todos.delete", func() error {
		return b.inner.Delete(ctx, todoID)
	})
}

func (b *todoBreaker) DeleteByNodes(ctx context.Context, nodeIDs []string) error {
	return execute(b.cb, "todos.delete_by_nodes", func() error {
		return b.inner.DeleteByNodes(ctx, nodeIDs)
	})
}
