// Package reorder implements optimistic drag-reorder of the network list:
// immediate in-memory commit, sequential re-indexing, per-row persistence,
// and full rollback on any failure.
package reorder

import (
	"context"

	"go.uber.org/zap"

	"netsync/application/ports"
	"netsync/domain/core/entities"
	pkgerrors "netsync/pkg/errors"
	"netsync/pkg/observability"
)

// ListOwner is the slice of the coherency engine the controller needs: the
// current list, wholesale replacement, and the guard that keeps refetches
// from reverting an optimistic order mid-commit.
type ListOwner interface {
	Networks() []*entities.Network
	ReplaceNetworks(networks []*entities.Network)
	SetReordering(v bool)
}

// Controller drives list reorders
type Controller struct {
	list    ListOwner
	repo    ports.NetworkRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewController creates a reorder controller
func NewController(list ListOwner, repo ports.NetworkRepository, logger *zap.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		list:    list,
		repo:    repo,
		logger:  logger.Named("reorder"),
		metrics: metrics,
	}
}

// Reorder moves the network at fromIndex to toIndex, renumbers the whole
// list sequentially from 0, commits the new order in memory immediately,
// then persists each row. Reorder is all-or-nothing from the user's
// perspective: if any per-row write fails, the captured pre-image is
// restored exactly and one error is surfaced; partial writes are not
// retried individually.
func (c *Controller) Reorder(ctx context.Context, fromIndex, toIndex int) error {
	preImage := c.list.Networks()
	n := len(preImage)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return pkgerrors.NewValidationError("reorder index out of range")
	}
	if fromIndex == toIndex {
		return nil
	}

	c.list.SetReordering(true)
	defer c.list.SetReordering(false)

	// Remove, reinsert, renumber. Entries are cloned so readers holding the
	// pre-image never observe a mutated order.
	working := make([]*entities.Network, 0, n)
	working = append(working, preImage[:fromIndex]...)
	working = append(working, preImage[fromIndex+1:]...)

	moved := preImage[fromIndex]
	working = append(working[:toIndex], append([]*entities.Network{moved}, working[toIndex:]...)...)

	next := make([]*entities.Network, n)
	for i, network := range working {
		clone := *network
		clone.Order = i
		next[i] = &clone
	}

	c.list.ReplaceNetworks(next)

	for _, network := range next {
		if err := c.repo.UpdateOrder(ctx, network.ID, network.Order); err != nil {
			c.metrics.ReorderRollbacks.Inc()
			c.list.ReplaceNetworks(preImage)
			c.logger.Warn("reorder persistence failed, rolled back",
				zap.String("networkID", network.ID),
				zap.Int("order", network.Order),
				zap.Error(err),
			)
			return pkgerrors.Wrap(err, "persist reorder")
		}
	}

	c.logger.Debug("list reordered",
		zap.Int("from", fromIndex),
		zap.Int("to", toIndex),
	)
	return nil
}
