// Package refresher retries working-set refreshes after bulk generation.
// Generation writes land through a separate pipeline and read replicas can
// lag behind them, so the first fetches may legitimately come back empty.
package refresher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"netsync/application/bus"
	"netsync/application/ports"
	"netsync/domain/events"
	pkgerrors "netsync/pkg/errors"
	"netsync/pkg/observability"
)

// Policy is the staged retry contract, separated from timers so it is
// testable in isolation.
type Policy struct {
	// Delays holds the pause before each attempt; its length is the number
	// of attempts.
	Delays []time.Duration

	// ClearCacheBeforeAttempt names the 1-based attempt before which the
	// local cache entry is cleared, so a stale cached copy cannot mask
	// freshly replicated data.
	ClearCacheBeforeAttempt int
}

// DefaultPolicy returns the production schedule: four escalating attempts
// at roughly 0ms, 500ms, 1500ms and 3000ms cumulative, cache cleared before
// the third.
func DefaultPolicy() Policy {
	return Policy{
		Delays: []time.Duration{
			0,
			500 * time.Millisecond,
			1000 * time.Millisecond,
			1500 * time.Millisecond,
		},
		ClearCacheBeforeAttempt: 3,
	}
}

// DataRefresher is the slice of the coherency engine the refresher drives
type DataRefresher interface {
	RefreshNetworkData(ctx context.Context, networkID string) (nodeCount int, err error)
}

// Refresher listens for generation-complete signals and runs the staged
// refresh sequence. It does not loop indefinitely: when the final attempt
// still observes no data it persists the reload-recommended flag and stops.
type Refresher struct {
	refresher DataRefresher
	cache     ports.PersistentCache
	bus       *bus.EventBus
	policy    Policy
	logger    *zap.Logger
	metrics   *observability.Metrics

	// sleep is swapped out by tests
	sleep func(d time.Duration)

	// notify surfaces one error per sequence, never one per attempt
	notify func(err error)

	unsubscribe bus.UnsubscribeFunc
}

// NewRefresher creates a refresher. notify may be nil.
func NewRefresher(
	refresher DataRefresher,
	cache ports.PersistentCache,
	eventBus *bus.EventBus,
	policy Policy,
	logger *zap.Logger,
	metrics *observability.Metrics,
	notify func(err error),
) *Refresher {
	return &Refresher{
		refresher: refresher,
		cache:     cache,
		bus:       eventBus,
		policy:    policy,
		logger:    logger.Named("refresher"),
		metrics:   metrics,
		sleep:     time.Sleep,
		notify:    notify,
	}
}

// Attach subscribes to network-generation-complete
func (r *Refresher) Attach() {
	r.unsubscribe = r.bus.Subscribe(events.NetworkGenerationComplete, func(signal events.Signal) {
		s, ok := signal.(events.GenerationCompleteSignal)
		if !ok {
			return
		}
		go func() {
			if err := r.Run(context.Background(), s.NetworkID); err != nil {
				r.logger.Warn("staged refresh gave up",
					zap.String("networkID", s.NetworkID), zap.Error(err))
			}
		}()
	})
}

// Detach removes the subscription
func (r *Refresher) Detach() {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

// Run executes the staged refresh sequence for networkID. It returns nil as
// soon as an attempt observes non-empty data. When every attempt comes back
// empty or failing, it persists the reload-recommended flag and returns the
// last error (or a timeout-flavored terminal error when attempts merely saw
// no data).
func (r *Refresher) Run(ctx context.Context, networkID string) error {
	var lastErr error

	for i, delay := range r.policy.Delays {
		attempt := i + 1
		if delay > 0 {
			r.sleep(delay)
		}
		if attempt == r.policy.ClearCacheBeforeAttempt {
			// Presumed replication lag: drop the local copy so the next
			// fetch cannot be satisfied by stale cached data.
			r.cache.ClearWorkingSet(networkID)
		}

		r.metrics.RefreshAttempts.Inc()
		count, err := r.refresher.RefreshNetworkData(ctx, networkID)
		if err != nil {
			lastErr = err
			r.logger.Debug("refresh attempt failed",
				zap.String("networkID", networkID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if count > 0 {
			r.logger.Info("generation data observed",
				zap.String("networkID", networkID),
				zap.Int("attempt", attempt),
				zap.Int("nodes", count),
			)
			return nil
		}
	}

	r.cache.SetReloadRecommended(true)
	if lastErr == nil {
		lastErr = pkgerrors.NewTimeoutError("post-generation refresh")
	}
	if r.notify != nil {
		r.notify(lastErr)
	}
	return lastErr
}
