package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"comptoir/internal/clock"
	"comptoir/internal/metrics"
)

// ErrSourceUnavailable means a billing read failed. The caller may retry;
// a failed read is never treated as a missing row.
var ErrSourceUnavailable = errors.New("billing source unavailable")

// Store reads both billing systems. Both methods return nil, nil when
// there is no row.
type Store interface {
	LatestSubscription(ctx context.Context, restaurantID int64) (*Record, error)
	LegacyBilling(ctx context.Context, restaurantID int64) (*LegacyBilling, error)
}

// Service resolves access decisions for stored restaurants.
type Service struct {
	store  Store
	clock  clock.Clock
	opts   Options
	logger zerolog.Logger
}

// NewService creates a new access resolver.
func NewService(store Store, clk clock.Clock, opts Options, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		store:  store,
		clock:  clk,
		opts:   opts,
		logger: logger.With().Str("component", "subscription").Logger(),
	}
}

// Resolve reads both billing systems concurrently and decides once both
// reads have completed. Nothing is cached between calls.
func (s *Service) Resolve(ctx context.Context, restaurantID int64) (Decision, error) {
	var (
		primary *Record
		legacy  *LegacyBilling
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.store.LatestSubscription(gctx, restaurantID)
		if err != nil {
			return fmt.Errorf("latest subscription: %w", err)
		}
		primary = r
		return nil
	})
	g.Go(func() error {
		b, err := s.store.LegacyBilling(gctx, restaurantID)
		if err != nil {
			return fmt.Errorf("legacy billing: %w", err)
		}
		legacy = b
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Int64("restaurant_id", restaurantID).Msg("billing read failed")
		return Decision{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	// The caller went away; its answer is no longer wanted.
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	d := Evaluate(Select(primary, legacy), s.clock.Now(), s.opts)
	metrics.IncAccessDecision(d.Outcome.String())
	s.logger.Debug().
		Int64("restaurant_id", restaurantID).
		Str("source", d.Source).
		Str("outcome", d.Outcome.String()).
		Int("days_left", d.DaysLeft).
		Msg("access resolved")
	return d, nil
}
