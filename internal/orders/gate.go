// Package orders holds the master switch for accepting new orders.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"comptoir/internal/events"
	"comptoir/internal/metrics"
)

// ErrOrdersPaused matches every *PausedError with errors.Is.
var ErrOrdersPaused = errors.New("orders paused")

// PausedReason is shown to customers when ordering is paused.
const PausedReason = "This restaurant is not accepting orders at the moment."

// Decision is the outcome of the order acceptance gate.
type Decision struct {
	CanOrder bool   `json:"can_order"`
	Reason   string `json:"reason,omitempty"`
}

// CanPlaceOrder applies the acceptance flag. The open/closed schedule is
// not consulted: a restaurant shown as open may still refuse orders.
func CanPlaceOrder(accepting bool) Decision {
	if !accepting {
		return Decision{CanOrder: false, Reason: PausedReason}
	}
	return Decision{CanOrder: true}
}

// PausedError is returned when a restaurant does not accept orders.
type PausedError struct {
	RestaurantID int64
	Reason       string
}

func (e *PausedError) Error() string {
	return e.Reason
}

// Is makes errors.Is(err, ErrOrdersPaused) hold.
func (e *PausedError) Is(target error) bool {
	return target == ErrOrdersPaused
}

// IsPaused checks if err is a PausedError.
func IsPaused(err error) bool {
	var paused *PausedError
	return errors.As(err, &paused)
}

// Store reads and writes the acceptance flag.
type Store interface {
	AcceptingOrders(ctx context.Context, restaurantID int64) (bool, error)
	SetAcceptingOrders(ctx context.Context, restaurantID int64, accepting bool) error
}

// Service exposes the gate for stored restaurants.
type Service struct {
	store  Store
	bus    *events.EventBus
	logger zerolog.Logger
}

// NewService creates a new order gate service.
func NewService(store Store, bus *events.EventBus, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "orders").Logger(),
	}
}

// Check returns the gate decision for a restaurant.
func (s *Service) Check(ctx context.Context, restaurantID int64) (Decision, error) {
	accepting, err := s.store.AcceptingOrders(ctx, restaurantID)
	if err != nil {
		return Decision{}, fmt.Errorf("load accepting flag: %w", err)
	}
	d := CanPlaceOrder(accepting)
	metrics.IncOrderGate(d.CanOrder)
	return d, nil
}

// Require returns a *PausedError when the restaurant refuses orders.
func (s *Service) Require(ctx context.Context, restaurantID int64) error {
	d, err := s.Check(ctx, restaurantID)
	if err != nil {
		return err
	}
	if !d.CanOrder {
		return &PausedError{RestaurantID: restaurantID, Reason: d.Reason}
	}
	return nil
}

// SetAccepting is the operator toggle.
func (s *Service) SetAccepting(ctx context.Context, restaurantID int64, accepting bool, actor string) error {
	if err := s.store.SetAcceptingOrders(ctx, restaurantID, accepting); err != nil {
		return err
	}

	s.logger.Info().
		Int64("restaurant_id", restaurantID).
		Bool("accepting", accepting).
		Str("actor", actor).
		Msg("order acceptance changed")

	return s.bus.Publish(events.Event{Type: events.RestaurantUpdated, RestaurantID: restaurantID, Actor: actor})
}
