package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"comptoir/internal/clock"
	"comptoir/internal/events"
	"comptoir/internal/metrics"
	"comptoir/internal/schedule"
)

// Settings are the operator-controlled availability fields of a restaurant.
type Settings struct {
	Mode       Mode
	ManualOpen bool
}

// Source loads the inputs of Resolve.
type Source interface {
	AvailabilitySettings(ctx context.Context, restaurantID int64) (Settings, error)
	// WeeklySchedule returns nil when the restaurant has no schedule rows.
	WeeklySchedule(ctx context.Context, restaurantID int64) (*schedule.WeeklySchedule, error)
}

type cachedState struct {
	minute time.Time
	state  State
}

// Service resolves availability for stored restaurants. Results are kept
// for the current minute and dropped when the restaurant changes.
type Service struct {
	source Source
	clock  clock.Clock
	logger zerolog.Logger

	mu    sync.Mutex
	cache map[int64]cachedState
}

// NewService creates a new availability service.
func NewService(source Source, clk clock.Clock, logger zerolog.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		source: source,
		clock:  clk,
		logger: logger.With().Str("component", "availability").Logger(),
		cache:  make(map[int64]cachedState),
	}
}

// Current returns the availability of a restaurant at the clock's now.
func (s *Service) Current(ctx context.Context, restaurantID int64) (State, error) {
	now := s.clock.Now()
	minute := now.Truncate(time.Minute)

	s.mu.Lock()
	if c, ok := s.cache[restaurantID]; ok && c.minute.Equal(minute) {
		s.mu.Unlock()
		return c.state, nil
	}
	s.mu.Unlock()

	settings, err := s.source.AvailabilitySettings(ctx, restaurantID)
	if err != nil {
		return State{}, fmt.Errorf("load availability settings: %w", err)
	}

	var week *schedule.WeeklySchedule
	if settings.Mode == ModeAuto {
		week, err = s.source.WeeklySchedule(ctx, restaurantID)
		if err != nil {
			return State{}, fmt.Errorf("load weekly schedule: %w", err)
		}
	}

	state := Resolve(settings.Mode, settings.ManualOpen, week, now)
	metrics.IncAvailabilityCheck(string(settings.Mode), state.IsOpen)
	s.logger.Debug().
		Int64("restaurant_id", restaurantID).
		Str("mode", string(settings.Mode)).
		Bool("is_open", state.IsOpen).
		Str("next_open", state.NextOpenLabel).
		Msg("availability resolved")

	s.mu.Lock()
	s.cache[restaurantID] = cachedState{minute: minute, state: state}
	s.mu.Unlock()

	return state, nil
}

// Invalidate drops the cached state of a restaurant.
func (s *Service) Invalidate(restaurantID int64) {
	s.mu.Lock()
	delete(s.cache, restaurantID)
	s.mu.Unlock()
}

// Subscribe invalidates cached states whenever a restaurant or its schedule changes.
func (s *Service) Subscribe(bus *events.EventBus) {
	handler := func(e events.Event) error {
		s.Invalidate(e.RestaurantID)
		return nil
	}
	bus.Subscribe(events.ScheduleUpdated, handler)
	bus.Subscribe(events.RestaurantUpdated, handler)
}
