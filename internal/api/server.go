// Package api exposes availability, pickup slots, the order gate, schedules
// and dashboard access over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"comptoir/internal/availability"
	"comptoir/internal/clock"
	"comptoir/internal/events"
	"comptoir/internal/hours"
	"comptoir/internal/orders"
	"comptoir/internal/schedule"
	"comptoir/internal/slots"
	"comptoir/internal/store"
	"comptoir/internal/subscription"
)

// Store is the persistence the handlers use directly.
type Store interface {
	GetRestaurant(ctx context.Context, id int64) (*store.Restaurant, error)
	ListRestaurants(ctx context.Context) ([]store.Restaurant, error)
	WeeklySchedule(ctx context.Context, restaurantID int64) (*schedule.WeeklySchedule, error)
	SaveWeeklySchedule(ctx context.Context, restaurantID int64, week schedule.WeeklySchedule) error
	SetAvailabilityMode(ctx context.Context, restaurantID int64, mode availability.Mode, manualOpen bool) error
}

// Deps are the services behind the routes.
type Deps struct {
	Store        Store
	Availability *availability.Service
	Orders       *orders.Service
	Importer     *hours.Importer
	Access       *subscription.Service
	Slots        *slots.Generator
	Clock        clock.Clock
	Bus          *events.EventBus
	// Language of day names in schedule lines and exports.
	Language schedule.Language
}

// Options configure the listener and the route guards.
type Options struct {
	Port int
	// APIKey guards operator routes when set.
	APIKey string
	// RequestsPerMinute limits public routes per client address; 0 disables it.
	RequestsPerMinute int
}

// HTTPServer serves the JSON API.
type HTTPServer struct {
	deps    Deps
	opts    Options
	logger  zerolog.Logger
	limiter *clientLimiter
	server  *http.Server
}

// NewHTTPServer wires routes and middleware.
func NewHTTPServer(opts Options, deps Deps, logger zerolog.Logger) *HTTPServer {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Slots == nil {
		deps.Slots = slots.NewGenerator(slots.DefaultConfig())
	}
	if deps.Language == "" {
		deps.Language = schedule.English
	}

	s := &HTTPServer{
		deps:   deps,
		opts:   opts,
		logger: logger.With().Str("component", "api").Logger(),
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = newClientLimiter(opts.RequestsPerMinute)
	}

	mux := http.NewServeMux()
	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.rateLimit(h))
	}
	operator := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireAPIKey(h))
	}

	public("GET /api/restaurants/{id}/availability", s.handleAvailability)
	public("GET /api/restaurants/{id}/pickup-slots", s.handlePickupSlots)
	public("GET /api/restaurants/{id}/order-gate", s.handleOrderGate)

	operator("GET /api/restaurants", s.handleListRestaurants)
	operator("PUT /api/restaurants/{id}/accepting-orders", s.handleSetAccepting)
	operator("PUT /api/restaurants/{id}/availability-mode", s.handleSetAvailabilityMode)
	operator("GET /api/restaurants/{id}/schedule", s.handleGetSchedule)
	operator("PUT /api/restaurants/{id}/schedule", s.handlePutSchedule)
	operator("GET /api/restaurants/{id}/schedule/lines", s.handleScheduleLines)
	operator("GET /api/restaurants/{id}/schedule.xlsx", s.handleScheduleExport)
	operator("POST /api/restaurants/{id}/import-hours", s.handleImportHours)
	operator("GET /api/restaurants/{id}/access", s.handleAccess)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.withRequestID(s.accessLog(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start listens until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
