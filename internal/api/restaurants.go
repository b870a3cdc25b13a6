package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"comptoir/internal/availability"
	"comptoir/internal/events"
	"comptoir/internal/hours"
	"comptoir/internal/metrics"
	"comptoir/internal/orders"
	"comptoir/internal/places"
	"comptoir/internal/schedule"
	"comptoir/internal/slots"
	"comptoir/internal/store"
	"comptoir/internal/subscription"
)

func restaurantID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid restaurant id %q", r.PathValue("id"))
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeServiceError maps domain errors to status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *places.StatusError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "restaurant not found")
	case errors.Is(err, schedule.ErrInvalidTime), errors.Is(err, schedule.ErrInvalidDay), errors.Is(err, schedule.ErrOverlap):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, hours.ErrNothingParsed), errors.Is(err, places.ErrNoHours), errors.Is(err, places.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, subscription.ErrSourceUnavailable), errors.Is(err, hours.ErrNoLookup):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstream):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) language(r *http.Request) schedule.Language {
	switch schedule.Language(r.URL.Query().Get("lang")) {
	case schedule.English:
		return schedule.English
	case schedule.French:
		return schedule.French
	default:
		return s.deps.Language
	}
}

// handleListRestaurants returns every stored restaurant.
// GET /api/restaurants
func (s *HTTPServer) handleListRestaurants(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("restaurants")
	list, err := s.deps.Store.ListRestaurants(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []store.Restaurant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"restaurants": list})
}

// AvailabilityResponse is the body of GET /availability.
type AvailabilityResponse struct {
	RestaurantID int64 `json:"restaurant_id"`
	availability.State
}

// handleAvailability returns whether the restaurant is open now.
// GET /api/restaurants/{id}/availability
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state, err := s.deps.Availability.Current(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{RestaurantID: id, State: state})
}

// PickupGroup is one labelled group of pickup times.
type PickupGroup struct {
	slots.Group
	Slots []slots.SlotInfo `json:"slots"`
}

// PickupSlotsResponse is the body of GET /pickup-slots.
type PickupSlotsResponse struct {
	RestaurantID int64         `json:"restaurant_id"`
	Groups       []PickupGroup `json:"groups"`
	Count        int           `json:"count"`
}

// handlePickupSlots returns the pickup times a customer can choose now.
// GET /api/restaurants/{id}/pickup-slots
func (s *HTTPServer) handlePickupSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("pickup_slots")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.deps.Store.GetRestaurant(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	week, err := s.deps.Store.WeeklySchedule(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := PickupSlotsResponse{RestaurantID: id, Groups: []PickupGroup{}}
	if week != nil {
		groups := s.deps.Slots.Offer(s.deps.Clock.Now(), *week)
		for _, g := range groups {
			resp.Groups = append(resp.Groups, PickupGroup{Group: g, Slots: slots.ToSlotInfo(g.Slots)})
		}
		resp.Count = slots.Count(groups)
	}
	metrics.ObservePickupSlots(resp.Count)
	writeJSON(w, http.StatusOK, resp)
}

// OrderGateResponse is the body of the order gate routes.
type OrderGateResponse struct {
	RestaurantID int64 `json:"restaurant_id"`
	orders.Decision
}

// handleOrderGate tells whether new orders may be created.
// GET /api/restaurants/{id}/order-gate
func (s *HTTPServer) handleOrderGate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("order_gate")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := s.deps.Orders.Check(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderGateResponse{RestaurantID: id, Decision: d})
}

// SetAcceptingRequest is the body of PUT /accepting-orders.
type SetAcceptingRequest struct {
	Accepting *bool  `json:"accepting"`
	Actor     string `json:"actor,omitempty"`
}

// handleSetAccepting is the operator's master switch.
// PUT /api/restaurants/{id}/accepting-orders
func (s *HTTPServer) handleSetAccepting(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_accepting")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req SetAcceptingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Accepting == nil {
		writeError(w, http.StatusBadRequest, "accepting is required")
		return
	}
	if err := s.deps.Orders.SetAccepting(r.Context(), id, *req.Accepting, actorOr(req.Actor)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrderGateResponse{RestaurantID: id, Decision: orders.CanPlaceOrder(*req.Accepting)})
}

// SetModeRequest is the body of PUT /availability-mode.
type SetModeRequest struct {
	Mode string `json:"mode"`
	// IsOpen is the manual flag; the stored value is kept when omitted.
	IsOpen *bool  `json:"is_open,omitempty"`
	Actor  string `json:"actor,omitempty"`
}

// handleSetAvailabilityMode switches between always, manual and auto.
// PUT /api/restaurants/{id}/availability-mode
func (s *HTTPServer) handleSetAvailabilityMode(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("set_availability_mode")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req SetModeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, err := availability.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rest, err := s.deps.Store.GetRestaurant(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	manualOpen := rest.IsOpen
	if req.IsOpen != nil {
		manualOpen = *req.IsOpen
	}
	if err := s.deps.Store.SetAvailabilityMode(r.Context(), id, mode, manualOpen); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info().Int64("restaurant_id", id).Str("mode", string(mode)).Bool("is_open", manualOpen).
		Str("actor", actorOr(req.Actor)).Msg("availability mode changed")
	if err := s.deps.Bus.Publish(events.Event{Type: events.RestaurantUpdated, RestaurantID: id, Actor: actorOr(req.Actor)}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	state, err := s.deps.Availability.Current(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{RestaurantID: id, State: state})
}

// handleAccess resolves the dashboard access decision.
// GET /api/restaurants/{id}/access
func (s *HTTPServer) handleAccess(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("access")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.deps.Store.GetRestaurant(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	d, err := s.deps.Access.Resolve(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		RestaurantID int64 `json:"restaurant_id"`
		subscription.Decision
	}{id, d})
}

func actorOr(actor string) string {
	if actor == "" {
		return "api"
	}
	return actor
}
