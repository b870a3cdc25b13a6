package api

import (
	"fmt"
	"net/http"
	"time"

	"comptoir/internal/events"
	"comptoir/internal/export"
	"comptoir/internal/hours"
	"comptoir/internal/metrics"
	"comptoir/internal/schedule"
)

// ScheduleResponse is the body of GET /schedule.
type ScheduleResponse struct {
	RestaurantID int64 `json:"restaurant_id"`
	// Configured is false when no schedule was ever saved.
	Configured bool                   `json:"configured"`
	Days       []schedule.DaySchedule `json:"days"`
}

// DayInput is one day of a schedule update.
type DayInput struct {
	DayOfWeek *int            `json:"day_of_week"`
	IsOpen    bool            `json:"is_open"`
	Slots     []schedule.Slot `json:"slots"`
}

// PutScheduleRequest is the body of PUT /schedule. Days not listed are closed.
type PutScheduleRequest struct {
	Days  []DayInput `json:"days"`
	Actor string     `json:"actor,omitempty"`
}

// ImportHoursRequest is the body of POST /import-hours.
// Lines take precedence over PlaceID; without either the restaurant's
// stored place id is used.
type ImportHoursRequest struct {
	PlaceID string   `json:"place_id,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Actor   string   `json:"actor,omitempty"`
}

// ImportHoursResponse reports what an import stored.
type ImportHoursResponse struct {
	RestaurantID int64             `json:"restaurant_id"`
	Days         []hours.ParsedDay `json:"days"`
	Lines        []string          `json:"lines"`
	Skipped      []hours.Skip      `json:"skipped"`
}

func mondayFirst(week schedule.WeeklySchedule) []schedule.DaySchedule {
	days := make([]schedule.DaySchedule, 0, len(week))
	for _, d := range schedule.MondayFirst {
		day := week.Day(d)
		if day.Slots == nil {
			day.Slots = []schedule.Slot{}
		}
		days = append(days, day)
	}
	return days
}

// handleGetSchedule returns the stored weekly schedule, Monday first.
// GET /api/restaurants/{id}/schedule
func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_schedule")
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

	resp := ScheduleResponse{RestaurantID: id, Configured: week != nil}
	if week == nil {
		resp.Days = mondayFirst(schedule.NewWeekly())
	} else {
		resp.Days = mondayFirst(*week)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePutSchedule replaces the weekly schedule.
// PUT /api/restaurants/{id}/schedule
func (s *HTTPServer) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("put_schedule")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req PutScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	week := schedule.NewWeekly()
	seen := make(map[time.Weekday]bool, len(req.Days))
	for i, in := range req.Days {
		if in.DayOfWeek == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days[%d]: day_of_week is required", i))
			return
		}
		day, err := schedule.ValidateDay(*in.DayOfWeek)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if seen[day] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("days[%d]: %s listed twice", i, day))
			return
		}
		seen[day] = true
		week.Set(schedule.DaySchedule{Day: day, IsOpen: in.IsOpen, Slots: in.Slots})
	}
	week.Normalize()
	if err := week.Validate(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.deps.Store.SaveWeeklySchedule(r.Context(), id, week); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	actor := actorOr(req.Actor)
	s.logger.Info().Int64("restaurant_id", id).Str("actor", actor).Msg("weekly schedule saved")
	if err := s.deps.Bus.Publish(events.Event{Type: events.ScheduleUpdated, RestaurantID: id, Actor: actor}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{RestaurantID: id, Configured: true, Days: mondayFirst(week)})
}

// handleScheduleLines renders the schedule as display lines.
// GET /api/restaurants/{id}/schedule/lines?lang=fr
func (s *HTTPServer) handleScheduleLines(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_lines")
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
	if week == nil {
		empty := schedule.NewWeekly()
		week = &empty
	}
	lang := s.language(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"restaurant_id": id,
		"language":      lang,
		"lines":         hours.FormatScheduleLines(hours.FromWeekly(*week), lang),
	})
}

// handleScheduleExport downloads the schedule as a spreadsheet.
// GET /api/restaurants/{id}/schedule.xlsx
func (s *HTTPServer) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_export")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rest, err := s.deps.Store.GetRestaurant(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	week, err := s.deps.Store.WeeklySchedule(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	data, err := export.WeeklyScheduleWorkbook(rest.Name, week, s.language(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rest.Slug+"-schedule.xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImportHours replaces the schedule with hours from the places
// provider or from raw lines.
// POST /api/restaurants/{id}/import-hours
func (s *HTTPServer) handleImportHours(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("import_hours")
	id, err := restaurantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Importer == nil {
		writeError(w, http.StatusServiceUnavailable, "hours import is not configured")
		return
	}
	var req ImportHoursRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rest, err := s.deps.Store.GetRestaurant(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var report hours.Report
	switch {
	case len(req.Lines) > 0:
		report, err = s.deps.Importer.ImportLines(r.Context(), id, req.Lines, actorOr(req.Actor))
	case req.PlaceID != "":
		report, err = s.deps.Importer.Import(r.Context(), id, req.PlaceID)
	case rest.PlaceID != "":
		report, err = s.deps.Importer.Import(r.Context(), id, rest.PlaceID)
	default:
		writeError(w, http.StatusBadRequest, "place_id or lines is required")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	skipped := report.Skipped
	if skipped == nil {
		skipped = []hours.Skip{}
	}
	writeJSON(w, http.StatusOK, ImportHoursResponse{
		RestaurantID: id,
		Days:         mondayFirstParsed(report.Days),
		Lines:        hours.FormatScheduleLines(report.Days, s.language(r)),
		Skipped:      skipped,
	})
}

func mondayFirstParsed(days [7]hours.ParsedDay) []hours.ParsedDay {
	out := make([]hours.ParsedDay, 0, len(days))
	for _, d := range schedule.MondayFirst {
		day := days[d]
		if day.Slots == nil {
			day.Slots = []schedule.Slot{}
		}
		out = append(out, day)
	}
	return out
}
