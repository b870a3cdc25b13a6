package hours

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"comptoir/internal/events"
	"comptoir/internal/metrics"
	"comptoir/internal/schedule"
)

var (
	// ErrNothingParsed is returned when no input line named a known day.
	ErrNothingParsed = errors.New("no weekday lines recognised")
	// ErrNoLookup is returned by Import when no place lookup is configured.
	ErrNoLookup = errors.New("place lookup is not configured")
)

// PlaceLookup fetches the weekday text of a place listing.
type PlaceLookup interface {
	WeekdayText(ctx context.Context, placeID string) ([]string, error)
}

// ScheduleWriter persists a restaurant's weekly schedule.
type ScheduleWriter interface {
	SaveWeeklySchedule(ctx context.Context, restaurantID int64, week schedule.WeeklySchedule) error
}

// Importer replaces stored schedules with hours read from place listings.
type Importer struct {
	places PlaceLookup
	store  ScheduleWriter
	bus    *events.EventBus
	logger zerolog.Logger
}

// NewImporter creates an importer. places may be nil when only ImportLines is used.
func NewImporter(places PlaceLookup, store ScheduleWriter, bus *events.EventBus, logger zerolog.Logger) *Importer {
	return &Importer{
		places: places,
		store:  store,
		bus:    bus,
		logger: logger.With().Str("component", "hours_import").Logger(),
	}
}

// Import fetches the listing of placeID and stores it as the schedule of restaurantID.
func (im *Importer) Import(ctx context.Context, restaurantID int64, placeID string) (Report, error) {
	if im.places == nil {
		return Report{}, ErrNoLookup
	}
	lines, err := im.places.WeekdayText(ctx, placeID)
	if err != nil {
		return Report{}, fmt.Errorf("fetch place hours: %w", err)
	}
	return im.ImportLines(ctx, restaurantID, lines, "import:"+placeID)
}

// ImportLines parses lines and stores the result as the schedule of restaurantID.
func (im *Importer) ImportLines(ctx context.Context, restaurantID int64, lines []string, actor string) (Report, error) {
	report := Parse(lines)
	recordSkips(report.Skipped)
	for _, skip := range report.Skipped {
		im.logger.Warn().
			Int64("restaurant_id", restaurantID).
			Str("kind", string(skip.Kind)).
			Str("line", skip.Line).
			Str("detail", skip.Detail).
			Msg("hours input skipped")
	}
	if report.Language == "" {
		return report, ErrNothingParsed
	}

	week := ToWeekly(report.Days)
	if err := week.Validate(); err != nil {
		return report, fmt.Errorf("imported hours: %w", err)
	}
	if err := im.store.SaveWeeklySchedule(ctx, restaurantID, week); err != nil {
		return report, fmt.Errorf("save schedule: %w", err)
	}

	im.logger.Info().
		Int64("restaurant_id", restaurantID).
		Str("actor", actor).
		Int("skipped", len(report.Skipped)).
		Msg("weekly schedule imported")

	return report, im.bus.Publish(events.Event{Type: events.ScheduleUpdated, RestaurantID: restaurantID, Actor: actor})
}

func recordSkips(skips []Skip) {
	counts := make(map[SkipKind]int)
	for _, s := range skips {
		counts[s.Kind]++
	}
	for kind, n := range counts {
		metrics.AddHoursSkipped(string(kind), n)
	}
}
