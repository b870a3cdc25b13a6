package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"comptoir/internal/availability"
	"comptoir/internal/schedule"
)

// RestaurantConfig is one restaurant of the seed catalog.
type RestaurantConfig struct {
	ID               int64               `yaml:"id"`
	Slug             string              `yaml:"slug"`
	Name             string              `yaml:"name"`
	AvailabilityMode string              `yaml:"availability_mode"`
	IsOpen           bool                `yaml:"is_open"`
	AcceptingOrders  *bool               `yaml:"accepting_orders,omitempty"`
	PlaceID          string              `yaml:"place_id,omitempty"`
	Schedule         map[string]DayHours `yaml:"schedule,omitempty"`
	Subscription     *SubscriptionSeed   `yaml:"subscription,omitempty"`
	Legacy           *LegacyBillingSeed  `yaml:"legacy_billing,omitempty"`
}

// DayHours is either the scalar "closed" or a list of "HH:MM-HH:MM" slots.
type DayHours struct {
	Closed bool
	Slots  []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DayHours) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		switch strings.ToLower(strings.TrimSpace(value.Value)) {
		case "closed", "fermé", "ferme", "":
			d.Closed = true
			return nil
		}
		d.Slots = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		return value.Decode(&d.Slots)
	default:
		return fmt.Errorf("line %d: day hours must be \"closed\" or a list of slots", value.Line)
	}
}

// SubscriptionSeed creates a primary billing row when none exists.
type SubscriptionSeed struct {
	Status    string `yaml:"status"`
	TrialEnd  string `yaml:"trial_end,omitempty"` // "2026-01-31"
	BonusDays int    `yaml:"bonus_days,omitempty"`
}

// LegacyBillingSeed sets the legacy billing columns of the restaurant.
type LegacyBillingSeed struct {
	Status     string `yaml:"status,omitempty"`
	TrialEnd   string `yaml:"trial_end,omitempty"`
	BonusWeeks int    `yaml:"bonus_weeks,omitempty"`
}

// RestaurantsConfig is the root of restaurants.yaml.
type RestaurantsConfig struct {
	Restaurants []RestaurantConfig `yaml:"restaurants"`
}

// LoadRestaurantsConfig loads and validates the seed catalog.
func LoadRestaurantsConfig(path string) (*RestaurantsConfig, error) {
	if path == "" {
		path = "configs/restaurants.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read restaurants config: %w", err)
	}

	var cfg RestaurantsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse restaurants config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate restaurants config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the catalog for errors.
func (c *RestaurantsConfig) Validate() error {
	ids := make(map[int64]bool)
	slugs := make(map[string]bool)

	for i, r := range c.Restaurants {
		if r.ID <= 0 {
			return fmt.Errorf("restaurant[%d]: id must be positive, got %d", i, r.ID)
		}
		if ids[r.ID] {
			return fmt.Errorf("restaurant[%d]: duplicate id %d", i, r.ID)
		}
		ids[r.ID] = true

		if r.Slug == "" {
			return fmt.Errorf("restaurant[%d]: slug is required", i)
		}
		if slugs[r.Slug] {
			return fmt.Errorf("restaurant[%d]: duplicate slug '%s'", i, r.Slug)
		}
		slugs[r.Slug] = true

		if r.Name == "" {
			return fmt.Errorf("restaurant[%d]: name is required", i)
		}
		if _, err := r.Mode(); err != nil {
			return fmt.Errorf("restaurant[%d]: %w", i, err)
		}
		if _, err := r.WeeklySchedule(); err != nil {
			return fmt.Errorf("restaurant[%d].schedule: %w", i, err)
		}
		if s := r.Subscription; s != nil {
			if s.Status == "" {
				return fmt.Errorf("restaurant[%d].subscription.status is required", i)
			}
			if _, err := parseDate(s.TrialEnd); err != nil {
				return fmt.Errorf("restaurant[%d].subscription.trial_end: %w", i, err)
			}
		}
		if l := r.Legacy; l != nil {
			if _, err := parseDate(l.TrialEnd); err != nil {
				return fmt.Errorf("restaurant[%d].legacy_billing.trial_end: %w", i, err)
			}
		}
	}
	return nil
}

// Mode returns the availability mode, manual when unset.
func (r RestaurantConfig) Mode() (availability.Mode, error) {
	if r.AvailabilityMode == "" {
		return availability.ModeManual, nil
	}
	return availability.ParseMode(r.AvailabilityMode)
}

// Accepting returns the order acceptance flag, true when unset.
func (r RestaurantConfig) Accepting() bool {
	return r.AcceptingOrders == nil || *r.AcceptingOrders
}

// WeeklySchedule builds the configured schedule. It returns nil when the
// restaurant has no schedule section. Days not listed are closed.
func (r RestaurantConfig) WeeklySchedule() (*schedule.WeeklySchedule, error) {
	if len(r.Schedule) == 0 {
		return nil, nil
	}
	week := schedule.NewWeekly()
	for name, hours := range r.Schedule {
		wd, _, ok := schedule.ParseDay(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown day '%s'", schedule.ErrInvalidDay, name)
		}
		day := schedule.DaySchedule{Day: wd}
		if !hours.Closed {
			for _, raw := range hours.Slots {
				s, err := schedule.ParseSlot(raw)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				day.Slots = append(day.Slots, s)
			}
			day.IsOpen = len(day.Slots) > 0
		}
		week.Set(day)
	}
	week.Normalize()
	if err := week.Validate(); err != nil {
		return nil, err
	}
	return &week, nil
}

// TrialEndTime parses the seeded primary trial end.
func (s *SubscriptionSeed) TrialEndTime() *time.Time {
	t, _ := parseDate(s.TrialEnd)
	return t
}

// TrialEndTime parses the seeded legacy trial end.
func (l *LegacyBillingSeed) TrialEndTime() *time.Time {
	t, _ := parseDate(l.TrialEnd)
	return t
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date '%s', expected YYYY-MM-DD", s)
	}
	return &t, nil
}

// GetRestaurantByID returns the restaurant config by id.
func (c *RestaurantsConfig) GetRestaurantByID(id int64) *RestaurantConfig {
	for i := range c.Restaurants {
		if c.Restaurants[i].ID == id {
			return &c.Restaurants[i]
		}
	}
	return nil
}

// String returns a summary of the catalog.
func (c *RestaurantsConfig) String() string {
	scheduled := 0
	for _, r := range c.Restaurants {
		if len(r.Schedule) > 0 {
			scheduled++
		}
	}
	return fmt.Sprintf("RestaurantsConfig: %d restaurants (%d with schedule)", len(c.Restaurants), scheduled)
}
