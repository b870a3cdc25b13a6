package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"comptoir/internal/schedule"
)

// DefaultPath is used when no path is given and COMPTOIR_CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

type Config struct {
	HTTP struct {
		Port   int    `yaml:"port"`
		APIKey string `yaml:"api_key"`
		// RequestsPerMinute limits public routes per client address; 0 disables it.
		RequestsPerMinute int `yaml:"requests_per_minute"`
	} `yaml:"http"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Places struct {
		Enabled         bool    `yaml:"enabled"`
		BaseURL         string  `yaml:"base_url"`
		APIKey          string  `yaml:"api_key"`
		Language        string  `yaml:"language"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		Burst           int     `yaml:"burst"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
	} `yaml:"places"`

	Pickup struct {
		StepMinutes        int    `yaml:"step_minutes"`
		CloseMarginMinutes int    `yaml:"close_margin_minutes"`
		MinLeadMinutes     int    `yaml:"min_lead_minutes"`
		EveningBoundary    string `yaml:"evening_boundary"`
		HorizonDays        int    `yaml:"horizon_days"`
	} `yaml:"pickup"`

	Subscription struct {
		UrgentDays       int    `yaml:"urgent_days"`
		BillingPortalURL string `yaml:"billing_portal_url"`
		ChoosePlanPath   string `yaml:"choose_plan_path"`
		ReactivatePath   string `yaml:"reactivate_path"`
	} `yaml:"subscription"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Timezone        string `yaml:"timezone"`
	RestaurantsPath string `yaml:"restaurants_path"`

	location *time.Location
}

// Load reads the YAML file at path, expanding ${ENV_VAR} placeholders.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("COMPTOIR_CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/comptoir.db"
	}
	if c.Places.BaseURL == "" {
		c.Places.BaseURL = "https://maps.googleapis.com/maps/api/place"
	}
	if c.Places.Language == "" {
		c.Places.Language = "fr"
	}
	if c.Pickup.EveningBoundary == "" {
		c.Pickup.EveningBoundary = "15:00"
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Paris"
	}
	if c.RestaurantsPath == "" {
		c.RestaurantsPath = "configs/restaurants.yaml"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port: invalid port %d", c.HTTP.Port)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	c.location = loc

	if _, err := schedule.ParseTimeOfDay(c.Pickup.EveningBoundary); err != nil {
		return fmt.Errorf("pickup.evening_boundary: %w", err)
	}
	for name, v := range map[string]int{
		"pickup.step_minutes":         c.Pickup.StepMinutes,
		"pickup.close_margin_minutes": c.Pickup.CloseMarginMinutes,
		"pickup.min_lead_minutes":     c.Pickup.MinLeadMinutes,
		"pickup.horizon_days":         c.Pickup.HorizonDays,
		"subscription.urgent_days":    c.Subscription.UrgentDays,
		"backup.retention_days":       c.Backup.RetentionDays,
	} {
		if v < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Places.Enabled && c.Places.APIKey == "" {
		return fmt.Errorf("places.api_key is required when places is enabled")
	}
	return nil
}

// Location is the restaurants' local time zone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		if loc, err := time.LoadLocation(c.Timezone); err == nil {
			c.location = loc
		} else {
			c.location = time.Local
		}
	}
	return c.location
}

func minutesOr(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Minute
}

func (c *Config) PickupStep() time.Duration  { return minutesOr(c.Pickup.StepMinutes, 15) }
func (c *Config) CloseMargin() time.Duration { return minutesOr(c.Pickup.CloseMarginMinutes, 15) }
func (c *Config) MinLead() time.Duration     { return minutesOr(c.Pickup.MinLeadMinutes, 20) }

func (c *Config) EveningBoundary() schedule.TimeOfDay {
	t, err := schedule.ParseTimeOfDay(c.Pickup.EveningBoundary)
	if err != nil {
		return schedule.MustParse("15:00")
	}
	return t
}

func (c *Config) HorizonDays() int {
	if c.Pickup.HorizonDays <= 0 {
		return 2
	}
	return c.Pickup.HorizonDays
}

func (c *Config) UrgentDays() int {
	if c.Subscription.UrgentDays <= 0 {
		return 3
	}
	return c.Subscription.UrgentDays
}

func (c *Config) PlacesCacheTTL() time.Duration {
	if c.Places.CacheTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Places.CacheTTLSeconds) * time.Second
}

func (c *Config) PlacesTimeout() time.Duration {
	if c.Places.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Places.TimeoutSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// LogLevel returns the configured zerolog level.
func (c *Config) LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
