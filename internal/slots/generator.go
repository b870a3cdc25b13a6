package slots

import (
	"sort"
	"time"

	"comptoir/internal/schedule"
)

// Config holds pickup slot parameters.
type Config struct {
	// Step is the spacing between two offered pickup times.
	Step time.Duration
	// CloseMargin is the preparation time kept free before closing.
	CloseMargin time.Duration
	// MinLead is the minimum delay between now and the earliest offered pickup.
	MinLead time.Duration
	// EveningStart splits a service day into midday and evening groups.
	EveningStart schedule.TimeOfDay
	// HorizonDays is how many service days are offered, today included.
	HorizonDays int
	// Labels are the words used to build group labels.
	Labels Labels
}

// Labels are the words used in group labels.
type Labels struct {
	Today     string
	Tomorrow  string
	Midday    string
	Afternoon string
	Evening   string
	Language  schedule.Language
}

// DefaultLabels returns the French storefront wording.
func DefaultLabels() Labels {
	return Labels{
		Today:     "Aujourd'hui",
		Tomorrow:  "Demain",
		Midday:    "midi",
		Afternoon: "après-midi",
		Evening:   "soir",
		Language:  schedule.French,
	}
}

// DefaultConfig returns the storefront defaults.
func DefaultConfig() Config {
	return Config{
		Step:         15 * time.Minute,
		CloseMargin:  15 * time.Minute,
		MinLead:      20 * time.Minute,
		EveningStart: schedule.MustParse("15:00"),
		HorizonDays:  2,
		Labels:       DefaultLabels(),
	}
}

// Generator produces bookable pickup times from opening hours.
type Generator struct {
	cfg Config
}

// NewGenerator creates a generator. Unset step, evening boundary, horizon
// and labels take the defaults, as do negative margins.
func NewGenerator(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.Step <= 0 {
		cfg.Step = def.Step
	}
	if cfg.CloseMargin < 0 {
		cfg.CloseMargin = def.CloseMargin
	}
	if cfg.MinLead < 0 {
		cfg.MinLead = def.MinLead
	}
	if cfg.EveningStart <= 0 {
		cfg.EveningStart = def.EveningStart
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = def.HorizonDays
	}
	if cfg.Labels == (Labels{}) {
		cfg.Labels = def.Labels
	}
	return &Generator{cfg: cfg}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate returns pickup times every Step from open on date. A close time
// at or before open is taken on the following day. A time is kept only if
// a full step still ends before close minus CloseMargin.
func (g *Generator) Generate(date time.Time, open, close schedule.TimeOfDay) []time.Time {
	start := open.On(date)
	end := close.On(date)
	if close <= open {
		end = close.On(date.AddDate(0, 0, 1))
	}
	cutoff := end.Add(-g.cfg.CloseMargin)
	if !cutoff.After(start) {
		return nil
	}

	var out []time.Time
	for cursor := start; !cursor.Add(g.cfg.Step).After(cutoff); cursor = cursor.Add(g.cfg.Step) {
		out = append(out, cursor)
	}
	return out
}

// ForDay returns the pickup times of every slot of day, anchored on date.
func (g *Generator) ForDay(date time.Time, day schedule.DaySchedule) []time.Time {
	var out []time.Time
	for _, s := range day.ActiveSlots() {
		out = append(out, g.Generate(date, s.Open, s.Close)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// SlotInfo is a simplified representation for JSON responses.
type SlotInfo struct {
	At   time.Time `json:"at"`
	Time string    `json:"time"` // "12:15"
}

// ToSlotInfo converts pickup times for JSON.
func ToSlotInfo(times []time.Time) []SlotInfo {
	result := make([]SlotInfo, len(times))
	for i, t := range times {
		result[i] = SlotInfo{At: t, Time: t.Format("15:04")}
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
