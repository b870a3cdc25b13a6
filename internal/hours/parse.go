// Package hours imports free-text weekly opening hours from place listings.
package hours

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"comptoir/internal/schedule"
)

// ParsedDay is the parsed opening configuration of one weekday.
type ParsedDay struct {
	Day     time.Weekday    `json:"day"`
	Enabled bool            `json:"enabled"`
	Slots   []schedule.Slot `json:"slots"`
}

// SkipKind classifies input that was dropped while parsing.
type SkipKind string

const (
	SkipUnknownDay SkipKind = "unknown_day"
	SkipInterval   SkipKind = "interval"
)

// Skip describes one dropped line or interval.
type Skip struct {
	Kind   SkipKind `json:"kind"`
	Line   string   `json:"line"`
	Detail string   `json:"detail"`
}

// Report is the full result of a parse.
type Report struct {
	Days [7]ParsedDay `json:"days"`
	// Language is the vocabulary of the first recognised day name.
	Language schedule.Language `json:"language"`
	Skipped  []Skip            `json:"skipped,omitempty"`
}

var closedMarkers = map[string]bool{
	"closed":    true,
	"fermé":     true,
	"ferme":     true,
	"fermée":    true,
	"fermeture": true,
}

var allDayMarkers = map[string]bool{
	"open 24 hours":           true,
	"ouvert 24h/24":           true,
	"ouvert 24 h/24":          true,
	"ouvert 24 heures/24":     true,
	"ouvert 24 heures sur 24": true,
}

var (
	// Google separates ranges with en or em dashes, sometimes padded with thin spaces.
	rangeSeparators = []string{"–", "—", " - ", " to ", " à "}
	spaceReplacer   = strings.NewReplacer("\u202f", " ", "\u2009", " ", "\u00a0", " ")
	endpointRe      = regexp.MustCompile(`(?i)^(\d{1,2})\s*(?:[:h.]\s*(\d{2})?)?\s*(?:([ap])\.?\s?m\.?)?$`)
)

// ParseWeeklyHours parses "<Day>: <ranges>" lines into all seven days.
// Days without a usable line are closed.
func ParseWeeklyHours(lines []string) [7]ParsedDay {
	return Parse(lines).Days
}

// Parse is ParseWeeklyHours with the list of dropped input.
func Parse(lines []string) Report {
	var r Report
	for i := range r.Days {
		r.Days[i] = ParsedDay{Day: time.Weekday(i)}
	}

	for _, raw := range lines {
		line := strings.TrimSpace(spaceReplacer.Replace(raw))
		if line == "" {
			continue
		}
		dayPart, rangePart, ok := strings.Cut(line, ":")
		if !ok {
			r.Skipped = append(r.Skipped, Skip{Kind: SkipUnknownDay, Line: raw, Detail: "missing ':' after day name"})
			continue
		}
		day, lang, ok := schedule.ParseDay(dayPart)
		if !ok {
			r.Skipped = append(r.Skipped, Skip{Kind: SkipUnknownDay, Line: raw, Detail: fmt.Sprintf("unknown day %q", strings.TrimSpace(dayPart))})
			continue
		}
		if r.Language == "" {
			r.Language = lang
		}

		parsed := ParsedDay{Day: day}
		rangePart = strings.TrimSpace(rangePart)
		marker := strings.ToLower(rangePart)
		switch {
		case closedMarkers[marker]:
		case allDayMarkers[marker]:
			parsed.Enabled = true
			parsed.Slots = []schedule.Slot{{Open: 0, Close: 0}}
		default:
			for _, interval := range strings.Split(rangePart, ",") {
				interval = strings.TrimSpace(interval)
				if interval == "" {
					continue
				}
				s, err := parseInterval(interval)
				if err != nil {
					r.Skipped = append(r.Skipped, Skip{Kind: SkipInterval, Line: raw, Detail: err.Error()})
					continue
				}
				parsed.Slots = append(parsed.Slots, s)
			}
			parsed.Enabled = len(parsed.Slots) > 0
		}
		r.Days[day] = parsed
	}

	for i := range r.Days {
		slots := r.Days[i].Slots
		sort.SliceStable(slots, func(a, b int) bool { return slots[a].Open < slots[b].Open })
	}
	return r
}

func splitRange(interval string) (string, string, bool) {
	lower := strings.ToLower(interval)
	for _, sep := range rangeSeparators {
		if idx := strings.Index(lower, sep); idx >= 0 {
			return interval[:idx], interval[idx+len(sep):], true
		}
	}
	// Bare hyphen, as written by FormatScheduleLines.
	if openRaw, closeRaw, ok := strings.Cut(interval, "-"); ok {
		return openRaw, closeRaw, true
	}
	return "", "", false
}

type endpoint struct {
	hour, minute int
	meridiem     byte // 'a', 'p' or 0
}

func parseEndpoint(s string) (endpoint, error) {
	m := endpointRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return endpoint{}, fmt.Errorf("unrecognised time %q", strings.TrimSpace(s))
	}
	hourStr, minStr, mer := m[1], m[2], m[3]
	var e endpoint
	e.hour, _ = strconv.Atoi(hourStr)
	if minStr != "" {
		e.minute, _ = strconv.Atoi(minStr)
	}
	if mer != "" {
		e.meridiem = strings.ToLower(mer)[0]
	}
	return e, nil
}

// to24 converts an endpoint using meridiem mer ('a', 'p' or 0).
func (e endpoint) to24(mer byte) (schedule.TimeOfDay, error) {
	hour := e.hour
	if hour >= 1 && hour <= 12 {
		switch {
		case mer == 'a' && hour == 12:
			hour = 0
		case mer == 'p' && hour != 12:
			hour += 12
		}
	}
	return schedule.NewTimeOfDay(hour, e.minute)
}

func parseInterval(interval string) (schedule.Slot, error) {
	openRaw, closeRaw, ok := splitRange(interval)
	if !ok {
		return schedule.Slot{}, fmt.Errorf("no range separator in %q", interval)
	}
	openEnd, err := parseEndpoint(openRaw)
	if err != nil {
		return schedule.Slot{}, err
	}
	closeEnd, err := parseEndpoint(closeRaw)
	if err != nil {
		return schedule.Slot{}, err
	}

	closeAt, err := closeEnd.to24(closeEnd.meridiem)
	if err != nil {
		return schedule.Slot{}, err
	}

	openMer := openEnd.meridiem
	if openMer == 0 && closeEnd.meridiem != 0 && openEnd.hour >= 1 && openEnd.hour <= 12 {
		openMer = closeEnd.meridiem
		// "11:00 – 2:30 PM" reads as 11:00 to 14:30, not 23:00 to 14:30.
		if inherited, err := openEnd.to24(openMer); err == nil && openMer == 'p' && inherited > closeAt {
			if plain, err := openEnd.to24(0); err == nil && plain < closeAt {
				openMer = 0
			}
		}
	}
	openAt, err := openEnd.to24(openMer)
	if err != nil {
		return schedule.Slot{}, err
	}
	return schedule.Slot{Open: openAt, Close: closeAt}, nil
}
