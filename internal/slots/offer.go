// Package slots generates the pickup times offered to customers.
package slots

import (
	"fmt"
	"time"

	"comptoir/internal/schedule"
)

// Period tells which part of a service day a group covers.
type Period string

const (
	PeriodMidday  Period = "midday"
	PeriodEvening Period = "evening"
)

// Group is a labelled list of pickup times of one service day.
type Group struct {
	Label  string      `json:"label"`
	Date   string      `json:"date"` // service day, YYYY-MM-DD
	Period Period      `json:"period"`
	Slots  []time.Time `json:"-"`
}

// Offer returns the pickup groups a customer can choose from at now.
// Times earlier than now+MinLead are dropped, empty groups are omitted.
// Times past midnight of an overnight slot stay in the evening group of
// the service day that opened them; the tail of yesterday's overnight
// slot is offered in today's evening group.
func (g *Generator) Offer(now time.Time, week schedule.WeeklySchedule) []Group {
	earliest := now.Add(g.cfg.MinLead)
	today := startOfDay(now)

	var groups []Group
	for offset := 0; offset < g.cfg.HorizonDays; offset++ {
		date := today.AddDate(0, 0, offset)
		var midday, evening []time.Time

		if offset == 0 {
			yesterday := today.AddDate(0, 0, -1)
			for _, t := range g.ForDay(yesterday, week.Day(yesterday.Weekday())) {
				if !t.Before(today) && !t.Before(earliest) {
					evening = append(evening, t)
				}
			}
		}

		nextDay := date.AddDate(0, 0, 1)
		for _, t := range g.ForDay(date, week.Day(date.Weekday())) {
			if t.Before(earliest) {
				continue
			}
			if t.Before(nextDay) && schedule.Of(t) < g.cfg.EveningStart {
				midday = append(midday, t)
			} else {
				evening = append(evening, t)
			}
		}

		dayWord := g.dayWord(offset, date)
		if len(midday) > 0 {
			qualifier := g.cfg.Labels.Midday
			if midday[0].Hour() >= 12 {
				qualifier = g.cfg.Labels.Afternoon
			}
			groups = append(groups, Group{
				Label:  fmt.Sprintf("%s %s", dayWord, qualifier),
				Date:   date.Format("2006-01-02"),
				Period: PeriodMidday,
				Slots:  midday,
			})
		}
		if len(evening) > 0 {
			groups = append(groups, Group{
				Label:  fmt.Sprintf("%s %s", dayWord, g.cfg.Labels.Evening),
				Date:   date.Format("2006-01-02"),
				Period: PeriodEvening,
				Slots:  evening,
			})
		}
	}
	return groups
}

// Count returns the number of pickup times across groups.
func Count(groups []Group) int {
	n := 0
	for _, gr := range groups {
		n += len(gr.Slots)
	}
	return n
}

func (g *Generator) dayWord(offset int, date time.Time) string {
	switch offset {
	case 0:
		return g.cfg.Labels.Today
	case 1:
		return g.cfg.Labels.Tomorrow
	default:
		return schedule.DayName(date.Weekday(), g.cfg.Labels.Language)
	}
}
