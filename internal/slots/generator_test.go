package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comptoir/internal/schedule"
)

func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func tod(s string) schedule.TimeOfDay {
	return schedule.MustParse(s)
}

func TestGenerate(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	date := at(2024, 6, 10, 0, 0)

	tests := []struct {
		name      string
		open      string
		close     string
		wantCount int
		wantFirst time.Time
		wantLast  time.Time
	}{
		{
			name:      "lunch service",
			open:      "11:00",
			close:     "14:30",
			wantCount: 13,
			wantFirst: at(2024, 6, 10, 11, 0),
			wantLast:  at(2024, 6, 10, 14, 0),
		},
		{
			name:      "crosses midnight",
			open:      "23:00",
			close:     "02:00",
			wantCount: 11,
			wantFirst: at(2024, 6, 10, 23, 0),
			wantLast:  at(2024, 6, 11, 1, 30),
		},
		{
			name:      "close equals open is a full day",
			open:      "10:00",
			close:     "10:00",
			wantCount: 95,
			wantFirst: at(2024, 6, 10, 10, 0),
			wantLast:  at(2024, 6, 11, 9, 30),
		},
		{name: "shorter than a step", open: "12:00", close: "12:10", wantCount: 0},
		{name: "fifteen minutes", open: "12:00", close: "12:15", wantCount: 0},
		{name: "twenty nine minutes", open: "12:00", close: "12:29", wantCount: 0},
		{
			name:      "thirty minutes",
			open:      "12:00",
			close:     "12:30",
			wantCount: 1,
			wantFirst: at(2024, 6, 10, 12, 0),
			wantLast:  at(2024, 6, 10, 12, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Generate(date, tod(tt.open), tod(tt.close))
			require.Len(t, got, tt.wantCount)
			if tt.wantCount == 0 {
				return
			}
			assert.Equal(t, tt.wantFirst, got[0])
			assert.Equal(t, tt.wantLast, got[len(got)-1])
			for i := 1; i < len(got); i++ {
				assert.Equal(t, 15*time.Minute, got[i].Sub(got[i-1]))
			}
		})
	}
}

func TestGenerate_NeverPastCloseMargin(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	date := at(2024, 6, 10, 0, 0)

	for open := 0; open < schedule.MinutesPerDay; open += 35 {
		for close := 0; close < schedule.MinutesPerDay; close += 50 {
			o, c := schedule.TimeOfDay(open), schedule.TimeOfDay(close)
			end := c.On(date)
			if c <= o {
				end = c.On(date.AddDate(0, 0, 1))
			}
			got := g.Generate(date, o, c)
			if len(got) > 0 {
				assert.Equal(t, o.On(date), got[0])
			}
			for _, ts := range got {
				assert.False(t, ts.After(end.Add(-15*time.Minute)), "%s-%s produced %s", o, c, ts)
			}
		}
	}
}

func TestGenerate_ConfigurableMargins(t *testing.T) {
	g := NewGenerator(Config{Step: 30 * time.Minute, CloseMargin: 0})
	got := g.Generate(at(2024, 6, 10, 0, 0), tod("18:00"), tod("20:00"))
	require.Len(t, got, 4)
	assert.Equal(t, at(2024, 6, 10, 19, 30), got[3])
}

func TestForDay_SplitService(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	day := schedule.DaySchedule{
		Day:    time.Monday,
		IsOpen: true,
		Slots: []schedule.Slot{
			{Open: tod("17:30"), Close: tod("18:30")},
			{Open: tod("11:00"), Close: tod("12:00")},
		},
	}
	got := g.ForDay(at(2024, 6, 10, 0, 0), day)
	require.Len(t, got, 6)
	assert.Equal(t, at(2024, 6, 10, 11, 0), got[0])
	assert.Equal(t, at(2024, 6, 10, 18, 0), got[5])

	day.IsOpen = false
	assert.Empty(t, g.ForDay(at(2024, 6, 10, 0, 0), day))
}

func TestToSlotInfo(t *testing.T) {
	info := ToSlotInfo([]time.Time{at(2024, 6, 10, 12, 15)})
	require.Len(t, info, 1)
	assert.Equal(t, "12:15", info[0].Time)
}
