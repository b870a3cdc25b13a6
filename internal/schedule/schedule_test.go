package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:05", 9*60 + 5, false},
		{"9:05", 9*60 + 5, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"1230", 0, true},
		{"12:3", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_StringAndOn(t *testing.T) {
	tod := MustParse("7:30")
	assert.Equal(t, "07:30", tod.String())

	date := time.Date(2024, 6, 10, 18, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 10, 7, 30, 0, 0, time.UTC), tod.On(date))
	assert.Equal(t, MustParse("18:45"), Of(date))
}

func TestSlot_Overnight(t *testing.T) {
	late := Slot{Open: MustParse("23:00"), Close: MustParse("02:00")}
	assert.True(t, late.Overnight())
	assert.Equal(t, 3*time.Hour, late.Duration())
	assert.True(t, late.Contains(MustParse("23:30")))
	assert.False(t, late.Contains(MustParse("01:00")))
	assert.True(t, late.SpillsInto(MustParse("01:00")))
	assert.False(t, late.SpillsInto(MustParse("02:00")))

	allDay := Slot{Open: MustParse("00:00"), Close: MustParse("00:00")}
	assert.True(t, allDay.Overnight())
	assert.Equal(t, 24*time.Hour, allDay.Duration())

	lunch := Slot{Open: MustParse("11:00"), Close: MustParse("14:30")}
	assert.False(t, lunch.Overnight())
	assert.True(t, lunch.Contains(MustParse("11:00")))
	assert.False(t, lunch.Contains(MustParse("14:30")))
	assert.False(t, lunch.SpillsInto(MustParse("10:00")))
}

func TestParseSlot(t *testing.T) {
	s, err := ParseSlot("17:30-22:30")
	require.NoError(t, err)
	assert.Equal(t, "17:30-22:30", s.String())

	_, err = ParseSlot("17:30")
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestSlot_JSON(t *testing.T) {
	data, err := json.Marshal(Slot{Open: MustParse("11:00"), Close: MustParse("14:30")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"open":"11:00","close":"14:30"}`, string(data))

	var s Slot
	require.NoError(t, json.Unmarshal([]byte(`{"open":"9:00","close":"12:00"}`), &s))
	assert.Equal(t, MustParse("09:00"), s.Open)

	assert.Error(t, json.Unmarshal([]byte(`{"open":"25:00","close":"12:00"}`), &s))
}

func TestParseDay(t *testing.T) {
	d, lang, ok := ParseDay("monday")
	assert.True(t, ok)
	assert.Equal(t, time.Monday, d)
	assert.Equal(t, English, lang)

	d, lang, ok = ParseDay(" DIMANCHE ")
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, d)
	assert.Equal(t, French, lang)

	_, _, ok = ParseDay("Funday")
	assert.False(t, ok)

	assert.Equal(t, "Mercredi", DayName(time.Wednesday, French))
	assert.Equal(t, "Wednesday", DayName(time.Wednesday, "de"))
}

func TestValidateDay(t *testing.T) {
	d, err := ValidateDay(6)
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ValidateDay(7)
	assert.ErrorIs(t, err, ErrInvalidDay)
	_, err = ValidateDay(-1)
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func slot(s string) Slot {
	parsed, err := ParseSlot(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestWeeklySchedule_Validate(t *testing.T) {
	t.Run("split day", func(t *testing.T) {
		w := NewWeekly()
		w.Set(DaySchedule{Day: time.Monday, IsOpen: true, Slots: []Slot{slot("11:00-14:30"), slot("17:30-22:30")}})
		assert.NoError(t, w.Validate())
	})

	t.Run("overlap", func(t *testing.T) {
		w := NewWeekly()
		w.Set(DaySchedule{Day: time.Monday, IsOpen: true, Slots: []Slot{slot("11:00-15:00"), slot("14:30-22:30")}})
		assert.ErrorIs(t, w.Validate(), ErrOverlap)
	})

	t.Run("overnight must be last", func(t *testing.T) {
		w := NewWeekly()
		w.Set(DaySchedule{Day: time.Friday, IsOpen: true, Slots: []Slot{slot("18:00-01:00"), slot("19:00-20:00")}})
		assert.ErrorIs(t, w.Validate(), ErrOverlap)
	})

	t.Run("overnight runs into next day", func(t *testing.T) {
		w := NewWeekly()
		w.Set(DaySchedule{Day: time.Saturday, IsOpen: true, Slots: []Slot{slot("20:00-03:00")}})
		w.Set(DaySchedule{Day: time.Sunday, IsOpen: true, Slots: []Slot{slot("02:00-05:00")}})
		assert.ErrorIs(t, w.Validate(), ErrOverlap)
	})

	t.Run("closed day slots ignored", func(t *testing.T) {
		w := NewWeekly()
		w.Set(DaySchedule{Day: time.Tuesday, IsOpen: false, Slots: []Slot{slot("11:00-15:00"), slot("14:00-16:00")}})
		assert.NoError(t, w.Validate())
	})

	t.Run("wrong index", func(t *testing.T) {
		w := NewWeekly()
		w[2].Day = time.Friday
		assert.ErrorIs(t, w.Validate(), ErrInvalidDay)
	})
}

func TestWeeklySchedule_Normalize(t *testing.T) {
	var w WeeklySchedule
	w[1] = DaySchedule{IsOpen: true, Slots: []Slot{slot("17:30-22:30"), slot("11:00-14:30")}}
	w.Normalize()

	assert.Equal(t, time.Monday, w[1].Day)
	assert.Equal(t, time.Saturday, w[6].Day)
	assert.Equal(t, "11:00-14:30", w.Day(time.Monday).Slots[0].String())
	assert.True(t, w.Day(time.Monday).Enabled())
	assert.False(t, w.Day(time.Tuesday).Enabled())
}

func TestWeeklySchedule_IsEmpty(t *testing.T) {
	w := NewWeekly()
	assert.True(t, w.IsEmpty())

	w[3] = DaySchedule{Day: time.Wednesday, IsOpen: true}
	assert.True(t, w.IsEmpty(), "open day without slots is not usable")

	w[3].Slots = []Slot{slot("09:00-12:00")}
	assert.False(t, w.IsEmpty())
}
