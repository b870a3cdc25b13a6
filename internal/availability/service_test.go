package availability

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comptoir/internal/clock"
	"comptoir/internal/events"
	"comptoir/internal/schedule"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) AvailabilitySettings(ctx context.Context, id int64) (Settings, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Settings), args.Error(1)
}

func (m *mockSource) WeeklySchedule(ctx context.Context, id int64) (*schedule.WeeklySchedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.WeeklySchedule), args.Error(1)
}

func TestService_Current(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	src.On("AvailabilitySettings", ctx, int64(1)).Return(Settings{Mode: ModeAuto}, nil)
	src.On("WeeklySchedule", ctx, int64(1)).Return(weekdaysSplit(), nil)

	now := at(10, 12, 0)
	svc := NewService(src, clock.Func(func() time.Time { return now }), zerolog.New(io.Discard))

	st, err := svc.Current(ctx, 1)
	require.NoError(t, err)
	assert.True(t, st.IsOpen)

	// Same minute is served from cache.
	now = now.Add(30 * time.Second)
	_, err = svc.Current(ctx, 1)
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "AvailabilitySettings", 1)

	// Next minute resolves again.
	now = now.Add(time.Minute)
	_, err = svc.Current(ctx, 1)
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "AvailabilitySettings", 2)
}

func TestService_ManualSkipsScheduleLookup(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	src.On("AvailabilitySettings", ctx, int64(2)).Return(Settings{Mode: ModeManual, ManualOpen: true}, nil)

	svc := NewService(src, clock.Fixed(at(9, 3, 0)), zerolog.New(io.Discard))
	st, err := svc.Current(ctx, 2)
	require.NoError(t, err)
	assert.True(t, st.IsOpen)
	src.AssertNotCalled(t, "WeeklySchedule", mock.Anything, mock.Anything)
}

func TestService_InvalidatedByEvents(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	src.On("AvailabilitySettings", ctx, int64(3)).Return(Settings{Mode: ModeAlways}, nil)

	bus := events.NewEventBus()
	svc := NewService(src, clock.Fixed(at(10, 12, 0)), zerolog.New(io.Discard))
	svc.Subscribe(bus)

	_, err := svc.Current(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(events.Event{Type: events.RestaurantUpdated, RestaurantID: 3}))
	_, err = svc.Current(ctx, 3)
	require.NoError(t, err)
	src.AssertNumberOfCalls(t, "AvailabilitySettings", 2)
}

func TestService_SourceError(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	boom := errors.New("db down")
	src.On("AvailabilitySettings", ctx, int64(4)).Return(Settings{}, boom)

	svc := NewService(src, clock.Fixed(at(10, 12, 0)), zerolog.New(io.Discard))
	_, err := svc.Current(ctx, 4)
	assert.ErrorIs(t, err, boom)
}
