package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var got []int64
	bus.Subscribe(ScheduleUpdated, func(e Event) error {
		got = append(got, e.RestaurantID)
		assert.False(t, e.CreatedAt.IsZero())
		return nil
	})
	bus.Subscribe(ScheduleUpdated, func(Event) error { return errors.New("boom") })

	err := bus.Publish(Event{Type: ScheduleUpdated, RestaurantID: 7})
	assert.EqualError(t, err, "boom")
	assert.NoError(t, bus.Publish(Event{Type: RestaurantUpdated, RestaurantID: 8}))
	assert.Equal(t, []int64{7}, got)
}

func TestEventBus_NilIsNoop(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.Publish(Event{Type: ScheduleUpdated}))
}
