package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"comptoir/internal/schedule"
)

// WeeklySchedule returns the stored schedule of a restaurant, or nil when it
// has no schedule rows. Weekdays without a row are closed.
func (db *DB) WeeklySchedule(ctx context.Context, restaurantID int64) (*schedule.WeeklySchedule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day_of_week, is_open, slots
		FROM weekly_schedule
		WHERE restaurant_id = ?
		ORDER BY day_of_week`,
		restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	week := schedule.NewWeekly()
	found := 0
	for rows.Next() {
		var (
			dayOfWeek int
			isOpen    bool
			rawSlots  string
		)
		if err := rows.Scan(&dayOfWeek, &isOpen, &rawSlots); err != nil {
			return nil, err
		}
		day, err := schedule.ValidateDay(dayOfWeek)
		if err != nil {
			return nil, err
		}
		var slots []schedule.Slot
		if err := json.Unmarshal([]byte(rawSlots), &slots); err != nil {
			return nil, fmt.Errorf("decode slots of restaurant %d day %d: %w", restaurantID, dayOfWeek, err)
		}
		week.Set(schedule.DaySchedule{Day: day, IsOpen: isOpen, Slots: slots})
		found++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if found == 0 {
		return nil, nil
	}
	week.Normalize()
	return &week, nil
}

// SaveWeeklySchedule replaces all seven day rows of a restaurant in one transaction.
func (db *DB) SaveWeeklySchedule(ctx context.Context, restaurantID int64, week schedule.WeeklySchedule) error {
	week.Normalize()
	if err := week.Validate(); err != nil {
		return err
	}
	if _, err := db.GetRestaurant(ctx, restaurantID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, day := range week {
		slots := day.Slots
		if slots == nil {
			slots = []schedule.Slot{}
		}
		data, err := json.Marshal(slots)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO weekly_schedule (restaurant_id, day_of_week, is_open, slots, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(restaurant_id, day_of_week) DO UPDATE SET
				is_open = excluded.is_open,
				slots = excluded.slots,
				updated_at = excluded.updated_at`,
			restaurantID, int(day.Day), boolToInt(day.IsOpen), string(data), now,
		)
		if err != nil {
			return fmt.Errorf("save restaurant %d day %d: %w", restaurantID, day.Day, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE restaurants SET updated_at = ? WHERE id = ?`, now, restaurantID); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) hasSchedule(ctx context.Context, restaurantID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM weekly_schedule WHERE restaurant_id = ?", restaurantID,
	).Scan(&count)
	return count > 0, err
}
