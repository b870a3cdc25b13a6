package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comptoir/internal/subscription"
)

// LatestSubscription returns the most recently created primary billing row,
// or nil when the restaurant has none.
func (db *DB) LatestSubscription(ctx context.Context, restaurantID int64) (*subscription.Record, error) {
	var (
		r        subscription.Record
		status   string
		trialEnd sql.NullTime
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, restaurant_id, status, trial_end, bonus_days, created_at
		FROM subscriptions
		WHERE restaurant_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		restaurantID,
	).Scan(&r.ID, &r.RestaurantID, &status, &trialEnd, &r.BonusDays, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Status = subscription.Status(status)
	if trialEnd.Valid {
		t := trialEnd.Time
		r.TrialEnd = &t
	}
	return &r, nil
}

// CreateSubscription inserts a primary billing row and sets its ID.
func (db *DB) CreateSubscription(ctx context.Context, r *subscription.Record) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (restaurant_id, status, trial_end, bonus_days, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.RestaurantID, string(r.Status), nullTime(r.TrialEnd), r.BonusDays, r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert subscription for restaurant %d: %w", r.RestaurantID, err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// LegacyBilling returns the billing columns stored on the restaurant, or nil
// when the restaurant does not exist.
func (db *DB) LegacyBilling(ctx context.Context, restaurantID int64) (*subscription.LegacyBilling, error) {
	var (
		status   sql.NullString
		trialEnd sql.NullTime
		b        subscription.LegacyBilling
	)
	err := db.QueryRowContext(ctx, `
		SELECT subscription_status, trial_end_date, bonus_weeks
		FROM restaurants WHERE id = ?`,
		restaurantID,
	).Scan(&status, &trialEnd, &b.BonusWeeks)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if status.Valid {
		b.Status = subscription.Status(status.String)
	}
	if trialEnd.Valid {
		t := trialEnd.Time
		b.TrialEnd = &t
	}
	return &b, nil
}

// SetLegacyBilling overwrites the legacy billing columns.
func (db *DB) SetLegacyBilling(ctx context.Context, restaurantID int64, b subscription.LegacyBilling) error {
	var status any
	if b.Status != "" {
		status = string(b.Status)
	}
	return db.update(ctx, restaurantID, `
		UPDATE restaurants
		SET subscription_status = ?, trial_end_date = ?, bonus_weeks = ?, updated_at = ?
		WHERE id = ?`,
		status, nullTime(b.TrialEnd), b.BonusWeeks, time.Now(), restaurantID)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
