package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comptoir/internal/availability"
)

// Restaurant is a stored restaurant with its operator-controlled flags.
type Restaurant struct {
	ID               int64             `json:"id"`
	Slug             string            `json:"slug"`
	Name             string            `json:"name"`
	AvailabilityMode availability.Mode `json:"availability_mode"`
	IsOpen           bool              `json:"is_open"`
	AcceptingOrders  bool              `json:"is_accepting_orders"`
	PlaceID          string            `json:"place_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

const restaurantColumns = `id, slug, name, availability_mode, is_open, is_accepting_orders,
	COALESCE(place_id, ''), created_at, updated_at`

func scanRestaurant(row interface{ Scan(...any) error }) (*Restaurant, error) {
	var r Restaurant
	var mode string
	if err := row.Scan(&r.ID, &r.Slug, &r.Name, &mode, &r.IsOpen, &r.AcceptingOrders,
		&r.PlaceID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.AvailabilityMode = availability.Mode(mode)
	return &r, nil
}

// CreateRestaurant inserts r and sets its ID. A zero ID lets SQLite pick one.
func (db *DB) CreateRestaurant(ctx context.Context, r *Restaurant) error {
	if r.AvailabilityMode == "" {
		r.AvailabilityMode = availability.ModeManual
	}
	now := time.Now()
	var id any
	if r.ID > 0 {
		id = r.ID
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO restaurants (id, slug, name, availability_mode, is_open, is_accepting_orders, place_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?)`,
		id, r.Slug, r.Name, string(r.AvailabilityMode), boolToInt(r.IsOpen), boolToInt(r.AcceptingOrders), r.PlaceID, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant %s: %w", r.Slug, err)
	}
	if r.ID == 0 {
		r.ID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	}
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

// GetRestaurant returns the restaurant with id or ErrNotFound.
func (db *DB) GetRestaurant(ctx context.Context, id int64) (*Restaurant, error) {
	r, err := scanRestaurant(db.QueryRowContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("restaurant %d: %w", id, ErrNotFound)
	}
	return r, err
}

// GetRestaurantBySlug returns the restaurant with slug or ErrNotFound.
func (db *DB) GetRestaurantBySlug(ctx context.Context, slug string) (*Restaurant, error) {
	r, err := scanRestaurant(db.QueryRowContext(ctx,
		`SELECT `+restaurantColumns+` FROM restaurants WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("restaurant %q: %w", slug, ErrNotFound)
	}
	return r, err
}

// ListRestaurants returns all restaurants ordered by id.
func (db *DB) ListRestaurants(ctx context.Context) ([]Restaurant, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+restaurantColumns+` FROM restaurants ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// AvailabilitySettings returns the mode and manual flag of a restaurant.
func (db *DB) AvailabilitySettings(ctx context.Context, restaurantID int64) (availability.Settings, error) {
	var mode string
	var open bool
	err := db.QueryRowContext(ctx,
		`SELECT availability_mode, is_open FROM restaurants WHERE id = ?`, restaurantID,
	).Scan(&mode, &open)
	if errors.Is(err, sql.ErrNoRows) {
		return availability.Settings{}, fmt.Errorf("restaurant %d: %w", restaurantID, ErrNotFound)
	}
	if err != nil {
		return availability.Settings{}, err
	}
	return availability.Settings{Mode: availability.Mode(mode), ManualOpen: open}, nil
}

// SetAvailabilityMode stores the mode and the manual open flag together.
func (db *DB) SetAvailabilityMode(ctx context.Context, restaurantID int64, mode availability.Mode, manualOpen bool) error {
	return db.update(ctx, restaurantID,
		`UPDATE restaurants SET availability_mode = ?, is_open = ?, updated_at = ? WHERE id = ?`,
		string(mode), boolToInt(manualOpen), time.Now(), restaurantID)
}

// SetManualOpen stores the operator's open flag.
func (db *DB) SetManualOpen(ctx context.Context, restaurantID int64, open bool) error {
	return db.update(ctx, restaurantID,
		`UPDATE restaurants SET is_open = ?, updated_at = ? WHERE id = ?`,
		boolToInt(open), time.Now(), restaurantID)
}

// AcceptingOrders returns the order acceptance flag.
func (db *DB) AcceptingOrders(ctx context.Context, restaurantID int64) (bool, error) {
	var accepting bool
	err := db.QueryRowContext(ctx,
		`SELECT is_accepting_orders FROM restaurants WHERE id = ?`, restaurantID,
	).Scan(&accepting)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("restaurant %d: %w", restaurantID, ErrNotFound)
	}
	return accepting, err
}

// SetAcceptingOrders stores the order acceptance flag.
func (db *DB) SetAcceptingOrders(ctx context.Context, restaurantID int64, accepting bool) error {
	return db.update(ctx, restaurantID,
		`UPDATE restaurants SET is_accepting_orders = ?, updated_at = ? WHERE id = ?`,
		boolToInt(accepting), time.Now(), restaurantID)
}

func (db *DB) update(ctx context.Context, restaurantID int64, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("restaurant %d: %w", restaurantID, ErrNotFound)
	}
	return nil
}
