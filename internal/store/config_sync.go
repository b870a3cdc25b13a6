package store

import (
	"context"
	"fmt"
	"time"

	"comptoir/internal/config"
	"comptoir/internal/subscription"
)

// SyncResult counts what a catalog sync changed.
type SyncResult struct {
	Created []int64
	Updated []int64
}

// SyncRestaurantsFromConfig applies restaurants.yaml to the database.
// Identity fields (slug, name, place id) always follow the file. Operator
// state (mode, flags, schedule, billing) is only seeded: it is written for
// new restaurants and for existing ones that have no such data yet.
func (db *DB) SyncRestaurantsFromConfig(ctx context.Context, cfg *config.RestaurantsConfig) (SyncResult, error) {
	var result SyncResult
	if cfg == nil {
		return result, fmt.Errorf("restaurants config is nil")
	}

	for _, rc := range cfg.Restaurants {
		mode, err := rc.Mode()
		if err != nil {
			return result, fmt.Errorf("restaurant %d: %w", rc.ID, err)
		}

		existing, err := db.GetRestaurant(ctx, rc.ID)
		switch {
		case err == nil:
			_, err = db.ExecContext(ctx, `
				UPDATE restaurants SET slug = ?, name = ?, place_id = NULLIF(?, ''), updated_at = ?
				WHERE id = ?`,
				rc.Slug, rc.Name, rc.PlaceID, time.Now(), rc.ID,
			)
			if err != nil {
				return result, fmt.Errorf("sync restaurant %d: %w", rc.ID, err)
			}
			if existing.Slug != rc.Slug || existing.Name != rc.Name || existing.PlaceID != rc.PlaceID {
				result.Updated = append(result.Updated, rc.ID)
			}
		case isNotFound(err):
			r := &Restaurant{
				ID:               rc.ID,
				Slug:             rc.Slug,
				Name:             rc.Name,
				AvailabilityMode: mode,
				IsOpen:           rc.IsOpen,
				AcceptingOrders:  rc.Accepting(),
				PlaceID:          rc.PlaceID,
			}
			if err := db.CreateRestaurant(ctx, r); err != nil {
				return result, err
			}
			if l := rc.Legacy; l != nil {
				err := db.SetLegacyBilling(ctx, rc.ID, subscription.LegacyBilling{
					Status:     subscription.Status(l.Status),
					TrialEnd:   l.TrialEndTime(),
					BonusWeeks: l.BonusWeeks,
				})
				if err != nil {
					return result, fmt.Errorf("seed legacy billing of restaurant %d: %w", rc.ID, err)
				}
			}
			result.Created = append(result.Created, rc.ID)
		default:
			return result, err
		}

		if err := db.seedSchedule(ctx, rc); err != nil {
			return result, fmt.Errorf("seed schedule of restaurant %d: %w", rc.ID, err)
		}
		if err := db.seedSubscription(ctx, rc); err != nil {
			return result, fmt.Errorf("seed subscription of restaurant %d: %w", rc.ID, err)
		}
	}
	return result, nil
}

func (db *DB) seedSchedule(ctx context.Context, rc config.RestaurantConfig) error {
	week, err := rc.WeeklySchedule()
	if err != nil || week == nil {
		return err
	}
	exists, err := db.hasSchedule(ctx, rc.ID)
	if err != nil || exists {
		return err
	}
	return db.SaveWeeklySchedule(ctx, rc.ID, *week)
}

func (db *DB) seedSubscription(ctx context.Context, rc config.RestaurantConfig) error {
	if rc.Subscription == nil {
		return nil
	}
	latest, err := db.LatestSubscription(ctx, rc.ID)
	if err != nil || latest != nil {
		return err
	}
	return db.CreateSubscription(ctx, &subscription.Record{
		RestaurantID: rc.ID,
		Status:       subscription.Status(rc.Subscription.Status),
		TrialEnd:     rc.Subscription.TrialEndTime(),
		BonusDays:    rc.Subscription.BonusDays,
	})
}
