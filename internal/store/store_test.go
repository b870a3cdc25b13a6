package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comptoir/internal/availability"
	"comptoir/internal/config"
	"comptoir/internal/schedule"
	"comptoir/internal/subscription"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createRestaurant(t *testing.T, db *DB, slug string) *Restaurant {
	t.Helper()
	r := &Restaurant{Slug: slug, Name: "Restaurant " + slug, AcceptingOrders: true}
	require.NoError(t, db.CreateRestaurant(context.Background(), r))
	return r
}

func TestRestaurants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := createRestaurant(t, db, "chez-lulu")
	assert.NotZero(t, r.ID)
	assert.Equal(t, availability.ModeManual, r.AvailabilityMode)

	got, err := db.GetRestaurant(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "chez-lulu", got.Slug)
	assert.True(t, got.AcceptingOrders)
	assert.False(t, got.IsOpen)

	bySlug, err := db.GetRestaurantBySlug(ctx, "chez-lulu")
	require.NoError(t, err)
	assert.Equal(t, r.ID, bySlug.ID)

	_, err = db.GetRestaurant(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetRestaurantBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	createRestaurant(t, db, "le-zinc")
	list, err := db.ListRestaurants(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "chez-lulu", list[0].Slug)

	err = db.CreateRestaurant(ctx, &Restaurant{Slug: "chez-lulu", Name: "dup"})
	assert.Error(t, err)
}

func TestRestaurantFlags(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := createRestaurant(t, db, "flags")

	require.NoError(t, db.SetAvailabilityMode(ctx, r.ID, availability.ModeAuto, true))
	settings, err := db.AvailabilitySettings(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.Settings{Mode: availability.ModeAuto, ManualOpen: true}, settings)

	require.NoError(t, db.SetManualOpen(ctx, r.ID, false))
	settings, err = db.AvailabilitySettings(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, settings.ManualOpen)

	require.NoError(t, db.SetAcceptingOrders(ctx, r.ID, false))
	accepting, err := db.AcceptingOrders(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, accepting)

	assert.ErrorIs(t, db.SetAcceptingOrders(ctx, 999, true), ErrNotFound)
	assert.ErrorIs(t, db.SetManualOpen(ctx, 999, true), ErrNotFound)
	_, err = db.AcceptingOrders(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.AvailabilitySettings(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWeeklySchedule(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := createRestaurant(t, db, "sched")

	week, err := db.WeeklySchedule(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, week, "no rows means no schedule")

	in := schedule.NewWeekly()
	in.Set(schedule.DaySchedule{Day: time.Monday, IsOpen: true, Slots: []schedule.Slot{
		{Open: schedule.MustParse("17:30"), Close: schedule.MustParse("22:30")},
		{Open: schedule.MustParse("11:00"), Close: schedule.MustParse("14:30")},
	}})
	in.Set(schedule.DaySchedule{Day: time.Saturday, IsOpen: true, Slots: []schedule.Slot{
		{Open: schedule.MustParse("18:00"), Close: schedule.MustParse("02:00")},
	}})
	require.NoError(t, db.SaveWeeklySchedule(ctx, r.ID, in))

	week, err = db.WeeklySchedule(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.Equal(t, schedule.MustParse("11:00"), week[time.Monday].Slots[0].Open)
	assert.Equal(t, schedule.MustParse("22:30"), week[time.Monday].Slots[1].Close)
	assert.True(t, week[time.Saturday].Slots[0].Overnight())
	assert.False(t, week[time.Sunday].Enabled())
	assert.Empty(t, week[time.Sunday].Slots)

	// Saving again replaces the rows.
	in[time.Monday].IsOpen = false
	require.NoError(t, db.SaveWeeklySchedule(ctx, r.ID, in))
	week, err = db.WeeklySchedule(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, week[time.Monday].Enabled())
}

func TestWeeklySchedule_PartialRowsAreClosed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := createRestaurant(t, db, "partial")

	_, err := db.ExecContext(ctx,
		`INSERT INTO weekly_schedule (restaurant_id, day_of_week, is_open, slots) VALUES (?, 3, 1, '[{"open":"09:00","close":"12:00"}]')`,
		r.ID)
	require.NoError(t, err)

	week, err := db.WeeklySchedule(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.True(t, week[time.Wednesday].Enabled())
	for _, d := range []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Thursday, time.Friday, time.Saturday} {
		assert.False(t, week[d].Enabled(), d.String())
		assert.Equal(t, d, week[d].Day)
	}
}

func TestSaveWeeklySchedule_Rejects(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := createRestaurant(t, db, "reject")

	bad := schedule.NewWeekly()
	bad.Set(schedule.DaySchedule{Day: time.Monday, IsOpen: true, Slots: []schedule.Slot{
		{Open: schedule.MustParse("10:00"), Close: schedule.MustParse("14:00")},
		{Open: schedule.MustParse("13:00"), Close: schedule.MustParse("15:00")},
	}})
	assert.ErrorIs(t, db.SaveWeeklySchedule(ctx, r.ID, bad), schedule.ErrOverlap)

	week, err := db.WeeklySchedule(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, week)

	assert.ErrorIs(t, db.SaveWeeklySchedule(ctx, 999, schedule.NewWeekly()), ErrNotFound)
}

func TestBilling(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	r := createRestaurant(t, db, "billing")

	latest, err := db.LatestSubscription(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, latest)

	trialEnd := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	older := &subscription.Record{RestaurantID: r.ID, Status: subscription.StatusTrial, TrialEnd: &trialEnd, BonusDays: 5,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := &subscription.Record{RestaurantID: r.ID, Status: subscription.StatusActive,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, db.CreateSubscription(ctx, newer))
	require.NoError(t, db.CreateSubscription(ctx, older))

	latest, err = db.LatestSubscription(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, subscription.StatusActive, latest.Status)
	assert.Nil(t, latest.TrialEnd)

	legacy, err := db.LegacyBilling(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, legacy)
	assert.Equal(t, subscription.Status(""), legacy.Status)
	assert.Nil(t, legacy.TrialEnd)

	require.NoError(t, db.SetLegacyBilling(ctx, r.ID, subscription.LegacyBilling{Status: "trial", TrialEnd: &trialEnd, BonusWeeks: 2}))
	legacy, err = db.LegacyBilling(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrial, legacy.Status)
	require.NotNil(t, legacy.TrialEnd)
	assert.True(t, trialEnd.Equal(*legacy.TrialEnd))
	assert.Equal(t, 2, legacy.BonusWeeks)

	missing, err := db.LegacyBilling(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSyncRestaurantsFromConfig(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	closedOrders := false

	cfg := &config.RestaurantsConfig{Restaurants: []config.RestaurantConfig{
		{
			ID: 1, Slug: "chez-lulu", Name: "Chez Lulu", AvailabilityMode: "auto", PlaceID: "place-1",
			Schedule: map[string]config.DayHours{
				"monday": {Slots: []string{"11:00-14:30", "17:30-22:30"}},
				"sunday": {Closed: true},
			},
			Subscription: &config.SubscriptionSeed{Status: "trial", TrialEnd: "2026-11-01"},
		},
		{
			ID: 2, Slug: "le-zinc", Name: "Le Zinc", IsOpen: true, AcceptingOrders: &closedOrders,
			Legacy: &config.LegacyBillingSeed{Status: "active"},
		},
	}}

	res, err := db.SyncRestaurantsFromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.Created)
	assert.Empty(t, res.Updated)

	lulu, err := db.GetRestaurant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, availability.ModeAuto, lulu.AvailabilityMode)
	assert.Equal(t, "place-1", lulu.PlaceID)

	week, err := db.WeeklySchedule(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, week)
	assert.Len(t, week[time.Monday].Slots, 2)

	sub, err := db.LatestSubscription(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, subscription.StatusTrial, sub.Status)

	zinc, err := db.GetRestaurant(ctx, 2)
	require.NoError(t, err)
	assert.True(t, zinc.IsOpen)
	assert.False(t, zinc.AcceptingOrders)
	legacy, err := db.LegacyBilling(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusActive, legacy.Status)

	// Operator changes survive a reload; identity follows the file.
	require.NoError(t, db.SetAcceptingOrders(ctx, 1, false))
	cfg.Restaurants[0].Name = "Chez Lulu & Fils"
	res, err = db.SyncRestaurantsFromConfig(ctx, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []int64{1}, res.Updated)

	lulu, err = db.GetRestaurant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Chez Lulu & Fils", lulu.Name)
	assert.False(t, lulu.AcceptingOrders)

	var subs int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscriptions WHERE restaurant_id = 1`).Scan(&subs))
	assert.Equal(t, 1, subs)

	_, err = db.SyncRestaurantsFromConfig(ctx, nil)
	assert.Error(t, err)
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	createRestaurant(t, db, "backup")
	dir := filepath.Join(t.TempDir(), "backups")

	svc := NewBackupService(db, BackupOptions{Enabled: true, Dir: dir, RetentionDays: 7}, zerolog.Nop())
	path, err := svc.PerformBackup(context.Background())
	require.NoError(t, err)

	snapshot, err := Open(path)
	require.NoError(t, err)
	defer snapshot.Close()
	list, err := snapshot.ListRestaurants(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	old := filepath.Join(dir, backupPrefix+"20200101_000000.db")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(other)
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
