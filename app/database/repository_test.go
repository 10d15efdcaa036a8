package database

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func intptr(v int64) *int64 { return &v }

func testAd(id, watchID int64) Advertisement {
	return Advertisement{
		ID:           id,
		WatchID:      watchID,
		Title:        "RTX 3060 Ti",
		URL:          "https://hardverapro.hu/apro/rtx_3060_ti/hsz_1-50.html",
		Price:        intptr(90000),
		City:         "Budapest",
		Date:         "2024-03-15 18:30",
		SellerName:   "gamer42",
		SellerURL:    "https://hardverapro.hu/tag/gamer42",
		SellerRating: "99%",
		ImageURL:     "https://cdn.example.com/ad.jpg",
		Active:       true,
		PrevPrices:   []*int64{},
	}
}

func TestWatchLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewWatchRepository(db)

	id, err := repo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=rtx")
	if err != nil {
		t.Fatalf("AddWatch failed: %v", err)
	}

	watch, err := repo.GetWatch(id)
	if err != nil {
		t.Fatalf("GetWatch failed: %v", err)
	}
	if watch == nil {
		t.Fatal("Expected the watch to exist")
	}
	if watch.URL != "https://hardverapro.hu/aprok/keres.php?stext=rtx" {
		t.Errorf("Unexpected URL: %s", watch.URL)
	}
	if watch.LastChecked != 0 {
		t.Errorf("Expected a new watch to start unchecked, got %d", watch.LastChecked)
	}
	if watch.NotifyIntegration != nil || watch.Webhook != nil {
		t.Error("Expected a new watch to have no notification targets")
	}

	if err := repo.SetNotifyTarget(id, "chan-1", "discord"); err != nil {
		t.Fatalf("SetNotifyTarget failed: %v", err)
	}
	if err := repo.SetWebhook(id, "https://discord.com/api/webhooks/1/abc"); err != nil {
		t.Fatalf("SetWebhook failed: %v", err)
	}

	watch, _ = repo.GetWatch(id)
	if watch.NotifyIntegration == nil || *watch.NotifyIntegration != "discord" {
		t.Errorf("Unexpected notify integration: %v", watch.NotifyIntegration)
	}
	if watch.NotifyChannelID == nil || *watch.NotifyChannelID != "chan-1" {
		t.Errorf("Unexpected notify channel: %v", watch.NotifyChannelID)
	}
	if watch.Webhook == nil {
		t.Error("Expected the webhook to be stored")
	}

	if err := repo.ClearWebhook(id); err != nil {
		t.Fatalf("ClearWebhook failed: %v", err)
	}
	watch, _ = repo.GetWatch(id)
	if watch.Webhook != nil {
		t.Error("Expected the webhook to be cleared")
	}

	if err := repo.RemoveWatch(id); err != nil {
		t.Fatalf("RemoveWatch failed: %v", err)
	}
	watch, err = repo.GetWatch(id)
	if err != nil {
		t.Fatalf("GetWatch after removal failed: %v", err)
	}
	if watch != nil {
		t.Error("Expected the watch to be gone")
	}
}

func TestWatchNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewWatchRepository(db)

	if err := repo.RemoveWatch(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from RemoveWatch, got: %v", err)
	}
	if err := repo.SetURL(99, "https://example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from SetURL, got: %v", err)
	}
	if err := repo.SetNotifyTarget(99, "chan", "discord"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from SetNotifyTarget, got: %v", err)
	}

	watch, err := repo.GetWatch(99)
	if err != nil || watch != nil {
		t.Errorf("Expected a missing watch lookup to return nil, nil, got: %v, %v", watch, err)
	}
}

func TestGetDueWatches(t *testing.T) {
	db := openTestDB(t)
	repo := NewWatchRepository(db)

	id1, _ := repo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=rtx")
	id2, _ := repo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=ssd")

	if err := repo.SetLastChecked(id1, 1000); err != nil {
		t.Fatalf("SetLastChecked failed: %v", err)
	}
	if err := repo.SetLastChecked(id2, 2000); err != nil {
		t.Fatalf("SetLastChecked failed: %v", err)
	}

	due, err := repo.GetDueWatches(1500)
	if err != nil {
		t.Fatalf("GetDueWatches failed: %v", err)
	}
	if len(due) != 1 || due[0].ID != id1 {
		t.Fatalf("Expected only watch %d to be due, got: %+v", id1, due)
	}

	if err := repo.ResetAllLastChecked(); err != nil {
		t.Fatalf("ResetAllLastChecked failed: %v", err)
	}
	due, err = repo.GetDueWatches(1500)
	if err != nil {
		t.Fatalf("GetDueWatches failed: %v", err)
	}
	if len(due) != 2 {
		t.Errorf("Expected both watches to be due after reset, got %d", len(due))
	}
}

func TestAdLifecycle(t *testing.T) {
	db := openTestDB(t)
	watchRepo := NewWatchRepository(db)
	adRepo := NewAdRepository(db)

	watchID, _ := watchRepo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=rtx")

	if err := adRepo.InsertAd(testAd(100, watchID)); err != nil {
		t.Fatalf("InsertAd failed: %v", err)
	}

	ad, err := adRepo.GetAd(100)
	if err != nil {
		t.Fatalf("GetAd failed: %v", err)
	}
	if ad == nil {
		t.Fatal("Expected the ad to exist")
	}
	if ad.Price == nil || *ad.Price != 90000 {
		t.Errorf("Unexpected price: %v", ad.Price)
	}
	if len(ad.PrevPrices) != 0 {
		t.Errorf("Expected empty price history, got: %v", ad.PrevPrices)
	}

	// Price update appends the old price to the history.
	if err := adRepo.UpdatePrice(100, intptr(80000), []*int64{intptr(90000)}); err != nil {
		t.Fatalf("UpdatePrice failed: %v", err)
	}
	ad, _ = adRepo.GetAd(100)
	if *ad.Price != 80000 {
		t.Errorf("Expected price 80000, got %d", *ad.Price)
	}
	if len(ad.PrevPrices) != 1 || ad.PrevPrices[0] == nil || *ad.PrevPrices[0] != 90000 {
		t.Errorf("Expected history [90000], got: %v", ad.PrevPrices)
	}

	// Unknown prices survive the JSON round trip.
	if err := adRepo.UpdatePrice(100, nil, []*int64{intptr(90000), intptr(80000)}); err != nil {
		t.Fatalf("UpdatePrice failed: %v", err)
	}
	ad, _ = adRepo.GetAd(100)
	if ad.Price != nil {
		t.Errorf("Expected unknown price, got: %v", ad.Price)
	}

	// Deactivation keeps the ad retrievable.
	if err := adRepo.SetInactive(100); err != nil {
		t.Fatalf("SetInactive failed: %v", err)
	}
	ad, _ = adRepo.GetAd(100)
	if ad == nil || ad.Active {
		t.Error("Expected the ad to survive deactivation as inactive")
	}

	inactive, err := adRepo.GetInactiveAds(watchID)
	if err != nil {
		t.Fatalf("GetInactiveAds failed: %v", err)
	}
	if len(inactive) != 1 {
		t.Errorf("Expected 1 inactive ad, got %d", len(inactive))
	}

	if err := adRepo.Reactivate(100); err != nil {
		t.Fatalf("Reactivate failed: %v", err)
	}
	active, err := adRepo.GetActiveAds(watchID)
	if err != nil {
		t.Fatalf("GetActiveAds failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active ad, got %d", len(active))
	}
}

func TestAdCounts(t *testing.T) {
	db := openTestDB(t)
	watchRepo := NewWatchRepository(db)
	adRepo := NewAdRepository(db)

	watchID, _ := watchRepo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=rtx")

	adRepo.InsertAd(testAd(100, watchID))
	adRepo.InsertAd(testAd(200, watchID))
	adRepo.SetInactive(200)

	active, inactive, err := adRepo.GetAdCounts()
	if err != nil {
		t.Fatalf("GetAdCounts failed: %v", err)
	}
	if active != 1 || inactive != 1 {
		t.Errorf("Expected counts 1/1, got %d/%d", active, inactive)
	}
}

func TestRemoveWatchCascadesToAds(t *testing.T) {
	db := openTestDB(t)
	watchRepo := NewWatchRepository(db)
	adRepo := NewAdRepository(db)

	watchID, _ := watchRepo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=rtx")
	adRepo.InsertAd(testAd(100, watchID))

	if err := watchRepo.RemoveWatch(watchID); err != nil {
		t.Fatalf("RemoveWatch failed: %v", err)
	}

	ad, err := adRepo.GetAd(100)
	if err != nil {
		t.Fatalf("GetAd failed: %v", err)
	}
	if ad != nil {
		t.Error("Expected the watch's ads to be removed with the watch")
	}
}

func TestClearAds(t *testing.T) {
	db := openTestDB(t)
	watchRepo := NewWatchRepository(db)
	adRepo := NewAdRepository(db)

	id1, _ := watchRepo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=rtx")
	id2, _ := watchRepo.AddWatch("https://hardverapro.hu/aprok/keres.php?stext=ssd")
	adRepo.InsertAd(testAd(100, id1))
	adRepo.InsertAd(testAd(200, id2))

	if err := adRepo.ClearAds(id1); err != nil {
		t.Fatalf("ClearAds failed: %v", err)
	}

	if ad, _ := adRepo.GetAd(100); ad != nil {
		t.Error("Expected the cleared watch's ad to be gone")
	}
	if ad, _ := adRepo.GetAd(200); ad == nil {
		t.Error("Expected the other watch's ad to survive")
	}

	if err := adRepo.ClearAllAds(); err != nil {
		t.Fatalf("ClearAllAds failed: %v", err)
	}
	if ad, _ := adRepo.GetAd(200); ad != nil {
		t.Error("Expected all ads to be gone")
	}
}

func TestAdNotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewAdRepository(db)

	if err := repo.SetPriceAlert(99, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from SetPriceAlert, got: %v", err)
	}
	if err := repo.Reactivate(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Reactivate, got: %v", err)
	}

	ad, err := repo.GetAd(99)
	if err != nil || ad != nil {
		t.Errorf("Expected a missing ad lookup to return nil, nil, got: %v, %v", ad, err)
	}
}
