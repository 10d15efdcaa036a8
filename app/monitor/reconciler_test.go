package monitor

import (
	"errors"
	"testing"
	"time"

	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/scraper"
)

type fakeWatchRepo struct {
	watches     map[int64]*database.Watch
	lastChecked map[int64]int64
}

func newFakeWatchRepo() *fakeWatchRepo {
	return &fakeWatchRepo{
		watches:     make(map[int64]*database.Watch),
		lastChecked: make(map[int64]int64),
	}
}

func (f *fakeWatchRepo) GetWatch(id int64) (*database.Watch, error) { return f.watches[id], nil }
func (f *fakeWatchRepo) GetAllWatches() ([]database.Watch, error)  { return nil, nil }
func (f *fakeWatchRepo) GetDueWatches(threshold int64) ([]database.Watch, error) {
	return nil, nil
}
func (f *fakeWatchRepo) GetWatchCount() (int, error)      { return len(f.watches), nil }
func (f *fakeWatchRepo) AddWatch(url string) (int64, error) { return 0, nil }
func (f *fakeWatchRepo) RemoveWatch(id int64) error         { return nil }
func (f *fakeWatchRepo) SetURL(id int64, url string) error  { return nil }
func (f *fakeWatchRepo) SetNotifyTarget(id int64, channelID, integration string) error {
	return nil
}
func (f *fakeWatchRepo) SetWebhook(id int64, url string) error { return nil }
func (f *fakeWatchRepo) ClearWebhook(id int64) error           { return nil }
func (f *fakeWatchRepo) SetLastChecked(id int64, ts int64) error {
	f.lastChecked[id] = ts
	return nil
}
func (f *fakeWatchRepo) ResetLastChecked(id int64) error { return nil }
func (f *fakeWatchRepo) ResetAllLastChecked() error      { return nil }

type fakeAdRepo struct {
	ads map[int64]*database.Advertisement

	insertErr      error
	updatePriceErr error
	setInactiveErr error
}

func newFakeAdRepo() *fakeAdRepo {
	return &fakeAdRepo{ads: make(map[int64]*database.Advertisement)}
}

func (f *fakeAdRepo) GetAd(id int64) (*database.Advertisement, error) {
	ad, ok := f.ads[id]
	if !ok {
		return nil, nil
	}
	copied := *ad
	return &copied, nil
}

func (f *fakeAdRepo) GetActiveAds(watchID int64) ([]database.Advertisement, error) {
	var out []database.Advertisement
	for _, ad := range f.ads {
		if ad.WatchID == watchID && ad.Active {
			out = append(out, *ad)
		}
	}
	return out, nil
}

func (f *fakeAdRepo) GetInactiveAds(watchID int64) ([]database.Advertisement, error) {
	var out []database.Advertisement
	for _, ad := range f.ads {
		if ad.WatchID == watchID && !ad.Active {
			out = append(out, *ad)
		}
	}
	return out, nil
}

func (f *fakeAdRepo) GetAllAds(watchID int64) ([]database.Advertisement, error) {
	var out []database.Advertisement
	for _, ad := range f.ads {
		if ad.WatchID == watchID {
			out = append(out, *ad)
		}
	}
	return out, nil
}

func (f *fakeAdRepo) GetAdCounts() (int, int, error) { return 0, 0, nil }

func (f *fakeAdRepo) InsertAd(ad database.Advertisement) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.ads[ad.ID] = &ad
	return nil
}

func (f *fakeAdRepo) UpdatePrice(id int64, price *int64, prevPrices []*int64) error {
	if f.updatePriceErr != nil {
		return f.updatePriceErr
	}
	ad, ok := f.ads[id]
	if !ok {
		return database.ErrNotFound
	}
	ad.Price = price
	ad.PrevPrices = prevPrices
	return nil
}

func (f *fakeAdRepo) Reactivate(id int64) error {
	ad, ok := f.ads[id]
	if !ok {
		return database.ErrNotFound
	}
	ad.Active = true
	return nil
}

func (f *fakeAdRepo) SetInactive(id int64) error {
	if f.setInactiveErr != nil {
		return f.setInactiveErr
	}
	ad, ok := f.ads[id]
	if !ok {
		return database.ErrNotFound
	}
	ad.Active = false
	return nil
}

func (f *fakeAdRepo) SetPriceAlert(id int64, enabled bool) error { return nil }
func (f *fakeAdRepo) ClearAds(watchID int64) error               { return nil }
func (f *fakeAdRepo) ClearAllAds() error                         { return nil }

func intptr(v int64) *int64 { return &v }

func testReconciler(watchRepo *fakeWatchRepo, adRepo *fakeAdRepo, now time.Time) *Reconciler {
	r := NewReconciler(watchRepo, adRepo)
	r.now = func() time.Time { return now }
	return r
}

func candidateAd(id int64, price *int64) scraper.Ad {
	return scraper.Ad{
		ID:           id,
		Title:        "RTX 3060 Ti",
		URL:          "https://hardverapro.hu/apro/rtx_3060_ti/hsz_1-50.html",
		Price:        price,
		City:         "Budapest",
		Date:         "2024-03-15 18:30",
		SellerName:   "gamer42",
		SellerURL:    "https://hardverapro.hu/tag/gamer42",
		SellerRating: "99%",
		ImageURL:     "https://cdn.example.com/ad.jpg",
	}
}

func TestReconcileNewAd(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	adRepo := newFakeAdRepo()
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	r := testReconciler(watchRepo, adRepo, now)

	watch := &database.Watch{ID: 1, URL: "https://hardverapro.hu/aprok/keres.php?stext=rtx"}
	result, err := r.Run(watch, []scraper.Ad{candidateAd(100, intptr(90000))})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.NewAds) != 1 || result.NewAds[0].ID != 100 {
		t.Fatalf("Expected ad 100 to be reported new, got: %+v", result.NewAds)
	}

	stored := adRepo.ads[100]
	if stored == nil {
		t.Fatal("Expected ad 100 to be persisted")
	}
	if !stored.Active {
		t.Error("Expected a new ad to start active")
	}
	if len(stored.PrevPrices) != 0 {
		t.Errorf("Expected a new ad to start with empty price history, got: %v", stored.PrevPrices)
	}
	if stored.WatchID != 1 {
		t.Errorf("Expected watch id 1, got %d", stored.WatchID)
	}

	if watchRepo.lastChecked[1] != now.Unix() {
		t.Errorf("Expected last checked to advance to %d, got %d", now.Unix(), watchRepo.lastChecked[1])
	}
}

func TestReconcilePriceChange(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	adRepo := newFakeAdRepo()
	r := testReconciler(watchRepo, adRepo, time.Now())

	adRepo.ads[100] = &database.Advertisement{
		ID: 100, WatchID: 1, Price: intptr(100000), Active: true, PrevPrices: []*int64{},
	}

	watch := &database.Watch{ID: 1}
	result, err := r.Run(watch, []scraper.Ad{candidateAd(100, intptr(90000))})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.NewAds) != 0 {
		t.Errorf("Expected no new ads, got: %+v", result.NewAds)
	}
	if len(result.PriceChanges) != 1 {
		t.Fatalf("Expected 1 price change, got %d", len(result.PriceChanges))
	}

	change := result.PriceChanges[0]
	if len(change.PrevPrices) != 1 || change.PrevPrices[0] == nil || *change.PrevPrices[0] != 100000 {
		t.Errorf("Expected price history [100000], got: %v", change.PrevPrices)
	}

	stored := adRepo.ads[100]
	if stored.Price == nil || *stored.Price != 90000 {
		t.Errorf("Expected stored price 90000, got: %v", stored.Price)
	}
	if len(stored.PrevPrices) != 1 || *stored.PrevPrices[0] != 100000 {
		t.Errorf("Expected stored history [100000], got: %v", stored.PrevPrices)
	}
}

func TestReconcileUnchangedAd(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	adRepo := newFakeAdRepo()
	r := testReconciler(watchRepo, adRepo, time.Now())

	adRepo.ads[100] = &database.Advertisement{
		ID: 100, WatchID: 1, Price: intptr(90000), Active: true, PrevPrices: []*int64{},
	}

	result, err := r.Run(&database.Watch{ID: 1}, []scraper.Ad{candidateAd(100, intptr(90000))})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.NewAds) != 0 || len(result.PriceChanges) != 0 || len(result.DeactivatedIDs) != 0 {
		t.Errorf("Expected an unchanged snapshot to produce no events, got: %+v", result)
	}
}

func TestReconcileDeactivatesMissingAds(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	adRepo := newFakeAdRepo()
	r := testReconciler(watchRepo, adRepo, time.Now())

	adRepo.ads[100] = &database.Advertisement{ID: 100, WatchID: 1, Price: intptr(90000), Active: true}
	adRepo.ads[200] = &database.Advertisement{ID: 200, WatchID: 1, Price: intptr(50000), Active: true}

	result, err := r.Run(&database.Watch{ID: 1}, []scraper.Ad{candidateAd(100, intptr(90000))})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.DeactivatedIDs) != 1 || result.DeactivatedIDs[0] != 200 {
		t.Fatalf("Expected ad 200 to be deactivated, got: %v", result.DeactivatedIDs)
	}
	if adRepo.ads[200].Active {
		t.Error("Expected ad 200 to be stored as inactive")
	}
	if adRepo.ads[200] == nil {
		t.Error("Expected deactivation to keep the ad in the store")
	}
}

func TestReconcileReactivatesReturningAd(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	adRepo := newFakeAdRepo()
	r := testReconciler(watchRepo, adRepo, time.Now())

	adRepo.ads[100] = &database.Advertisement{
		ID: 100, WatchID: 1, Price: intptr(90000), Active: false, PrevPrices: []*int64{},
	}

	result, err := r.Run(&database.Watch{ID: 1}, []scraper.Ad{candidateAd(100, intptr(90000))})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.NewAds) != 0 {
		t.Errorf("Expected a returning ad not to be reported new, got: %+v", result.NewAds)
	}
	if !adRepo.ads[100].Active {
		t.Error("Expected the returning ad to be reactivated")
	}
}

func TestReconcileNilPriceTransition(t *testing.T) {
	watchRepo := newFakeWatchRepo()
	adRepo := newFakeAdRepo()
	r := testReconciler(watchRepo, adRepo, time.Now())

	adRepo.ads[100] = &database.Advertisement{
		ID: 100, WatchID: 1, Price: nil, Active: true, PrevPrices: []*int64{},
	}

	result, err := r.Run(&database.Watch{ID: 1}, []scraper.Ad{candidateAd(100, intptr(90000))})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.PriceChanges) != 1 {
		t.Fatalf("Expected a change from unknown price to count, got %d changes", len(result.PriceChanges))
	}
	if result.PriceChanges[0].PrevPrices[0] != nil {
		t.Errorf("Expected nil to be appended to the history, got: %v", result.PriceChanges[0].PrevPrices)
	}
}

func TestReconcilePersistenceFailureKeepsWatchDue(t *testing.T) {
	failure := errors.New("disk full")

	tests := []struct {
		name  string
		setup func(adRepo *fakeAdRepo)
	}{
		{
			name: "insert fails",
			setup: func(adRepo *fakeAdRepo) {
				adRepo.insertErr = failure
			},
		},
		{
			name: "price update fails",
			setup: func(adRepo *fakeAdRepo) {
				adRepo.ads[100] = &database.Advertisement{
					ID: 100, WatchID: 1, Price: intptr(100000), Active: true, PrevPrices: []*int64{},
				}
				adRepo.updatePriceErr = failure
			},
		},
		{
			name: "deactivation fails",
			setup: func(adRepo *fakeAdRepo) {
				adRepo.ads[200] = &database.Advertisement{
					ID: 200, WatchID: 1, Price: intptr(50000), Active: true,
				}
				adRepo.setInactiveErr = failure
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			watchRepo := newFakeWatchRepo()
			adRepo := newFakeAdRepo()
			tt.setup(adRepo)
			r := testReconciler(watchRepo, adRepo, time.Now())

			_, err := r.Run(&database.Watch{ID: 1}, []scraper.Ad{candidateAd(100, intptr(90000))})
			if !errors.Is(err, failure) {
				t.Fatalf("Expected the persistence failure to surface, got: %v", err)
			}
			if _, ok := watchRepo.lastChecked[1]; ok {
				t.Error("Expected last checked not to advance after a mid-batch failure")
			}
		})
	}
}

func TestPriceDiffers(t *testing.T) {
	tests := []struct {
		name string
		a, b *int64
		want bool
	}{
		{"both nil", nil, nil, false},
		{"first nil", nil, intptr(1), true},
		{"second nil", intptr(1), nil, true},
		{"equal", intptr(90000), intptr(90000), false},
		{"different", intptr(90000), intptr(80000), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := priceDiffers(tt.a, tt.b); got != tt.want {
				t.Errorf("priceDiffers(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
