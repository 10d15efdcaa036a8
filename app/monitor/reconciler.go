package monitor

import (
	"fmt"
	"time"

	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/scraper"
)

// PriceChange records a persisted price update. PrevPrices is the history
// after the old price was appended, so its last entry is the price the ad
// had before this change.
type PriceChange struct {
	Ad         scraper.Ad
	PrevPrices []*int64
}

// Result summarizes what a reconciliation pass changed in the store.
type Result struct {
	NewAds         []scraper.Ad
	PriceChanges   []PriceChange
	DeactivatedIDs []int64
}

// Reconciler folds a scraped snapshot of a watch's search results into the
// advertisement store: unknown ads are inserted, returning ads are
// reactivated, changed prices extend the price history, and active ads
// missing from the snapshot are marked inactive. Ads are never deleted here.
type Reconciler struct {
	watchRepo database.WatchRepository
	adRepo    database.AdRepository
	now       func() time.Time
}

func NewReconciler(watchRepo database.WatchRepository, adRepo database.AdRepository) *Reconciler {
	return &Reconciler{
		watchRepo: watchRepo,
		adRepo:    adRepo,
		now:       time.Now,
	}
}

// Run reconciles the candidate ads scraped for a watch. The watch's
// last_checked timestamp is only advanced after every candidate has been
// persisted, so a mid-batch failure leaves the watch due for a retry.
func (r *Reconciler) Run(watch *database.Watch, candidates []scraper.Ad) (*Result, error) {
	result := &Result{}
	seen := make(map[int64]bool, len(candidates))

	for _, candidate := range candidates {
		seen[candidate.ID] = true

		existing, err := r.adRepo.GetAd(candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up advertisement %d: %w", candidate.ID, err)
		}

		if existing == nil {
			if err := r.adRepo.InsertAd(newAdvertisement(watch.ID, candidate)); err != nil {
				return nil, fmt.Errorf("failed to insert advertisement %d: %w", candidate.ID, err)
			}
			result.NewAds = append(result.NewAds, candidate)
			continue
		}

		if !existing.Active {
			if err := r.adRepo.Reactivate(candidate.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate advertisement %d: %w", candidate.ID, err)
			}
		}

		if priceDiffers(existing.Price, candidate.Price) {
			history := append(existing.PrevPrices, existing.Price)
			if err := r.adRepo.UpdatePrice(candidate.ID, candidate.Price, history); err != nil {
				return nil, fmt.Errorf("failed to update price of advertisement %d: %w", candidate.ID, err)
			}
			result.PriceChanges = append(result.PriceChanges, PriceChange{
				Ad:         candidate,
				PrevPrices: history,
			})
		}
	}

	active, err := r.adRepo.GetActiveAds(watch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active advertisements of watch %d: %w", watch.ID, err)
	}
	for _, ad := range active {
		if !seen[ad.ID] {
			if err := r.adRepo.SetInactive(ad.ID); err != nil {
				return nil, fmt.Errorf("failed to deactivate advertisement %d: %w", ad.ID, err)
			}
			result.DeactivatedIDs = append(result.DeactivatedIDs, ad.ID)
		}
	}

	if err := r.watchRepo.SetLastChecked(watch.ID, r.now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to update last checked time of watch %d: %w", watch.ID, err)
	}

	return result, nil
}

func newAdvertisement(watchID int64, ad scraper.Ad) database.Advertisement {
	return database.Advertisement{
		ID:           ad.ID,
		WatchID:      watchID,
		Title:        ad.Title,
		URL:          ad.URL,
		Price:        ad.Price,
		City:         ad.City,
		Date:         ad.Date,
		SellerName:   ad.SellerName,
		SellerURL:    ad.SellerURL,
		SellerRating: ad.SellerRating,
		ImageURL:     ad.ImageURL,
		Active:       true,
		PrevPrices:   []*int64{},
	}
}

func priceDiffers(a, b *int64) bool {
	if a == nil || b == nil {
		return a != b
	}
	return *a != *b
}
