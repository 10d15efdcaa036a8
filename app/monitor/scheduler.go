package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mopihu/pyhabot/app/config"
	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/notify"
	"github.com/mopihu/pyhabot/app/scraper"
)

// settleDelay is how long the scheduler rests after a clean cycle.
const settleDelay = 10 * time.Second

// Scheduler drives the polling loop: it periodically picks the watches whose
// refresh interval has elapsed, scrapes them one by one with a courtesy delay
// in between, and escalates repeated cycle failures with exponential backoff.
type Scheduler struct {
	settings   *config.Store
	watchRepo  database.WatchRepository
	client     *scraper.Client
	parser     *scraper.Parser
	reconciler *Reconciler
	notifier   *notify.Notifier
}

func NewScheduler(settings *config.Store, watchRepo database.WatchRepository,
	client *scraper.Client, parser *scraper.Parser,
	reconciler *Reconciler, notifier *notify.Notifier) *Scheduler {
	return &Scheduler{
		settings:   settings,
		watchRepo:  watchRepo,
		client:     client,
		parser:     parser,
		reconciler: reconciler,
		notifier:   notifier,
	}
}

// Start runs the polling loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting watch scheduler")

	tries := 0
	for {
		err := s.runCycle(ctx)
		if ctx.Err() != nil {
			slog.Info("Watch scheduler stopped")
			return
		}

		if err != nil {
			st := s.settings.Get()
			if tries < st.MaxRetries {
				tries++
				delay := backoffDelay(tries, st.RetryBaseDelay)
				slog.Error("Failure while checking adverts, retrying",
					"error", err, "attempt", tries, "delay", delay.Round(100*time.Millisecond))
				if !sleep(ctx, delay) {
					return
				}
			} else {
				slog.Error("Max retries reached, skipping this cycle", "error", err)
				tries = 0
			}
			continue
		}

		tries = 0
		if !sleep(ctx, settleDelay) {
			return
		}
	}
}

// runCycle processes every due watch once. Errors on a single watch are
// logged and the cycle moves on; only a store failure or a panic fails the
// cycle as a whole and triggers the caller's backoff.
func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during watch cycle: %v", r)
		}
	}()

	st := s.settings.Get()
	interval := jitteredInterval(st.RefreshInterval, st.IntervalJitterPercent)
	threshold := time.Now().Unix() - int64(interval)

	watches, err := s.watchRepo.GetDueWatches(threshold)
	if err != nil {
		return fmt.Errorf("failed to load due watches: %w", err)
	}

	for i, watch := range watches {
		if ctx.Err() != nil {
			return nil
		}

		newAds, err := s.CheckWatch(ctx, &watch)
		if err != nil {
			slog.Error("Failed to check watch", "watch_id", watch.ID, "error", err)
		} else {
			slog.Info("Scraped watch", "watch_id", watch.ID, "new_ads", newAds)
		}

		if delayBetween(i, len(watches)) {
			delay := courtesyDelay(st.RequestDelayMin, st.RequestDelayMax)
			if !sleep(ctx, delay) {
				return nil
			}
		}
	}

	return nil
}

// CheckWatch scrapes a single watch immediately, reconciles the results and
// sends the resulting notifications. It returns the number of new ads found.
func (s *Scheduler) CheckWatch(ctx context.Context, watch *database.Watch) (int, error) {
	st := s.settings.Get()

	body, err := s.client.Fetch(ctx, watch.URL, st.UserAgents)
	if err != nil {
		return 0, err
	}

	ads, err := s.parser.Run(body, watch.URL)
	if err != nil {
		return 0, err
	}

	result, err := s.reconciler.Run(watch, ads)
	if err != nil {
		return 0, err
	}

	// Notifications are best effort; a delivery failure never rolls back
	// the reconciled state.
	for _, ad := range result.NewAds {
		if err := s.notifier.NewAd(ctx, watch, ad); err != nil {
			slog.Error("Failed to send new ad notification",
				"watch_id", watch.ID, "ad_id", ad.ID, "error", err)
		}
	}
	for _, change := range result.PriceChanges {
		if err := s.notifier.PriceChange(ctx, watch, change.Ad, change.PrevPrices); err != nil {
			slog.Error("Failed to send price change alert",
				"watch_id", watch.ID, "ad_id", change.Ad.ID, "error", err)
		}
	}

	return len(result.NewAds), nil
}

// jitteredInterval spreads the refresh interval by a uniform factor of
// ±jitterPercent so repeated scrapes do not hit the site on a fixed beat.
func jitteredInterval(refreshInterval, jitterPercent int) int {
	spread := float64(jitterPercent) / 100
	jitter := (rand.Float64()*2 - 1) * spread
	return int(float64(refreshInterval) * (1 + jitter))
}

// backoffDelay doubles the base delay per attempt and adds up to five
// seconds of noise.
func backoffDelay(attempt, baseDelaySeconds int) time.Duration {
	base := time.Duration(baseDelaySeconds) * time.Second << (attempt - 1)
	return base + time.Duration(rand.Float64()*5*float64(time.Second))
}

// delayBetween reports whether a courtesy delay belongs after the watch at
// index i. Delays separate consecutive watches only: none before the first
// and none after the last.
func delayBetween(i, total int) bool {
	return total > 1 && i < total-1
}

func courtesyDelay(minSeconds, maxSeconds int) time.Duration {
	spread := float64(maxSeconds - minSeconds)
	if spread < 0 {
		spread = 0
	}
	return time.Duration((float64(minSeconds) + rand.Float64()*spread) * float64(time.Second))
}

// sleep waits for the given duration and reports false when the context was
// cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
