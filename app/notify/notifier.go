package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/integration"
	"github.com/mopihu/pyhabot/app/scraper"
)

const (
	webhookUsername  = "pyhabot"
	webhookAvatarURL = "https://github.com/Patrick2562/PYHABOT/blob/master/assets/avatar.png"
)

// webhookPayload is the JSON body posted to a watch's webhook URL.
type webhookPayload struct {
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Content   string `json:"content"`
}

// Notifier renders watch events into messages and delivers them to the
// watch's configured chat channel and/or webhook. Delivery is best effort;
// failures are reported but nothing is tracked or retried.
type Notifier struct {
	chat       integration.Integration
	httpClient *http.Client
}

func NewNotifier(chat integration.Integration, httpClient *http.Client) *Notifier {
	return &Notifier{
		chat:       chat,
		httpClient: httpClient,
	}
}

// NewAd announces a freshly observed listing.
func (n *Notifier) NewAd(ctx context.Context, watch *database.Watch, ad scraper.Ad) error {
	return n.deliver(ctx, watch, renderNewAd(watch.URL, ad))
}

// PriceChange announces a price change. The event only fires when the ad has
// recorded at least one prior price and the current price actually differs
// from the most recent one.
func (n *Notifier) PriceChange(ctx context.Context, watch *database.Watch, ad scraper.Ad, prevPrices []*int64) error {
	if len(prevPrices) == 0 {
		slog.Info("No previous price data, skipping price change alert", "ad_id", ad.ID, "title", ad.Title)
		return nil
	}

	lastPrice := prevPrices[len(prevPrices)-1]
	if lastPrice == nil || ad.Price == nil || *lastPrice == *ad.Price {
		slog.Info("No significant price change, skipping alert", "ad_id", ad.ID, "title", ad.Title)
		return nil
	}

	err := n.deliver(ctx, watch, renderPriceChange(ad, *lastPrice, *ad.Price))
	if err == nil {
		slog.Info("Sent price change alert", "ad_id", ad.ID, "title", ad.Title,
			"old_price", *lastPrice, "new_price", *ad.Price)
	}
	return err
}

// deliver evaluates the channel and webhook targets independently; both may
// fire for the same event.
func (n *Notifier) deliver(ctx context.Context, watch *database.Watch, text string) error {
	var firstErr error

	if watch.NotifyIntegration != nil && watch.NotifyChannelID != nil {
		if *watch.NotifyIntegration == n.chat.Name() {
			if err := n.chat.SendToChannel(ctx, *watch.NotifyChannelID, text, false); err != nil {
				firstErr = err
			}
		} else {
			slog.Warn("Notification target uses a different integration, skipping",
				"watch_id", watch.ID, "configured", *watch.NotifyIntegration, "active", n.chat.Name())
		}
	}

	if watch.Webhook != nil {
		if err := n.postWebhook(ctx, *watch.Webhook, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (n *Notifier) postWebhook(ctx context.Context, url, text string) error {
	body, err := json.Marshal(webhookPayload{
		Username:  webhookUsername,
		AvatarURL: webhookAvatarURL,
		Content:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	return nil
}
