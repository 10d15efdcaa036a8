package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mopihu/pyhabot/app/database"
	"github.com/mopihu/pyhabot/app/scraper"
)

func NewHandler(watchRepo database.WatchRepository, adRepo database.AdRepository) *Handler {
	return &Handler{
		watchRepo: watchRepo,
		adRepo:    adRepo,
		startedAt: time.Now(),
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	}

	if watchCount, err := h.watchRepo.GetWatchCount(); err == nil {
		health["watches"] = watchCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{}

	if watchCount, err := h.watchRepo.GetWatchCount(); err == nil {
		stats["watches"] = watchCount
	}

	if active, inactive, err := h.adRepo.GetAdCounts(); err == nil {
		stats["active_ads"] = active
		stats["inactive_ads"] = inactive
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListWatches(c *gin.Context) {
	watches, err := h.watchRepo.GetAllWatches()
	if err != nil {
		slog.Error("Database error", "operation", "get_all_watches", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	out := make([]map[string]interface{}, 0, len(watches))
	for _, watch := range watches {
		stext, minPrice, maxPrice := scraper.SearchParams(watch.URL)

		info := map[string]interface{}{
			"id":          watch.ID,
			"url":         watch.URL,
			"search_text": stext,
			"min_price":   minPrice,
			"max_price":   maxPrice,
		}
		if watch.LastChecked > 0 {
			info["last_checked"] = time.Unix(watch.LastChecked, 0).Format(time.RFC3339)
		}
		if watch.NotifyIntegration != nil {
			info["notify_integration"] = *watch.NotifyIntegration
		}
		info["webhook_set"] = watch.Webhook != nil

		if active, err := h.adRepo.GetActiveAds(watch.ID); err == nil {
			info["active_ads"] = len(active)
		}

		out = append(out, info)
	}

	c.JSON(http.StatusOK, gin.H{"watches": out, "count": len(out)})
}
