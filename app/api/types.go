package api

import (
	"time"

	"github.com/mopihu/pyhabot/app/database"
)

type Handler struct {
	watchRepo database.WatchRepository
	adRepo    database.AdRepository
	startedAt time.Time
}
