package database

import (
	"time"
)

// Watch is a saved marketplace search that the scheduler re-checks
// periodically.
type Watch struct {
	ID                int64
	URL               string
	LastChecked       int64 // unix seconds, 0 means never checked
	NotifyChannelID   *string
	NotifyIntegration *string
	Webhook           *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Advertisement is one listing observed under a watch. The id is the
// marketplace's own listing id, unique across all watches. A nil Price means
// "price on request". PrevPrices is append-only and records each price the
// listing had before its current one; entries may be nil for the same reason
// Price may be.
type Advertisement struct {
	ID           int64
	WatchID      int64
	Title        string
	URL          string
	Price        *int64
	City         string
	Date         string
	SellerName   string
	SellerURL    string
	SellerRating string
	ImageURL     string
	Active       bool
	PrevPrices   []*int64
	PriceAlert   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Pinned reports whether the listing is boosted and carries no real
// freshness timestamp.
func (a *Advertisement) Pinned() bool {
	return a.Date == "pinned"
}
