package database

import (
	"errors"
)

// ErrNotFound is returned by mutating repository operations that reference a
// watch or advertisement id that does not exist. Lookup methods return
// (nil, nil) instead so callers can distinguish "missing" from a store
// failure.
var ErrNotFound = errors.New("record not found")

type WatchRepository interface {
	GetWatch(id int64) (*Watch, error)
	GetAllWatches() ([]Watch, error)
	GetDueWatches(threshold int64) ([]Watch, error)
	GetWatchCount() (int, error)

	AddWatch(url string) (int64, error)
	RemoveWatch(id int64) error
	SetURL(id int64, url string) error
	SetNotifyTarget(id int64, channelID, integration string) error
	SetWebhook(id int64, url string) error
	ClearWebhook(id int64) error
	SetLastChecked(id int64, ts int64) error
	ResetLastChecked(id int64) error
	ResetAllLastChecked() error
}

type AdRepository interface {
	GetAd(id int64) (*Advertisement, error)
	GetActiveAds(watchID int64) ([]Advertisement, error)
	GetInactiveAds(watchID int64) ([]Advertisement, error)
	GetAllAds(watchID int64) ([]Advertisement, error)
	GetAdCounts() (active int, inactive int, err error)

	InsertAd(ad Advertisement) error
	UpdatePrice(id int64, price *int64, prevPrices []*int64) error
	Reactivate(id int64) error
	SetInactive(id int64) error
	SetPriceAlert(id int64, enabled bool) error
	ClearAds(watchID int64) error
	ClearAllAds() error
}
