package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ AdRepository = (*SQLAdRepository)(nil)

// SQLAdRepository handles database operations for advertisements
type SQLAdRepository struct {
	db *DB
}

func NewAdRepository(db *DB) *SQLAdRepository {
	return &SQLAdRepository{db: db}
}

const adColumns = `id, watch_id, title, url, price, city, date, seller_name, seller_url,
	seller_rating, image_url, active, prev_prices, price_alert, created_at, updated_at`

func scanAd(row interface{ Scan(...any) error }) (*Advertisement, error) {
	var ad Advertisement
	var prevPrices string
	err := row.Scan(
		&ad.ID, &ad.WatchID, &ad.Title, &ad.URL, &ad.Price, &ad.City, &ad.Date,
		&ad.SellerName, &ad.SellerURL, &ad.SellerRating, &ad.ImageURL,
		&ad.Active, &prevPrices, &ad.PriceAlert, &ad.CreatedAt, &ad.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(prevPrices), &ad.PrevPrices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price history: %w", err)
	}

	return &ad, nil
}

func (r *SQLAdRepository) GetAd(id int64) (*Advertisement, error) {
	row := r.db.QueryRow(`SELECT `+adColumns+` FROM advertisements WHERE id = ?`, id)

	ad, err := scanAd(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advertisement: %w", err)
	}

	return ad, nil
}

func (r *SQLAdRepository) GetActiveAds(watchID int64) ([]Advertisement, error) {
	return r.queryAds(`SELECT `+adColumns+` FROM advertisements WHERE watch_id = ? AND active = 1 ORDER BY id`, watchID)
}

func (r *SQLAdRepository) GetInactiveAds(watchID int64) ([]Advertisement, error) {
	return r.queryAds(`SELECT `+adColumns+` FROM advertisements WHERE watch_id = ? AND active = 0 ORDER BY id`, watchID)
}

func (r *SQLAdRepository) GetAllAds(watchID int64) ([]Advertisement, error) {
	return r.queryAds(`SELECT `+adColumns+` FROM advertisements WHERE watch_id = ? ORDER BY id`, watchID)
}

func (r *SQLAdRepository) queryAds(query string, args ...any) ([]Advertisement, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get advertisements: %w", err)
	}
	defer rows.Close()

	var ads []Advertisement
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advertisement row: %w", err)
		}
		ads = append(ads, *ad)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advertisement rows: %w", err)
	}

	return ads, nil
}

func (r *SQLAdRepository) GetAdCounts() (int, int, error) {
	var active, inactive int
	err := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0) as active,
			COALESCE(SUM(CASE WHEN active = 0 THEN 1 ELSE 0 END), 0) as inactive
		FROM advertisements
	`).Scan(&active, &inactive)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get advertisement counts: %w", err)
	}
	return active, inactive, nil
}

func (r *SQLAdRepository) InsertAd(ad Advertisement) error {
	prevPrices, err := marshalPrices(ad.PrevPrices)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO advertisements (
			id, watch_id, title, url, price, city, date,
			seller_name, seller_url, seller_rating, image_url,
			active, prev_prices, price_alert
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ad.ID, ad.WatchID, ad.Title, ad.URL, ad.Price, ad.City, ad.Date,
		ad.SellerName, ad.SellerURL, ad.SellerRating, ad.ImageURL,
		ad.Active, prevPrices, ad.PriceAlert)

	if err != nil {
		return fmt.Errorf("failed to insert advertisement: %w", err)
	}

	return nil
}

// UpdatePrice sets the advertisement's current price and replaces its price
// history. The caller appends the superseded price before calling.
func (r *SQLAdRepository) UpdatePrice(id int64, price *int64, prevPrices []*int64) error {
	encoded, err := marshalPrices(prevPrices)
	if err != nil {
		return err
	}

	return r.updateAd(`
		UPDATE advertisements
		SET price = ?, prev_prices = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, price, encoded, id)
}

func (r *SQLAdRepository) Reactivate(id int64) error {
	return r.updateAd(`UPDATE advertisements SET active = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
}

func (r *SQLAdRepository) SetInactive(id int64) error {
	return r.updateAd(`UPDATE advertisements SET active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
}

func (r *SQLAdRepository) SetPriceAlert(id int64, enabled bool) error {
	return r.updateAd(`UPDATE advertisements SET price_alert = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, enabled, id)
}

func (r *SQLAdRepository) ClearAds(watchID int64) error {
	_, err := r.db.Exec(`DELETE FROM advertisements WHERE watch_id = ?`, watchID)
	if err != nil {
		return fmt.Errorf("failed to clear advertisements: %w", err)
	}
	return nil
}

func (r *SQLAdRepository) ClearAllAds() error {
	_, err := r.db.Exec(`DELETE FROM advertisements`)
	if err != nil {
		return fmt.Errorf("failed to clear advertisements: %w", err)
	}
	return nil
}

func (r *SQLAdRepository) updateAd(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update advertisement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func marshalPrices(prices []*int64) (string, error) {
	if prices == nil {
		prices = []*int64{}
	}
	encoded, err := json.Marshal(prices)
	if err != nil {
		return "", fmt.Errorf("failed to marshal price history: %w", err)
	}
	return string(encoded), nil
}
