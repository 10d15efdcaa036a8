package database

import (
	"database/sql"
	"fmt"
)

var _ WatchRepository = (*SQLWatchRepository)(nil)

// SQLWatchRepository handles database operations for watches
type SQLWatchRepository struct {
	db *DB
}

func NewWatchRepository(db *DB) *SQLWatchRepository {
	return &SQLWatchRepository{db: db}
}

const watchColumns = `id, url, last_checked, notify_channel_id, notify_integration, webhook, created_at, updated_at`

func scanWatch(row interface{ Scan(...any) error }) (*Watch, error) {
	var w Watch
	err := row.Scan(
		&w.ID, &w.URL, &w.LastChecked, &w.NotifyChannelID, &w.NotifyIntegration,
		&w.Webhook, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *SQLWatchRepository) GetWatch(id int64) (*Watch, error) {
	row := r.db.QueryRow(`SELECT `+watchColumns+` FROM watches WHERE id = ?`, id)

	watch, err := scanWatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}

	return watch, nil
}

func (r *SQLWatchRepository) GetAllWatches() ([]Watch, error) {
	rows, err := r.db.Query(`SELECT ` + watchColumns + ` FROM watches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get watches: %w", err)
	}
	defer rows.Close()

	return collectWatches(rows)
}

// GetDueWatches returns watches whose last check happened before the given
// unix-seconds threshold.
func (r *SQLWatchRepository) GetDueWatches(threshold int64) ([]Watch, error) {
	rows, err := r.db.Query(`SELECT `+watchColumns+` FROM watches WHERE last_checked < ? ORDER BY id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to get due watches: %w", err)
	}
	defer rows.Close()

	return collectWatches(rows)
}

func collectWatches(rows *sql.Rows) ([]Watch, error) {
	var watches []Watch
	for rows.Next() {
		watch, err := scanWatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch row: %w", err)
		}
		watches = append(watches, *watch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watch rows: %w", err)
	}

	return watches, nil
}

func (r *SQLWatchRepository) GetWatchCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM watches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get watch count: %w", err)
	}
	return count, nil
}

func (r *SQLWatchRepository) AddWatch(url string) (int64, error) {
	result, err := r.db.Exec(`INSERT INTO watches (url) VALUES (?)`, url)
	if err != nil {
		return 0, fmt.Errorf("failed to add watch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get watch id: %w", err)
	}

	return id, nil
}

// RemoveWatch deletes the watch and all of its advertisements in one
// transaction.
func (r *SQLWatchRepository) RemoveWatch(id int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM advertisements WHERE watch_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete advertisements: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM watches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *SQLWatchRepository) SetURL(id int64, url string) error {
	return r.updateWatch(`UPDATE watches SET url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, url, id)
}

func (r *SQLWatchRepository) SetNotifyTarget(id int64, channelID, integration string) error {
	return r.updateWatch(`
		UPDATE watches
		SET notify_channel_id = ?, notify_integration = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, channelID, integration, id)
}

func (r *SQLWatchRepository) SetWebhook(id int64, url string) error {
	return r.updateWatch(`UPDATE watches SET webhook = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, url, id)
}

func (r *SQLWatchRepository) ClearWebhook(id int64) error {
	return r.updateWatch(`UPDATE watches SET webhook = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
}

func (r *SQLWatchRepository) SetLastChecked(id int64, ts int64) error {
	return r.updateWatch(`UPDATE watches SET last_checked = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, ts, id)
}

func (r *SQLWatchRepository) ResetLastChecked(id int64) error {
	return r.SetLastChecked(id, 0)
}

func (r *SQLWatchRepository) ResetAllLastChecked() error {
	_, err := r.db.Exec(`UPDATE watches SET last_checked = 0, updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to reset last checked: %w", err)
	}
	return nil
}

func (r *SQLWatchRepository) updateWatch(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update watch: %w", err)
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
