package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/newsroom-authoring-api/internal/database"
	"github.com/newsroom-authoring-api/internal/models"
)

// autosaveRepo is the concrete implementation of AutosaveRepository
type autosaveRepo struct {
	db *database.DB
}

// NewAutosaveRepo creates a new autosave repository
func NewAutosaveRepo(db *database.DB) AutosaveRepository {
	return &autosaveRepo{db: db}
}

// Get retrieves the autosave record for an article
func (r *autosaveRepo) Get(ctx context.Context, itemID string) (*models.AutosaveRecord, error) {
	query := `SELECT item_id, article, updated_at FROM archive_autosave WHERE item_id = $1`

	var record models.AutosaveRecord
	var articleJSON []byte

	err := r.db.QueryRowContext(ctx, query, itemID).Scan(&record.ItemID, &articleJSON, &record.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(articleJSON, &record.Article); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert writes the autosave record, replacing any prior snapshot for the
// same article
func (r *autosaveRepo) Upsert(ctx context.Context, record *models.AutosaveRecord) error {
	articleJSON, err := json.Marshal(record.Article)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO archive_autosave (item_id, article, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id) DO UPDATE SET article = $2, updated_at = $3
	`
	_, err = r.db.ExecContext(ctx, query, record.ItemID, articleJSON, time.Now())
	return err
}

// Delete removes the autosave record; deleting a missing record is not an
// error
func (r *autosaveRepo) Delete(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM archive_autosave WHERE item_id = $1", itemID)
	return err
}

// Count returns the number of autosave records
func (r *autosaveRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM archive_autosave").Scan(&count)
	return count, err
}
