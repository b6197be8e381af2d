package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/newsroom-authoring-api/internal/database"
	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/profile"
)

// profileRepo is the concrete implementation of ProfileRepository
type profileRepo struct {
	db *database.DB
}

// NewProfileRepo creates a new content-profile repository
func NewProfileRepo(db *database.DB) ProfileRepository {
	return &profileRepo{db: db}
}

// GetByID retrieves a raw profile schema by id
func (r *profileRepo) GetByID(ctx context.Context, id string) (*profile.Schema, error) {
	var schemaJSON []byte
	err := r.db.QueryRowContext(ctx, "SELECT schema FROM content_types WHERE id = $1", id).Scan(&schemaJSON)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var schema profile.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// Upsert writes a profile schema
func (r *profileRepo) Upsert(ctx context.Context, id string, schema *profile.Schema) error {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO content_types (id, schema, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET schema = $2, updated_at = $3
	`
	_, err = r.db.ExecContext(ctx, query, id, schemaJSON, time.Now())
	return err
}
