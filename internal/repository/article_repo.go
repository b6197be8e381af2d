package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/newsroom-authoring-api/internal/database"
	"github.com/newsroom-authoring-api/internal/models"
)

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

const articleColumns = `id, slug, headline, body_html, author_id, profile, tags, status, extra,
		etag, version, locked_by, lock_session, published_at, created_at, updated_at`

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	tagsJSON, _ := json.Marshal(article.Tags)
	extraJSON, _ := json.Marshal(article.Extra)
	if article.Tags == nil {
		tagsJSON = []byte("[]")
	}
	if article.Extra == nil {
		extraJSON = []byte("{}")
	}

	query := `
		INSERT INTO articles (` + articleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Headline, article.BodyHTML, article.AuthorID,
		article.Profile, tagsJSON, article.Status, extraJSON,
		article.Etag, article.Version, nullString(article.LockedBy), nullString(article.LockSession),
		article.PublishedAt, article.CreatedAt, time.Now(),
	)
	return err
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	return r.scanArticle(r.db.QueryRowContext(ctx, query, id))
}

// Update persists the article with an optimistic concurrency guard. The row
// is only written when its stored etag equals ifEtag.
func (r *articleRepo) Update(ctx context.Context, article *models.Article, ifEtag string) (bool, error) {
	tagsJSON, _ := json.Marshal(article.Tags)
	extraJSON, _ := json.Marshal(article.Extra)
	if article.Tags == nil {
		tagsJSON = []byte("[]")
	}
	if article.Extra == nil {
		extraJSON = []byte("{}")
	}

	query := `
		UPDATE articles
		SET slug = $1, headline = $2, body_html = $3, author_id = $4, profile = $5,
			tags = $6, status = $7, extra = $8, etag = $9, version = $10,
			published_at = $11, updated_at = $12
		WHERE id = $13 AND etag = $14
	`
	result, err := r.db.ExecContext(ctx, query,
		article.Slug, article.Headline, article.BodyHTML, article.AuthorID, article.Profile,
		tagsJSON, article.Status, extraJSON, article.Etag, article.Version,
		article.PublishedAt, time.Now(),
		article.ID, ifEtag,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Overwrite persists the article without the etag guard
func (r *articleRepo) Overwrite(ctx context.Context, article *models.Article) error {
	tagsJSON, _ := json.Marshal(article.Tags)
	extraJSON, _ := json.Marshal(article.Extra)
	if article.Tags == nil {
		tagsJSON = []byte("[]")
	}
	if article.Extra == nil {
		extraJSON = []byte("{}")
	}

	query := `
		UPDATE articles
		SET slug = $1, headline = $2, body_html = $3, author_id = $4, profile = $5,
			tags = $6, status = $7, extra = $8, etag = $9, version = $10,
			published_at = $11, updated_at = $12
		WHERE id = $13
	`
	_, err := r.db.ExecContext(ctx, query,
		article.Slug, article.Headline, article.BodyHTML, article.AuthorID, article.Profile,
		tagsJSON, article.Status, extraJSON, article.Etag, article.Version,
		article.PublishedAt, time.Now(),
		article.ID,
	)
	return err
}

// SetLock acquires the editing lock. Returns false when another session
// already holds it.
func (r *articleRepo) SetLock(ctx context.Context, id, userID, sessionID string) (bool, error) {
	query := `
		UPDATE articles
		SET locked_by = $1, lock_session = $2, updated_at = $3
		WHERE id = $4 AND (lock_session IS NULL OR lock_session = '' OR lock_session = $2)
	`
	result, err := r.db.ExecContext(ctx, query, userID, sessionID, time.Now(), id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ClearLock releases the editing lock
func (r *articleRepo) ClearLock(ctx context.Context, id string) error {
	query := `UPDATE articles SET locked_by = NULL, lock_session = NULL, updated_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

// Exists checks if an article with the given ID exists
func (r *articleRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM articles WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

func (r *articleRepo) scanArticle(row *sql.Row) (*models.Article, error) {
	var article models.Article
	var tagsJSON, extraJSON []byte
	var lockedBy, lockSession sql.NullString
	var publishedAt sql.NullTime

	err := row.Scan(
		&article.ID, &article.Slug, &article.Headline, &article.BodyHTML, &article.AuthorID,
		&article.Profile, &tagsJSON, &article.Status, &extraJSON,
		&article.Etag, &article.Version, &lockedBy, &lockSession,
		&publishedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal(tagsJSON, &article.Tags)
	json.Unmarshal(extraJSON, &article.Extra)
	article.LockedBy = lockedBy.String
	article.LockSession = lockSession.String
	if publishedAt.Valid {
		article.PublishedAt = &publishedAt.Time
	}

	return &article, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
