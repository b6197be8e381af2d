package models

import (
	"time"
)

// Article represents an article in the archive.
//
// Snapshots are treated as immutable: editing code never mutates an Article in
// place, it builds a new snapshot via Clone and replaces the whole pointer.
// Pointer identity between the working copy and the original snapshot is what
// the session layer uses as its "no unsaved changes" check.
type Article struct {
	ID       string `json:"id" db:"id"`
	Slug     string `json:"slug" db:"slug"`
	Headline string `json:"headline" db:"headline"`
	BodyHTML string `json:"body_html" db:"body_html"`
	AuthorID string `json:"author_id" db:"author_id"`

	// Profile is the content-profile id used to resolve the editable field
	// schema for this article.
	Profile string   `json:"profile" db:"profile"`
	Tags    []string `json:"tags" db:"-"` // Stored as JSON string in DB
	Status  string   `json:"status" db:"status"`

	// Extra holds profile-driven custom fields that are not part of the
	// fixed schema. Keys are field ids.
	Extra map[string]interface{} `json:"extra,omitempty" db:"-"`

	// Server-managed bookkeeping. Never part of a save payload.
	Etag        string     `json:"etag" db:"etag"`
	Version     int        `json:"version" db:"version"`
	LockedBy    string     `json:"locked_by,omitempty" db:"locked_by"`
	LockSession string     `json:"lock_session,omitempty" db:"lock_session"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[string]bool{
	"draft":       true,
	"in-progress": true,
	"published":   true,
}

// Clone returns a deep copy of the article. Edits are applied to a clone so
// the previous snapshot stays intact.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	next := *a
	if a.Tags != nil {
		next.Tags = make([]string, len(a.Tags))
		copy(next.Tags, a.Tags)
	}
	if a.Extra != nil {
		next.Extra = make(map[string]interface{}, len(a.Extra))
		for k, v := range a.Extra {
			next.Extra[k] = v
		}
	}
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		next.PublishedAt = &t
	}
	return &next
}

// IsLockedInSession reports whether the article holds an editing lock owned
// by the given session.
func (a *Article) IsLockedInSession(sessionID string) bool {
	return a.LockSession != "" && a.LockSession == sessionID
}

// IsLockedInOtherSession reports whether another editing session holds the lock.
func (a *Article) IsLockedInOtherSession(sessionID string) bool {
	return a.LockSession != "" && a.LockSession != sessionID
}

// Patch is a partial article: a set of attribute-level changes keyed by the
// attribute's JSON name. Custom fields from Extra appear at the top level,
// same as fixed attributes.
type Patch map[string]interface{}

// AutosaveRecord is a debounced snapshot of in-progress edits, keyed by
// article id. It has its own lifecycle independent of the editing session.
type AutosaveRecord struct {
	ItemID    string    `json:"item_id" db:"item_id"`
	Article   *Article  `json:"article" db:"-"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
