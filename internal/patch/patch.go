// Package patch computes and applies attribute-level deltas between two
// snapshots of the same article. The diff is used both to answer "are there
// unsaved changes" (non-empty diff) and to build the payload of a conditional
// save.
package patch

import (
	"time"

	"github.com/newsroom-authoring-api/internal/models"
)

// Fields that must never be sent to the server. Bookkeeping fields are
// recomputed server-side; lock fields only change through lock endpoints.
var customFields = []string{
	"version",
	"latest_version",
	"revert_state",
	"expiry",
	"original_id",
}

var baseAPIFields = []string{
	"created_at",
	"updated_at",
	"etag",
	"locked_by",
	"lock_session",
	"links",
}

// Diff returns the minimal set of changed attributes needed to transform
// original into changed. Attributes equal by value are left out, so
// Diff(a, a) is always empty.
func Diff(original, changed *models.Article) models.Patch {
	p := models.Patch{}
	if original == nil || changed == nil {
		return p
	}

	if original.Slug != changed.Slug {
		p["slug"] = changed.Slug
	}
	if original.Headline != changed.Headline {
		p["headline"] = changed.Headline
	}
	if original.BodyHTML != changed.BodyHTML {
		p["body_html"] = changed.BodyHTML
	}
	if original.AuthorID != changed.AuthorID {
		p["author_id"] = changed.AuthorID
	}
	if original.Profile != changed.Profile {
		p["profile"] = changed.Profile
	}
	if original.Status != changed.Status {
		p["status"] = changed.Status
	}
	if !equalStrings(original.Tags, changed.Tags) {
		p["tags"] = changed.Tags
	}
	if !equalTimePtr(original.PublishedAt, changed.PublishedAt) {
		p["published_at"] = changed.PublishedAt
	}

	// Custom fields: union of keys from both snapshots. A key removed from
	// the changed snapshot is patched to nil.
	for key, value := range changed.Extra {
		if prev, ok := original.Extra[key]; !ok || !equalValues(prev, value) {
			p[key] = value
		}
	}
	for key := range original.Extra {
		if _, ok := changed.Extra[key]; !ok {
			p[key] = nil
		}
	}

	return p
}

// Apply merges a patch into an article, producing a new snapshot. The input
// article is not modified. Keys that do not name a fixed attribute land in
// Extra. Bookkeeping keys are accepted so forced overwrites can replace
// server-managed data.
func Apply(article *models.Article, p models.Patch) *models.Article {
	next := article.Clone()
	for key, value := range p {
		switch key {
		case "id":
			next.ID = asString(value)
		case "slug":
			next.Slug = asString(value)
		case "headline":
			next.Headline = asString(value)
		case "body_html":
			next.BodyHTML = asString(value)
		case "author_id":
			next.AuthorID = asString(value)
		case "profile":
			next.Profile = asString(value)
		case "status":
			next.Status = asString(value)
		case "etag":
			next.Etag = asString(value)
		case "locked_by":
			next.LockedBy = asString(value)
		case "lock_session":
			next.LockSession = asString(value)
		case "version":
			next.Version = asInt(value)
		case "tags":
			next.Tags = asStrings(value)
		case "published_at":
			next.PublishedAt = asTimePtr(value)
		default:
			if value == nil {
				delete(next.Extra, key)
				continue
			}
			if next.Extra == nil {
				next.Extra = map[string]interface{}{}
			}
			next.Extra[key] = value
		}
	}
	return next
}

// OmitFields strips attributes that must never be part of a save payload.
// The input patch is not modified.
func OmitFields(p models.Patch) models.Patch {
	out := make(models.Patch, len(p))
	for key, value := range p {
		out[key] = value
	}
	for _, key := range customFields {
		delete(out, key)
	}
	for _, key := range baseAPIFields {
		delete(out, key)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// equalValues compares custom-field values. Values come out of JSON decoding,
// so only scalars, []interface{} and map[string]interface{} occur.
func equalValues(a, b interface{}) bool {
	switch av := a.(type) {
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !equalValues(v, other) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		// JSON numbers decode as float64.
		return int(n)
	}
	return 0
}

func asStrings(v interface{}) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asTimePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case *time.Time:
		return t
	case time.Time:
		return &t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return &parsed
		}
	}
	return nil
}
