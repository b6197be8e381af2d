package patch_test

import (
	"testing"
	"time"

	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/patch"
)

func testArticle() *models.Article {
	return &models.Article{
		ID:       "article-1",
		Slug:     "city-council-vote",
		Headline: "Council votes on budget",
		BodyHTML: "<p>The vote passed.</p>",
		AuthorID: "author-1",
		Profile:  "news",
		Tags:     []string{"politics", "budget"},
		Status:   "draft",
		Extra: map[string]interface{}{
			"subtitle": "A close vote",
		},
		Etag:    "etag-1",
		Version: 3,
	}
}

func TestDiff_IdenticalSnapshots(t *testing.T) {
	a := testArticle()

	if diff := patch.Diff(a, a); len(diff) != 0 {
		t.Errorf("Expected empty diff, got %v", diff)
	}

	// Value-equal clones must also diff empty; the engine compares values,
	// not references.
	if diff := patch.Diff(a, a.Clone()); len(diff) != 0 {
		t.Errorf("Expected empty diff for clone, got %v", diff)
	}
}

func TestDiff_ChangedFields(t *testing.T) {
	original := testArticle()
	changed := original.Clone()
	changed.Headline = "Council rejects budget"
	changed.Tags = []string{"politics"}
	changed.Extra["subtitle"] = "A surprise reversal"

	diff := patch.Diff(original, changed)

	if len(diff) != 3 {
		t.Fatalf("Expected 3 changed fields, got %d: %v", len(diff), diff)
	}
	if diff["headline"] != "Council rejects budget" {
		t.Errorf("Expected headline in diff, got %v", diff["headline"])
	}
	if diff["subtitle"] != "A surprise reversal" {
		t.Errorf("Expected subtitle in diff, got %v", diff["subtitle"])
	}
	if _, ok := diff["body_html"]; ok {
		t.Error("Unchanged body_html should not appear in diff")
	}
}

func TestDiff_RemovedCustomField(t *testing.T) {
	original := testArticle()
	changed := original.Clone()
	delete(changed.Extra, "subtitle")

	diff := patch.Diff(original, changed)

	value, present := diff["subtitle"]
	if !present || value != nil {
		t.Errorf("Expected subtitle patched to nil, got %v (present=%v)", value, present)
	}
}

func TestApply_RoundTrip(t *testing.T) {
	original := testArticle()
	changed := original.Clone()
	changed.Headline = "New headline"
	changed.BodyHTML = "<p>Rewritten.</p>"
	changed.Status = "in-progress"
	changed.Extra["subtitle"] = "Updated"
	changed.Extra["kicker"] = "Exclusive"

	applied := patch.Apply(original, patch.Diff(original, changed))

	if applied.Headline != changed.Headline {
		t.Errorf("Expected headline %q, got %q", changed.Headline, applied.Headline)
	}
	if applied.BodyHTML != changed.BodyHTML {
		t.Errorf("Expected body %q, got %q", changed.BodyHTML, applied.BodyHTML)
	}
	if applied.Status != changed.Status {
		t.Errorf("Expected status %q, got %q", changed.Status, applied.Status)
	}
	if applied.Extra["subtitle"] != "Updated" || applied.Extra["kicker"] != "Exclusive" {
		t.Errorf("Expected custom fields applied, got %v", applied.Extra)
	}

	// Applying the round-tripped result against changed yields no further
	// delta on any changed field.
	if diff := patch.Diff(changed, applied); len(diff) != 0 {
		t.Errorf("Expected empty diff after round trip, got %v", diff)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	original := testArticle()

	applied := patch.Apply(original, models.Patch{"headline": "Changed"})

	if original.Headline != "Council votes on budget" {
		t.Errorf("Input snapshot was mutated: %q", original.Headline)
	}
	if applied == original {
		t.Error("Apply must return a new snapshot")
	}
}

func TestApply_BookkeepingFields(t *testing.T) {
	original := testArticle()

	applied := patch.Apply(original, models.Patch{
		"etag":    "etag-2",
		"version": float64(4), // JSON numbers decode as float64
	})

	if applied.Etag != "etag-2" {
		t.Errorf("Expected etag-2, got %q", applied.Etag)
	}
	if applied.Version != 4 {
		t.Errorf("Expected version 4, got %d", applied.Version)
	}
}

func TestOmitFields(t *testing.T) {
	p := models.Patch{
		"headline":     "Changed",
		"etag":         "etag-2",
		"version":      9,
		"created_at":   time.Now(),
		"updated_at":   time.Now(),
		"locked_by":    "user-2",
		"lock_session": "session-2",
		"expiry":       "2030-01-01",
	}

	out := patch.OmitFields(p)

	if len(out) != 1 {
		t.Fatalf("Expected only headline to survive, got %v", out)
	}
	if out["headline"] != "Changed" {
		t.Errorf("Expected headline kept, got %v", out)
	}
	if len(p) != 8 {
		t.Error("OmitFields must not modify its input")
	}
}

func TestDiff_PublishedAt(t *testing.T) {
	original := testArticle()
	changed := original.Clone()
	now := time.Now()
	changed.PublishedAt = &now

	diff := patch.Diff(original, changed)
	if _, ok := diff["published_at"]; !ok {
		t.Errorf("Expected published_at in diff, got %v", diff)
	}

	// Equal timestamps in different pointers are not a change.
	other := changed.Clone()
	if diff := patch.Diff(changed, other); len(diff) != 0 {
		t.Errorf("Expected empty diff for equal timestamps, got %v", diff)
	}
}
