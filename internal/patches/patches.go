// Package patches delivers collaborator edits to open editing sessions. The
// server half is a broadcast hub keyed by article id; the client half
// subscribes over a websocket and hands partial-article patches to the
// session.
package patches

import (
	"context"

	"github.com/newsroom-authoring-api/internal/models"
)

// EventType discriminates patch delivery modes.
type EventType string

const (
	// EventPatch is a standard collaborator edit, merged into the working
	// copy only.
	EventPatch EventType = "patch"

	// EventOverwrite deliberately replaces authoritative data without going
	// through the normal diff/save path, bypassing the optimistic-lock
	// check. It must be merged into both the working copy and the original.
	EventOverwrite EventType = "overwrite"
)

// Event is one patch notification for a specific article.
type Event struct {
	Type   EventType    `json:"type"`
	ItemID string       `json:"item_id"`
	Patch  models.Patch `json:"patch"`

	// Origin is the session id that produced the change. Subscribers skip
	// events they originated themselves.
	Origin string `json:"origin,omitempty"`
}

// Listener is the registration boundary consumed by the editing session.
type Listener interface {
	// Subscribe delivers patches for itemID until the returned unsubscribe
	// function is called or ctx is cancelled. Callbacks run on the
	// listener's delivery goroutine.
	Subscribe(ctx context.Context, itemID string, onPatch, onOverwrite func(models.Patch)) (func(), error)
}
