// Package authoring owns the editing-session state machine: a single article's
// editable state is loaded, diffed, autosaved, externally patched and
// saved/closed here, with every mutation serialized through one guard so
// concurrent async operations never corrupt each other.
package authoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newsroom-authoring-api/internal/models"
	"github.com/newsroom-authoring-api/internal/patch"
	"github.com/newsroom-authoring-api/internal/patches"
	"github.com/newsroom-authoring-api/internal/profile"
	"github.com/newsroom-authoring-api/internal/storage"
	"github.com/rs/zerolog"
)

// AnimationDelay is how long the initial load waits for the authoring panel's
// entrance animation before content paints.
const AnimationDelay = 500 * time.Millisecond

var (
	// ErrSessionBusy is returned when an operation is rejected because a
	// save or close round trip is in flight.
	ErrSessionBusy = errors.New("session is busy")

	// ErrNotInitialized is returned when an operation requires a loaded
	// session.
	ErrNotInitialized = errors.New("session is not initialized")

	// ErrCancelled is returned when the user cancels an unsaved-changes
	// prompt.
	ErrCancelled = errors.New("cancelled by user")
)

// OpenWidget names the side panel currently open, and whether it is pinned
// (docked) rather than overlaying the content.
type OpenWidget struct {
	Name   string
	Pinned bool
}

// State is the authoritative in-memory session state.
//
// ItemOriginal is the last known server-persisted snapshot and is never
// mutated. ItemWithChanges is replaced wholesale on every edit; it is
// pointer-equal to ItemOriginal exactly when there are no unsaved changes.
// That identity check, not a deep diff, gates autosave scheduling and the
// save operation.
type State struct {
	Initialized     bool
	ItemOriginal    *models.Article
	ItemWithChanges *models.Article
	Profile         *profile.Profile

	OpenWidget *OpenWidget

	// SendToOrPublishSidebar is a reserved overlay mode that takes display
	// precedence over OpenWidget.
	SendToOrPublishSidebar bool

	// Loading blocks state transitions while an async operation (save,
	// close) is in flight. Only the transition that clears it is accepted.
	Loading bool
}

// Session arbitrates all reads and writes of one article's editing state.
type Session struct {
	itemID   string
	gw       storage.Gateway
	listener patches.Listener
	onClose  func()
	delay    time.Duration
	log      zerolog.Logger

	mu          sync.Mutex
	state       State
	closed      bool
	unsubscribe func()
}

// Options tune session behavior. Zero values use defaults.
type Options struct {
	// AnimationDelay overrides the initialization delay. Tests set it low.
	AnimationDelay time.Duration

	// Listener receives collaborator patches. May be nil.
	Listener patches.Listener
}

// NewSession creates a session for one article. onClose is invoked once the
// close flow completes.
func NewSession(itemID string, gw storage.Gateway, onClose func(), opts Options, log zerolog.Logger) *Session {
	delay := opts.AnimationDelay
	if delay <= 0 {
		delay = AnimationDelay
	}
	if onClose == nil {
		onClose = func() {}
	}
	return &Session{
		itemID:   itemID,
		gw:       gw,
		listener: opts.Listener,
		onClose:  onClose,
		delay:    delay,
		log:      log.With().Str("component", "authoring-session").Str("item_id", itemID).Logger(),
	}
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasUnsavedChanges reports whether the working copy differs from the
// original snapshot, by pointer identity.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Initialized && s.state.ItemWithChanges != s.state.ItemOriginal
}

// Start loads the article and its content profile, waiting out the panel's
// entrance animation concurrently; both must complete before the session is
// initialized. If the article is locked in the current session, a pending
// autosave becomes the working copy.
func (s *Session) Start(ctx context.Context) error {
	// Register for patches before loading so collaborator edits arriving
	// mid-load are not lost; handlers drop events until initialized.
	if s.listener != nil {
		unsubscribe, err := s.listener.Subscribe(ctx, s.itemID, s.applyExternalPatch, s.applyOverwrite)
		if err != nil {
			s.log.Warn().Err(err).Msg("Patch subscription failed, editing without live updates")
		} else {
			s.mu.Lock()
			s.unsubscribe = unsubscribe
			s.mu.Unlock()
		}
	}

	animation := time.NewTimer(s.delay)
	defer animation.Stop()

	item, err := s.gw.GetArticle(ctx, s.itemID)
	if err != nil {
		return err
	}

	withChanges := item.Autosaved
	if withChanges == nil {
		withChanges = item.Saved
	}

	prof, err := s.gw.GetContentProfile(ctx, withChanges)
	if err != nil {
		return err
	}

	select {
	case <-animation.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.applyLocked(State{
		Initialized:     true,
		ItemOriginal:    item.Saved,
		ItemWithChanges: withChanges,
		Profile:         prof,
	})
	s.log.Debug().Bool("autosaved", item.Autosaved != nil).Msg("Session initialized")
	return nil
}

// Update replaces the working copy with a new snapshot. Returns false when
// the mutation is rejected by the busy guard.
func (s *Session) Update(item *models.Article) bool {
	return s.mutate(func(st State) State {
		st.ItemWithChanges = item
		return st
	})
}

// UpdateField applies one field edit, producing a new working-copy snapshot.
func (s *Session) UpdateField(fieldID string, value interface{}) bool {
	return s.mutate(func(st State) State {
		st.ItemWithChanges = patch.Apply(st.ItemWithChanges, models.Patch{fieldID: value})
		return st
	})
}

// Save persists the working copy. On success both snapshots are replaced with
// the server-returned article. Saving with no unsaved changes is a no-op.
// A conflict surfaces as models.ErrSaveConflict with the working copy left
// untouched.
func (s *Session) Save(ctx context.Context) (*models.Article, error) {
	st, err := s.beginLoading()
	if err != nil {
		return nil, err
	}

	if st.ItemWithChanges == st.ItemOriginal {
		s.endLoading(nil)
		return st.ItemOriginal, nil
	}

	item, saveErr := s.gw.SaveArticle(ctx, st.ItemWithChanges, st.ItemOriginal)
	if saveErr != nil {
		// A failed save must not leave the session stuck busy.
		s.endLoading(nil)
		return nil, saveErr
	}

	s.endLoading(func(cur State) State {
		cur.ItemOriginal = item
		cur.ItemWithChanges = item
		return cur
	})
	return item, nil
}

// DiscardUnsavedChanges deletes the pending autosave record, then resets the
// working copy to the original snapshot. It returns only after the state
// update has committed; unsaved-changes prompt flows depend on that ordering.
func (s *Session) DiscardUnsavedChanges(ctx context.Context) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	if !st.Initialized {
		return ErrNotInitialized
	}

	if err := s.gw.Autosave().Delete(ctx, st.ItemWithChanges); err != nil {
		return err
	}

	if !s.mutate(func(cur State) State {
		cur.ItemWithChanges = cur.ItemOriginal
		return cur
	}) {
		return ErrSessionBusy
	}
	return nil
}

// Close runs the close flow: unsaved changes are resolved by the gateway
// (save, discard, or cancel), the article is unlocked and the close callback
// invoked. When the user cancels, the session stays open.
func (s *Session) Close(ctx context.Context) error {
	st, err := s.beginLoading()
	if err != nil {
		return err
	}

	didClose := false
	closeErr := s.gw.CloseAuthoring(ctx, st.ItemWithChanges, st.ItemOriginal, func() {
		didClose = true
	})

	s.endLoading(nil)

	if closeErr != nil {
		return closeErr
	}
	if didClose {
		s.Stop()
		s.onClose()
	}
	return nil
}

// Stop tears the session down without running the close flow: the patch
// subscription is removed and any late continuation is dropped. Safe to call
// more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.closed = true
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// applyExternalPatch merges a collaborator patch into the working copy.
//
// External patches are applied even while a save or close is in flight:
// collaborative updates must always land, so delivery deliberately does not
// consult the busy guard.
func (s *Session) applyExternalPatch(p models.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.state.Initialized {
		return
	}
	next := s.state
	next.ItemWithChanges = patch.Apply(s.state.ItemWithChanges, p)
	s.applyLocked(next)
}

// applyOverwrite merges a forced overwrite into both the working copy and the
// original snapshot. Used when another process replaces authoritative data
// without going through the normal diff/save path.
func (s *Session) applyOverwrite(p models.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.state.Initialized {
		return
	}
	next := s.state
	next.ItemWithChanges = patch.Apply(s.state.ItemWithChanges, p)
	next.ItemOriginal = patch.Apply(s.state.ItemOriginal, p)
	s.applyLocked(next)
}

// mutate applies a state transition through the busy guard: before the
// session is initialized every transition is accepted; afterwards transitions
// are rejected while a save/close round trip is in flight.
func (s *Session) mutate(apply func(State) State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.state.Initialized && s.state.Loading {
		return false
	}
	s.applyLocked(apply(s.state))
	return true
}

// beginLoading snapshots the state and transitions Idle -> Busy.
func (s *Session) beginLoading() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.state.Initialized {
		return State{}, ErrNotInitialized
	}
	if s.state.Loading {
		return State{}, ErrSessionBusy
	}
	st := s.state
	next := s.state
	next.Loading = true
	s.applyLocked(next)
	return st, nil
}

// endLoading transitions back to Idle, applying an optional mutation on the
// way. Clearing the busy flag is the one transition accepted while busy.
func (s *Session) endLoading(apply func(State) State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	next := s.state
	if apply != nil {
		next = apply(next)
	}
	next.Loading = false
	s.applyLocked(next)
}

// applyLocked commits a state transition and runs change tracking: whenever
// the working-copy pointer changes, a working copy equal to the original
// means the article was saved or changes discarded, so the autosave record is
// cancelled and deleted; otherwise an autosave is (re)scheduled.
// Caller must hold s.mu.
func (s *Session) applyLocked(next State) {
	prev := s.state
	s.state = next

	if !prev.Initialized || !next.Initialized {
		return
	}
	if prev.ItemWithChanges == next.ItemWithChanges {
		return
	}

	store := s.gw.Autosave()
	if next.ItemWithChanges == next.ItemOriginal {
		store.Cancel()
		item := next.ItemWithChanges
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := store.Delete(ctx, item); err != nil {
				s.log.Warn().Err(err).Msg("Failed to delete autosave record")
			}
		}()
	} else {
		store.Schedule(next.ItemWithChanges)
	}
}
