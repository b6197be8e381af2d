package authoring

import (
	"context"

	"github.com/newsroom-authoring-api/internal/models"
)

// UnsavedChangesAction is the user's choice in the three-way prompt shown
// before a send/publish flow proceeds over unsaved changes.
type UnsavedChangesAction int

const (
	UnsavedCancel UnsavedChangesAction = iota
	UnsavedDiscard
	UnsavedSave
)

// UnsavedChangesPrompt presents the three-way choice. Implemented by the UI
// boundary.
type UnsavedChangesPrompt func(ctx context.Context) (UnsavedChangesAction, error)

// ToggleWidget opens the named side widget, or closes it when it is already
// the open one. The pinned flag carries over between widgets.
func (s *Session) ToggleWidget(name string) bool {
	return s.mutate(func(st State) State {
		if st.OpenWidget != nil && st.OpenWidget.Name == name {
			st.OpenWidget = nil
			return st
		}
		pinned := st.OpenWidget != nil && st.OpenWidget.Pinned
		st.OpenWidget = &OpenWidget{Name: name, Pinned: pinned}
		return st
	})
}

// PinActiveWidget toggles docking of the open widget.
func (s *Session) PinActiveWidget() bool {
	return s.mutate(func(st State) State {
		if st.OpenWidget == nil {
			return st
		}
		st.OpenWidget = &OpenWidget{Name: st.OpenWidget.Name, Pinned: !st.OpenWidget.Pinned}
		return st
	})
}

// CloseActiveWidget closes whichever widget is open.
func (s *Session) CloseActiveWidget() bool {
	return s.mutate(func(st State) State {
		st.OpenWidget = nil
		return st
	})
}

// ActiveWidget returns the name of the open widget, or "".
func (s *Session) ActiveWidget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Initialized || s.state.OpenWidget == nil {
		return ""
	}
	return s.state.OpenWidget.Name
}

// PinnedWidget returns the name of the open widget if it is pinned, or "".
func (s *Session) PinnedWidget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Initialized || s.state.OpenWidget == nil || !s.state.OpenWidget.Pinned {
		return ""
	}
	return s.state.OpenWidget.Name
}

// ToggleSendToOrPublish flips the send-to/publish overlay. While it is open
// it takes display precedence over any open widget.
func (s *Session) ToggleSendToOrPublish() bool {
	return s.mutate(func(st State) State {
		st.SendToOrPublishSidebar = !st.SendToOrPublishSidebar
		return st
	})
}

// WidgetIntegration is the capability object handed to the widget-rendering
// boundary. All functions reflect the session state itself rather than
// private copies.
type WidgetIntegration struct {
	Pin               func()
	ActiveWidget      func() string
	PinnedWidget      func() string
	CloseActiveWidget func()
}

// WidgetIntegration returns the capability object for this session.
func (s *Session) WidgetIntegration() WidgetIntegration {
	return WidgetIntegration{
		Pin:               func() { s.PinActiveWidget() },
		ActiveWidget:      s.ActiveWidget,
		PinnedWidget:      s.PinnedWidget,
		CloseActiveWidget: func() { s.CloseActiveWidget() },
	}
}

// PrepareSendToOrPublish resolves unsaved changes before a send or publish
// proceeds: with no unsaved changes it returns the original snapshot
// immediately; otherwise the three-way prompt decides whether to cancel
// (ErrCancelled), discard, or save, and the resulting original snapshot is
// returned.
func (s *Session) PrepareSendToOrPublish(ctx context.Context, prompt UnsavedChangesPrompt) (*models.Article, error) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()

	if !st.Initialized {
		return nil, ErrNotInitialized
	}
	if st.ItemWithChanges == st.ItemOriginal {
		return st.ItemOriginal, nil
	}

	action, err := prompt(ctx)
	if err != nil {
		return nil, err
	}

	switch action {
	case UnsavedCancel:
		return nil, ErrCancelled
	case UnsavedDiscard:
		if err := s.DiscardUnsavedChanges(ctx); err != nil {
			return nil, err
		}
	case UnsavedSave:
		if _, err := s.Save(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ItemOriginal, nil
}
