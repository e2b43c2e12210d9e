// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/storage"
)

// DefaultAutoSaveInterval is how often dirty state is flushed to disk.
const DefaultAutoSaveInterval = 30 * time.Second

// =============================================================================
// WORKSPACE
// =============================================================================

// Workspace owns the in-memory conversation list and its persistence
// checkpoints. The store is only written here, after finalized exchanges
// or on explicit save.
type Workspace struct {
	mu sync.Mutex

	store         *storage.ConversationStore
	conversations []*model.Conversation
	current       *model.Conversation

	dirty            bool
	lastSave         time.Time
	autoSaveInterval time.Duration
}

// NewWorkspace loads existing history from the store. A missing or
// corrupted document yields an empty workspace.
func NewWorkspace(store *storage.ConversationStore) *Workspace {
	ws := &Workspace{
		store:            store,
		conversations:    store.Load(),
		lastSave:         time.Now(),
		autoSaveInterval: DefaultAutoSaveInterval,
	}
	if len(ws.conversations) > 0 {
		ws.current = ws.conversations[0]
	}
	return ws
}

// =============================================================================
// CONVERSATION MANAGEMENT
// =============================================================================

// Conversations returns the conversation list, most recent first.
func (w *Workspace) Conversations() []*model.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conversations
}

// Current returns the active conversation, or nil when none exists.
func (w *Workspace) Current() *model.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// NewConversation creates a fresh conversation and makes it current.
func (w *Workspace) NewConversation() *model.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()

	conv := model.NewConversation()
	w.conversations = append([]*model.Conversation{conv}, w.conversations...)
	w.current = conv
	w.dirty = true
	return conv
}

// Select makes the conversation with the given ID current.
func (w *Workspace) Select(id string) *model.Conversation {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, conv := range w.conversations {
		if conv.ID == id {
			w.current = conv
			return conv
		}
	}
	return nil
}

// Delete removes a conversation. Deleting the current conversation moves
// selection to the most recent remaining one.
func (w *Workspace) Delete(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, conv := range w.conversations {
		if conv.ID != id {
			continue
		}
		w.conversations = append(w.conversations[:i], w.conversations[i+1:]...)
		if w.current != nil && w.current.ID == id {
			w.current = nil
			if len(w.conversations) > 0 {
				w.current = w.conversations[0]
			}
		}
		w.dirty = true
		return true
	}
	return false
}

// =============================================================================
// PERSISTENCE CHECKPOINTS
// =============================================================================

// SetAutoSaveInterval overrides how long dirty state may sit unsaved
// before SaveIfDue flushes it. Non-positive values are ignored.
func (w *Workspace) SetAutoSaveInterval(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if d > 0 {
		w.autoSaveInterval = d
	}
}

// MarkDirty records that in-memory state diverged from disk.
func (w *Workspace) MarkDirty() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = true
}

// IsDirty reports whether unsaved changes exist.
func (w *Workspace) IsDirty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Save writes the full conversation list to disk. Failures are logged
// and returned but are never fatal; in-memory state stays intact.
func (w *Workspace) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.saveLocked()
}

// SaveIfDue saves when dirty state is older than the auto-save interval.
// Returns true if a save was attempted.
func (w *Workspace) SaveIfDue() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.dirty || time.Since(w.lastSave) < w.autoSaveInterval {
		return false
	}
	w.saveLocked()
	return true
}

func (w *Workspace) saveLocked() error {
	if err := w.store.Save(w.conversations); err != nil {
		log.Warn().Err(err).Msg("failed to save conversations")
		return err
	}
	w.dirty = false
	w.lastSave = time.Now()
	return nil
}
