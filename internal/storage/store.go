// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// FileName is the single document holding all conversations.
const FileName = "conversations.json"

// documentVersion is bumped if the on-disk schema ever changes shape.
const documentVersion = 1

// =============================================================================
// DOCUMENT TYPE
// =============================================================================

// document is the on-disk shape: one JSON object holding every conversation.
type document struct {
	Version       int                   `json:"version"`
	SavedAt       time.Time             `json:"saved_at"`
	Conversations []*model.Conversation `json:"conversations"`
}

// ConversationMeta contains metadata for listing conversations.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore handles conversation persistence.
type ConversationStore struct {
	// Path is the full path of the JSON document.
	// Default: ~/.freechat/conversations.json
	Path string

	// MaxConversations limits stored conversations (0 = unlimited).
	// Oldest conversations are dropped on Save when over the limit.
	MaxConversations int
}

// NewConversationStore creates a store rooted in the user's home directory.
func NewConversationStore() (*ConversationStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return NewConversationStoreWithPath(filepath.Join(homeDir, ".freechat", FileName))
}

// NewConversationStoreWithPath creates a store using a custom document path.
func NewConversationStoreWithPath(path string) (*ConversationStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	return &ConversationStore{
		Path:             path,
		MaxConversations: 200,
	}, nil
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load reads every conversation from disk, most recently updated first.
//
// Load never fails hard: a missing, unreadable, or corrupted document
// yields an empty list so the client always starts. The failure is logged
// and the bad document is left in place until the next Save replaces it.
func (s *ConversationStore) Load() []*model.Conversation {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", s.Path).Msg("failed to read conversation history, starting empty")
		}
		return []*model.Conversation{}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", s.Path).Msg("conversation history is corrupted, starting empty")
		return []*model.Conversation{}
	}

	convs := doc.Conversations
	if convs == nil {
		convs = []*model.Conversation{}
	}

	// Loaded conversations keep their titles; resuming never retitles.
	for _, conv := range convs {
		conv.MarkTitleSet()
	}

	sortByUpdated(convs)
	return convs
}

// Get returns the conversation with the given ID.
func (s *ConversationStore) Get(id string) (*model.Conversation, error) {
	for _, conv := range s.Load() {
		if conv.ID == id {
			return conv, nil
		}
	}
	return nil, ErrConversationNotFound
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save writes the full conversation list to disk atomically.
//
// The document is written to a temp file, fsynced, then renamed over the
// old one, so a crash mid-save never corrupts existing history.
func (s *ConversationStore) Save(convs []*model.Conversation) error {
	if s.MaxConversations > 0 && len(convs) > s.MaxConversations {
		sortByUpdated(convs)
		convs = convs[:s.MaxConversations]
	}

	doc := document{
		Version:       documentVersion,
		SavedAt:       time.Now(),
		Conversations: convs,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return util.AtomicWriteFile(s.Path, data, 0644)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns metadata for all conversations, most recent first.
func (s *ConversationStore) List() []ConversationMeta {
	convs := s.Load()
	metas := make([]ConversationMeta, 0, len(convs))

	for _, conv := range convs {
		metas = append(metas, ConversationMeta{
			ID:           conv.ID,
			Title:        conv.Title,
			Model:        conv.Model,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: conv.MessageCount(),
			Preview:      conv.Preview(80),
		})
	}

	return metas
}

// SearchMessages returns conversations where any message contains the
// query string (case-insensitive). An empty query matches everything.
func (s *ConversationStore) SearchMessages(query string) []ConversationMeta {
	all := s.Load()
	query = strings.ToLower(query)

	var results []ConversationMeta
	for _, conv := range all {
		if query != "" && !conversationMatches(conv, query) {
			continue
		}
		results = append(results, ConversationMeta{
			ID:           conv.ID,
			Title:        conv.Title,
			Model:        conv.Model,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: conv.MessageCount(),
			Preview:      conv.Preview(80),
		})
	}

	return results
}

func conversationMatches(conv *model.Conversation, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(conv.Title), lowerQuery) {
		return true
	}
	for _, msg := range conv.Messages {
		if strings.Contains(strings.ToLower(msg.Content), lowerQuery) {
			return true
		}
	}
	return false
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a conversation by ID and persists the shrunken list.
func (s *ConversationStore) Delete(id string) error {
	convs := s.Load()

	for i, conv := range convs {
		if conv.ID == id {
			convs = append(convs[:i], convs[i+1:]...)
			return s.Save(convs)
		}
	}

	return ErrConversationNotFound
}

// Clear removes every conversation.
func (s *ConversationStore) Clear() error {
	return s.Save([]*model.Conversation{})
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders a conversation as a Markdown document.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.Title + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}

	return sb.String()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sortByUpdated orders conversations most recently updated first.
func sortByUpdated(convs []*model.Conversation) {
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a conversation-related error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
