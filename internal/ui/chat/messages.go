// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/freechat-tui/internal/config"
	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/history"
	"github.com/jeranaias/freechat-tui/internal/session"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamStartMsg signals that an exchange has begun.
type StreamStartMsg struct {
	ConversationID string
	StartTime      time.Time
}

// StreamTokenMsg delivers a token from the stream goroutine.
type StreamTokenMsg struct {
	ConversationID string
	Token          string
	IsFirst        bool
}

// StreamCompleteMsg signals that the exchange finished. Result carries
// the finalized assistant message, including fallback state on failure.
type StreamCompleteMsg struct {
	ConversationID string
	Result         *session.Result
	Err            error
}

// StreamTickMsg drives the batched render loop while streaming.
type StreamTickMsg struct {
	Time time.Time
}

// =============================================================================
// ENGINE MESSAGES
// =============================================================================

// EngineStatusMsg reports whether the gateway answered a ping.
type EngineStatusMsg struct {
	Online bool
	Error  error
}

// ModelsLoadedMsg delivers the model list for the picker.
type ModelsLoadedMsg struct {
	Models []engine.ModelInfo
	Error  error
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// AutoSaveTickMsg fires periodically to flush dirty state.
type AutoSaveTickMsg struct {
	Time time.Time
}

// ConfigReloadedMsg carries a hot-reloaded configuration.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// SearchResultsMsg delivers history index hits for the /search command.
type SearchResultsMsg struct {
	Query   string
	Results []history.SearchResult
	Error   error
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewStreamStartMsg stamps a start message with the current time.
func NewStreamStartMsg(conversationID string) StreamStartMsg {
	return StreamStartMsg{
		ConversationID: conversationID,
		StartTime:      time.Now(),
	}
}
