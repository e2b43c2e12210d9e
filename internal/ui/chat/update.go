// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/session"
	"github.com/jeranaias/freechat-tui/internal/ui/components"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update routes Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamStartMsg:
		m.statusbar.State = components.StatusStreaming
		return m, streamTickCmd()

	case StreamTokenMsg:
		// First token only; the batched tick loop renders the rest.
		return m, nil

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case EngineStatusMsg:
		m.online = msg.Online
		if msg.Online {
			m.statusbar.State = components.StatusIdle
		} else {
			m.statusbar.State = components.StatusOffline
		}
		return m, nil

	case ModelsLoadedMsg:
		if msg.Error != nil {
			// Listing failed; fall back to the built-in model set so
			// the picker stays usable offline.
			log.Warn().Err(msg.Error).Msg("model listing failed, using fallback list")
			m.picker.SetModels(engine.FallbackModels(), m.activeModel)
		} else {
			m.picker.SetModels(msg.Models, m.activeModel)
		}
		return m, nil

	case AutoSaveTickMsg:
		// The runner goroutine owns the conversation mid-stream, so the
		// checkpoint waits for StreamCompleteMsg.
		if !m.streaming && m.workspace.SaveIfDue() {
			m.statusbar.Dirty = m.workspace.IsDirty()
		}
		return m, autoSaveTickCmd()

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)

	case SearchResultsMsg:
		return m.handleSearchResults(msg)
	}

	return m, nil
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	chatWidth := m.chatWidth()
	// Header, input, status bar.
	chatHeight := msg.Height - 6
	if chatHeight < 4 {
		chatHeight = 4
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.input.SetWidth(chatWidth)
	m.statusbar.Width = msg.Width
	m.sidebar.Height = chatHeight
	m.markdown.SetWidth(chatWidth - 8)

	m.refreshViewport()
	return m, nil
}

func (m *Model) chatWidth() int {
	w := m.width
	if m.showSidebar {
		w -= m.sidebar.Width
	}
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The picker overlay captures navigation while open.
	if m.showPicker {
		return m.handlePickerKey(msg)
	}
	if m.focusSidebar {
		return m.handleSidebarKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.handleQuit()

	case key.Matches(msg, m.keys.Cancel):
		if m.streaming {
			m.cancelStream()
			return m, nil
		}
		if m.searchResults != "" {
			m.searchResults = ""
			m.refreshViewport()
			return m, nil
		}
		m.clearError()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.NewChat):
		if m.streaming {
			return m, nil
		}
		m.workspace.NewConversation()
		m.statusbar.Dirty = true
		m.syncSidebar()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		// No save while the runner goroutine owns the conversation.
		if m.streaming {
			return m, nil
		}
		if err := m.workspace.Save(); err != nil {
			m.setError("Save failed", err.Error())
		} else {
			m.statusbar.Dirty = false
		}
		return m, nil

	case key.Matches(msg, m.keys.ModelPicker):
		m.showPicker = true
		return m, m.loadModelsCmd()

	case key.Matches(msg, m.keys.Sidebar):
		m.showSidebar = true
		m.focusSidebar = true
		m.input.SetDisabled(true)
		if !m.streaming {
			m.syncSidebar()
		}
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keys.ToggleStream):
		m.useStreaming = !m.useStreaming
		m.statusbar.Streaming = m.useStreaming
		return m, nil

	case key.Matches(msg, m.keys.CopyCode):
		return m.handleCopyCode()

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	cmd := m.input.Update(msg)
	return m, cmd
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.ModelPicker):
		m.showPicker = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.picker.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.picker.CursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if id := m.picker.Selected(); id != "" {
			m.activeModel = id
			m.statusbar.Model = id
		}
		m.showPicker = false
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		return m.handleQuit()
	}
	return m, nil
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Sidebar):
		m.focusSidebar = false
		m.showSidebar = m.cfg.UI.ShowSidebar
		m.input.SetDisabled(m.streaming)
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keys.Up):
		m.sidebar.CursorUp()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.sidebar.CursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if conv := m.sidebar.Selected(); conv != nil && !m.streaming {
			m.workspace.Select(conv.ID)
			m.syncSidebar()
			m.refreshViewport()
		}
		m.focusSidebar = false
		m.input.SetDisabled(m.streaming)
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if conv := m.sidebar.Selected(); conv != nil && !m.streaming {
			m.workspace.Delete(conv.ID)
			m.statusbar.Dirty = true
			m.syncSidebar()
			m.refreshViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		return m.handleQuit()
	}
	return m, nil
}

// handleQuit saves and exits. If an exchange is in flight the cancel is
// issued first and the exit waits for StreamCompleteMsg, so the save
// never overlaps the runner goroutine's writes to the conversation.
func (m Model) handleQuit() (tea.Model, tea.Cmd) {
	if m.streaming {
		m.cancelStream()
		m.quitting = true
		return m, nil
	}
	if m.workspace.IsDirty() {
		if err := m.workspace.Save(); err != nil {
			log.Warn().Err(err).Msg("save on quit failed")
		}
	}
	return m, tea.Quit
}

// =============================================================================
// SUBMIT AND STREAM HANDLERS
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.streaming {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		return m.handleSlashCommand(text)
	}

	m.input.Reset()
	m.input.SetDisabled(true)
	m.clearError()

	cmd := m.startExchange(text)
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, cmd
}

// handleSlashCommand supports /search over the persisted history.
func (m Model) handleSlashCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/search":
		query := strings.TrimSpace(strings.TrimPrefix(text, "/search"))
		if query == "" {
			m.setError("Search", "usage: /search <query>")
			m.input.Reset()
			return m, nil
		}
		if m.index == nil {
			m.setError("Search", "history index unavailable")
			m.input.Reset()
			return m, nil
		}
		m.input.Reset()
		m.searchResults = m.theme.ThinkingText.Render("searching for " + query + "...")
		m.refreshViewport()
		return m, m.searchCmd(query)

	default:
		m.setError("Unknown command", fields[0])
		m.input.Reset()
		return m, nil
	}
}

func (m Model) handleSearchResults(msg SearchResultsMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.searchResults = ""
		m.setError("Search failed", msg.Error.Error())
		m.refreshViewport()
		return m, nil
	}

	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render(fmt.Sprintf("%d matches for %q", len(msg.Results), msg.Query)))
	sb.WriteString("\n")
	sb.WriteString(m.theme.SidebarPreview.Render("esc to return to the conversation"))
	sb.WriteString("\n\n")
	for _, r := range msg.Results {
		sb.WriteString(m.theme.ShortcutKey.Render(r.Timestamp.Format("2006-01-02 15:04")))
		sb.WriteString("  ")
		sb.WriteString(m.theme.SidebarItem.Render(util.TruncateRunes(r.ConversationTitle, 40)))
		sb.WriteString("\n  ")
		sb.WriteString(util.TruncateRunes(util.CleanLine(r.Content), 120))
		sb.WriteString("\n\n")
	}
	if len(msg.Results) == 0 {
		sb.WriteString(m.theme.SidebarPreview.Render("nothing matched"))
	}

	m.searchResults = sb.String()
	m.refreshViewport()
	m.viewport.GotoTop()
	return m, nil
}

func (m Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}
	if chunk, ok := m.buffer.Flush(); ok {
		m.streamText += chunk
		m.refreshViewport()
		m.viewport.GotoBottom()
	}
	return m, streamTickCmd()
}

func (m Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	m.streamCancel = nil
	m.snapshot = nil
	m.pendingUser = nil
	m.streamText = ""
	m.buffer.Reset()
	m.input.SetDisabled(false)

	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, session.ErrBusy):
			// Another exchange owns the conversation; nothing to show.
		case errors.Is(msg.Err, session.ErrEmptyMessage):
			// Input validation already prevents this path.
		default:
			m.setError("Send failed", msg.Err.Error())
		}
	} else if msg.Result != nil && msg.Result.Fallback {
		if errors.Is(msg.Result.Err, engine.ErrUnreachable) {
			m.online = false
			m.statusbar.State = components.StatusOffline
		}
	}

	if m.online {
		m.statusbar.State = components.StatusIdle
	}
	m.workspace.MarkDirty()
	m.statusbar.Dirty = true

	// A quit requested mid-stream was deferred until here; the
	// goroutine is done, so saving is safe now.
	if m.quitting {
		if err := m.workspace.Save(); err != nil {
			log.Warn().Err(err).Msg("save on quit failed")
		}
		return m, tea.Quit
	}

	m.syncSidebar()
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m Model) handleCopyCode() (tea.Model, tea.Cmd) {
	conv := m.workspace.Current()
	if conv == nil || m.streaming {
		return m, nil
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		msg := conv.Messages[i]
		if msg.Role != model.RoleAssistant {
			continue
		}
		blocks := components.ExtractCodeBlocks(msg.DisplayContent())
		if len(blocks) == 0 {
			continue
		}
		if err := clipboard.WriteAll(blocks[len(blocks)-1].Code); err != nil {
			m.setError("Copy failed", err.Error())
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config.UI.Theme != m.cfg.UI.Theme {
		m.theme.ApplyMode(msg.Config.UI.Theme)
	}
	m.cfg = msg.Config
	if msg.Config.Engine.Model != "" {
		m.activeModel = msg.Config.Engine.Model
		m.statusbar.Model = m.activeModel
	}
	m.useStreaming = msg.Config.Engine.Streaming
	m.statusbar.Streaming = m.useStreaming
	if !m.focusSidebar {
		m.showSidebar = msg.Config.UI.ShowSidebar
	}
	return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})
}
