// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/freechat-tui/internal/config"
	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/history"
	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/session"
	"github.com/jeranaias/freechat-tui/internal/ui/components"
	"github.com/jeranaias/freechat-tui/internal/ui/styles"
)

// =============================================================================
// TEA MODEL
// =============================================================================

const autoSaveCheckInterval = 5 * time.Second

// Model is the top-level Bubble Tea model for the chat interface.
type Model struct {
	cfg   *config.Config
	theme *styles.Theme
	keys  KeyMap

	workspace *session.Workspace
	client    *engine.Client
	runner    *StreamRunner
	buffer    *StreamingBuffer
	index     *history.Index // nil disables /search

	viewport  viewport.Model
	spinner   spinner.Model
	input     *components.Input
	sidebar   *components.Sidebar
	picker    *components.ModelPicker
	statusbar *components.StatusBar
	markdown  *components.MarkdownRenderer

	width  int
	height int

	activeModel  string
	useStreaming bool
	online       bool

	// Streaming state. While streaming the conversation is owned by the
	// runner goroutine, so the view renders from snapshot plus the text
	// accumulated from buffer flushes.
	streaming    bool
	streamText   string
	snapshot     []*model.Message
	pendingUser  *model.Message
	streamCancel context.CancelFunc

	// quitting defers exit until a cancelled exchange completes.
	quitting bool

	showSidebar  bool
	focusSidebar bool
	showPicker   bool

	// searchResults, when non-empty, replaces the transcript until
	// dismissed with Esc.
	searchResults string

	errTitle string
	errText  string
}

// New assembles the chat model from its collaborators. index may be nil
// when the history database could not be opened.
func New(cfg *config.Config, workspace *session.Workspace, client *engine.Client, runner *StreamRunner, buffer *StreamingBuffer, index *history.Index) Model {
	theme := styles.NewThemeForMode(cfg.UI.Theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	vp := viewport.New(80, 20)

	activeModel := cfg.Engine.Model
	if activeModel == "" {
		activeModel = engine.DefaultModel
	}

	sb := components.NewStatusBar(theme)
	sb.Model = activeModel
	sb.Streaming = cfg.Engine.Streaming

	m := Model{
		cfg:          cfg,
		theme:        theme,
		keys:         DefaultKeyMap(),
		workspace:    workspace,
		client:       client,
		runner:       runner,
		buffer:       buffer,
		index:        index,
		viewport:     vp,
		spinner:      sp,
		input:        components.NewInput(theme),
		sidebar:      components.NewSidebar(theme),
		picker:       components.NewModelPicker(theme),
		statusbar:    sb,
		markdown:     components.NewMarkdownRenderer(76, theme.IsDark),
		activeModel:  activeModel,
		useStreaming: cfg.Engine.Streaming,
		showSidebar:  cfg.UI.ShowSidebar,
	}

	if workspace.Current() == nil {
		workspace.NewConversation()
	}
	m.syncSidebar()
	m.refreshViewport()

	return m
}

// Init kicks off the engine health check and the auto-save loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.checkEngineCmd(),
		autoSaveTickCmd(),
		m.spinner.Tick,
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) checkEngineCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := client.Ping(ctx)
		return EngineStatusMsg{Online: err == nil, Error: err}
	}
}

func (m Model) loadModelsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		models, err := client.ListModels(ctx)
		return ModelsLoadedMsg{Models: models, Error: err}
	}
}

func autoSaveTickCmd() tea.Cmd {
	return tea.Tick(autoSaveCheckInterval, func(t time.Time) tea.Msg {
		return AutoSaveTickMsg{Time: t}
	})
}

// startExchange launches the stream goroutine for the current
// conversation and hands ownership of it to the runner.
func (m *Model) startExchange(userText string) tea.Cmd {
	conv := m.workspace.Current()
	if conv == nil {
		conv = m.workspace.NewConversation()
	}

	// Snapshot for rendering while the goroutine mutates the conversation.
	m.snapshot = append([]*model.Message(nil), conv.Messages...)
	m.pendingUser = model.NewUserMessage(userText)
	m.streamText = ""
	m.buffer.Reset()
	m.streaming = true

	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel

	opts := session.SendOptions{
		Model:     m.activeModel,
		Streaming: m.useStreaming,
	}

	runner := m.runner
	return func() tea.Msg {
		runner.Run(ctx, conv, userText, opts)
		return nil
	}
}

// searchCmd reindexes from the store and queries the history index.
func (m Model) searchCmd(query string) tea.Cmd {
	index := m.index
	ws := m.workspace
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := index.Reindex(ctx, ws.Conversations()); err != nil {
			return SearchResultsMsg{Query: query, Error: err}
		}
		results, err := index.Search(ctx, query, 20)
		return SearchResultsMsg{Query: query, Results: results, Error: err}
	}
}

// cancelStream stops an in-flight exchange. The session finalizes the
// partial assistant message; StreamCompleteMsg still arrives.
func (m *Model) cancelStream() {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) syncSidebar() {
	currentID := ""
	if conv := m.workspace.Current(); conv != nil {
		currentID = conv.ID
	}
	m.sidebar.SetConversations(m.workspace.Conversations(), currentID)
}

func (m *Model) setError(title, text string) {
	m.errTitle = title
	m.errText = text
}

func (m *Model) clearError() {
	m.errTitle = ""
	m.errText = ""
}
