// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/freechat-tui/internal/config"
	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/session"
	"github.com/jeranaias/freechat-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

const historyFileName = "chat_history"

// ChatCLI wraps liner with a persistent history file, giving the REPL
// arrow-key history and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates the line editor and loads saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(dir, historyFileName),
	}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput prompts for a line, recording non-empty input in history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and releases the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the interactive REPL.
func HandleChat(args Args) int {
	if !IsTTY() {
		fmt.Fprintln(os.Stderr, errorStyle.Render("chat needs an interactive terminal; use 'freechat ask' for piped input"))
		return 1
	}

	cfg := loadConfig()
	client := newEngineClient(cfg)
	modelName := resolveModel(args, cfg)
	streaming := cfg.Engine.Streaming && !args.NoStream

	store, err := storage.NewConversationStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("storage: "+err.Error()))
		return 1
	}
	workspace := session.NewWorkspace(store)
	conv := workspace.NewConversation()
	sess := session.NewChatSession(client)

	input := NewChatCLI()
	defer input.Close()

	if !args.Quiet {
		fmt.Println(welcomeStyle.Render("freechat " + Version))
		fmt.Println(infoStyle.Render("model: " + modelName + "  (/help for commands, Ctrl+D to exit)"))
		fmt.Println()
	}

	for {
		text, err := input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				// Ctrl+C at the prompt clears the line, not the session.
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintln(os.Stderr, errorStyle.Render("input: "+err.Error()))
			break
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if quit := handleSlashCommand(text, conv, &modelName); quit {
				break
			}
			continue
		}

		runExchange(sess, conv, text, modelName, streaming)
		workspace.MarkDirty()
		workspace.SaveIfDue()
	}

	if workspace.IsDirty() || conv.MessageCount() > 0 {
		if err := workspace.Save(); err != nil {
			fmt.Fprintln(os.Stderr, warningStyle.Render("save: "+err.Error()))
		}
	}
	if !args.Quiet {
		fmt.Println(infoStyle.Render(fmt.Sprintf("saved %d messages to %s", conv.MessageCount(), store.Path)))
	}
	return 0
}

// runExchange sends one message and prints the streamed reply.
func runExchange(sess *session.ChatSession, conv *model.Conversation, text, modelName string, streaming bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Print(commandStyle.Render("ai> "))
	result, err := sess.Send(ctx, conv, text, session.SendOptions{
		Model:     modelName,
		Streaming: streaming,
		OnToken: func(token string) {
			fmt.Print(token)
		},
	})
	fmt.Println()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		return
	}
	if result.Fallback {
		if result.Err != nil {
			printEngineError(result.Err)
		}
		// OnToken never sees the fallback notice, so print it here.
		if strings.TrimSpace(result.Assistant.DisplayContent()) == session.FallbackNotice {
			fmt.Println(warningStyle.Render(session.FallbackNotice))
		}
	}
	fmt.Println()
}

// handleSlashCommand executes a REPL command. Returns true to quit.
func handleSlashCommand(text string, conv *model.Conversation, modelName *string) bool {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println(infoStyle.Render(`/model [name]   show or switch model
/clear          clear conversation history
/history        show the conversation so far
/quit           exit`))

	case "/model", "/m":
		if len(fields) > 1 {
			*modelName = fields[1]
			fmt.Println(infoStyle.Render("model switched to " + *modelName))
		} else {
			fmt.Println(infoStyle.Render("model: " + *modelName))
		}

	case "/clear", "/c":
		conv.Messages = nil
		fmt.Println(infoStyle.Render("conversation cleared"))

	case "/history":
		if conv.MessageCount() == 0 {
			fmt.Println(infoStyle.Render("no messages yet"))
			break
		}
		for _, msg := range conv.Messages {
			fmt.Printf("%s: %s\n", titleStyle.Render(msg.Role.DisplayName()), msg.Preview(120))
		}

	default:
		fmt.Println(warningStyle.Render("unknown command " + fields[0] + " (/help for commands)"))
	}
	return false
}
