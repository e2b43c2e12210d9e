// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/freechat-tui/internal/engine"
)

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAsk runs a one-shot question against the gateway and prints the
// answer. Returns a process exit code.
func HandleAsk(args Args) int {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Println(errorStyle.Render("Usage: freechat ask \"your question\""))
		return 1
	}

	cfg := loadConfig()
	client := newEngineClient(cfg)
	modelName := resolveModel(args, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !args.Quiet {
		fmt.Println(infoStyle.Render("model: " + modelName))
	}

	messages := []engine.ChatMessage{engine.NewUserMessage(query)}

	streaming := cfg.Engine.Streaming && !args.NoStream

	// Markdown rendering needs the whole answer, so a TTY gets the
	// accumulated text passed through glamour. Piped output streams raw.
	renderMarkdown := cfg.UI.MarkdownRendering && IsStdoutTTY()

	var answer string
	var err error
	switch {
	case streaming && !renderMarkdown:
		err = client.ChatStream(ctx, modelName, messages, func(chunk engine.StreamChunk) {
			fmt.Print(chunk.GetContent())
		})
		fmt.Println()
	case streaming:
		answer, err = client.ChatStreamAccumulate(ctx, modelName, messages)
	default:
		var resp *engine.ChatResponse
		resp, err = client.Chat(ctx, modelName, messages)
		if resp != nil {
			answer = resp.GetContent()
		}
	}

	if err != nil {
		printEngineError(err)
		// Keep any partial answer the stream produced.
		var streamErr *engine.StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			answer = streamErr.Partial
		} else if answer == "" {
			return 1
		}
	}

	if answer != "" {
		printAnswer(answer, renderMarkdown)
	}
	return 0
}

// printAnswer writes the answer, glamour-rendered when asked.
func printAnswer(answer string, renderMarkdown bool) {
	if renderMarkdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(TerminalWidth()-2),
		)
		if err == nil {
			if out, renderErr := renderer.Render(answer); renderErr == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Println(answer)
}

// printEngineError maps engine errors to actionable CLI messages.
func printEngineError(err error) {
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, warningStyle.Render("cancelled"))
	case errors.Is(err, engine.ErrUnreachable):
		fmt.Fprintln(os.Stderr, errorStyle.Render("gateway unreachable"))
		fmt.Fprintln(os.Stderr, infoStyle.Render("Is the gateway running? Set FREECHAT_BASE_URL or check config.toml."))
	case errors.Is(err, engine.ErrAuthFailed):
		fmt.Fprintln(os.Stderr, errorStyle.Render("authentication failed"))
		fmt.Fprintln(os.Stderr, infoStyle.Render("Set FREECHAT_API_KEY if your gateway requires a token."))
	case errors.Is(err, engine.ErrRateLimited):
		fmt.Fprintln(os.Stderr, errorStyle.Render("rate limited by the gateway, try again shortly"))
	case errors.Is(err, engine.ErrModelNotFound):
		fmt.Fprintln(os.Stderr, errorStyle.Render("model not found"))
		fmt.Fprintln(os.Stderr, infoStyle.Render("Run 'freechat models' to list what the gateway offers."))
	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
	}
}
