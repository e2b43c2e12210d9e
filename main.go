// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// freechat is a terminal chat client for OpenAI-compatible free-tier
// gateways. With no arguments it starts the Bubble Tea TUI; subcommands
// provide one-shot and scripted access (ask, chat, sessions, search).
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/freechat-tui/internal/cli"
	"github.com/jeranaias/freechat-tui/internal/config"
	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/history"
	"github.com/jeranaias/freechat-tui/internal/logging"
	"github.com/jeranaias/freechat-tui/internal/session"
	"github.com/jeranaias/freechat-tui/internal/storage"
	"github.com/jeranaias/freechat-tui/internal/ui/chat"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args := cli.ParseArgs(argv)

	switch cmd {
	case cli.CmdTUI:
		return runTUI(args)
	case cli.CmdAsk:
		logging.SetupDiscard()
		return cli.HandleAsk(args)
	case cli.CmdChat:
		logging.SetupDiscard()
		return cli.HandleChat(args)
	case cli.CmdSessions:
		logging.SetupDiscard()
		return cli.HandleSessions(args)
	case cli.CmdSearch:
		logging.SetupDiscard()
		return cli.HandleSearch(args)
	case cli.CmdModels:
		logging.SetupDiscard()
		return cli.HandleModels(args)
	case cli.CmdConfig:
		logging.SetupDiscard()
		return cli.HandleConfig(args)
	case cli.CmdVersion:
		fmt.Println(cli.VersionString())
		return 0
	case cli.CmdHelp:
		fmt.Println(cli.Usage())
		return 0
	default:
		fmt.Fprintln(os.Stderr, "unknown command")
		return 1
	}
}

// runTUI wires storage, engine, config reload and the history index
// into the Bubble Tea program.
func runTUI(args cli.Args) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v (using defaults)\n", err)
		cfg = config.Default()
	}
	config.SetGlobal(cfg)

	closer, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		logging.SetupDiscard()
	} else {
		defer closer.Close()
	}

	store, err := newStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		return 1
	}
	workspace := session.NewWorkspace(store)
	workspace.SetAutoSaveInterval(time.Duration(cfg.Storage.AutoSaveSecs) * time.Second)

	client := engine.NewClient(cfg.Engine.BaseURL)
	if cfg.Engine.APIKey != "" {
		client = client.WithAPIKey(cfg.Engine.APIKey)
	}
	if cfg.Engine.MaxRetries > 0 {
		client = client.WithMaxRetries(cfg.Engine.MaxRetries)
	}
	if cfg.Engine.RequestsPerMinute > 0 {
		client = client.WithRequestsPerMinute(cfg.Engine.RequestsPerMinute)
	}
	if args.Model != "" {
		cfg.Engine.Model = args.Model
	}

	// The history index is optional; /search degrades gracefully.
	var index *history.Index
	if cfg.Storage.SearchIndex {
		if path, pathErr := history.DefaultPath(); pathErr == nil {
			if idx, openErr := history.Open(path); openErr == nil {
				index = idx
				defer idx.Close()
			} else {
				log.Warn().Err(openErr).Msg("history index unavailable")
			}
		}
	}

	sess := session.NewChatSession(client)
	buffer := chat.NewStreamingBuffer()
	runner := chat.NewStreamRunner(sess, buffer)

	m := chat.New(cfg, workspace, client, runner, buffer, index)
	program := tea.NewProgram(m, tea.WithAltScreen())
	runner.SetProgram(program)

	// Hot-reload config.toml edits into the running UI.
	watcher, err := newConfigWatcher(program)
	if err != nil {
		log.Warn().Err(err).Msg("config watcher disabled")
	} else {
		defer watcher.Close()
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "freechat: %v\n", err)
		return 1
	}

	if workspace.IsDirty() {
		if err := workspace.Save(); err != nil {
			log.Warn().Err(err).Msg("final save failed")
		}
	}
	return 0
}

func newStore(cfg *config.Config) (*storage.ConversationStore, error) {
	var store *storage.ConversationStore
	var err error
	if cfg.Storage.ConversationsPath != "" {
		store, err = storage.NewConversationStoreWithPath(cfg.Storage.ConversationsPath)
	} else {
		store, err = storage.NewConversationStore()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Storage.MaxConversations > 0 {
		store.MaxConversations = cfg.Storage.MaxConversations
	}
	return store, nil
}

func newConfigWatcher(program *tea.Program) (*config.Watcher, error) {
	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
		program.Send(chat.ConfigReloadedMsg{Config: cfg})
	})
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(); err != nil {
		watcher.Close()
		return nil, err
	}
	return watcher, nil
}
