// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jeranaias/freechat-tui/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig shows or updates persisted configuration.
func HandleConfig(args Args) int {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		return configShow()

	case "path":
		path, err := config.Path()
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
			return 1
		}
		fmt.Println(path)
		return 0

	case "set":
		return configSet(parser.Positional(1), parser.Positional(2))

	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("unknown config subcommand: "+parser.Subcommand()))
		fmt.Println(infoStyle.Render("available: show, path, set <key> <value>"))
		return 1
	}
}

func configShow() int {
	cfg := loadConfig()

	fmt.Println(titleStyle.Render("engine"))
	fmt.Printf("  base_url            %s\n", cfg.Engine.BaseURL)
	fmt.Printf("  model               %s\n", cfg.Engine.Model)
	fmt.Printf("  streaming           %t\n", cfg.Engine.Streaming)
	fmt.Printf("  max_retries         %d\n", cfg.Engine.MaxRetries)
	fmt.Printf("  requests_per_minute %d\n", cfg.Engine.RequestsPerMinute)
	if cfg.Engine.APIKey != "" {
		fmt.Printf("  api_key             %s\n", "(set)")
	}

	fmt.Println(titleStyle.Render("ui"))
	fmt.Printf("  theme               %s\n", cfg.UI.Theme)
	fmt.Printf("  show_sidebar        %t\n", cfg.UI.ShowSidebar)
	fmt.Printf("  markdown_rendering  %t\n", cfg.UI.MarkdownRendering)

	fmt.Println(titleStyle.Render("logging"))
	fmt.Printf("  level               %s\n", cfg.Logging.Level)
	return 0
}

// configSet updates one known key and saves the file.
func configSet(key, value string) int {
	if key == "" || value == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("usage: freechat config set <key> <value>"))
		return 1
	}

	cfg := loadConfig()

	switch key {
	case "engine.base_url", "base_url":
		cfg.Engine.BaseURL = value
	case "engine.model", "model":
		cfg.Engine.Model = value
	case "engine.api_key", "api_key":
		cfg.Engine.APIKey = value
	case "engine.streaming", "streaming":
		b, err := strconv.ParseBool(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("streaming must be true or false"))
			return 1
		}
		cfg.Engine.Streaming = b
	case "ui.theme", "theme":
		cfg.UI.Theme = value
	case "logging.level", "log_level":
		cfg.Logging.Level = value
	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("unknown key: "+key))
		fmt.Println(infoStyle.Render("settable: base_url, model, api_key, streaming, theme, log_level"))
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("invalid value: "+err.Error()))
		return 1
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("save: "+err.Error()))
		return 1
	}
	fmt.Println(infoStyle.Render(key + " = " + value))
	return 0
}
