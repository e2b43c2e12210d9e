// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/freechat-tui/internal/config"
	"github.com/jeranaias/freechat-tui/internal/engine"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies which CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSessions
	CmdSearch
	CmdConfig
	CmdModels
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	Verbose  bool
	JSON     bool
	Model    string
	NoStream bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after global flag parsing
	Raw []string
}

const usageText = `freechat - terminal chat client for free AI gateways

Freechat talks to any OpenAI-compatible completion gateway, defaulting
to a local free-tier proxy on 127.0.0.1:1337. Conversations persist in
a single JSON file under ~/.freechat/.

Usage:
  freechat                      Start the TUI (default)
  freechat ask "question"       Ask a single question and exit
  freechat chat                 Interactive REPL chat
  freechat sessions [subcmd]    Manage saved conversations
  freechat search <query>       Full-text search across message history
  freechat models               List models offered by the gateway
  freechat config [show|set]    Show or change configuration
  freechat version              Show version
  freechat help                 Show this help

Global flags:
  -m, --model NAME    Use a specific model
  --no-stream         Disable token streaming
  -q, --quiet         Minimal output
  -v, --verbose       Verbose output
  --json              JSON output where supported

Sessions subcommands:
  freechat sessions list            List saved conversations
  freechat sessions show <id>       Print a conversation
  freechat sessions export <id>     Export as markdown
    --output FILE                   Write to file instead of stdout
  freechat sessions delete <id>     Delete a conversation
    --confirm                       Required confirmation flag

Environment:
  FREECHAT_BASE_URL    Gateway base URL
  FREECHAT_MODEL       Default model
  FREECHAT_API_KEY     Bearer token, if the gateway wants one

Interactive chat commands:
  /model [name]     Show or switch model
  /clear            Clear conversation history
  /history          Show the conversation so far
  /quit             Exit chat (also Ctrl+D)
`

// Usage returns the top-level help text.
func Usage() string {
	return usageText
}

// VersionString formats the version banner.
func VersionString() string {
	return fmt.Sprintf("freechat %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

// ParseArgs maps raw program arguments to a command and its options.
func ParseArgs(args []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := remaining[0]
	remaining = remaining[1:]
	parsed.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "ask":
		parsed.Query = strings.Join(remaining, " ")
		return CmdAsk, parsed

	case "chat":
		return CmdChat, parsed

	case "sessions", "session":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
		}
		return CmdSessions, parsed

	case "search":
		parsed.Query = strings.Join(remaining, " ")
		return CmdSearch, parsed

	case "models":
		return CmdModels, parsed

	case "config":
		if len(remaining) > 0 {
			parsed.Subcommand = remaining[0]
		}
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		// Unknown word: treat the whole line as an ask query.
		parsed.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, parsed
	}
}

// parseGlobalFlags strips flags every command understands.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	i := 0
	for i < len(args) {
		arg := args[i]
		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		case "--no-stream":
			parsed.NoStream = true
		case "-m", "--model":
			if i+1 < len(args) {
				i++
				parsed.Model = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--model=") {
				parsed.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsed
}

// =============================================================================
// SHARED COMMAND SETUP
// =============================================================================

// loadConfig loads configuration, falling back to defaults so CLI
// commands keep working with a broken config file.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println(warningStyle.Render("config error: " + err.Error() + " (using defaults)"))
		cfg = config.Default()
	}
	return cfg
}

// newEngineClient builds a gateway client from config plus CLI overrides.
func newEngineClient(cfg *config.Config) *engine.Client {
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
	return client
}

// resolveModel picks the model: CLI flag wins over config over default.
func resolveModel(args Args, cfg *config.Config) string {
	if args.Model != "" {
		return args.Model
	}
	if cfg.Engine.Model != "" {
		return cfg.Engine.Model
	}
	return engine.DefaultModel
}
