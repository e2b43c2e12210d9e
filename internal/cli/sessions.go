// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/freechat-tui/internal/storage"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

// HandleSessions manages saved conversations: list, show, export, delete.
func HandleSessions(args Args) int {
	store, err := storage.NewConversationStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("storage: "+err.Error()))
		return 1
	}

	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "list", "ls":
		return sessionsList(store, args.JSON || parser.BoolFlag("json"))

	case "show":
		return sessionsShow(store, parser.Positional(1))

	case "export":
		return sessionsExport(store, parser.Positional(1), parser.Flag("output"))

	case "delete", "rm":
		return sessionsDelete(store, parser.Positional(1), parser.BoolFlag("confirm"))

	default:
		fmt.Fprintln(os.Stderr, errorStyle.Render("unknown sessions subcommand: "+parser.Subcommand()))
		fmt.Println(infoStyle.Render("available: list, show <id>, export <id> [--output FILE], delete <id> --confirm"))
		return 1
	}
}

func sessionsList(store *storage.ConversationStore, asJSON bool) int {
	metas := store.List()

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metas); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("encode: "+err.Error()))
			return 1
		}
		return 0
	}

	if len(metas) == 0 {
		fmt.Println(infoStyle.Render("no saved conversations"))
		return 0
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d conversations", len(metas))))
	for _, meta := range metas {
		fmt.Printf("%s  %-50s  %3d msgs  %s\n",
			meta.ID,
			util.TruncateRunes(meta.Title, 50),
			meta.MessageCount,
			meta.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return 0
}

func sessionsShow(store *storage.ConversationStore, id string) int {
	if id == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("usage: freechat sessions show <id>"))
		return 1
	}

	conv, err := store.Get(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return 1
	}

	fmt.Println(titleStyle.Render(conv.Title))
	fmt.Println(infoStyle.Render(fmt.Sprintf("%d messages, updated %s", conv.MessageCount(), conv.UpdatedAt.Format("2006-01-02 15:04"))))
	fmt.Println()
	for _, msg := range conv.Messages {
		fmt.Printf("%s:\n%s\n\n", commandStyle.Render(msg.Role.DisplayName()), msg.DisplayContent())
	}
	return 0
}

func sessionsExport(store *storage.ConversationStore, id, output string) int {
	if id == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("usage: freechat sessions export <id> [--output FILE]"))
		return 1
	}

	conv, err := store.Get(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return 1
	}

	markdown := storage.ExportMarkdown(conv)
	if output == "" {
		fmt.Print(markdown)
		return 0
	}

	if err := os.WriteFile(output, []byte(markdown), 0644); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("write: "+err.Error()))
		return 1
	}
	fmt.Println(infoStyle.Render("exported to " + output))
	return 0
}

func sessionsDelete(store *storage.ConversationStore, id string, confirmed bool) int {
	if id == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("usage: freechat sessions delete <id> --confirm"))
		return 1
	}
	if !confirmed {
		fmt.Fprintln(os.Stderr, warningStyle.Render("deletion is permanent; re-run with --confirm"))
		return 1
	}

	if err := store.Delete(id); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		return 1
	}
	fmt.Println(infoStyle.Render("deleted " + id))
	return 0
}
