// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/freechat-tui/internal/history"
	"github.com/jeranaias/freechat-tui/internal/storage"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// SEARCH COMMAND
// =============================================================================

const defaultSearchResults = 20

// HandleSearch runs a full-text query over the message history index.
// The index is rebuilt from the conversation store before querying, so
// results always reflect the current JSON document.
func HandleSearch(args Args) int {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("usage: freechat search <query>"))
		return 1
	}

	store, err := storage.NewConversationStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("storage: "+err.Error()))
		return 1
	}

	indexPath, err := history.DefaultPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("index: "+err.Error()))
		return 1
	}
	idx, err := history.Open(indexPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("index: "+err.Error()))
		return 1
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := idx.Reindex(ctx, store.Load()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("reindex: "+err.Error()))
		return 1
	}

	parser := NewArgParser(args.Raw)
	limit := parser.FlagIntOrDefault("limit", defaultSearchResults)

	results, err := idx.Search(ctx, query, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("search: "+err.Error()))
		return 1
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("encode: "+err.Error()))
			return 1
		}
		return 0
	}

	if len(results) == 0 {
		fmt.Println(infoStyle.Render("no matches for " + query))
		return 0
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d matches", len(results))))
	for _, r := range results {
		snippet := util.CleanLine(r.Content)
		snippet = util.TruncateRunes(snippet, 100)
		fmt.Printf("%s  [%s] %s\n    %s\n",
			r.Timestamp.Format("2006-01-02 15:04"),
			r.Role,
			titleStyle.Render(util.TruncateRunes(r.ConversationTitle, 40)),
			snippet)
	}
	return 0
}
