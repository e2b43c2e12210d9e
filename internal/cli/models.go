// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// =============================================================================
// MODELS COMMAND
// =============================================================================

// HandleModels lists the models the gateway offers.
func HandleModels(args Args) int {
	cfg := loadConfig()
	client := newEngineClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		printEngineError(err)
		return 1
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(models); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("encode: "+err.Error()))
			return 1
		}
		return 0
	}

	if len(models) == 0 {
		fmt.Println(infoStyle.Render("gateway reported no models"))
		return 0
	}

	active := resolveModel(args, cfg)
	fmt.Println(titleStyle.Render(fmt.Sprintf("%d models @ %s", len(models), client.BaseURL())))
	for _, m := range models {
		marker := "  "
		if m.ID == active {
			marker = "* "
		}
		fmt.Println(marker + m.ID)
	}
	return 0
}
