// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI command surface: ask, chat,
// sessions, search, config and version. Commands write to stdout and
// return process exit codes; main wires them to os.Exit.
package cli
