// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the freechat application:
// crash-safe file writes and unicode-aware string shaping used by the
// data model and the UI.
package util
