// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides a full-text search index over past messages.
//
// The JSON document in package storage is the source of truth; this index
// is a derived SQLite database that can always be rebuilt from it with
// Reindex. Queries go through FTS5 so searches stay fast as history grows.
package history
