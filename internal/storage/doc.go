// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations as a single JSON document on disk.
//
// The whole conversation list lives in one file under the app data
// directory. Loads that fail for any reason fall back to an empty list so
// the client always starts; saves are atomic so a crash mid-write never
// corrupts existing history.
package storage
