// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for freechat.
//
// Configuration lives in ~/.freechat/config.toml with sensible defaults
// and environment variable overrides (FREECHAT_*). A file watcher can
// reload the configuration when it changes on disk.
package config
