// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat interface.
//
// The package is organized by concern:
//   - messages.go: Bubble Tea message types exchanged by the UI
//   - streaming.go: token batching for flicker-free rendering
//   - runner.go: bridges blocking engine calls into the Tea loop
//   - keys.go: keyboard bindings
//   - model.go, update.go, view.go: the Tea model itself
package chat
