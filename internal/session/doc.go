// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates a chat exchange: it appends the user
// message, requests a completion, feeds tokens into the placeholder
// assistant message, and guarantees the exchange always finalizes.
//
// Every Send adds exactly two messages to the conversation. Engine
// failures never propagate as a broken conversation; the assistant
// message is finalized with a fallback notice instead.
package session
