// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// A Conversation is an ordered, append-only sequence of Messages plus a
// title derived once from the first user message. An assistant Message is
// created in the streaming state, grows in place as tokens arrive, and
// becomes immutable when the stream finishes.
package model
