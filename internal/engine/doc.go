// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine provides the completion client for freechat.
//
// The client speaks the OpenAI-compatible chat completions API exposed by
// free-tier gateways (default http://127.0.0.1:1337/v1). No API key is
// required by default; when one is configured it is sent as a Bearer token.
// Streaming responses arrive as Server-Sent Events and are surfaced through
// a per-chunk callback.
package engine
