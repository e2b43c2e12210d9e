// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/ui/styles"
)

func finalizedAssistant(content string) *model.Message {
	msg := model.NewAssistantMessage()
	msg.AppendToken(content)
	msg.FinalizeStream(nil)
	return msg
}

const fencedReply = "Use this:\n```go\nfmt.Println(\"hi\")\n```\nDone."

func TestAssistantBubbleHighlightsCodeBlocks(t *testing.T) {
	theme := styles.NewTheme()
	bubble := NewMessageBubble(finalizedAssistant(fencedReply), theme)
	bubble.Highlight = true

	out := bubble.View()
	if strings.Contains(out, "```") {
		t.Error("fence markers leaked into the highlighted rendering")
	}
	if !strings.Contains(out, "Println") {
		t.Error("code body missing from the highlighted rendering")
	}
	if !strings.Contains(out, "Use this:") || !strings.Contains(out, "Done.") {
		t.Error("prose around the code block was dropped")
	}
}

func TestAssistantBubblePlainWhenHighlightingOff(t *testing.T) {
	theme := styles.NewTheme()
	bubble := NewMessageBubble(finalizedAssistant(fencedReply), theme)

	out := bubble.View()
	if !strings.Contains(out, "```go") {
		t.Error("plain rendering should keep the fences verbatim")
	}
}

func TestHighlightRendersUnterminatedFence(t *testing.T) {
	theme := styles.NewTheme()
	bubble := NewMessageBubble(finalizedAssistant("```python\nprint(1)"), theme)
	bubble.Highlight = true

	out := bubble.View()
	if strings.Contains(out, "```") {
		t.Error("unterminated fence marker should not render")
	}
	if !strings.Contains(out, "print") {
		t.Error("code after an unterminated fence was dropped")
	}
}

func TestStreamingBubbleSkipsHighlighting(t *testing.T) {
	theme := styles.NewTheme()
	msg := model.NewAssistantMessage()
	msg.AppendToken("```go\npartial")

	bubble := NewMessageBubble(msg, theme)
	bubble.Highlight = true

	// Mid-stream content renders raw; partial fences must stay visible
	// rather than being fed to the highlighter.
	if out := bubble.View(); !strings.Contains(out, "```go") {
		t.Error("streaming bubble should render the partial fence verbatim")
	}
}
