// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/session"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner drives a chat exchange in a goroutine and feeds the
// results back into the Bubble Tea program. bubbletea commands must
// return a single message, so long-lived streams use program.Send to
// deliver StreamTokenMsg as tokens arrive.
type StreamRunner struct {
	program *tea.Program
	session *session.ChatSession
	buffer  *StreamingBuffer
}

// NewStreamRunner creates a runner bound to the session. The program is
// attached after tea.NewProgram via SetProgram.
func NewStreamRunner(sess *session.ChatSession, buffer *StreamingBuffer) *StreamRunner {
	return &StreamRunner{
		session: sess,
		buffer:  buffer,
	}
}

// SetProgram attaches the Bubble Tea program. Must be called before the
// first Run.
func (r *StreamRunner) SetProgram(program *tea.Program) {
	r.program = program
}

// Run executes one exchange. Call from a goroutine; it blocks until the
// stream completes, fails, or ctx is cancelled. The conversation must
// not be read by the Tea loop until StreamCompleteMsg arrives.
func (r *StreamRunner) Run(ctx context.Context, conv *model.Conversation, userText string, opts session.SendOptions) {
	if r.program == nil {
		return
	}
	r.program.Send(NewStreamStartMsg(conv.ID))

	isFirst := true
	opts.OnToken = func(token string) {
		r.buffer.Write(token)
		if isFirst {
			r.program.Send(StreamTokenMsg{
				ConversationID: conv.ID,
				Token:          token,
				IsFirst:        true,
			})
			isFirst = false
		}
	}

	result, err := r.session.Send(ctx, conv, userText, opts)
	r.program.Send(StreamCompleteMsg{
		ConversationID: conv.ID,
		Result:         result,
		Err:            err,
	})
}
