// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// STREAMING BUFFER TESTS
// =============================================================================

func TestStreamingBufferWrite(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Hello")
	sb.Write(" ")
	sb.Write("World")

	if pending := sb.Pending(); pending != 3 {
		t.Errorf("Expected 3 pending tokens, got %d", pending)
	}
}

func TestStreamingBufferFlushBySize(t *testing.T) {
	sb := NewStreamingBufferWithConfig(3, 30)

	sb.Write("A")
	sb.Write("B")

	if _, hasContent := sb.Flush(); hasContent {
		t.Error("Should not flush before reaching batch size")
	}

	sb.Write("C")

	content, hasContent := sb.Flush()
	if !hasContent {
		t.Error("Should flush after reaching batch size")
	}
	if content != "ABC" {
		t.Errorf("Expected flushed content 'ABC', got '%s'", content)
	}

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending tokens after flush, got %d", pending)
	}
}

func TestStreamingBufferFlushByTime(t *testing.T) {
	sb := NewStreamingBufferWithConfig(100, 30)

	sb.Write("A")

	// Wait past the 33ms frame interval.
	time.Sleep(40 * time.Millisecond)

	content, hasContent := sb.Flush()
	if !hasContent {
		t.Error("Should flush after time threshold")
	}
	if content != "A" {
		t.Errorf("Expected flushed content 'A', got '%s'", content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("Test")

	content, hasContent := sb.ForceFlush()
	if !hasContent {
		t.Error("ForceFlush should return content")
	}
	if content != "Test" {
		t.Errorf("Expected 'Test', got '%s'", content)
	}

	if _, hasContent := sb.ForceFlush(); hasContent {
		t.Error("Second ForceFlush should return nothing")
	}
}

func TestStreamingBufferReset(t *testing.T) {
	sb := NewStreamingBuffer()

	sb.Write("discarded")
	sb.Reset()

	if pending := sb.Pending(); pending != 0 {
		t.Errorf("Expected 0 pending tokens after reset, got %d", pending)
	}
	if _, hasContent := sb.ForceFlush(); hasContent {
		t.Error("Buffer should be empty after reset")
	}
}

func TestStreamingBufferPreservesOrder(t *testing.T) {
	sb := NewStreamingBufferWithConfig(5, 30)

	var got strings.Builder
	for i := 0; i < 50; i++ {
		sb.Write(fmt.Sprintf("%d,", i))
		if content, ok := sb.Flush(); ok {
			got.WriteString(content)
		}
	}
	if content, ok := sb.ForceFlush(); ok {
		got.WriteString(content)
	}

	var want strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&want, "%d,", i)
	}
	if got.String() != want.String() {
		t.Errorf("Token order not preserved:\ngot  %s\nwant %s", got.String(), want.String())
	}
}

func TestStreamingBufferConcurrentWrites(t *testing.T) {
	sb := NewStreamingBufferWithConfig(1000, 30)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sb.Write("x")
			}
		}()
	}
	wg.Wait()

	content, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("Expected buffered content")
	}
	if len(content) != 1000 {
		t.Errorf("Expected 1000 bytes, got %d", len(content))
	}
}

func TestStreamingBufferInvalidConfig(t *testing.T) {
	// Out-of-range values fall back to defaults rather than panicking.
	sb := NewStreamingBufferWithConfig(0, 0)
	sb.Write("a")
	if pending := sb.Pending(); pending != 1 {
		t.Errorf("Expected 1 pending token, got %d", pending)
	}

	sb = NewStreamingBufferWithConfig(-5, 1000)
	for i := 0; i < 15; i++ {
		sb.Write("t")
	}
	content, ok := sb.Flush()
	if !ok {
		t.Fatal("Expected flush at default batch size")
	}
	if content != strings.Repeat("t", 15) {
		t.Errorf("Unexpected content %q", content)
	}
}
