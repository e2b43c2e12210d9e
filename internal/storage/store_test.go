// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/freechat-tui/internal/model"
)

func newTestStore(t *testing.T) *ConversationStore {
	t.Helper()
	store, err := NewConversationStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("NewConversationStoreWithPath: %v", err)
	}
	return store
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	convs := store.Load()
	if convs == nil {
		t.Fatal("Load() = nil, want empty slice")
	}
	if len(convs) != 0 {
		t.Errorf("Load() returned %d conversations, want 0", len(convs))
	}
}

func TestLoadCorruptedFileReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.Path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	convs := store.Load()
	if len(convs) != 0 {
		t.Errorf("Load() returned %d conversations from corrupted file, want 0", len(convs))
	}

	// Corrupted document stays on disk until the next save.
	if _, err := os.Stat(store.Path); err != nil {
		t.Errorf("corrupted file should remain until overwritten: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("Привет, мир! 你好 🎉")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("Hello")
	asst.FinalizeStream(nil)

	if err := store.Save([]*model.Conversation{conv}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := store.Load()
	if len(loaded) != 1 {
		t.Fatalf("Load() returned %d conversations, want 1", len(loaded))
	}

	got := loaded[0]
	if got.ID != conv.ID {
		t.Errorf("ID = %q, want %q", got.ID, conv.ID)
	}
	if got.Title != conv.Title {
		t.Errorf("Title = %q, want %q", got.Title, conv.Title)
	}
	if got.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", got.MessageCount())
	}
	if got.Messages[0].Content != "Привет, мир! 你好 🎉" {
		t.Errorf("unicode content mangled: %q", got.Messages[0].Content)
	}
	if got.Messages[1].Content != "Hello" {
		t.Errorf("assistant content = %q, want %q", got.Messages[1].Content, "Hello")
	}
}

func TestLoadedConversationNeverRetitles(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("original title text")
	if err := store.Save([]*model.Conversation{conv}); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	loaded[0].AddUserMessage("a later message")

	if loaded[0].Title != "original title text" {
		t.Errorf("Title = %q, want %q", loaded[0].Title, "original title text")
	}
}

func TestLoadSortsMostRecentFirst(t *testing.T) {
	store := newTestStore(t)

	older := model.NewConversation()
	older.AddUserMessage("older")
	newer := model.NewConversation()
	newer.AddUserMessage("newer")
	newer.UpdatedAt = older.UpdatedAt.Add(1)

	if err := store.Save([]*model.Conversation{older, newer}); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	if len(loaded) != 2 {
		t.Fatalf("Load() returned %d conversations, want 2", len(loaded))
	}
	if loaded[0].ID != newer.ID {
		t.Errorf("first conversation = %q, want most recent %q", loaded[0].ID, newer.ID)
	}
}

func TestSaveOverwritesCorruptedFile(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(store.Path, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	conv := model.NewConversation()
	conv.AddUserMessage("fresh start")
	if err := store.Save([]*model.Conversation{conv}); err != nil {
		t.Fatalf("Save over corrupted file: %v", err)
	}

	loaded := store.Load()
	if len(loaded) != 1 {
		t.Fatalf("Load() returned %d conversations, want 1", len(loaded))
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	a := model.NewConversation()
	a.AddUserMessage("keep me")
	b := model.NewConversation()
	b.AddUserMessage("delete me")

	if err := store.Save([]*model.Conversation{a, b}); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	loaded := store.Load()
	if len(loaded) != 1 {
		t.Fatalf("Load() returned %d conversations after delete, want 1", len(loaded))
	}
	if loaded[0].ID != a.ID {
		t.Errorf("remaining conversation = %q, want %q", loaded[0].ID, a.ID)
	}
}

func TestDeleteMissing(t *testing.T) {
	store := newTestStore(t)

	err := store.Delete("conv_nope")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Delete missing = %v, want ErrConversationNotFound", err)
	}
}

func TestGet(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("find me")
	if err := store.Save([]*model.Conversation{conv}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != conv.Title {
		t.Errorf("Title = %q, want %q", got.Title, conv.Title)
	}

	if _, err := store.Get("conv_missing"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("Get missing = %v, want ErrConversationNotFound", err)
	}
}

func TestListMetadata(t *testing.T) {
	store := newTestStore(t)

	conv := model.NewConversation()
	conv.AddUserMessage("hello there")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("General Kenobi")
	asst.FinalizeStream(nil)

	if err := store.Save([]*model.Conversation{conv}); err != nil {
		t.Fatal(err)
	}

	metas := store.List()
	if len(metas) != 1 {
		t.Fatalf("List() returned %d metas, want 1", len(metas))
	}
	meta := metas[0]
	if meta.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", meta.MessageCount)
	}
	if meta.Title != "hello there" {
		t.Errorf("Title = %q, want %q", meta.Title, "hello there")
	}
	if !strings.Contains(meta.Preview, "General Kenobi") {
		t.Errorf("Preview = %q, want last message text", meta.Preview)
	}
}

func TestSearchMessages(t *testing.T) {
	store := newTestStore(t)

	a := model.NewConversation()
	a.AddUserMessage("tell me about goroutines")
	b := model.NewConversation()
	b.AddUserMessage("recipe for pancakes")

	if err := store.Save([]*model.Conversation{a, b}); err != nil {
		t.Fatal(err)
	}

	results := store.SearchMessages("GOROUTINE")
	if len(results) != 1 {
		t.Fatalf("SearchMessages returned %d results, want 1", len(results))
	}
	if results[0].ID != a.ID {
		t.Errorf("result = %q, want %q", results[0].ID, a.ID)
	}

	if got := store.SearchMessages(""); len(got) != 2 {
		t.Errorf("empty query returned %d results, want 2", len(got))
	}
}

func TestSaveEnforcesLimit(t *testing.T) {
	store := newTestStore(t)
	store.MaxConversations = 2

	var convs []*model.Conversation
	for i := 0; i < 5; i++ {
		c := model.NewConversation()
		c.AddUserMessage("message")
		c.UpdatedAt = c.UpdatedAt.Add(time.Duration(i))
		convs = append(convs, c)
	}

	if err := store.Save(convs); err != nil {
		t.Fatal(err)
	}

	loaded := store.Load()
	if len(loaded) != 2 {
		t.Errorf("Load() returned %d conversations, want limit of 2", len(loaded))
	}
}

func TestExportMarkdown(t *testing.T) {
	conv := model.NewConversation()
	conv.AddUserMessage("question")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("answer")
	asst.FinalizeStream(nil)

	md := ExportMarkdown(conv)
	if !strings.Contains(md, "# question") {
		t.Errorf("export missing title header:\n%s", md)
	}
	if !strings.Contains(md, "**You**") || !strings.Contains(md, "**Assistant**") {
		t.Errorf("export missing role labels:\n%s", md)
	}
	if !strings.Contains(md, "answer") {
		t.Errorf("export missing assistant content:\n%s", md)
	}
}
