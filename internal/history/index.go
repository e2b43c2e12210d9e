// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/freechat-tui/internal/model"
)

// SchemaVersion tracks the database schema for migrations.
const SchemaVersion = 1

// Schema is the SQLite schema for the message search index.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Messages table: one row per indexed message
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL UNIQUE,
    conversation_id TEXT NOT NULL,
    conversation_title TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    timestamp INTEGER NOT NULL  -- Unix timestamp
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);

-- Full-text search over message content
CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    conversation_title,
    content='messages',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content, conversation_title)
    VALUES (new.id, new.content, new.conversation_title);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    DELETE FROM messages_fts WHERE rowid = old.id;
END;
`

// initMetadata seeds the metadata table.
const initMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('last_reindex', '0');
`

// ErrNotIndexed is returned when searching before any reindex.
var ErrNotIndexed = errors.New("message history not indexed")

// =============================================================================
// INDEX
// =============================================================================

// Index is the SQLite-backed message search index.
type Index struct {
	db *sql.DB
	mu sync.RWMutex

	indexed bool
}

// SearchResult is one matched message.
type SearchResult struct {
	MessageID         string
	ConversationID    string
	ConversationTitle string
	Role              string
	Content           string
	Timestamp         time.Time
	Rank              float64
}

// Open opens (or creates) the index database at the given path.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// Single writer; the index is rebuilt, not mutated concurrently.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(initMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed metadata: %w", err)
	}

	idx := &Index{db: db}
	idx.indexed = idx.hasRows()
	return idx, nil
}

// DefaultPath returns the index location under the app data directory.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".freechat", "history.db"), nil
}

// Close closes the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// IsIndexed reports whether the index has been built.
func (idx *Index) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.indexed
}

func (idx *Index) hasRows() bool {
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return false
	}
	return n > 0
}

// =============================================================================
// REINDEX
// =============================================================================

// Reindex rebuilds the whole index from the given conversations.
// Streaming placeholders are skipped; only finalized content is indexed.
func (idx *Index) Reindex(ctx context.Context, convs []*model.Conversation) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (message_id, conversation_id, conversation_title, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, conv := range convs {
		for _, msg := range conv.Messages {
			if msg.IsStreaming || msg.Content == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				msg.ID, conv.ID, conv.Title, msg.Role.String(), msg.Content, msg.Timestamp.Unix()); err != nil {
				return fmt.Errorf("failed to index message: %w", err)
			}
			count++
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE metadata SET value = ? WHERE key = 'last_reindex'`,
		fmt.Sprint(time.Now().Unix())); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	idx.indexed = count > 0
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search finds messages matching the query, best matches first.
// maxResults <= 0 uses a default of 50.
func (idx *Index) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.indexed {
		return nil, ErrNotIndexed
	}

	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return []SearchResult{}, nil
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT m.message_id, m.conversation_id, m.conversation_title,
		       m.role, m.content, m.timestamp, rank
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var ts int64
		if err := rows.Scan(&r.MessageID, &r.ConversationID, &r.ConversationTitle,
			&r.Role, &r.Content, &ts, &r.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0)
		results = append(results, r)
	}

	return results, rows.Err()
}

// MessageCount returns the number of indexed messages.
func (idx *Index) MessageCount() (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var n int
	err := idx.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// buildFTSQuery quotes each term so user input can't inject FTS syntax.
func buildFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " ")
}
