// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, messages, and settings for rigtools.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// =============================================================================
// TYPES
// =============================================================================

// Store is a handle to the rigtools SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Conversation is the stored metadata for one chat, with its message IDs
// in chronological order.
type Conversation struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	CreatedAt  int64    `json:"created_at"`
	UpdatedAt  int64    `json:"updated_at"`
	MessageIDs []string `json:"message_ids"`
}

// Message is a single chat message. Timestamps are unix seconds.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// SearchResult pairs a matching message with the conversation it belongs to.
type SearchResult struct {
	ConversationID string  `json:"conversation_id"`
	Title          string  `json:"title"`
	Message        Message `json:"message"`
}

// ConversationError describes a storage failure for a specific conversation.
type ConversationError struct {
	Message string
}

func (e *ConversationError) Error() string {
	return e.Message
}

// Is allows errors.Is comparison against sentinel conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	return ok && t.Message == e.Message
}

// ErrConversationNotFound is returned when a conversation ID does not exist.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// =============================================================================
// OPEN / CLOSE
// =============================================================================

// Open opens (or creates) the database at path and applies the schema.
// The parent directory is created if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // No lifetime limit

	// Configure SQLite for better performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",       // 64MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=268435456",     // 256MB mmap
		"PRAGMA foreign_keys=ON",         // Enable foreign key constraints
		"PRAGMA wal_autocheckpoint=1000", // Checkpoint every 1000 pages
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation inserts a new conversation with the given title and
// returns it. The ID is a fresh UUID.
func (s *Store) CreateConversation(title string) (Conversation, error) {
	now := time.Now().Unix()
	conv := Conversation{
		ID:         uuid.NewString(),
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
		MessageIDs: []string{},
	}

	_, err := s.db.Exec(
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Title, now, now,
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns all conversations, most recently updated first.
func (s *Store) ListConversations() ([]Conversation, error) {
	rows, err := s.db.Query(
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	for i := range convs {
		ids, err := s.messageIDs(convs[i].ID)
		if err != nil {
			return nil, err
		}
		convs[i].MessageIDs = ids
	}
	return convs, nil
}

// GetConversation returns one conversation and its messages in order.
func (s *Store) GetConversation(id string) (Conversation, []Message, error) {
	var c Conversation
	err := s.db.QueryRow(
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, nil, ErrConversationNotFound
	}
	if err != nil {
		return Conversation{}, nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	msgs, err := s.GetMessages(id)
	if err != nil {
		return Conversation{}, nil, err
	}
	c.MessageIDs = make([]string, 0, len(msgs))
	for _, m := range msgs {
		c.MessageIDs = append(c.MessageIDs, m.ID)
	}
	return c, msgs, nil
}

// RenameConversation updates a conversation title and bumps its updated_at.
func (s *Store) RenameConversation(id, title string) error {
	res, err := s.db.Exec(
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	if n == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// DeleteConversation removes a conversation and all of its messages.
func (s *Store) DeleteConversation(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete messages explicitly; databases created before foreign_keys
	// was enabled will not cascade.
	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n == 0 {
		return ErrConversationNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// AppendMessage adds a message to a conversation and bumps the
// conversation's updated_at. The message ID is a fresh UUID.
func (s *Store) AppendMessage(conversationID, role, content string) (Message, error) {
	now := time.Now().Unix()
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Message{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE conversations SET updated_at = ? WHERE id = ?`, now, conversationID)
	if err != nil {
		return Message{}, fmt.Errorf("failed to update conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Message{}, fmt.Errorf("failed to update conversation: %w", err)
	}
	if n == 0 {
		return Message{}, ErrConversationNotFound
	}

	_, err = tx.Exec(
		`INSERT INTO messages (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, conversationID, msg.Role, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Message{}, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// GetMessages returns a conversation's messages in chronological order.
// An unknown conversation ID yields an empty slice, not an error.
func (s *Store) GetMessages(conversationID string) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, timestamp FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, rowid ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return msgs, nil
}

// messageIDs returns the IDs of a conversation's messages in order.
func (s *Store) messageIDs(conversationID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT id FROM messages WHERE conversation_id = ? ORDER BY timestamp ASC, rowid ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load message ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load message ids: %w", err)
	}
	return ids, nil
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchMessages returns messages whose content contains the query,
// case-insensitively, newest first.
func (s *Store) SearchMessages(query string) ([]SearchResult, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.role, m.content, m.timestamp, m.conversation_id, c.title
		 FROM messages m JOIN conversations c ON c.id = m.conversation_id
		 WHERE instr(lower(m.content), lower(?)) > 0
		 ORDER BY m.timestamp DESC, m.rowid DESC`,
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Message.ID, &r.Message.Role, &r.Message.Content,
			&r.Message.Timestamp, &r.ConversationID, &r.Title); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return results, nil
}

// Counts returns the number of conversations and messages in the store.
func (s *Store) Counts() (conversations, messages int64, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&conversations); err != nil {
		return 0, 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&messages); err != nil {
		return 0, 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return conversations, messages, nil
}
