// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, messages, and settings for rigtools.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/rigtools/internal/util"
	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// EncryptedPrefix marks a backup as encrypted (format: ENC:base64(salt|nonce|ciphertext|tag))
const EncryptedPrefix = "ENC:"

// NonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits)
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes)
const SaltSize = 32

// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256 to provide adequate resistance
// against brute-force attacks with modern hardware
const PBKDF2Iterations = 600000

// backupVersion is written into every export; restores refuse newer versions.
const backupVersion = 1

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidCiphertext indicates the ciphertext format is invalid
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates decryption failed (wrong passphrase or tampered data)
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
	// ErrPassphraseRequired indicates the backup is encrypted and no passphrase was given
	ErrPassphraseRequired = errors.New("backup is encrypted: passphrase required")
)

// =============================================================================
// BACKUP FORMAT
// =============================================================================

// Backup is the portable export of a store: every conversation with its
// messages, plus all settings rows.
type Backup struct {
	Version       int                  `json:"version"`
	ExportedAt    int64                `json:"exported_at"`
	Conversations []BackupConversation `json:"conversations"`
	Settings      map[string]string    `json:"settings"`
}

// BackupConversation is a conversation with its messages inlined.
type BackupConversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportBackup collects the full store contents into a Backup.
func (s *Store) ExportBackup() (*Backup, error) {
	convs, err := s.ListConversations()
	if err != nil {
		return nil, err
	}

	backup := &Backup{
		Version:       backupVersion,
		ExportedAt:    time.Now().Unix(),
		Conversations: []BackupConversation{},
	}
	for _, c := range convs {
		msgs, err := s.GetMessages(c.ID)
		if err != nil {
			return nil, err
		}
		backup.Conversations = append(backup.Conversations, BackupConversation{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
			Messages:  msgs,
		})
	}

	settings, err := s.AllSettings()
	if err != nil {
		return nil, err
	}
	backup.Settings = settings

	return backup, nil
}

// WriteBackup exports the store to path as indented JSON. A non-empty
// passphrase encrypts the file with AES-256-GCM under a PBKDF2 key.
func (s *Store) WriteBackup(path, passphrase string) error {
	backup, err := s.ExportBackup()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	if passphrase != "" {
		data, err = EncryptBackup(data, passphrase)
		if err != nil {
			return err
		}
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// =============================================================================
// RESTORE
// =============================================================================

// RestoreBackup loads a backup file into the store and returns the number
// of conversations restored. Existing rows with matching IDs are replaced.
func (s *Store) RestoreBackup(path, passphrase string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup: %w", err)
	}

	if IsEncrypted(data) {
		if passphrase == "" {
			return 0, ErrPassphraseRequired
		}
		data, err = DecryptBackup(data, passphrase)
		if err != nil {
			return 0, err
		}
	}

	var backup Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return 0, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version > backupVersion {
		return 0, fmt.Errorf("unsupported backup version %d", backup.Version)
	}

	return s.ImportBackup(&backup)
}

// ImportBackup writes a backup's contents into the store in one
// transaction. Returns the number of conversations imported.
func (s *Store) ImportBackup(backup *Backup) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range backup.Conversations {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			c.ID, c.Title, c.CreatedAt, c.UpdatedAt,
		); err != nil {
			return 0, fmt.Errorf("failed to restore conversation: %w", err)
		}
		for _, m := range c.Messages {
			if _, err := tx.Exec(
				`INSERT OR REPLACE INTO messages (id, conversation_id, role, content, timestamp) VALUES (?, ?, ?, ?, ?)`,
				m.ID, c.ID, m.Role, m.Content, m.Timestamp,
			); err != nil {
				return 0, fmt.Errorf("failed to restore message: %w", err)
			}
		}
	}
	for k, v := range backup.Settings {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, k, v,
		); err != nil {
			return 0, fmt.Errorf("failed to restore setting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit restore: %w", err)
	}
	return len(backup.Conversations), nil
}

// =============================================================================
// ENCRYPTION
// =============================================================================

// ZeroBytes securely zeros sensitive byte slices to prevent memory disclosure.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateSalt generates a cryptographically secure random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives an encryption key from a passphrase and salt using
// PBKDF2-SHA-256.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// IsEncrypted reports whether data carries the encrypted-backup marker.
func IsEncrypted(data []byte) bool {
	return strings.HasPrefix(string(data), EncryptedPrefix)
}

// EncryptBackup encrypts plaintext under a passphrase-derived key.
// The salt travels inside the container so the file is self-contained:
// ENC:base64(salt || nonce || ciphertext || tag).
func EncryptBackup(plaintext []byte, passphrase string) ([]byte, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}

	key := DeriveKey(passphrase, salt)
	// SECURITY: Zero key material to prevent memory disclosure
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	container := make([]byte, 0, SaltSize+NonceSize+len(plaintext)+gcm.Overhead())
	container = append(container, salt...)
	container = append(container, nonce...)
	container = gcm.Seal(container, nonce, plaintext, nil)

	return []byte(EncryptedPrefix + base64.StdEncoding.EncodeToString(container)), nil
}

// DecryptBackup decrypts an encrypted backup file. Unencrypted input is
// returned unchanged.
func DecryptBackup(data []byte, passphrase string) ([]byte, error) {
	content := string(data)
	if !strings.HasPrefix(content, EncryptedPrefix) {
		return data, nil
	}

	encoded := strings.TrimPrefix(content, EncryptedPrefix)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(raw) < SaltSize+NonceSize {
		return nil, ErrInvalidCiphertext
	}

	salt := raw[:SaltSize]
	nonce := raw[SaltSize : SaltSize+NonceSize]
	ciphertext := raw[SaltSize+NonceSize:]

	key := DeriveKey(passphrase, salt)
	// SECURITY: Zero key material to prevent memory disclosure
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
