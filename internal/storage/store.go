// Package storage is the persistence adapter: a key-value table in a
// SQLite database, one key per collection or scalar setting. Every write
// is an unconditional overwrite of the named key; there is no merge and
// no optimistic concurrency check. Concurrent writers racing on the same
// key follow last-write-wins.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"langkah/internal/core"

	_ "modernc.org/sqlite"
)

// Persisted keys. Each is independently read and written.
const (
	KeyTransactions = "transactions"
	KeyCategories   = "categories"
	KeyAppName      = "app_name"
	KeyTheme        = "theme"
	KeyAuthRole     = "auth_role"
	KeyBroadcast    = "broadcast_message"
)

// Snapshot is one full read of the store. Corrupt reports that at least
// one persisted value failed to parse and was replaced with its fallback;
// the caller uses it to drive the error status indicator.
type Snapshot struct {
	Transactions []core.Transaction
	Categories   []core.Category
	Settings     core.Settings
	Corrupt      bool
}

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load reads every key independently and never fails the caller for a
// corrupt value: corrupt transactions are logged and replaced with an
// empty list, corrupt or absent categories are reseeded with the default
// set, and absent scalars fall back to hard-coded defaults.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Transactions: []core.Transaction{},
		Categories:   core.DefaultCategories(),
		Settings:     core.DefaultSettings(),
	}

	if raw, ok, err := s.get(ctx, KeyTransactions); err != nil {
		return snap, fmt.Errorf("read %s: %w", KeyTransactions, err)
	} else if ok {
		var txs []core.Transaction
		if err := json.Unmarshal([]byte(raw), &txs); err != nil {
			slog.ErrorContext(ctx, "Corrupt transactions value, falling back to empty list",
				"key", KeyTransactions, "error", err)
			snap.Corrupt = true
		} else if txs != nil {
			snap.Transactions = txs
		}
	}

	if raw, ok, err := s.get(ctx, KeyCategories); err != nil {
		return snap, fmt.Errorf("read %s: %w", KeyCategories, err)
	} else if ok {
		var cats []core.Category
		if err := json.Unmarshal([]byte(raw), &cats); err != nil {
			// Reseed on corruption as well as absence.
			slog.ErrorContext(ctx, "Corrupt categories value, reseeding defaults",
				"key", KeyCategories, "error", err)
			snap.Corrupt = true
		} else if len(cats) > 0 {
			snap.Categories = cats
		}
	}

	if raw, ok, _ := s.get(ctx, KeyAppName); ok && raw != "" {
		snap.Settings.AppName = raw
	}
	if raw, ok, _ := s.get(ctx, KeyTheme); ok {
		if th := core.Theme(raw); th == core.ThemeLight || th == core.ThemeDark {
			snap.Settings.Theme = th
		}
	}
	if raw, ok, _ := s.get(ctx, KeyAuthRole); ok {
		snap.Settings.Role = raw
	}
	if raw, ok, _ := s.get(ctx, KeyBroadcast); ok {
		snap.Settings.Broadcast = raw
	}

	return snap, nil
}

// Save serializes and overwrites a single key.
func (s *Store) Save(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	raw, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	return s.Save(ctx, KeyTransactions, string(raw))
}

func (s *Store) SaveCategories(ctx context.Context, cats []core.Category) error {
	raw, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}
	return s.Save(ctx, KeyCategories, string(raw))
}

// SaveCollections persists both collections in one SQL transaction, so a
// cascading mutation (rename touching transactions and categories) cannot
// leave the store holding only half of it.
func (s *Store) SaveCollections(ctx context.Context, txs []core.Transaction, cats []core.Category) error {
	rawTx, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("marshal transactions: %w", err)
	}
	rawCat, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("marshal categories: %w", err)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer dbTx.Rollback()

	const upsert = `
		INSERT INTO store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := dbTx.ExecContext(ctx, upsert, KeyTransactions, string(rawTx)); err != nil {
		return fmt.Errorf("save %s: %w", KeyTransactions, err)
	}
	if _, err := dbTx.ExecContext(ctx, upsert, KeyCategories, string(rawCat)); err != nil {
		return fmt.Errorf("save %s: %w", KeyCategories, err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Delete removes a key entirely. Used by tests and by the data-lifecycle
// reset to distinguish "absent" from "empty".
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
