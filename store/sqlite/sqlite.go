/*
Package sqlite provides the SQLite-backed store for schedules and posted
entries.

PURPOSE:
  Implements posting.RuleStore and posting.EntryStore using SQLite. In
  production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  schedules:      Repeating-schedule definitions; cursor_date is the
                  authoritative next-due pointer
  posted_entries: Immutable record of posted occurrences

APPEND-ONLY ENFORCEMENT:
  posted_entries has no UPDATE or DELETE path. The primary key is the
  occurrence idempotency key (rule id + due date), so posting the same
  occurrence twice fails on the key instead of double-booking.

DATE STORAGE:
  All dates are ISO "YYYY-MM-DD" TEXT columns. Storing calendar dates as
  epoch timestamps invites off-by-one-day bugs across timezones; text
  keys compare correctly and round-trip exactly.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - posting/store.go: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/posting"
	"github.com/warp/billing-engine/schedule"
)

// Store implements posting.RuleStore and posting.EntryStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		cursor_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency_code TEXT NOT NULL DEFAULT 'USD',
		is_transfer INTEGER NOT NULL DEFAULT 0,
		auto_post INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		position INTEGER NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_active_cursor
		ON schedules(is_active, cursor_date);

	-- Append-only: no UPDATE or DELETE is ever issued against this table.
	CREATE TABLE IF NOT EXISTS posted_entries (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency_code TEXT NOT NULL,
		display_name TEXT NOT NULL,
		posted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_posted_entries_rule_date
		ON posted_entries(rule_id, due_date);
	`
	_, err := s.db.Exec(schemaSQL)
	return err
}

// ExecRaw runs an arbitrary statement against the underlying database.
// Intended for tests and one-off maintenance.
func (s *Store) ExecRaw(query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(query, args...)
	return err
}

// =============================================================================
// RULE STORE
// =============================================================================

func (s *Store) ListRules(ctx context.Context) ([]schedule.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, frequency, cursor_date, amount,
		       currency_code, is_transfer, auto_post, is_active, position
		FROM schedules
		ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []schedule.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (s *Store) GetRule(ctx context.Context, id schedule.RuleID) (*schedule.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, frequency, cursor_date, amount,
		       currency_code, is_transfer, auto_post, is_active, position
		FROM schedules WHERE id = ?`, string(id))

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (s *Store) SaveRule(ctx context.Context, rule schedule.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	position := rule.Position
	if position == 0 {
		// Preserve creation order for new rules; keep it for updates.
		row := s.db.QueryRowContext(ctx, `
			SELECT COALESCE(
				(SELECT position FROM schedules WHERE id = ?),
				(SELECT COALESCE(MAX(position), 0) + 1 FROM schedules)
			)`, string(rule.ID))
		if err := row.Scan(&position); err != nil {
			return fmt.Errorf("assign position for %s: %w", rule.ID, err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules
			(id, display_name, frequency, cursor_date, amount,
			 currency_code, is_transfer, auto_post, is_active, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			frequency = excluded.frequency,
			cursor_date = excluded.cursor_date,
			amount = excluded.amount,
			currency_code = excluded.currency_code,
			is_transfer = excluded.is_transfer,
			auto_post = excluded.auto_post,
			is_active = excluded.is_active`,
		string(rule.ID), rule.DisplayName, string(rule.Frequency),
		rule.CursorDate.Key(), rule.Amount.String(), rule.CurrencyCode,
		boolToInt(rule.IsTransfer), boolToInt(rule.AutoPost),
		boolToInt(rule.IsActive), position)
	if err != nil {
		return fmt.Errorf("save schedule %s: %w", rule.ID, err)
	}
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, id schedule.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete schedule %s: %w", id, err)
	}
	return nil
}

func (s *Store) AdvanceCursor(ctx context.Context, id schedule.RuleID, next schedule.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET cursor_date = ? WHERE id = ?`,
		next.Key(), string(id))
	if err != nil {
		return fmt.Errorf("advance cursor for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return posting.ErrRuleNotFound
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, id schedule.RuleID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET is_active = ? WHERE id = ?`,
		boolToInt(active), string(id))
	if err != nil {
		return fmt.Errorf("set active for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return posting.ErrRuleNotFound
	}
	return nil
}

// =============================================================================
// ENTRY STORE
// =============================================================================

func (s *Store) AppendEntry(ctx context.Context, entry posting.PostedEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posted_entries
			(id, rule_id, due_date, amount, currency_code, display_name, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.RuleID), entry.DueDate.Key(),
		entry.Amount.String(), entry.CurrencyCode, entry.DisplayName,
		entry.PostedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueViolation(err) {
			return posting.ErrDuplicateEntry
		}
		return fmt.Errorf("append posted entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, ruleID schedule.RuleID) ([]posting.PostedEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, rule_id, due_date, amount, currency_code, display_name, posted_at
		FROM posted_entries`
	args := []any{}
	if ruleID != "" {
		query += ` WHERE rule_id = ?`
		args = append(args, string(ruleID))
	}
	query += ` ORDER BY due_date ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posted entries: %w", err)
	}
	defer rows.Close()

	var out []posting.PostedEntry
	for rows.Next() {
		var (
			e                     posting.PostedEntry
			rid, due, amt, posted string
		)
		if err := rows.Scan(&e.ID, &rid, &due, &amt, &e.CurrencyCode, &e.DisplayName, &posted); err != nil {
			return nil, fmt.Errorf("scan posted entry: %w", err)
		}
		e.RuleID = schedule.RuleID(rid)
		if e.DueDate, err = schedule.ParseDate(due); err != nil {
			return nil, fmt.Errorf("posted entry %s: bad due date %q: %w", e.ID, due, err)
		}
		if e.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, fmt.Errorf("posted entry %s: bad amount %q: %w", e.ID, amt, err)
		}
		if e.PostedAt, err = time.Parse(time.RFC3339, posted); err != nil {
			return nil, fmt.Errorf("posted entry %s: bad posted_at %q: %w", e.ID, posted, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRule reads one schedules row. A malformed row degrades to an
// inactive rule instead of failing the whole list, matching the engine's
// bad-input isolation.
func scanRule(row rowScanner) (schedule.RecurrenceRule, error) {
	var (
		rule                         schedule.RecurrenceRule
		id, freq, cursor, amount     string
		isTransfer, autoPost, active int
	)
	err := row.Scan(&id, &rule.DisplayName, &freq, &cursor, &amount,
		&rule.CurrencyCode, &isTransfer, &autoPost, &active, &rule.Position)
	if err != nil {
		return rule, err
	}

	rule.ID = schedule.RuleID(id)
	rule.Frequency = schedule.Frequency(freq)
	rule.IsTransfer = isTransfer != 0
	rule.AutoPost = autoPost != 0
	rule.IsActive = active != 0

	if rule.CursorDate, err = schedule.ParseDate(cursor); err != nil {
		rule.IsActive = false
	}
	if rule.Amount, err = decimal.NewFromString(amount); err != nil {
		rule.Amount = decimal.Zero
		rule.IsActive = false
	}
	return rule, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	// go-sqlite3 wraps constraint failures in its own error type; matching
	// on the message keeps this file decoupled from driver error codes.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
