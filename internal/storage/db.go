package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"todolist/internal/models"

	"github.com/jmoiron/sqlx"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// Sentinel errors callers can match with errors.Is.
var (
	// ErrNotFound is returned when a record does not exist or is not
	// visible to the requesting account.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned when an account with the same
	// username already exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// DB wraps an sqlx connection to the sqlite datastore.
type DB struct {
	conn *sqlx.DB
}

// NewDB opens a database connection, enables WAL mode and foreign keys,
// and runs any pending schema migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{1, `CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`},
	{2, `CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		account_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_activity DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	)`},
	{3, `CREATE TABLE IF NOT EXISTS lists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		account_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (account_id) REFERENCES accounts(id)
	)`},
	{4, `CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		list_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (list_id) REFERENCES lists(id)
	)`},
}

// migrate checks the current schema version and applies any outstanding
// migrations in order.
func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := db.conn.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.conn.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if _, err := db.conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateAccount creates a new account with the given username and
// password hash. Returns ErrUsernameTaken if the username exists.
func (db *DB) CreateAccount(username, passwordHash string) (*models.Account, error) {
	result, err := db.conn.Exec(
		"INSERT INTO accounts (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, passwordHash, time.Now(),
	)
	if err != nil {
		// modernc.org/sqlite surfaces no typed constraint error, so
		// match on the constraint name it reports.
		if strings.Contains(err.Error(), "UNIQUE constraint failed: accounts.username") {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetAccountByID(id)
}

// GetAccountByID retrieves an account by ID.
func (db *DB) GetAccountByID(id int64) (*models.Account, error) {
	var a models.Account
	err := db.conn.Get(&a,
		"SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountByUsername retrieves an account by username. The lookup is
// case-sensitive.
func (db *DB) GetAccountByUsername(username string) (*models.Account, error) {
	var a models.Account
	err := db.conn.Get(&a,
		"SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountCount returns the number of accounts in the database.
func (db *DB) AccountCount() (int, error) {
	var count int
	err := db.conn.Get(&count, "SELECT COUNT(*) FROM accounts")
	return count, err
}

// CreateSession creates a new session for an account.
func (db *DB) CreateSession(token string, accountID int64, expiresAt time.Time) error {
	now := time.Now()
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, account_id, created_at, last_activity, expires_at) VALUES (?, ?, ?, ?, ?)",
		token, accountID, now, now, expiresAt,
	)
	return err
}

// SessionInfo pairs a validated session with its account.
type SessionInfo struct {
	Account *models.Account
	Session models.Session
}

// ValidateSession checks if a session token is valid and returns the
// associated account. Returns ErrNotFound for missing or expired tokens.
func (db *DB) ValidateSession(token string) (*models.Account, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.Account, nil
}

// ValidateSessionWithInfo checks if a session token is valid and
// returns session details alongside the account.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT a.id, a.username, a.password_hash, a.created_at,
			s.account_id, s.created_at, s.last_activity, s.expires_at
		FROM sessions s
		JOIN accounts a ON s.account_id = a.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now())

	var a models.Account
	s := models.Session{Token: token}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt,
		&s.AccountID, &s.CreatedAt, &s.LastActivity, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &SessionInfo{Account: &a, Session: s}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now(), newExpiresAt, token,
	)
	return err
}

// DeleteSession removes a session by token. Deleting an absent session
// is not an error.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now())
	return err
}

// CreateList creates a list owned by the given account with status
// "pending".
func (db *DB) CreateList(accountID int64, title string) (*models.List, error) {
	result, err := db.conn.Exec(
		"INSERT INTO lists (title, status, account_id, created_at) VALUES (?, 'pending', ?, ?)",
		title, accountID, time.Now(),
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	var l models.List
	if err := db.conn.Get(&l,
		"SELECT id, title, status, account_id, created_at FROM lists WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListsByAccount returns the account's lists, newest first.
func (db *DB) ListsByAccount(accountID int64) ([]models.List, error) {
	lists := []models.List{}
	err := db.conn.Select(&lists, `
		SELECT id, title, status, account_id, created_at
		FROM lists
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
	`, accountID)
	return lists, err
}

// UpdateListTitle renames a list. Returns ErrNotFound if the list does
// not exist or belongs to another account.
func (db *DB) UpdateListTitle(listID, accountID int64, title string) (*models.List, error) {
	result, err := db.conn.Exec(
		"UPDATE lists SET title = ? WHERE id = ? AND account_id = ?",
		title, listID, accountID,
	)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	var l models.List
	if err := db.conn.Get(&l,
		"SELECT id, title, status, account_id, created_at FROM lists WHERE id = ?", listID); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteList removes a list and all of its items in one transaction.
// Items go first; the schema declares no cascade of its own. Returns
// ErrNotFound if the list does not exist or belongs to another account.
func (db *DB) DeleteList(listID, accountID int64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owned int
	if err := tx.Get(&owned,
		"SELECT COUNT(*) FROM lists WHERE id = ? AND account_id = ?", listID, accountID); err != nil {
		return err
	}
	if owned == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec("DELETE FROM items WHERE list_id = ?", listID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM lists WHERE id = ?", listID); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateItem adds an item to a list with status "pending". Returns
// ErrNotFound if the list does not exist or belongs to another account.
func (db *DB) CreateItem(listID, accountID int64, description string) (*models.Item, error) {
	var owned int
	if err := db.conn.Get(&owned,
		"SELECT COUNT(*) FROM lists WHERE id = ? AND account_id = ?", listID, accountID); err != nil {
		return nil, err
	}
	if owned == 0 {
		return nil, ErrNotFound
	}

	result, err := db.conn.Exec(
		"INSERT INTO items (list_id, description, status, created_at) VALUES (?, ?, 'pending', ?)",
		listID, description, time.Now(),
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	var it models.Item
	if err := db.conn.Get(&it,
		"SELECT id, list_id, description, status, created_at FROM items WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &it, nil
}

// ItemsByList returns a list's items, newest first. An unknown or
// foreign-owned list yields an empty slice, matching the read-back
// behavior after a cascade delete.
func (db *DB) ItemsByList(listID, accountID int64) ([]models.Item, error) {
	items := []models.Item{}
	err := db.conn.Select(&items, `
		SELECT i.id, i.list_id, i.description, i.status, i.created_at
		FROM items i
		JOIN lists l ON i.list_id = l.id
		WHERE i.list_id = ? AND l.account_id = ?
		ORDER BY i.created_at DESC, i.id DESC
	`, listID, accountID)
	return items, err
}

// UpdateItemDescription rewords an item. Returns ErrNotFound if the
// item does not exist or its list belongs to another account.
func (db *DB) UpdateItemDescription(itemID, accountID int64, description string) (*models.Item, error) {
	result, err := db.conn.Exec(`
		UPDATE items SET description = ?
		WHERE id = ? AND list_id IN (SELECT id FROM lists WHERE account_id = ?)
	`, description, itemID, accountID)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	var it models.Item
	if err := db.conn.Get(&it,
		"SELECT id, list_id, description, status, created_at FROM items WHERE id = ?", itemID); err != nil {
		return nil, err
	}
	return &it, nil
}

// DeleteItem removes an item. Returns ErrNotFound if the item does not
// exist or its list belongs to another account; a repeated delete is an
// error, not a no-op.
func (db *DB) DeleteItem(itemID, accountID int64) error {
	result, err := db.conn.Exec(`
		DELETE FROM items
		WHERE id = ? AND list_id IN (SELECT id FROM lists WHERE account_id = ?)
	`, itemID, accountID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSummaries returns per-list item counts for an account, newest
// list first.
func (db *DB) ListSummaries(accountID int64) ([]models.ListSummary, error) {
	summaries := []models.ListSummary{}
	err := db.conn.Select(&summaries, `
		SELECT l.id AS list_id, l.title AS title,
			COUNT(i.id) AS total,
			COALESCE(SUM(CASE WHEN i.status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN i.status = 'completed' THEN 1 ELSE 0 END), 0) AS completed
		FROM lists l
		LEFT JOIN items i ON i.list_id = l.id
		WHERE l.account_id = ?
		GROUP BY l.id, l.title, l.created_at
		ORDER BY l.created_at DESC, l.id DESC
	`, accountID)
	return summaries, err
}
