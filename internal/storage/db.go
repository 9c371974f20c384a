package storage

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"budget-planner/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// DateLayout is the calendar-date format expenses and paychecks are stored with.
const DateLayout = "2006-01-02"

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateUsername indicates a username uniqueness conflict.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrInvalidAmount indicates a paycheck amount that is not positive.
var ErrInvalidAmount = errors.New("amount must be greater than 0")

// ValidationErrors collects every input rule an expense violated, not just
// the first, so the form can show them all at once.
type ValidationErrors []string

func (v ValidationErrors) Error() string {
	return strings.Join(v, "; ")
}

// ValidateExpense checks expense input before persistence and returns all
// violated rules. A nil return means the input is acceptable.
func ValidateExpense(title string, amount float64) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(title) == "" {
		errs = append(errs, "Title is required")
	}
	if amount <= 0 {
		errs = append(errs, "Amount must be greater than 0")
	}
	return errs
}

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			amount REAL NOT NULL CHECK (amount >= 0),
			category TEXT NOT NULL DEFAULT 'Other',
			date TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS paychecks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			amount REAL NOT NULL CHECK (amount >= 0),
			description TEXT NOT NULL DEFAULT 'Paycheck',
			date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			username TEXT NOT NULL,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_date ON expenses(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_paychecks_user_date ON paychecks(user_id, date)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser creates a new user with the given username and password hash.
// The username is trimmed; an existing username yields ErrDuplicateUsername.
func (db *DB) CreateUser(username, passwordHash string) (*models.User, error) {
	username = strings.TrimSpace(username)

	var exists int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&exists); err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, ErrDuplicateUsername
	}

	result, err := db.conn.Exec(
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		strings.TrimSpace(username),
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateExpense validates and inserts a new expense owned by userID.
// Category defaults to "Other" and date to today's calendar date. On invalid
// input it returns ValidationErrors and persists nothing.
func (db *DB) CreateExpense(userID int64, title string, amount float64, category, date string) (*models.Expense, error) {
	if errs := ValidateExpense(title, amount); errs != nil {
		return nil, errs
	}
	if category == "" {
		category = "Other"
	}
	if date == "" {
		date = time.Now().Format(DateLayout)
	}

	result, err := db.conn.Exec(
		"INSERT INTO expenses (user_id, title, amount, category, date) VALUES (?, ?, ?, ?, ?)",
		userID, strings.TrimSpace(title), amount, category, date,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(
		"SELECT id, user_id, title, amount, category, date, created_at FROM expenses WHERE id = ?",
		id,
	)
	var e models.Expense
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExpenses retrieves the expenses owned by userID ordered by date
// descending. A non-empty category restricts results to an exact match.
func (db *DB) ListExpenses(userID int64, category string) ([]models.Expense, error) {
	query := "SELECT id, user_id, title, amount, category, date, created_at FROM expenses WHERE user_id = ?"
	args := []any{userID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	query += " ORDER BY date DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Amount, &e.Category, &e.Date, &e.CreatedAt); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}

	return expenses, rows.Err()
}

// DeleteExpense removes an expense only if it is owned by userID.
// Deleting a missing or non-owned id is a silent no-op, not an error.
func (db *DB) DeleteExpense(userID, expenseID int64) error {
	_, err := db.conn.Exec(
		"DELETE FROM expenses WHERE id = ? AND user_id = ?",
		expenseID, userID,
	)
	return err
}

// DistinctCategories returns the category values in use across the user's
// expenses. Order is unspecified.
func (db *DB) DistinctCategories(userID int64) ([]string, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT category FROM expenses WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// CreatePaycheck inserts a new paycheck owned by userID. The description
// defaults to "Paycheck" and the date to today. A non-positive amount yields
// ErrInvalidAmount and persists nothing.
func (db *DB) CreatePaycheck(userID int64, amount float64, description string) (*models.Paycheck, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if description == "" {
		description = "Paycheck"
	}
	date := time.Now().Format(DateLayout)

	result, err := db.conn.Exec(
		"INSERT INTO paychecks (user_id, amount, description, date) VALUES (?, ?, ?, ?)",
		userID, amount, description, date,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Paycheck{ID: id, UserID: userID, Amount: amount, Description: description, Date: date}, nil
}

// ListPaychecks retrieves the paychecks owned by userID ordered by date descending.
func (db *DB) ListPaychecks(userID int64) ([]models.Paycheck, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_id, amount, description, date FROM paychecks WHERE user_id = ? ORDER BY date DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paychecks []models.Paycheck
	for rows.Next() {
		var p models.Paycheck
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.Description, &p.Date); err != nil {
			return nil, err
		}
		paychecks = append(paychecks, p)
	}

	return paychecks, rows.Err()
}

// CreateSession regenerates session storage for the user: any prior tokens
// bound to the same user are invalidated before the fresh token is inserted.
// Either the whole regeneration succeeds or the user keeps no session at all.
func (db *DB) CreateSession(token string, userID int64, username string, expiresAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO sessions (token, user_id, username, expires_at) VALUES (?, ?, ?, ?)",
		token, userID, username, expiresAt,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// ValidateSession returns the identity bound to a token, enforcing expiry on
// every read. A missing or expired token yields ErrNotFound.
func (db *DB) ValidateSession(token string) (*models.Session, error) {
	row := db.conn.QueryRow(
		"SELECT token, user_id, username, expires_at FROM sessions WHERE token = ? AND expires_at > ?",
		token, time.Now(),
	)

	var s models.Session
	if err := row.Scan(&s.Token, &s.UserID, &s.Username, &s.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DeleteSession removes a session by token. Idempotent.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now())
	return err
}
