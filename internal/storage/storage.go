package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// New creates a new Storage instance and initializes the database
func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) init() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payment_sessions (
			id TEXT PRIMARY KEY,
			correlation_id INTEGER NOT NULL,
			mac TEXT NOT NULL,
			phone TEXT NOT NULL,
			plan_id INTEGER NOT NULL,
			state TEXT NOT NULL,
			plan_name TEXT NOT NULL DEFAULT '',
			expiry TEXT NOT NULL DEFAULT '',
			attempts INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_sessions_mac ON payment_sessions(mac)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_sessions_correlation ON payment_sessions(correlation_id)`,

		`CREATE TABLE IF NOT EXISTS device_phones (
			mac TEXT PRIMARY KEY,
			phone TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// --- Payment sessions ---

// CreateSession inserts the audit row for a freshly accepted charge.
func (s *Storage) CreateSession(rec *SessionRecord) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO payment_sessions
			(id, correlation_id, mac, phone, plan_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CorrelationID, rec.MAC, rec.Phone, rec.PlanID, rec.State, now, now,
	)
	return err
}

// FinishSession records the terminal outcome of a session.
func (s *Storage) FinishSession(id, state, planName, expiry string, attempts int, detail string) error {
	result, err := s.db.Exec(
		`UPDATE payment_sessions
		 SET state = ?, plan_name = ?, expiry = ?, attempts = ?, detail = ?, updated_at = ?
		 WHERE id = ?`,
		state, planName, expiry, attempts, detail, time.Now().Unix(), id,
	)
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

// GetSession returns a session audit row by id.
func (s *Storage) GetSession(id string) (*SessionRecord, error) {
	var rec SessionRecord
	var createdAt, updatedAt int64

	err := s.db.QueryRow(
		`SELECT id, correlation_id, mac, phone, plan_id, state, plan_name, expiry, attempts, detail, created_at, updated_at
		 FROM payment_sessions WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.CorrelationID, &rec.MAC, &rec.Phone, &rec.PlanID, &rec.State,
		&rec.PlanName, &rec.Expiry, &rec.Attempts, &rec.Detail, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

// SessionsByMAC returns the purchase history of a device, newest first.
func (s *Storage) SessionsByMAC(mac string, limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, correlation_id, mac, phone, plan_id, state, plan_name, expiry, attempts, detail, created_at, updated_at
		 FROM payment_sessions WHERE mac = ? ORDER BY created_at DESC LIMIT ?`,
		mac, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var createdAt, updatedAt int64

		err := rows.Scan(&rec.ID, &rec.CorrelationID, &rec.MAC, &rec.Phone, &rec.PlanID, &rec.State,
			&rec.PlanName, &rec.Expiry, &rec.Attempts, &rec.Detail, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}

		rec.CreatedAt = time.Unix(createdAt, 0)
		rec.UpdatedAt = time.Unix(updatedAt, 0)
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// --- Device phones ---

// RememberPhone stores the last phone used from a device.
func (s *Storage) RememberPhone(mac, phone string) error {
	if mac == "" {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO device_phones (mac, phone, updated_at) VALUES (?, ?, ?)`,
		mac, phone, time.Now().Unix(),
	)
	return err
}

// LastPhone returns the last phone used from a device.
func (s *Storage) LastPhone(mac string) (string, error) {
	var phone string
	err := s.db.QueryRow(
		"SELECT phone FROM device_phones WHERE mac = ?",
		mac,
	).Scan(&phone)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return phone, err
}
