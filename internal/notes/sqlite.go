package notes

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const createNotesTable = `
CREATE TABLE IF NOT EXISTS nurse_notes (
    id          TEXT PRIMARY KEY,
    patient_id  TEXT NOT NULL,
    nurse_id    TEXT NOT NULL,
    note        TEXT NOT NULL,
    created_at  DATETIME NOT NULL
)`

const createNotesIndex = `
CREATE INDEX IF NOT EXISTS idx_nurse_notes_patient ON nurse_notes (patient_id, created_at)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite. SQLite serializes writes, which
// keeps concurrent note appends from interleaving.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createNotesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create nurse_notes table: %w", err)
	}

	if _, err := db.Exec(createNotesIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("create nurse_notes index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts a note. A missing ID or CreatedAt is filled in.
func (s *SQLiteStore) Append(ctx context.Context, n *Note) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nurse_notes (id, patient_id, nurse_id, note, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.PatientID, n.NurseID, n.Note, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// ListByPatient returns all notes for a patient, oldest first.
func (s *SQLiteStore) ListByPatient(ctx context.Context, patientID string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, patient_id, nurse_id, note, created_at
		FROM nurse_notes WHERE patient_id = ? ORDER BY created_at ASC, id ASC`,
		patientID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.PatientID, &n.NurseID, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}
