// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// The directory is still the static seed list: New creates the students
// table, loads the seed records into it and from then on only reads.
// By default the database lives in memory (see config.DefaultStoragePath),
// so nothing outlives the process.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/aanand-mishra/graduation-api/internal/config"
	"github.com/aanand-mishra/graduation-api/internal/storage"
	"github.com/aanand-mishra/graduation-api/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

// New opens the database at cfg.StoragePath, creates the students table
// if needed and seeds it with the given records.
func New(cfg *config.Config, students []types.Student) (*SQLite, error) {
	if err := storage.ValidateStudents(students); err != nil {
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// An in-memory database disappears with its last connection.
	// Keeping a single long-lived connection pins it for the process.
	db.SetMaxOpenConns(1)

	// Schema:
	//   nisn            10-digit national student number, primary key
	//   status          PASSED | FAILED | PENDING
	//   average_score   final average, 0..100
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			nisn          TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			class_name    TEXT NOT NULL,
			status        TEXT NOT NULL,
			major         TEXT NOT NULL,
			average_score REAL NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	s := &SQLite{Db: db}
	if err := s.seed(students); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// seed inserts the records in one transaction. INSERT OR IGNORE keeps a
// file-backed database idempotent across restarts.
func (s *SQLite) seed(students []types.Student) error {
	tx, err := s.Db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite.seed: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO students (nisn, name, class_name, status, major, average_score)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite.seed: prepare: %w", err)
	}
	defer stmt.Close()

	for _, st := range students {
		if _, err := stmt.Exec(st.NISN, st.Name, st.ClassName, string(st.Status), st.Major, st.AverageScore); err != nil {
			return fmt.Errorf("sqlite.seed: insert %s: %w", st.NISN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite.seed: commit: %w", err)
	}
	return nil
}

// GetStudentByNISN fetches exactly one row matched by NISN.
// sql.ErrNoRows is translated to storage.ErrStudentNotFound.
func (s *SQLite) GetStudentByNISN(nisn string) (types.Student, error) {
	stmt, err := s.Db.Prepare(`
		SELECT nisn, name, class_name, status, major, average_score
		FROM students WHERE nisn = ? LIMIT 1
	`)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByNISN: prepare: %w", err)
	}
	defer stmt.Close()

	var (
		student types.Student
		status  string
	)
	err = stmt.QueryRow(nisn).Scan(
		&student.NISN,
		&student.Name,
		&student.ClassName,
		&status,
		&student.Major,
		&student.AverageScore,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrStudentNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByNISN: scan: %w", err)
	}
	student.Status = types.GraduationStatus(status)

	return student, nil
}

// GetStudents returns all rows in insertion order.
func (s *SQLite) GetStudents() ([]types.Student, error) {
	stmt, err := s.Db.Prepare(`
		SELECT nisn, name, class_name, status, major, average_score
		FROM students ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var (
			student types.Student
			status  string
		)
		if err := rows.Scan(
			&student.NISN,
			&student.Name,
			&student.ClassName,
			&status,
			&student.Major,
			&student.AverageScore,
		); err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		student.Status = types.GraduationStatus(status)
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

// Close releases the connection pool (and with it an in-memory database).
func (s *SQLite) Close() error {
	return s.Db.Close()
}
