// Package storage defines the Storage interface, the read-only student
// directory every backend must satisfy, together with the seed records
// the directory is built from at process start.
//
// Handlers and the lookup controller depend only on this interface, so
// the in-memory list and the SQLite-backed copy are interchangeable and
// tests can pass their own fake.
package storage

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/graduation-api/internal/types"
)

// ErrStudentNotFound is returned when no record matches a NISN.
// A miss is a normal outcome, not a fault: compare with errors.Is.
var ErrStudentNotFound = errors.New("student not found")

// Storage is the directory contract.
// Records are never created, updated or deleted through it.
type Storage interface {
	// GetStudentByNISN returns the record whose NISN matches exactly.
	// Returns ErrStudentNotFound when there is none.
	GetStudentByNISN(nisn string) (types.Student, error)

	// GetStudents returns every record in seed order.
	GetStudents() ([]types.Student, error)
}

var seed = []types.Student{
	{
		NISN:         "0012345678",
		Name:         "Aditya Pratama",
		ClassName:    "XII-IPA-1",
		Status:       types.StatusPassed,
		Major:        "MIPA",
		AverageScore: 92.5,
	},
	{
		NISN:         "0087654321",
		Name:         "Siti Rahmawati",
		ClassName:    "XII-IPS-2",
		Status:       types.StatusPassed,
		Major:        "IPS",
		AverageScore: 88.0,
	},
	{
		NISN:         "0011223344",
		Name:         "Budi Santoso",
		ClassName:    "XII-IPA-3",
		Status:       types.StatusPending,
		Major:        "MIPA",
		AverageScore: 75.0,
	},
}

// SeedStudents returns a fresh copy of the static student list.
func SeedStudents() []types.Student {
	out := make([]types.Student, len(seed))
	copy(out, seed)
	return out
}

var validate = validator.New()

// ValidateStudents checks every record against its struct tags and
// rejects duplicate NISNs. Backends call it before accepting records.
func ValidateStudents(students []types.Student) error {
	seen := make(map[string]struct{}, len(students))
	for i, s := range students {
		if err := validate.Struct(s); err != nil {
			return fmt.Errorf("student %d (%s): %w", i, s.NISN, err)
		}
		if _, dup := seen[s.NISN]; dup {
			return fmt.Errorf("student %d: duplicate nisn %s", i, s.NISN)
		}
		seen[s.NISN] = struct{}{}
	}
	return nil
}
