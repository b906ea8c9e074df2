// Package memory provides the default storage.Storage implementation:
// a fixed slice of student records searched linearly.
package memory

import (
	"fmt"

	"github.com/aanand-mishra/graduation-api/internal/storage"
	"github.com/aanand-mishra/graduation-api/internal/types"
)

// Memory is an immutable in-process student directory.
type Memory struct {
	students []types.Student
}

// New builds a directory over the given records. The slice is copied, so
// later changes by the caller do not leak in.
func New(students []types.Student) (*Memory, error) {
	if err := storage.ValidateStudents(students); err != nil {
		return nil, fmt.Errorf("memory.New: %w", err)
	}

	own := make([]types.Student, len(students))
	copy(own, students)
	return &Memory{students: own}, nil
}

// NewSeeded builds a directory over storage.SeedStudents.
func NewSeeded() *Memory {
	m, err := New(storage.SeedStudents())
	if err != nil {
		// the seed list is static; an invalid record is a programming error
		panic(err)
	}
	return m
}

// GetStudentByNISN scans the list for an exact match.
// Student is a value type, so the caller receives a copy.
func (m *Memory) GetStudentByNISN(nisn string) (types.Student, error) {
	for _, s := range m.students {
		if s.NISN == nisn {
			return s, nil
		}
	}
	return types.Student{}, storage.ErrStudentNotFound
}

// GetStudents returns a copy of all records.
func (m *Memory) GetStudents() ([]types.Student, error) {
	out := make([]types.Student, len(m.students))
	copy(out, m.students)
	return out, nil
}
