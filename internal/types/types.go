// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, the generator and the lookup controller can all
// import types without depending on each other.
package types

// GraduationStatus is the outcome announced for a student.
type GraduationStatus string

const (
	StatusPassed  GraduationStatus = "PASSED"
	StatusFailed  GraduationStatus = "FAILED"
	StatusPending GraduationStatus = "PENDING"
)

// Label returns the Indonesian wording shown to students and embedded in
// the generation prompt.
func (s GraduationStatus) Label() string {
	switch s {
	case StatusPassed:
		return "LULUS"
	case StatusFailed:
		return "TIDAK LULUS"
	case StatusPending:
		return "TERTUNDA"
	default:
		return string(s)
	}
}

// Passed reports whether the student graduated.
func (s GraduationStatus) Passed() bool {
	return s == StatusPassed
}

// Student represents one graduation record.
//
// Struct tags serve two purposes:
//
//  1. json:"..." controls how the field appears when encoded to JSON.
//
//  2. validate:"..." holds the rules checked by go-playground/validator,
//     both on seed records and on lookup requests. NISN is the 10-digit national student number.
type Student struct {
	NISN         string           `json:"nisn"          validate:"required,len=10,numeric"`
	Name         string           `json:"name"          validate:"required"`
	ClassName    string           `json:"class_name"    validate:"required"`
	Status       GraduationStatus `json:"status"        validate:"required,oneof=PASSED FAILED PENDING"`
	Major        string           `json:"major"         validate:"required"`
	AverageScore float64          `json:"average_score" validate:"gte=0,lte=100"`
}

// LookupRequest is the payload a client submits to look a student up.
type LookupRequest struct {
	NISN string `json:"nisn" validate:"required,len=10,numeric"`
}

// LookupResult pairs a found student with the message generated for them.
type LookupResult struct {
	Student Student `json:"student"`
	Message string  `json:"message"`
}
