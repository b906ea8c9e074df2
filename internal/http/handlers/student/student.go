// Package student contains the HTTP handler for reading a student record
// straight from the directory.
//
// Handlers are factories: they receive their dependencies once at route
// registration and return the func the router calls on every request.
//
//	router.HandleFunc("GET /api/students/{nisn}", student.GetByNISN(store))
package student

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/graduation-api/internal/storage"
	"github.com/aanand-mishra/graduation-api/internal/types"
	"github.com/aanand-mishra/graduation-api/internal/utils/response"
)

var validate = validator.New()

// ─────────────────────────────────────────────────────────────────────────────
// GetByNISN handles GET /api/students/{nisn}
// Returns the record without a generated message.
//
// Success response (200 OK):
//
//	{ "nisn": "0012345678", "name": "Aditya Pratama", "class_name": "XII-IPA-1",
//	  "status": "PASSED", "major": "MIPA", "average_score": 92.5 }
//
// Error responses:
//
//	400 Bad Request    nisn is not exactly 10 digits
//	404 Not Found      no student with that nisn
//	500 Internal       directory failure
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByNISN(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nisn := r.PathValue("nisn")
		slog.Info("getting a student", slog.String("nisn", nisn))

		if err := validate.Struct(types.LookupRequest{NISN: nisn}); err != nil {
			var validateErrs validator.ValidationErrors
			if errors.As(err, &validateErrs) {
				response.WriteJSON(w, http.StatusBadRequest,
					response.ValidationError(validateErrs))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		student, err := store.GetStudentByNISN(nisn)
		if errors.Is(err, storage.ErrStudentNotFound) {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(fmt.Errorf("no student found with nisn: %s", nisn)))
			return
		}
		if err != nil {
			slog.Error("error getting student",
				slog.String("nisn", nisn),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}
