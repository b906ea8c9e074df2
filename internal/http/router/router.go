// Package router registers every HTTP route of the service.
package router

import (
	"net/http"

	"github.com/aanand-mishra/graduation-api/internal/http/handlers/announcement"
	"github.com/aanand-mishra/graduation-api/internal/http/handlers/student"
	"github.com/aanand-mishra/graduation-api/internal/session"
	"github.com/aanand-mishra/graduation-api/internal/storage"
)

// New returns the service's ServeMux.
//
// Route table:
//
//	POST   /api/lookup          → submit a NISN for this session
//	GET    /api/lookup          → this session's state
//	DELETE /api/lookup          → dismiss the result
//	GET    /api/lookup/ws       → WebSocket state stream
//	GET    /api/students/{nisn} → read one record, no message
func New(store storage.Storage, sessions *session.Store) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("POST /api/lookup", announcement.Submit(sessions))
	router.HandleFunc("GET /api/lookup", announcement.State(sessions))
	router.HandleFunc("DELETE /api/lookup", announcement.Dismiss(sessions))
	router.HandleFunc("GET /api/lookup/ws", announcement.WebSocket(sessions))
	router.HandleFunc("GET /api/students/{nisn}", student.GetByNISN(store))

	return router
}
