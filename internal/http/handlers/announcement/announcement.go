// Package announcement exposes a session's lookup controller over HTTP:
// submit a NISN, read the current state, dismiss the result, or follow
// every state change over a WebSocket.
//
// Route table:
//
//	POST   /api/lookup      → submit {"nisn": "..."}; ?wait=true blocks until settled
//	GET    /api/lookup      → current state
//	DELETE /api/lookup      → dismiss the result or error
//	GET    /api/lookup/ws   → WebSocket: state pushes, submit/dismiss actions
package announcement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/aanand-mishra/graduation-api/internal/lookup"
	"github.com/aanand-mishra/graduation-api/internal/session"
	"github.com/aanand-mishra/graduation-api/internal/types"
	"github.com/aanand-mishra/graduation-api/internal/utils/response"
)

// WebSocket client actions.
const (
	ActionSubmit  = "submit"
	ActionDismiss = "dismiss"
)

// ClientMessage is what a WebSocket client sends.
type ClientMessage struct {
	Action string `json:"action"`
	NISN   string `json:"nisn,omitempty"`
}

// The zero Upgrader rejects cross-origin handshakes.
var upgrader = websocket.Upgrader{}

// ─────────────────────────────────────────────────────────────────────────────
// Submit handles POST /api/lookup
//
// The NISN is validated by the controller, not here: an invalid NISN is a
// normal outcome that lands the session in the "error" phase.
//
// Responses:
//
//	202 Accepted       current state; the lookup continues in the background
//	200 OK             with ?wait=true, the state this submission settled in
//	400 Bad Request    empty or malformed body
//
// ─────────────────────────────────────────────────────────────────────────────
func Submit(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.LookupRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest,
				response.GeneralError(errors.New("request body is empty")))
			return
		}
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		slog.Info("lookup submitted", slog.String("nisn", req.NISN))
		c := sessions.Controller(w, r)

		// The lookup outlives this request unless the caller waits for it.
		done := c.Submit(context.WithoutCancel(r.Context()), req.NISN)

		if r.URL.Query().Get("wait") != "true" {
			response.WriteJSON(w, http.StatusAccepted, c.State())
			return
		}

		select {
		case st := <-done:
			response.WriteJSON(w, http.StatusOK, st)
		case <-r.Context().Done():
		}
	}
}

// State handles GET /api/lookup.
func State(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, sessions.Controller(w, r).State())
	}
}

// Dismiss handles DELETE /api/lookup.
// 409 Conflict when there is no result or error to dismiss.
func Dismiss(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := sessions.Controller(w, r).Dismiss(r.Context())
		if errors.Is(err, lookup.ErrNothingToDismiss) {
			response.WriteJSON(w, http.StatusConflict, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, st)
	}
}

// WebSocket handles GET /api/lookup/ws.
// Every state change is pushed as JSON; the client drives the controller
// with ClientMessage frames. Only the writer goroutine writes to conn.
func WebSocket(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := sessions.Controller(w, r)

		// w.Header() may carry a fresh session cookie.
		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			slog.Error("websocket upgrade failed", slog.String("error", err.Error()))
			return
		}
		defer conn.Close()

		states, stop := c.Subscribe()
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for st := range states {
				if err := conn.WriteJSON(st); err != nil {
					slog.Debug("websocket write failed", slog.String("error", err.Error()))
					return
				}
			}
		}()

		ctx := context.WithoutCancel(r.Context())
		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					slog.Debug("websocket read failed", slog.String("error", err.Error()))
				}
				break
			}

			switch msg.Action {
			case ActionSubmit:
				slog.Info("lookup submitted", slog.String("nisn", msg.NISN), slog.String("via", "websocket"))
				c.Submit(ctx, msg.NISN)
			case ActionDismiss:
				if _, err := c.Dismiss(ctx); err != nil {
					slog.Debug("dismiss ignored", slog.String("error", err.Error()))
				}
			default:
				slog.Warn("unknown websocket action", slog.String("action", msg.Action))
			}
		}

		stop()
		<-writerDone
	}
}
