// Package session gives every browser its own lookup controller.
// Controllers live in an expiring in-process cache keyed by a random
// session ID carried in a cookie; an idle session is forgotten after the
// configured TTL and the next request simply starts a new one.
package session

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/aanand-mishra/graduation-api/internal/lookup"
)

// CookieName is the cookie carrying the session ID.
const CookieName = "graduation_session"

// Store maps session IDs to controllers.
type Store struct {
	cache   *cache.Cache
	ttl     time.Duration
	factory func() *lookup.Controller
}

// New returns a Store whose sessions expire ttl after their last use.
// factory builds the controller for a new session.
func New(ttl time.Duration, factory func() *lookup.Controller) *Store {
	return &Store{
		cache:   cache.New(ttl, ttl/2+time.Minute),
		ttl:     ttl,
		factory: factory,
	}
}

// Get returns the controller for id and refreshes its expiry.
func (s *Store) Get(id string) (*lookup.Controller, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	c := v.(*lookup.Controller)
	s.cache.Set(id, c, cache.DefaultExpiration)
	return c, true
}

// Create starts a new session.
func (s *Store) Create() (string, *lookup.Controller) {
	id := uuid.NewString()
	c := s.factory()
	s.cache.Set(id, c, cache.DefaultExpiration)
	return id, c
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Controller returns the caller's controller, creating a session when the
// request carries no cookie (or an expired one). The cookie is written on
// every call so its lifetime slides with the cached session.
func (s *Store) Controller(w http.ResponseWriter, r *http.Request) *lookup.Controller {
	if cookie, err := r.Cookie(CookieName); err == nil {
		if c, ok := s.Get(cookie.Value); ok {
			s.setCookie(w, cookie.Value)
			return c
		}
	}

	id, c := s.Create()
	slog.Debug("session created", slog.String("session", id))
	s.setCookie(w, id)
	return c
}

func (s *Store) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
