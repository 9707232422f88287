package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

const sessionCookieName = "kidcare_session"

type session struct {
	specialistID string
	expires      time.Time
}

type sessionStore struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, m: map[string]session{}}
}

func (s *sessionStore) create(specialistID string, now time.Time) (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := uuid.NewString()
	exp := now.Add(s.ttl)
	s.m[token] = session{specialistID: specialistID, expires: exp}
	return token, exp
}

func (s *sessionStore) lookup(token string, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.m[token]
	if !ok {
		return "", false
	}
	if now.After(ss.expires) {
		delete(s.m, token)
		return "", false
	}
	return ss.specialistID, true
}

func (s *sessionStore) drop(token string) {
	s.mu.Lock()
	delete(s.m, token)
	s.mu.Unlock()
}

type ctxKey struct{}

// CurrentSpecialist returns the signed-in specialist set by RequireSpecialist.
func CurrentSpecialist(ctx context.Context) (models.Specialist, bool) {
	s, ok := ctx.Value(ctxKey{}).(models.Specialist)
	return s, ok
}

// RequireSpecialist is middleware: rejects requests without a live session
// of an active specialist.
func (a *API) RequireSpecialist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, apiError{Error: "unauthenticated", Message: "login required"})
			return
		}
		id, ok := a.sessions.lookup(c.Value, a.now())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, apiError{Error: "unauthenticated", Message: "session expired"})
			return
		}
		sp, err := svc.FindSpecialist(a.Store.Specialists.Get(), id)
		if err != nil || !sp.Active {
			a.sessions.drop(c.Value)
			writeJSON(w, http.StatusUnauthorized, apiError{Error: "unauthenticated", Message: "account unavailable"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sp)))
	})
}

// RequireAdmin must run after RequireSpecialist.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sp, ok := CurrentSpecialist(r.Context())
		if !ok || sp.Role != models.RoleAdmin {
			writeJSON(w, http.StatusForbidden, apiError{Error: "forbidden", Message: "admin only"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/login
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	sp, err := svc.Authenticate(a.Store.Specialists.Get(), in.Email, in.Password)
	if err != nil {
		a.Log.Info("login rejected", "email", in.Email, "err", err)
		a.fail(w, r, err)
		return
	}
	token, exp := a.sessions.create(sp.ID, a.now())
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
	writeJSON(w, http.StatusOK, redact(sp))
}

// POST /api/logout
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		a.sessions.drop(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/me
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	sp, _ := CurrentSpecialist(r.Context())
	writeJSON(w, http.StatusOK, redact(sp))
}
