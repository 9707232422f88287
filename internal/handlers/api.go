package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lojf/kidcare/internal/db"
	svc "github.com/lojf/kidcare/internal/services"
)

// API holds what every handler needs. Handlers run their read-modify-write
// inside Store.Tx and never hold it across I/O to the client.
type API struct {
	Store    *db.Store
	Loc      *time.Location
	Now      func() time.Time
	Log      *slog.Logger
	Exporter StatsExporter

	sessions *sessionStore
}

func New(store *db.Store, loc *time.Location, log *slog.Logger) *API {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &API{
		Store:    store,
		Loc:      loc,
		Now:      time.Now,
		Log:      log,
		Exporter: CSVExporter{},
		sessions: newSessionStore(24 * time.Hour),
	}
}

func (a *API) now() time.Time { return a.Now().In(a.Loc) }

// GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body into v; unknown fields are rejected.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(svc.ErrValidation, err)
	}
	return nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errKey maps a service error to its HTTP status and a stable key the
// frontend translates.
func errKey(err error) (int, string) {
	switch {
	case errors.Is(err, svc.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, svc.ErrNonPositiveAmount):
		return http.StatusUnprocessableEntity, "non_positive_amount"
	case errors.Is(err, svc.ErrAlreadyActivated):
		return http.StatusConflict, "already_activated"
	case errors.Is(err, svc.ErrDuplicateEmail):
		return http.StatusConflict, "email_in_use"
	case errors.Is(err, svc.ErrBlockExhausted):
		return http.StatusConflict, "block_exhausted"
	case errors.Is(err, svc.ErrBlockMismatch):
		return http.StatusConflict, "block_mismatch"
	case errors.Is(err, svc.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, svc.ErrInactive):
		return http.StatusForbidden, "inactive"
	case errors.Is(err, svc.ErrValidation):
		return http.StatusBadRequest, "invalid"
	}
	return http.StatusInternalServerError, "internal"
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, key := errKey(err)
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, apiError{Error: key, Message: err.Error()})
}
