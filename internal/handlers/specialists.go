package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

// redact strips the password before a specialist leaves the server.
func redact(s models.Specialist) models.Specialist {
	s.Password = ""
	return s
}

// GET /api/specialists
func (a *API) ListSpecialists(w http.ResponseWriter, r *http.Request) {
	list := a.Store.Specialists.Get()
	out := make([]models.Specialist, 0, len(list))
	for _, s := range list {
		if r.URL.Query().Get("active") == "1" && !s.Active {
			continue
		}
		out = append(out, redact(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/specialists
func (a *API) CreateSpecialist(w http.ResponseWriter, r *http.Request) {
	var in svc.SpecialistInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	var created models.Specialist
	err := a.Store.Tx(func() error {
		next, s, err := svc.CreateSpecialist(a.Store.Specialists.Get(), in, a.now())
		if err != nil {
			return err
		}
		a.Store.Specialists.Replace(next)
		created = s
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, redact(created))
}

// PUT /api/specialists/{id}
func (a *API) UpdateSpecialist(w http.ResponseWriter, r *http.Request) {
	var in svc.SpecialistInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	var updated models.Specialist
	err := a.Store.Tx(func() error {
		next, s, err := svc.UpdateSpecialist(a.Store.Specialists.Get(), id, in)
		if err != nil {
			return err
		}
		a.Store.Specialists.Replace(next)
		updated = s
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redact(updated))
}

// POST /api/specialists/{id}/deactivate and /activate
func (a *API) SetSpecialistActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var updated models.Specialist
		err := a.Store.Tx(func() error {
			next, s, err := svc.SetSpecialistActive(a.Store.Specialists.Get(), id, active, a.now())
			if err != nil {
				return err
			}
			a.Store.Specialists.Replace(next)
			updated = s
			return nil
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, redact(updated))
	}
}
