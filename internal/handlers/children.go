package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

func onlyDigits(s string) string {
	b := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b = append(b, r)
		}
	}
	return string(b)
}

// matchChild is the search used by the children list: name, code, or any
// run of phone digits.
func matchChild(c models.Child, q string) bool {
	if q == "" {
		return true
	}
	lq := strings.ToLower(q)
	if strings.Contains(strings.ToLower(c.FullName), lq) || strings.Contains(strings.ToLower(c.Code), lq) {
		return true
	}
	digits := onlyDigits(q)
	if digits == "" {
		return false
	}
	return strings.Contains(onlyDigits(c.MotherPhone), digits) || strings.Contains(onlyDigits(c.FatherPhone), digits)
}

// GET /api/children?q=&archived=0|1|all
func (a *API) ListChildren(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	archived := r.URL.Query().Get("archived")

	out := []models.Child{}
	for _, c := range a.Store.Children.Get() {
		switch {
		case archived == "1" && !c.Archived, (archived == "" || archived == "0") && c.Archived:
			continue
		}
		if matchChild(c, q) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	writeJSON(w, http.StatusOK, out)
}

// GET /api/children/{id}
func (a *API) GetChild(w http.ResponseWriter, r *http.Request) {
	c, err := svc.FindChild(a.Store.Children.Get(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// childTx runs fn against the children collection and persists the result.
func (a *API) childTx(fn func([]models.Child) ([]models.Child, error)) error {
	return a.Store.Tx(func() error {
		next, err := fn(a.Store.Children.Get())
		if err != nil {
			return err
		}
		a.Store.Children.Replace(next)
		return nil
	})
}

// POST /api/children
func (a *API) CreateChild(w http.ResponseWriter, r *http.Request) {
	var in svc.ChildInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	var c models.Child
	err := a.childTx(func(children []models.Child) (next []models.Child, err error) {
		next, c, err = svc.CreateChild(children, in, a.now())
		return next, err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// PUT /api/children/{id}
func (a *API) UpdateChild(w http.ResponseWriter, r *http.Request) {
	var in svc.ChildInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	var c models.Child
	err := a.childTx(func(children []models.Child) (next []models.Child, err error) {
		next, c, err = svc.UpdateChild(children, id, in, a.now())
		return next, err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// POST /api/children/{id}/archive and /restore
func (a *API) SetChildArchived(archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var c models.Child
		err := a.childTx(func(children []models.Child) (next []models.Child, err error) {
			next, c, err = svc.SetArchived(children, id, archived, a.now())
			return next, err
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// POST /api/children/{id}/sessions
func (a *API) AddSession(w http.ResponseWriter, r *http.Request) {
	var in svc.SessionInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if in.SpecialistID == "" {
		if sp, ok := CurrentSpecialist(r.Context()); ok {
			in.SpecialistID = sp.ID
		}
	}
	id := chi.URLParam(r, "id")
	var s models.Session
	err := a.childTx(func(children []models.Child) (next []models.Child, err error) {
		next, s, err = svc.AddSession(children, id, in, a.now())
		return next, err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// POST /api/children/{id}/sessions/{sessionID}/exercises/{exerciseID}/photos
func (a *API) AddPhoto(w http.ResponseWriter, r *http.Request) {
	var in svc.PhotoInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	childID := chi.URLParam(r, "id")
	sessionID := chi.URLParam(r, "sessionID")
	exerciseID := chi.URLParam(r, "exerciseID")
	var p models.Photo
	err := a.childTx(func(children []models.Child) (next []models.Child, err error) {
		next, p, err = svc.AddExercisePhoto(children, childID, sessionID, exerciseID, in, a.now())
		return next, err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// POST /api/children/{id}/reports
func (a *API) AddReport(w http.ResponseWriter, r *http.Request) {
	var in svc.ReportInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if in.SpecialistID == "" {
		if sp, ok := CurrentSpecialist(r.Context()); ok {
			in.SpecialistID = sp.ID
		}
	}
	id := chi.URLParam(r, "id")
	var rep models.MonthlyReport
	err := a.childTx(func(children []models.Child) (next []models.Child, err error) {
		next, rep, err = svc.AddMonthlyReport(children, id, in, a.now())
		return next, err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// GET /api/children/{id}/statistics
func (a *API) ChildStatistics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := svc.FindChild(a.Store.Children.Get(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	st := svc.ComputeChildStatistics(id, a.Store.Schedule.Get(), a.Store.ExpenseSettings.Get(), a.now())
	writeJSON(w, http.StatusOK, st)
}

// GET /api/children/{id}/history
func (a *API) ChildHistory(w http.ResponseWriter, r *http.Request) {
	c, err := svc.FindChild(a.Store.Children.Get(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	out := append([]models.NotificationHistoryEntry{}, c.NotificationHistory...)
	// Newest first.
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	writeJSON(w, http.StatusOK, out)
}
