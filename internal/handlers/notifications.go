package handlers

import (
	"net/http"
	"slices"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

// GET /api/notifications?unread=1
func (a *API) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "1"
	out := []models.Notification{}
	for _, n := range a.Store.Notifications.Get() {
		if unread && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	writeJSON(w, http.StatusOK, out)
}

// POST /api/notifications/{id}/read
func (a *API) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Store.Tx(func() error {
		next, err := svc.MarkNotificationRead(a.Store.Notifications.Get(), id)
		if err != nil {
			return err
		}
		a.Store.Notifications.Replace(next)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/rules
func (a *API) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.AutoSend.Get())
}

// POST /api/rules
func (a *API) CreateRule(w http.ResponseWriter, r *http.Request) {
	var in svc.RuleInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	var rule models.AutoSendSchedule
	err := a.Store.Tx(func() error {
		next, created, err := svc.CreateRule(a.Store.AutoSend.Get(), in)
		if err != nil {
			return err
		}
		a.Store.AutoSend.Replace(next)
		rule = created
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

// PUT /api/rules/{id}
func (a *API) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var in svc.RuleInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	var rule models.AutoSendSchedule
	err := a.Store.Tx(func() error {
		next, updated, err := svc.UpdateRule(a.Store.AutoSend.Get(), id, in)
		if err != nil {
			return err
		}
		a.Store.AutoSend.Replace(next)
		rule = updated
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// DELETE /api/rules/{id}
func (a *API) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Store.Tx(func() error {
		next, err := svc.DeleteRule(a.Store.AutoSend.Get(), id)
		if err != nil {
			return err
		}
		a.Store.AutoSend.Replace(next)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type messageRequest struct {
	Role      string           `json:"role" validate:"required,oneof=mother father"`
	Messenger models.Messenger `json:"messenger" validate:"required,oneof=whatsapp telegram vk"`
	Template  string           `json:"template" validate:"required"`
	EntryID   string           `json:"entryId,omitempty"`
}

// POST /api/children/{id}/messages prepares a message for one parent and
// records it in the child's history. The operator opens the returned link.
func (a *API) PrepareMessage(w http.ResponseWriter, r *http.Request) {
	var in messageRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := svc.Validate(in); err != nil {
		a.fail(w, r, err)
		return
	}
	childID := chi.URLParam(r, "id")

	var h models.NotificationHistoryEntry
	err := a.Store.Tx(func() error {
		children := a.Store.Children.Get()
		child, err := svc.FindChild(children, childID)
		if err != nil {
			return err
		}
		contact, err := svc.ParentContact(child, in.Role)
		if err != nil {
			return err
		}
		vars := svc.MessageVars{ChildName: child.FullName}
		if in.EntryID != "" {
			entries := a.Store.Schedule.Get()
			i := slices.IndexFunc(entries, func(e models.ScheduleEntry) bool { return e.ID == in.EntryID })
			if i < 0 || entries[i].ChildID != childID {
				return svc.ErrNotFound
			}
			e := entries[i]
			vars.Date, vars.Time = e.Date, e.Time
			vars.SpecialistName = a.directory().SpecialistName(e.SpecialistID)
		}
		h, err = svc.PrepareMessage(contact, in.Messenger, in.Template, vars, a.now())
		if err != nil {
			return err
		}
		h.EntryID = in.EntryID
		next, err := svc.AppendHistory(children, childID, h)
		if err != nil {
			return err
		}
		a.Store.Children.Replace(next)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}
