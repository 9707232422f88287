package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

// ledgerTx applies fn to a working copy of the schedule and its blocks and
// writes both back only when fn succeeds.
func (a *API) ledgerTx(fn func(l *svc.Ledger) error) error {
	return a.Store.Tx(func() error {
		l := svc.NewLedger(a.Store.Schedule.Get(), a.Store.Blocks.Get(), a.now)
		if err := fn(l); err != nil {
			return err
		}
		a.Store.Schedule.Replace(l.Entries())
		a.Store.Blocks.Replace(l.Blocks())
		return nil
	})
}

func (a *API) directory() svc.Directory {
	return svc.NewDirectory(a.Store.Children.Get(), a.Store.Specialists.Get(), a.Store.Blocks.Get())
}

// checkRefs makes sure an entry points at a known child and specialist.
func (a *API) checkRefs(in svc.EntryInput) error {
	if _, err := svc.FindChild(a.Store.Children.Get(), in.ChildID); err != nil {
		return err
	}
	_, err := svc.FindSpecialist(a.Store.Specialists.Get(), in.SpecialistID)
	return err
}

// GET /api/schedule?from=&to=&childId=&specialistId=&status=
func (a *API) ListSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := models.Day(q.Get("from")), models.Day(q.Get("to"))
	childID, specialistID := q.Get("childId"), q.Get("specialistId")
	status := models.EntryStatus(q.Get("status"))

	var out []models.ScheduleEntry
	for _, e := range a.Store.Schedule.Get() {
		switch {
		case from != "" && e.Date < from,
			to != "" && e.Date > to,
			childID != "" && e.ChildID != childID,
			specialistID != "" && e.SpecialistID != specialistID,
			status != "" && e.Status != status:
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(x, y models.ScheduleEntry) int {
		switch {
		case x.Date != y.Date:
			if x.Date < y.Date {
				return -1
			}
			return 1
		case x.Time < y.Time:
			return -1
		case x.Time > y.Time:
			return 1
		}
		return 0
	})
	writeJSON(w, http.StatusOK, a.directory().Views(out))
}

// GET /api/schedule/{id}
func (a *API) GetEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	i := slices.IndexFunc(a.Store.Schedule.Get(), func(e models.ScheduleEntry) bool { return e.ID == id })
	if i < 0 {
		a.fail(w, r, svc.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.directory().View(a.Store.Schedule.Get()[i]))
}

// entryOp runs one ledger transition and answers with the resulting view.
func (a *API) entryOp(w http.ResponseWriter, r *http.Request, status int, fn func(l *svc.Ledger) (models.ScheduleEntry, error)) {
	var e models.ScheduleEntry
	err := a.ledgerTx(func(l *svc.Ledger) error {
		var err error
		e, err = fn(l)
		return err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, status, a.directory().View(e))
}

// POST /api/schedule
func (a *API) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var in svc.EntryInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	a.entryOp(w, r, http.StatusCreated, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		if err := a.checkRefs(in); err != nil {
			return models.ScheduleEntry{}, err
		}
		return l.CreateEntry(in)
	})
}

// PUT /api/schedule/{id}
func (a *API) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var in svc.EntryInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		if err := a.checkRefs(in); err != nil {
			return models.ScheduleEntry{}, err
		}
		return l.UpdateEntry(id, in)
	})
}

// DELETE /api/schedule/{id}
func (a *API) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.ledgerTx(func(l *svc.Ledger) error { return l.DeleteEntry(id) }); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/schedule/{id}/complete
func (a *API) CompleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		return l.MarkCompleted(id)
	})
}

type absenceRequest struct {
	Category models.AbsenceCategory `json:"category"`
	Reason   string                 `json:"reason"`
}

// POST /api/schedule/{id}/absent
func (a *API) AbsentEntry(w http.ResponseWriter, r *http.Request) {
	var in absenceRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		return l.MarkAbsent(id, in.Category, in.Reason)
	})
}

// POST /api/schedule/{id}/reschedule
func (a *API) RescheduleEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		return l.MarkScheduled(id)
	})
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   models.Day      `json:"date"`
}

// POST /api/schedule/{id}/payment; date defaults to today.
func (a *API) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var in paymentRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if in.Date == "" {
		in.Date = models.DayOf(a.now())
	}
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		return l.RecordPayment(id, in.Amount, in.Date)
	})
}

// DELETE /api/schedule/{id}/payment
func (a *API) ClearPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		return l.ClearPayment(id)
	})
}

type blockRequest struct {
	Size int             `json:"size"`
	Cost decimal.Decimal `json:"cost"`
}

// blockOp runs a ledger transition that yields a block.
func (a *API) blockOp(w http.ResponseWriter, r *http.Request, status int, fn func(l *svc.Ledger) (models.SubscriptionBlock, error)) {
	var b models.SubscriptionBlock
	err := a.ledgerTx(func(l *svc.Ledger) error {
		var err error
		b, err = fn(l)
		return err
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, status, b)
}

// POST /api/schedule/{id}/subscription
func (a *API) OpenSubscription(w http.ResponseWriter, r *http.Request) {
	var in blockRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.blockOp(w, r, http.StatusCreated, func(l *svc.Ledger) (models.SubscriptionBlock, error) {
		return l.OpenSubscription(id, in.Size, in.Cost)
	})
}

// POST /api/schedule/{id}/prepaid
func (a *API) ActivatePrepaid(w http.ResponseWriter, r *http.Request) {
	var in blockRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.blockOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.SubscriptionBlock, error) {
		return l.ActivatePrepaidSubscription(id, in.Size, in.Cost)
	})
}

type attachRequest struct {
	BlockID string `json:"blockId"`
}

// POST /api/schedule/{id}/attach
func (a *API) AttachEntry(w http.ResponseWriter, r *http.Request) {
	var in attachRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.entryOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.ScheduleEntry, error) {
		return l.AttachToBlock(id, in.BlockID)
	})
}

// GET /api/blocks?childId=
func (a *API) ListBlocks(w http.ResponseWriter, r *http.Request) {
	childID := r.URL.Query().Get("childId")
	out := []models.SubscriptionBlock{}
	for _, b := range a.Store.Blocks.Get() {
		if childID == "" || b.ChildID == childID {
			out = append(out, b)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type blockDetail struct {
	Block   models.SubscriptionBlock `json:"block"`
	Entries []svc.EntryView          `json:"entries"`
}

// GET /api/blocks/{id}
func (a *API) GetBlock(w http.ResponseWriter, r *http.Request) {
	l := svc.NewLedger(a.Store.Schedule.Get(), a.Store.Blocks.Get(), a.now)
	b, err := l.Block(chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, blockDetail{Block: b, Entries: a.directory().Views(l.BlockEntries(b.ID))})
}

// POST /api/blocks/{id}/resize
func (a *API) ResizeBlock(w http.ResponseWriter, r *http.Request) {
	var in blockRequest
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	a.blockOp(w, r, http.StatusOK, func(l *svc.Ledger) (models.SubscriptionBlock, error) {
		return l.ResizeBlock(id, in.Size)
	})
}

type importResult struct {
	Entries int `json:"entries"`
	Blocks  int `json:"blocks"`
	Skipped int `json:"skipped"`
}

// POST /api/schedule/import takes flat records from older versions. Records
// whose id is already present, or repeated within the batch, are skipped.
func (a *API) ImportLegacySchedule(w http.ResponseWriter, r *http.Request) {
	// Old exports carry fields this version no longer knows, so the body
	// is decoded leniently.
	var legacy []svc.LegacyScheduleEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<20)).Decode(&legacy); err != nil {
		a.fail(w, r, errors.Join(svc.ErrValidation, err))
		return
	}
	var res importResult
	_ = a.Store.Tx(func() error {
		current := a.Store.Schedule.Get()
		known := make(map[string]bool, len(current))
		for _, e := range current {
			known[e.ID] = true
		}
		fresh := legacy[:0:0]
		for _, le := range legacy {
			if le.ID != "" && known[le.ID] {
				res.Skipped++
				continue
			}
			if le.ID != "" {
				known[le.ID] = true
			}
			fresh = append(fresh, le)
		}
		entries, blocks := svc.MigrateLegacySchedule(fresh, a.now())
		a.Store.Schedule.Replace(append(slices.Clone(current), entries...))
		a.Store.Blocks.Replace(append(slices.Clone(a.Store.Blocks.Get()), blocks...))
		res.Entries, res.Blocks = len(entries), len(blocks)
		return nil
	})
	a.Log.Info("legacy schedule imported", "entries", res.Entries, "blocks", res.Blocks, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, res)
}
