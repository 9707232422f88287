package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

// GET /api/salaries?month=
func (a *API) ListSalaries(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	out := []models.SpecialistSalary{}
	for _, s := range a.Store.Salaries.Get() {
		if month == "" || s.Month == month {
			out = append(out, s)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/salaries
func (a *API) AddSalary(w http.ResponseWriter, r *http.Request) {
	var in svc.SalaryInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	var s models.SpecialistSalary
	err := a.Store.Tx(func() error {
		if _, err := svc.FindSpecialist(a.Store.Specialists.Get(), in.SpecialistID); err != nil {
			return err
		}
		next, created, err := svc.AddSalary(a.Store.Salaries.Get(), in, a.now())
		if err != nil {
			return err
		}
		a.Store.Salaries.Replace(next)
		s = created
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// DELETE /api/salaries/{id}
func (a *API) DeleteSalary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Store.Tx(func() error {
		next, err := svc.DeleteSalary(a.Store.Salaries.Get(), id)
		if err != nil {
			return err
		}
		a.Store.Salaries.Replace(next)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/expenses?month=
func (a *API) ListExpenses(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	out := []models.MonthlyExpense{}
	for _, x := range a.Store.Expenses.Get() {
		if month == "" || x.Month == month {
			out = append(out, x)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/expenses
func (a *API) AddExpense(w http.ResponseWriter, r *http.Request) {
	var in svc.ExpenseInput
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	var x models.MonthlyExpense
	err := a.Store.Tx(func() error {
		next, created, err := svc.AddExpense(a.Store.Expenses.Get(), in, a.now())
		if err != nil {
			return err
		}
		a.Store.Expenses.Replace(next)
		x = created
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, x)
}

// DELETE /api/expenses/{id}
func (a *API) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.Store.Tx(func() error {
		next, err := svc.DeleteExpense(a.Store.Expenses.Get(), id)
		if err != nil {
			return err
		}
		a.Store.Expenses.Replace(next)
		return nil
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/settings/expenses
func (a *API) GetExpenseSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Store.ExpenseSettings.Get())
}

// PUT /api/settings/expenses
func (a *API) UpdateExpenseSettings(w http.ResponseWriter, r *http.Request) {
	var in models.ExpenseSettings
	if err := readJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	if err := svc.CheckExpenseSettings(in); err != nil {
		a.fail(w, r, err)
		return
	}
	_ = a.Store.Tx(func() error {
		a.Store.ExpenseSettings.Replace(in)
		return nil
	})
	writeJSON(w, http.StatusOK, in)
}
