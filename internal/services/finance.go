package services

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojf/kidcare/internal/models"
)

type SalaryInput struct {
	SpecialistID string          `json:"specialistId" validate:"required"`
	Month        string          `json:"month" validate:"required,month"`
	Amount       decimal.Decimal `json:"amount"`
	Note         string          `json:"note,omitempty"`
}

type ExpenseInput struct {
	Month    string          `json:"month" validate:"required,month"`
	Category string          `json:"category" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note,omitempty"`
}

func AddSalary(list []models.SpecialistSalary, in SalaryInput, now time.Time) ([]models.SpecialistSalary, models.SpecialistSalary, error) {
	if err := Validate(in); err != nil {
		return nil, models.SpecialistSalary{}, err
	}
	if !in.Amount.IsPositive() {
		return nil, models.SpecialistSalary{}, ErrNonPositiveAmount
	}
	s := models.SpecialistSalary{
		ID:           uuid.NewString(),
		SpecialistID: in.SpecialistID,
		Month:        in.Month,
		Amount:       in.Amount,
		Note:         in.Note,
		CreatedAt:    now,
	}
	return append(slices.Clone(list), s), s, nil
}

func DeleteSalary(list []models.SpecialistSalary, id string) ([]models.SpecialistSalary, error) {
	i := slices.IndexFunc(list, func(s models.SpecialistSalary) bool { return s.ID == id })
	if i < 0 {
		return nil, notFound("salary", id)
	}
	return slices.Delete(slices.Clone(list), i, i+1), nil
}

func AddExpense(list []models.MonthlyExpense, in ExpenseInput, now time.Time) ([]models.MonthlyExpense, models.MonthlyExpense, error) {
	if err := Validate(in); err != nil {
		return nil, models.MonthlyExpense{}, err
	}
	if !in.Amount.IsPositive() {
		return nil, models.MonthlyExpense{}, ErrNonPositiveAmount
	}
	x := models.MonthlyExpense{
		ID:        uuid.NewString(),
		Month:     in.Month,
		Category:  in.Category,
		Amount:    in.Amount,
		Note:      in.Note,
		CreatedAt: now,
	}
	return append(slices.Clone(list), x), x, nil
}

func DeleteExpense(list []models.MonthlyExpense, id string) ([]models.MonthlyExpense, error) {
	i := slices.IndexFunc(list, func(x models.MonthlyExpense) bool { return x.ID == id })
	if i < 0 {
		return nil, notFound("expense", id)
	}
	return slices.Delete(slices.Clone(list), i, i+1), nil
}

// CheckExpenseSettings requires both rates to be fractions in [0,1].
func CheckExpenseSettings(s models.ExpenseSettings) error {
	if !fraction(s.TaxRate) {
		return invalid("taxRate must be between 0 and 1")
	}
	if !fraction(s.AcquiringRate) {
		return invalid("acquiringRate must be between 0 and 1")
	}
	return nil
}

func fraction(r decimal.Decimal) bool {
	return !r.IsNegative() && !r.GreaterThan(one)
}
