package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SpecialistSalary struct {
	ID           string          `json:"id"`
	SpecialistID string          `json:"specialistId" validate:"required"`
	Month        string          `json:"month" validate:"required,month"`
	Amount       decimal.Decimal `json:"amount"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type MonthlyExpense struct {
	ID        string          `json:"id"`
	Month     string          `json:"month" validate:"required,month"`
	Category  string          `json:"category" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ExpenseSettings holds rates as fractions in [0,1].
type ExpenseSettings struct {
	TaxRate       decimal.Decimal `json:"taxRate"`
	AcquiringRate decimal.Decimal `json:"acquiringRate"`
}
