package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lojf/kidcare/internal/models"
)

// Totals is the attendance and revenue tally shared by per-child and
// practice-wide statistics.
type Totals struct {
	TotalSessions      int                            `json:"totalSessions"`
	Completed          int                            `json:"completed"`
	TotalAbsences      int                            `json:"totalAbsences"`
	AbsencesByCategory map[models.AbsenceCategory]int `json:"absencesByCategory"`
	AttendanceRate     float64                        `json:"attendanceRate"`
	MonthlyPayments    map[string]decimal.Decimal     `json:"monthlyPayments"`
	TotalPayments      decimal.Decimal                `json:"totalPayments"`
	NetPayments        decimal.Decimal                `json:"netPayments"`
	// Outstanding sums what was due on completed entries that are still unpaid.
	Outstanding decimal.Decimal `json:"outstanding"`
	// HeldOnAbsences is money collected for sessions that were then missed.
	HeldOnAbsences    decimal.Decimal `json:"heldOnAbsences"`
	SessionsThisMonth int             `json:"sessionsThisMonth"`
}

type ChildStatistics struct {
	ChildID string `json:"childId"`
	Totals
}

type PracticeStatistics struct {
	Totals
	TaxAmount       decimal.Decimal            `json:"taxAmount"`
	AcquiringAmount decimal.Decimal            `json:"acquiringAmount"`
	NetRevenue      decimal.Decimal            `json:"netRevenue"`
	Salaries        decimal.Decimal            `json:"salaries"`
	Expenses        decimal.Decimal            `json:"expenses"`
	Profit          decimal.Decimal            `json:"profit"`
	MonthlyProfit   map[string]decimal.Decimal `json:"monthlyProfit"`
}

// ComputeChildStatistics recomputes one child's statistics from the full
// entry set. now only decides which month is "this month".
func ComputeChildStatistics(childID string, entries []models.ScheduleEntry, settings models.ExpenseSettings, now time.Time) ChildStatistics {
	return ChildStatistics{
		ChildID: childID,
		Totals: tally(entries, settings, now, func(e models.ScheduleEntry) bool {
			return e.ChildID == childID
		}),
	}
}

// ComputePracticeStatistics rolls up every entry plus the practice costs.
func ComputePracticeStatistics(entries []models.ScheduleEntry, settings models.ExpenseSettings,
	salaries []models.SpecialistSalary, expenses []models.MonthlyExpense, now time.Time) PracticeStatistics {

	t := tally(entries, settings, now, nil)
	ps := PracticeStatistics{
		Totals:          t,
		TaxAmount:       t.TotalPayments.Mul(settings.TaxRate),
		AcquiringAmount: t.TotalPayments.Mul(one.Sub(settings.TaxRate)).Mul(settings.AcquiringRate),
		NetRevenue:      t.NetPayments,
		Salaries:        decimal.Zero,
		Expenses:        decimal.Zero,
		MonthlyProfit:   map[string]decimal.Decimal{},
	}
	for month, paid := range t.MonthlyPayments {
		ps.MonthlyProfit[month] = NetRevenue(paid, settings)
	}
	for _, s := range salaries {
		ps.Salaries = ps.Salaries.Add(s.Amount)
		ps.MonthlyProfit[s.Month] = monthValue(ps.MonthlyProfit, s.Month).Sub(s.Amount)
	}
	for _, x := range expenses {
		ps.Expenses = ps.Expenses.Add(x.Amount)
		ps.MonthlyProfit[x.Month] = monthValue(ps.MonthlyProfit, x.Month).Sub(x.Amount)
	}
	ps.Profit = ps.NetRevenue.Sub(ps.Salaries).Sub(ps.Expenses)
	return ps
}

var one = decimal.NewFromInt(1)

// NetRevenue applies tax, then acquiring: total × (1 − tax) × (1 − acquiring).
func NetRevenue(total decimal.Decimal, settings models.ExpenseSettings) decimal.Decimal {
	return total.Mul(one.Sub(settings.TaxRate)).Mul(one.Sub(settings.AcquiringRate))
}

// AttendanceRate is completed / (completed + absent) × 100, or 0 when nothing
// has happened yet.
func AttendanceRate(completed, absent int) float64 {
	if completed+absent == 0 {
		return 0
	}
	return float64(completed) * 100 / float64(completed+absent)
}

func tally(entries []models.ScheduleEntry, settings models.ExpenseSettings, now time.Time, keep func(models.ScheduleEntry) bool) Totals {
	t := Totals{
		AbsencesByCategory: map[models.AbsenceCategory]int{
			models.AbsenceSick:      0,
			models.AbsenceFamily:    0,
			models.AbsenceOther:     0,
			models.AbsenceCancelled: 0,
		},
		MonthlyPayments: map[string]decimal.Decimal{},
		TotalPayments:   decimal.Zero,
		Outstanding:     decimal.Zero,
		HeldOnAbsences:  decimal.Zero,
	}
	thisMonth := models.DayOf(now).Month()

	for _, e := range entries {
		if keep != nil && !keep(e) {
			continue
		}

		switch e.Status {
		case models.StatusCompleted:
			t.Completed++
			if e.Due != nil && e.Payment == nil {
				t.Outstanding = t.Outstanding.Add(e.Due.Amount)
			}
		case models.StatusAbsent:
			t.TotalAbsences++
			cat := models.AbsenceOther
			if e.Absence != nil && e.Absence.Category != "" {
				cat = e.Absence.Category
			}
			t.AbsencesByCategory[cat]++
		}
		if e.Occurred() && e.Date.Month() == thisMonth {
			t.SessionsThisMonth++
		}

		if e.Payment == nil {
			continue
		}
		// Money kept on a missed session is not revenue; it is held apart
		// so it is not lost either.
		if e.Status == models.StatusAbsent {
			t.HeldOnAbsences = t.HeldOnAbsences.Add(e.Payment.Amount)
			continue
		}
		// Payments land in the month they were paid, not the session month.
		month := e.Payment.Date.Month()
		t.MonthlyPayments[month] = monthValue(t.MonthlyPayments, month).Add(e.Payment.Amount)
	}

	t.TotalSessions = t.Completed + t.TotalAbsences
	t.AttendanceRate = AttendanceRate(t.Completed, t.TotalAbsences)
	months := make([]string, 0, len(t.MonthlyPayments))
	for m := range t.MonthlyPayments {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		t.TotalPayments = t.TotalPayments.Add(t.MonthlyPayments[m])
	}
	t.NetPayments = NetRevenue(t.TotalPayments, settings)
	return t
}

func monthValue(m map[string]decimal.Decimal, month string) decimal.Decimal {
	if v, ok := m[month]; ok {
		return v
	}
	return decimal.Zero
}
