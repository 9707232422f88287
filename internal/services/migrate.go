package services

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojf/kidcare/internal/models"
)

// LegacyScheduleEntry is the flat record kept by earlier versions, where
// block membership was only implied by totalSessions and dates.
type LegacyScheduleEntry struct {
	ID             string `json:"id"`
	ChildID        string `json:"childId"`
	ChildName      string `json:"childName"`
	SpecialistID   string `json:"specialistId"`
	SpecialistName string `json:"specialistName"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Status         string `json:"status"`
	ServiceType    string `json:"serviceType"`
	Note           string `json:"note"`

	PaymentDueThisDay bool            `json:"paymentDueThisDay"`
	PaymentDueType    string          `json:"paymentDueType"`
	PaymentDueAmount  decimal.Decimal `json:"paymentDueAmount"`

	IsPaid     bool            `json:"isPaid"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
	PaidDate   string          `json:"paidDate"`

	SessionsCompleted int             `json:"sessionsCompleted"`
	TotalSessions     int             `json:"totalSessions"`
	SubscriptionCost  decimal.Decimal `json:"subscriptionCost"`

	PrepaidSubscriptionType      int  `json:"prepaidSubscriptionType"`
	PrepaidSubscriptionActivated bool `json:"prepaidSubscriptionActivated"`

	AbsenceReason   string `json:"absenceReason"`
	AbsenceCategory string `json:"absenceCategory"`
}

// MigrateLegacySchedule rebuilds explicit subscription blocks from flat
// records. Per child, in calendar order, an entry whose due type is
// subscriptionN (or that activated a prepaid block) opens a block of size N;
// following entries with the same totalSessions (or prepaid type) join it
// until it is full. Absent entries never fill a block.
// Entries keep their input order in the result.
func MigrateLegacySchedule(legacy []LegacyScheduleEntry, now time.Time) ([]models.ScheduleEntry, []models.SubscriptionBlock) {
	order := make([]int, len(legacy))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		x, y := legacy[a], legacy[b]
		switch {
		case x.ChildID != y.ChildID:
			return cmpString(x.ChildID, y.ChildID)
		case x.Date != y.Date:
			return cmpString(x.Date, y.Date)
		}
		return cmpString(x.Time, y.Time)
	})

	out := make([]models.ScheduleEntry, len(legacy))
	var blocks []models.SubscriptionBlock
	open := map[string]int{}    // childID -> index into blocks
	members := map[string]int{} // blockID -> attended or pending entries

	for _, idx := range order {
		le := legacy[idx]
		e := convertLegacy(le, now)

		size, kind, opens := legacyOpensBlock(le)
		bi, hasOpen := open[le.ChildID]
		absent := e.Status == models.StatusAbsent
		full := hasOpen && members[blocks[bi].ID] >= blocks[bi].Size && !absent
		switch {
		case opens:
			cost := le.SubscriptionCost
			if cost.IsZero() {
				cost = le.PaymentDueAmount
			}
			b := models.SubscriptionBlock{
				ID: uuid.NewString(), ChildID: le.ChildID, Kind: kind,
				Size: size, CostTotal: cost, CreatedAt: now,
			}
			if kind == models.BlockPrepaid {
				at := now
				b.ActivatedEntryID = e.ID
				b.ActivatedAt = &at
			}
			blocks = append(blocks, b)
			bi, hasOpen, full = len(blocks)-1, true, false
			open[le.ChildID] = bi
		case hasOpen && blocks[bi].Kind == models.BlockPrepaid && le.PrepaidSubscriptionType == blocks[bi].Size:
			// Later sessions of an activated prepaid block carry only its type.
			hasOpen = !full
		case le.TotalSessions > 0 && (!hasOpen || blocks[bi].Size != le.TotalSessions || full):
			// A block that started before the imported data did.
			if !models.ValidBlockSize(le.TotalSessions) {
				hasOpen = false
				break
			}
			b := models.SubscriptionBlock{
				ID: uuid.NewString(), ChildID: le.ChildID, Kind: models.BlockSubscription,
				Size: le.TotalSessions, CostTotal: le.SubscriptionCost, CreatedAt: now,
			}
			blocks = append(blocks, b)
			bi, hasOpen, full = len(blocks)-1, true, false
			open[le.ChildID] = bi
		case le.TotalSessions == 0:
			hasOpen = false
		}

		// Absences ride along in their block without taking a place in it.
		if hasOpen && !full {
			b := &blocks[bi]
			if !absent {
				members[b.ID]++
			}
			if b.Kind == models.BlockPrepaid {
				e.Plan = models.PrepaidPlan{BlockID: b.ID}
			} else {
				e.Plan = models.SubscriptionPlan{BlockID: b.ID}
			}
			if e.Status == models.StatusCompleted && b.SessionsUsed < b.Size {
				b.SessionsUsed++
				e.SessionNumber = b.SessionsUsed
			}
			if e.Due != nil && e.Due.Type != models.DueSingle {
				t, _ := models.SubscriptionDue(b.Size)
				e.Due.Type = t
			}
		}
		if models.BlockID(e.Plan) == "" && e.Due != nil {
			e.Due.Type = models.DueSingle
		}
		out[idx] = e
	}
	return out, blocks
}

func legacyOpensBlock(le LegacyScheduleEntry) (int, models.BlockKind, bool) {
	if le.PrepaidSubscriptionActivated && models.ValidBlockSize(le.PrepaidSubscriptionType) {
		return le.PrepaidSubscriptionType, models.BlockPrepaid, true
	}
	if !le.PaymentDueThisDay {
		return 0, "", false
	}
	switch models.DueType(le.PaymentDueType) {
	case models.DueSubscription4:
		return 4, models.BlockSubscription, true
	case models.DueSubscription8:
		return 8, models.BlockSubscription, true
	case models.DueSubscription12:
		return 12, models.BlockSubscription, true
	}
	return 0, "", false
}

func convertLegacy(le LegacyScheduleEntry, now time.Time) models.ScheduleEntry {
	e := models.ScheduleEntry{
		ID:           le.ID,
		ChildID:      le.ChildID,
		SpecialistID: le.SpecialistID,
		Date:         models.Day(le.Date),
		Time:         le.Time,
		ServiceType:  models.ServiceType(le.ServiceType),
		Note:         le.Note,
		Status:       models.StatusScheduled,
		Plan:         models.SinglePlan{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	switch models.EntryStatus(le.Status) {
	case models.StatusCompleted:
		e.Status = models.StatusCompleted
	case models.StatusAbsent:
		e.Status = models.StatusAbsent
		cat := models.AbsenceCategory(le.AbsenceCategory)
		if cat == "" {
			cat = models.AbsenceOther
		}
		e.Absence = &models.Absence{Category: cat, Reason: le.AbsenceReason}
	}
	if le.PaymentDueThisDay {
		e.Due = &models.PaymentDue{Type: models.DueType(le.PaymentDueType), Amount: le.PaymentDueAmount}
		if e.Due.Type == "" {
			e.Due.Type = models.DueSingle
		}
	}
	// A paid flag without an amount was a ghost state; it is dropped.
	if le.IsPaid && le.PaidAmount.IsPositive() {
		date := models.Day(le.PaidDate)
		if !date.Valid() {
			date = e.Date
		}
		e.Payment = &models.Payment{Amount: le.PaidAmount, Date: date}
	}
	return e
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
