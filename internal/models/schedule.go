package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status: "scheduled", "completed", "absent"
type EntryStatus string

const (
	StatusScheduled EntryStatus = "scheduled"
	StatusCompleted EntryStatus = "completed"
	StatusAbsent    EntryStatus = "absent"
)

type ServiceType string

const (
	ServiceNeuroDiagnosis  ServiceType = "neuro_diagnosis"
	ServiceNeuroSession    ServiceType = "neuro_session"
	ServicePsychoDiagnosis ServiceType = "psycho_diagnosis"
	ServicePsychoSession   ServiceType = "psycho_session"
)

type AbsenceCategory string

const (
	AbsenceSick      AbsenceCategory = "sick"
	AbsenceFamily    AbsenceCategory = "family"
	AbsenceOther     AbsenceCategory = "other"
	AbsenceCancelled AbsenceCategory = "cancelled"
)

type DueType string

const (
	DueSingle         DueType = "single"
	DueSubscription4  DueType = "subscription4"
	DueSubscription8  DueType = "subscription8"
	DueSubscription12 DueType = "subscription12"
)

// SubscriptionDue maps a block size to its payment-due type.
func SubscriptionDue(size int) (DueType, bool) {
	switch size {
	case 4:
		return DueSubscription4, true
	case 8:
		return DueSubscription8, true
	case 12:
		return DueSubscription12, true
	}
	return "", false
}

// ValidBlockSize reports whether size is one of the sold bundles.
func ValidBlockSize(size int) bool {
	_, ok := SubscriptionDue(size)
	return ok
}

// PaymentDue is what should be paid on the entry's day.
type PaymentDue struct {
	Type   DueType         `json:"type" validate:"required,oneof=single subscription4 subscription8 subscription12"`
	Amount decimal.Decimal `json:"amount"`
}

// Payment is what was actually collected. A nil *Payment means unpaid.
type Payment struct {
	Amount decimal.Decimal `json:"amount"`
	Date   Day             `json:"date"`
}

type Absence struct {
	Category AbsenceCategory `json:"category"`
	Reason   string          `json:"reason,omitempty"`
}

type ScheduleEntry struct {
	ID           string      `json:"id"`
	ChildID      string      `json:"childId"`
	SpecialistID string      `json:"specialistId"`
	Date         Day         `json:"date"`
	Time         string      `json:"time"` // 15:04
	ServiceType  ServiceType `json:"serviceType,omitempty"`
	Status       EntryStatus `json:"status"`
	Note         string      `json:"note,omitempty"`

	Plan    PaymentPlan `json:"plan"`
	Due     *PaymentDue `json:"due,omitempty"`
	Payment *Payment    `json:"payment,omitempty"`
	Absence *Absence    `json:"absence,omitempty"`

	// SessionNumber is the slot this entry consumed in its block, 0 until
	// the entry is first completed. It never goes back to 0.
	SessionNumber int `json:"sessionNumber,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (e ScheduleEntry) IsPaid() bool { return e.Payment != nil }

// Occurred reports whether the entry is a past occurrence (attended or missed).
func (e ScheduleEntry) Occurred() bool {
	return e.Status == StatusCompleted || e.Status == StatusAbsent
}

// PlanKind tags the PaymentPlan variants.
type PlanKind string

const (
	PlanSingle       PlanKind = "single"
	PlanSubscription PlanKind = "subscription"
	PlanPrepaid      PlanKind = "prepaid"
)

// PaymentPlan is one of SinglePlan, SubscriptionPlan or PrepaidPlan.
// A nil plan is read as SinglePlan.
type PaymentPlan interface {
	Kind() PlanKind
	isPaymentPlan()
}

type SinglePlan struct{}

type SubscriptionPlan struct {
	BlockID string `json:"blockId"`
}

type PrepaidPlan struct {
	BlockID string `json:"blockId"`
}

func (SinglePlan) Kind() PlanKind       { return PlanSingle }
func (SubscriptionPlan) Kind() PlanKind { return PlanSubscription }
func (PrepaidPlan) Kind() PlanKind      { return PlanPrepaid }

func (SinglePlan) isPaymentPlan()       {}
func (SubscriptionPlan) isPaymentPlan() {}
func (PrepaidPlan) isPaymentPlan()      {}

// BlockID returns the subscription block the plan belongs to, or "".
func BlockID(p PaymentPlan) string {
	switch v := p.(type) {
	case SubscriptionPlan:
		return v.BlockID
	case PrepaidPlan:
		return v.BlockID
	}
	return ""
}

type planJSON struct {
	Kind    PlanKind `json:"kind"`
	BlockID string   `json:"blockId,omitempty"`
}

func marshalPlan(p PaymentPlan) planJSON {
	if p == nil {
		return planJSON{Kind: PlanSingle}
	}
	return planJSON{Kind: p.Kind(), BlockID: BlockID(p)}
}

func unmarshalPlan(pj planJSON) (PaymentPlan, error) {
	switch pj.Kind {
	case "", PlanSingle:
		return SinglePlan{}, nil
	case PlanSubscription:
		if pj.BlockID == "" {
			return nil, fmt.Errorf("subscription plan without blockId")
		}
		return SubscriptionPlan{BlockID: pj.BlockID}, nil
	case PlanPrepaid:
		if pj.BlockID == "" {
			return nil, fmt.Errorf("prepaid plan without blockId")
		}
		return PrepaidPlan{BlockID: pj.BlockID}, nil
	}
	return nil, fmt.Errorf("unknown plan kind %q", pj.Kind)
}

type scheduleEntryAlias ScheduleEntry

type scheduleEntryJSON struct {
	scheduleEntryAlias
	Plan planJSON `json:"plan"`
}

func (e ScheduleEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(scheduleEntryJSON{
		scheduleEntryAlias: scheduleEntryAlias(e),
		Plan:               marshalPlan(e.Plan),
	})
}

func (e *ScheduleEntry) UnmarshalJSON(b []byte) error {
	var raw scheduleEntryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	plan, err := unmarshalPlan(raw.Plan)
	if err != nil {
		return err
	}
	*e = ScheduleEntry(raw.scheduleEntryAlias)
	e.Plan = plan
	return nil
}

type BlockKind string

const (
	BlockSubscription BlockKind = "subscription"
	BlockPrepaid      BlockKind = "prepaid"
)

// SubscriptionBlock is a bundle of sessions billed together. Size is the
// single source of an entry's "total sessions".
type SubscriptionBlock struct {
	ID           string          `json:"id"`
	ChildID      string          `json:"childId"`
	Kind         BlockKind       `json:"kind"`
	Size         int             `json:"size"`
	CostTotal    decimal.Decimal `json:"costTotal"`
	SessionsUsed int             `json:"sessionsUsed"`

	ActivatedEntryID string     `json:"activatedEntryId,omitempty"`
	ActivatedAt      *time.Time `json:"activatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

func (b SubscriptionBlock) Activated() bool { return b.ActivatedEntryID != "" }

func (b SubscriptionBlock) Remaining() int { return b.Size - b.SessionsUsed }

// PerSession is the block cost amortised over its sessions.
func (b SubscriptionBlock) PerSession() decimal.Decimal {
	if b.Size <= 0 {
		return decimal.Zero
	}
	return b.CostTotal.Div(decimal.NewFromInt(int64(b.Size))).Round(2)
}
