package services

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojf/kidcare/internal/models"
)

// Ledger applies lifecycle transitions to a working copy of the schedule and
// its subscription blocks. On success the caller replaces both collections
// with Entries() and Blocks(); on error it drops the ledger, so no partial
// state is ever written.
type Ledger struct {
	entries []models.ScheduleEntry
	blocks  []models.SubscriptionBlock
	now     func() time.Time
}

func NewLedger(entries []models.ScheduleEntry, blocks []models.SubscriptionBlock, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		entries: slices.Clone(entries),
		blocks:  slices.Clone(blocks),
		now:     now,
	}
}

func (l *Ledger) Entries() []models.ScheduleEntry    { return l.entries }
func (l *Ledger) Blocks() []models.SubscriptionBlock { return l.blocks }

// EntryInput is the editable part of a schedule entry.
type EntryInput struct {
	ChildID      string             `json:"childId" validate:"required"`
	SpecialistID string             `json:"specialistId" validate:"required"`
	Date         models.Day         `json:"date" validate:"required,day"`
	Time         string             `json:"time" validate:"required,hhmm"`
	ServiceType  models.ServiceType `json:"serviceType,omitempty" validate:"omitempty,oneof=neuro_diagnosis neuro_session psycho_diagnosis psycho_session"`
	Note         string             `json:"note,omitempty"`
	Due          *models.PaymentDue `json:"due,omitempty"`
}

func (l *Ledger) Entry(id string) (models.ScheduleEntry, error) {
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	return l.entries[i], nil
}

func (l *Ledger) Block(id string) (models.SubscriptionBlock, error) {
	i, err := l.blockIndex(id)
	if err != nil {
		return models.SubscriptionBlock{}, err
	}
	return l.blocks[i], nil
}

// CreateEntry adds a scheduled, single-plan entry.
func (l *Ledger) CreateEntry(in EntryInput) (models.ScheduleEntry, error) {
	if err := Validate(in); err != nil {
		return models.ScheduleEntry{}, err
	}
	now := l.now()
	e := models.ScheduleEntry{
		ID:           uuid.NewString(),
		ChildID:      in.ChildID,
		SpecialistID: in.SpecialistID,
		Date:         in.Date,
		Time:         in.Time,
		ServiceType:  in.ServiceType,
		Note:         in.Note,
		Status:       models.StatusScheduled,
		Plan:         models.SinglePlan{},
		Due:          in.Due,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.checkDue(e); err != nil {
		return models.ScheduleEntry{}, err
	}
	l.entries = append(l.entries, e)
	return e, nil
}

// UpdateEntry edits the descriptive fields of an entry. Status, plan and
// payment only change through their own transitions.
func (l *Ledger) UpdateEntry(id string, in EntryInput) (models.ScheduleEntry, error) {
	if err := Validate(in); err != nil {
		return models.ScheduleEntry{}, err
	}
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := l.entries[i]
	if in.ChildID != e.ChildID && models.BlockID(e.Plan) != "" {
		return models.ScheduleEntry{}, ErrBlockMismatch
	}
	e.ChildID = in.ChildID
	e.SpecialistID = in.SpecialistID
	e.Date = in.Date
	e.Time = in.Time
	e.ServiceType = in.ServiceType
	e.Note = in.Note
	e.Due = in.Due
	if err := l.checkDue(e); err != nil {
		return models.ScheduleEntry{}, err
	}
	e.UpdatedAt = l.now()
	l.entries[i] = e
	return e, nil
}

// DeleteEntry removes an entry that has not consumed a subscription slot.
func (l *Ledger) DeleteEntry(id string) error {
	i, err := l.index(id)
	if err != nil {
		return err
	}
	if l.entries[i].SessionNumber > 0 {
		return invalid("entry already consumed session %d of its block; mark it absent instead", l.entries[i].SessionNumber)
	}
	l.entries = slices.Delete(l.entries, i, i+1)
	return nil
}

// MarkCompleted completes an entry. Re-completing is a no-op, and an entry
// consumes at most one block slot over its whole life.
func (l *Ledger) MarkCompleted(id string) (models.ScheduleEntry, error) {
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := &l.entries[i]
	if e.Status == models.StatusCompleted {
		return *e, nil
	}
	if err := l.consume(e); err != nil {
		return models.ScheduleEntry{}, err
	}
	e.Status = models.StatusCompleted
	e.Absence = nil
	e.UpdatedAt = l.now()
	return *e, nil
}

// MarkAbsent never touches block counters and keeps any recorded payment.
func (l *Ledger) MarkAbsent(id string, category models.AbsenceCategory, reason string) (models.ScheduleEntry, error) {
	switch category {
	case "":
		category = models.AbsenceOther
	case models.AbsenceSick, models.AbsenceFamily, models.AbsenceOther, models.AbsenceCancelled:
	default:
		return models.ScheduleEntry{}, invalid("unknown absence category %q", category)
	}
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := &l.entries[i]
	e.Status = models.StatusAbsent
	e.Absence = &models.Absence{Category: category, Reason: reason}
	e.UpdatedAt = l.now()
	return *e, nil
}

// MarkScheduled reverts an entry to planned. Payment fields stay as they are.
func (l *Ledger) MarkScheduled(id string) (models.ScheduleEntry, error) {
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := &l.entries[i]
	e.Status = models.StatusScheduled
	e.Absence = nil
	e.UpdatedAt = l.now()
	return *e, nil
}

func (l *Ledger) RecordPayment(id string, amount decimal.Decimal, date models.Day) (models.ScheduleEntry, error) {
	if !amount.IsPositive() {
		return models.ScheduleEntry{}, ErrNonPositiveAmount
	}
	if !date.Valid() {
		return models.ScheduleEntry{}, invalid("payment date %q must be a YYYY-MM-DD date", date)
	}
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := &l.entries[i]
	e.Payment = &models.Payment{Amount: amount, Date: date}
	e.UpdatedAt = l.now()
	return *e, nil
}

func (l *Ledger) ClearPayment(id string) (models.ScheduleEntry, error) {
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := &l.entries[i]
	e.Payment = nil
	e.UpdatedAt = l.now()
	return *e, nil
}

// OpenSubscription starts a subscription block on the entry and marks the
// block price as due that day.
func (l *Ledger) OpenSubscription(id string, size int, cost decimal.Decimal) (models.SubscriptionBlock, error) {
	dueType, ok := models.SubscriptionDue(size)
	if !ok {
		return models.SubscriptionBlock{}, invalid("subscription size must be 4, 8 or 12, got %d", size)
	}
	if !cost.IsPositive() {
		return models.SubscriptionBlock{}, invalid("subscription cost must be positive")
	}
	i, err := l.index(id)
	if err != nil {
		return models.SubscriptionBlock{}, err
	}
	if err := l.requireUnattached(l.entries[i]); err != nil {
		return models.SubscriptionBlock{}, err
	}
	b := l.newBlock(l.entries[i].ChildID, models.BlockSubscription, size, cost)
	e := &l.entries[i]
	e.Plan = models.SubscriptionPlan{BlockID: b.ID}
	e.Due = &models.PaymentDue{Type: dueType, Amount: cost}
	return l.attach(e, b.ID)
}

// ActivatePrepaidSubscription starts a prepaid block with this entry as its
// activation point. A block is activated once: calling this on any entry
// that already belongs to an activated block returns ErrAlreadyActivated.
func (l *Ledger) ActivatePrepaidSubscription(id string, size int, cost decimal.Decimal) (models.SubscriptionBlock, error) {
	if !models.ValidBlockSize(size) {
		return models.SubscriptionBlock{}, invalid("prepaid subscription size must be 4, 8 or 12, got %d", size)
	}
	if cost.IsNegative() {
		return models.SubscriptionBlock{}, invalid("prepaid subscription cost must not be negative")
	}
	i, err := l.index(id)
	if err != nil {
		return models.SubscriptionBlock{}, err
	}
	switch p := l.entries[i].Plan.(type) {
	case models.PrepaidPlan:
		bi, err := l.blockIndex(p.BlockID)
		if err != nil {
			return models.SubscriptionBlock{}, err
		}
		if l.blocks[bi].Activated() {
			return models.SubscriptionBlock{}, ErrAlreadyActivated
		}
		// Imported prepaid blocks may still be waiting for activation.
		if l.blocks[bi].Size != size {
			return models.SubscriptionBlock{}, invalid("prepaid block %s holds %d sessions, not %d", p.BlockID, l.blocks[bi].Size, size)
		}
		if l.blocks[bi].CostTotal.IsZero() {
			l.blocks[bi].CostTotal = cost
		}
		now := l.now()
		l.blocks[bi].ActivatedEntryID = id
		l.blocks[bi].ActivatedAt = &now
		return l.blocks[bi], nil
	case models.SubscriptionPlan:
		return models.SubscriptionBlock{}, invalid("entry already belongs to subscription block %s", p.BlockID)
	}
	if err := l.requireUnattached(l.entries[i]); err != nil {
		return models.SubscriptionBlock{}, err
	}

	b := l.newBlock(l.entries[i].ChildID, models.BlockPrepaid, size, cost)
	now := l.now()
	bi, _ := l.blockIndex(b.ID)
	l.blocks[bi].ActivatedEntryID = id
	l.blocks[bi].ActivatedAt = &now

	e := &l.entries[i]
	e.Plan = models.PrepaidPlan{BlockID: b.ID}
	return l.attach(e, b.ID)
}

// AttachToBlock moves a single-plan entry of the same child into a block.
func (l *Ledger) AttachToBlock(id, blockID string) (models.ScheduleEntry, error) {
	i, err := l.index(id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	bi, err := l.blockIndex(blockID)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	e := &l.entries[i]
	if e.ChildID != l.blocks[bi].ChildID {
		return models.ScheduleEntry{}, ErrBlockMismatch
	}
	if models.BlockID(e.Plan) == blockID {
		return *e, nil
	}
	if err := l.requireUnattached(*e); err != nil {
		return models.ScheduleEntry{}, err
	}
	if e.Due != nil && e.Due.Type == models.DueSingle {
		return models.ScheduleEntry{}, invalid("entry has a single-session payment due; clear it before attaching")
	}

	if l.blocks[bi].Kind == models.BlockPrepaid {
		e.Plan = models.PrepaidPlan{BlockID: blockID}
	} else {
		e.Plan = models.SubscriptionPlan{BlockID: blockID}
	}
	if _, err := l.attach(e, blockID); err != nil {
		e.Plan = models.SinglePlan{}
		return models.ScheduleEntry{}, err
	}
	return *e, nil
}

// ResizeBlock is the only way to change a block's total sessions. Entries
// carrying the block's subscription due follow the new size.
func (l *Ledger) ResizeBlock(blockID string, size int) (models.SubscriptionBlock, error) {
	dueType, ok := models.SubscriptionDue(size)
	if !ok {
		return models.SubscriptionBlock{}, invalid("block size must be 4, 8 or 12, got %d", size)
	}
	bi, err := l.blockIndex(blockID)
	if err != nil {
		return models.SubscriptionBlock{}, err
	}
	b := &l.blocks[bi]
	if size < b.SessionsUsed {
		return models.SubscriptionBlock{}, invalid("block already used %d sessions, cannot shrink to %d", b.SessionsUsed, size)
	}
	b.Size = size
	for i := range l.entries {
		e := &l.entries[i]
		if models.BlockID(e.Plan) != blockID || e.Due == nil || e.Due.Type == models.DueSingle {
			continue
		}
		due := *e.Due
		due.Type = dueType
		e.Due = &due
		e.UpdatedAt = l.now()
	}
	return *b, nil
}

// BlockEntries lists the entries of a block in calendar order.
func (l *Ledger) BlockEntries(blockID string) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, e := range l.entries {
		if models.BlockID(e.Plan) == blockID {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, compareEntries)
	return out
}

func compareEntries(a, b models.ScheduleEntry) int {
	if a.Date != b.Date {
		if a.Date < b.Date {
			return -1
		}
		return 1
	}
	switch {
	case a.Time < b.Time:
		return -1
	case a.Time > b.Time:
		return 1
	}
	return 0
}

func (l *Ledger) newBlock(childID string, kind models.BlockKind, size int, cost decimal.Decimal) models.SubscriptionBlock {
	b := models.SubscriptionBlock{
		ID:        uuid.NewString(),
		ChildID:   childID,
		Kind:      kind,
		Size:      size,
		CostTotal: cost,
		CreatedAt: l.now(),
	}
	l.blocks = append(l.blocks, b)
	return b
}

// attach finishes moving e into a block: a completed entry consumes its
// slot right away.
func (l *Ledger) attach(e *models.ScheduleEntry, blockID string) (models.SubscriptionBlock, error) {
	if e.Status == models.StatusCompleted {
		if err := l.consume(e); err != nil {
			return models.SubscriptionBlock{}, err
		}
	}
	e.UpdatedAt = l.now()
	return l.Block(blockID)
}

func (l *Ledger) consume(e *models.ScheduleEntry) error {
	bid := models.BlockID(e.Plan)
	if bid == "" || e.SessionNumber > 0 {
		return nil
	}
	bi, err := l.blockIndex(bid)
	if err != nil {
		return err
	}
	b := &l.blocks[bi]
	if b.SessionsUsed >= b.Size {
		return ErrBlockExhausted
	}
	b.SessionsUsed++
	e.SessionNumber = b.SessionsUsed
	return nil
}

func (l *Ledger) requireUnattached(e models.ScheduleEntry) error {
	if bid := models.BlockID(e.Plan); bid != "" {
		return invalid("entry already belongs to block %s", bid)
	}
	if e.SessionNumber > 0 {
		return invalid("entry already consumed a subscription session")
	}
	return nil
}

// checkDue keeps payment-due consistent with the plan: a single due only on
// single entries, a subscriptionN due only on a block of size N.
func (l *Ledger) checkDue(e models.ScheduleEntry) error {
	if e.Due == nil {
		return nil
	}
	if err := Validate(e.Due); err != nil {
		return err
	}
	if e.Due.Amount.IsNegative() {
		return invalid("due amount must not be negative")
	}
	bid := models.BlockID(e.Plan)
	if e.Due.Type == models.DueSingle {
		if bid != "" {
			return invalid("single-session due on an entry of block %s", bid)
		}
		return nil
	}
	if bid == "" {
		return invalid("%s due needs a subscription block; open one first", e.Due.Type)
	}
	b, err := l.Block(bid)
	if err != nil {
		return err
	}
	if want, _ := models.SubscriptionDue(b.Size); want != e.Due.Type {
		return invalid("%s due does not match block size %d", e.Due.Type, b.Size)
	}
	return nil
}

func (l *Ledger) index(id string) (int, error) {
	for i := range l.entries {
		if l.entries[i].ID == id {
			return i, nil
		}
	}
	return -1, notFound("schedule entry", id)
}

func (l *Ledger) blockIndex(id string) (int, error) {
	for i := range l.blocks {
		if l.blocks[i].ID == id {
			return i, nil
		}
	}
	return -1, notFound("subscription block", id)
}
