package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/kidcare/internal/models"
)

func fixedNow() time.Time { return time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestLedger() *Ledger { return NewLedger(nil, nil, fixedNow) }

func mustCreate(t *testing.T, l *Ledger, childID string, day models.Day, hhmm string) models.ScheduleEntry {
	t.Helper()
	e, err := l.CreateEntry(EntryInput{ChildID: childID, SpecialistID: "sp1", Date: day, Time: hhmm})
	require.NoError(t, err)
	return e
}

func TestCreateEntry_Defaults(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")

	assert.Equal(t, models.StatusScheduled, e.Status)
	assert.Equal(t, models.SinglePlan{}, e.Plan)
	assert.False(t, e.IsPaid())
	assert.Len(t, l.Entries(), 1)
}

func TestCreateEntry_Validation(t *testing.T) {
	l := newTestLedger()
	cases := []EntryInput{
		{SpecialistID: "sp1", Date: "2024-11-05", Time: "10:00"},
		{ChildID: "c1", SpecialistID: "sp1", Date: "05.11.2024", Time: "10:00"},
		{ChildID: "c1", SpecialistID: "sp1", Date: "2024-11-05", Time: "25:00"},
		{ChildID: "c1", SpecialistID: "sp1", Date: "2024-11-05", Time: "10:00", ServiceType: "yoga"},
		{ChildID: "c1", SpecialistID: "sp1", Date: "2024-11-05", Time: "10:00",
			Due: &models.PaymentDue{Type: models.DueSubscription8, Amount: dec("8000")}},
	}
	for i, in := range cases {
		_, err := l.CreateEntry(in)
		assert.ErrorIs(t, err, ErrValidation, "case %d", i)
	}
	assert.Empty(t, l.Entries())
}

func TestMarkCompleted_ConsumesOnce(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")
	b, err := l.OpenSubscription(e.ID, 8, dec("8000"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := l.MarkCompleted(e.ID)
		require.NoError(t, err)
	}

	b, err = l.Block(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, b.SessionsUsed)
	got, _ := l.Entry(e.ID)
	assert.Equal(t, 1, got.SessionNumber)
}

func TestCorrectionsDoNotDoubleCount(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")
	b, err := l.OpenSubscription(e.ID, 4, dec("4000"))
	require.NoError(t, err)

	_, err = l.MarkCompleted(e.ID)
	require.NoError(t, err)
	_, err = l.MarkAbsent(e.ID, models.AbsenceSick, "flu")
	require.NoError(t, err)
	_, err = l.MarkScheduled(e.ID)
	require.NoError(t, err)
	_, err = l.MarkCompleted(e.ID)
	require.NoError(t, err)

	b, _ = l.Block(b.ID)
	assert.Equal(t, 1, b.SessionsUsed)
}

func TestMarkAbsent_KeepsCountersAndPayment(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")
	b, err := l.OpenSubscription(e.ID, 4, dec("4000"))
	require.NoError(t, err)
	_, err = l.RecordPayment(e.ID, dec("4000"), "2024-11-05")
	require.NoError(t, err)

	got, err := l.MarkAbsent(e.ID, "", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAbsent, got.Status)
	assert.Equal(t, models.AbsenceOther, got.Absence.Category)
	require.NotNil(t, got.Payment)
	assert.True(t, got.Payment.Amount.Equal(dec("4000")))
	b, _ = l.Block(b.ID)
	assert.Zero(t, b.SessionsUsed)

	_, err = l.MarkAbsent(e.ID, "bored", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMarkScheduled_ClearsAbsenceKeepsPayment(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")
	_, err := l.RecordPayment(e.ID, dec("1500"), "2024-11-04")
	require.NoError(t, err)
	_, err = l.MarkAbsent(e.ID, models.AbsenceFamily, "trip")
	require.NoError(t, err)

	got, err := l.MarkScheduled(e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Absence)
	assert.True(t, got.IsPaid())
}

func TestBlockExhausted(t *testing.T) {
	l := newTestLedger()
	first := mustCreate(t, l, "c1", "2024-11-01", "10:00")
	b, err := l.OpenSubscription(first.ID, 4, dec("4000"))
	require.NoError(t, err)
	_, err = l.MarkCompleted(first.ID)
	require.NoError(t, err)

	for _, day := range []models.Day{"2024-11-08", "2024-11-15", "2024-11-22", "2024-11-29"} {
		e := mustCreate(t, l, "c1", day, "10:00")
		_, err := l.AttachToBlock(e.ID, b.ID)
		require.NoError(t, err)
		_, err = l.MarkCompleted(e.ID)
		if day == "2024-11-29" {
			assert.ErrorIs(t, err, ErrBlockExhausted)
			continue
		}
		require.NoError(t, err)
	}
	b, _ = l.Block(b.ID)
	assert.Equal(t, 4, b.SessionsUsed)
	assert.Zero(t, b.Remaining())
}

func TestRecordPayment(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")

	_, err := l.RecordPayment(e.ID, decimal.Zero, "2024-11-05")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	_, err = l.RecordPayment(e.ID, dec("-10"), "2024-11-05")
	assert.ErrorIs(t, err, ErrNonPositiveAmount)
	_, err = l.RecordPayment(e.ID, dec("10"), "tomorrow")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = l.RecordPayment("missing", dec("10"), "2024-11-05")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := l.RecordPayment(e.ID, dec("1500"), "2024-11-05")
	require.NoError(t, err)
	assert.True(t, got.IsPaid())

	got, err = l.ClearPayment(e.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPaid())
}

func TestActivatePrepaid_Once(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-05", "10:00")

	b, err := l.ActivatePrepaidSubscription(e.ID, 8, dec("7200"))
	require.NoError(t, err)
	assert.True(t, b.Activated())
	assert.Equal(t, e.ID, b.ActivatedEntryID)
	assert.Equal(t, models.BlockPrepaid, b.Kind)

	_, err = l.ActivatePrepaidSubscription(e.ID, 8, dec("7200"))
	assert.ErrorIs(t, err, ErrAlreadyActivated)

	other := mustCreate(t, l, "c1", "2024-11-12", "10:00")
	_, err = l.AttachToBlock(other.ID, b.ID)
	require.NoError(t, err)
	_, err = l.ActivatePrepaidSubscription(other.ID, 8, dec("7200"))
	assert.ErrorIs(t, err, ErrAlreadyActivated)
	assert.Len(t, l.Blocks(), 1)
}

func TestActivatePrepaid_ImportedBlock(t *testing.T) {
	blocks := []models.SubscriptionBlock{{ID: "b1", ChildID: "c1", Kind: models.BlockPrepaid, Size: 4}}
	entries := []models.ScheduleEntry{{
		ID: "e1", ChildID: "c1", Date: "2024-11-05", Time: "10:00",
		Status: models.StatusScheduled, Plan: models.PrepaidPlan{BlockID: "b1"},
	}}
	l := NewLedger(entries, blocks, fixedNow)

	_, err := l.ActivatePrepaidSubscription("e1", 8, dec("7200"))
	assert.ErrorIs(t, err, ErrValidation)

	b, err := l.ActivatePrepaidSubscription("e1", 4, dec("3600"))
	require.NoError(t, err)
	assert.Equal(t, "e1", b.ActivatedEntryID)
	assert.True(t, b.CostTotal.Equal(dec("3600")))
	// The input slices are not touched.
	assert.False(t, blocks[0].Activated())
}

func TestAttachToBlock_Rules(t *testing.T) {
	l := newTestLedger()
	opener := mustCreate(t, l, "c1", "2024-11-01", "10:00")
	b, err := l.OpenSubscription(opener.ID, 4, dec("4000"))
	require.NoError(t, err)

	stranger := mustCreate(t, l, "c2", "2024-11-08", "10:00")
	_, err = l.AttachToBlock(stranger.ID, b.ID)
	assert.ErrorIs(t, err, ErrBlockMismatch)

	single, err := l.CreateEntry(EntryInput{ChildID: "c1", SpecialistID: "sp1", Date: "2024-11-08", Time: "10:00",
		Due: &models.PaymentDue{Type: models.DueSingle, Amount: dec("1200")}})
	require.NoError(t, err)
	_, err = l.AttachToBlock(single.ID, b.ID)
	assert.ErrorIs(t, err, ErrValidation)

	done := mustCreate(t, l, "c1", "2024-11-15", "10:00")
	_, err = l.MarkCompleted(done.ID)
	require.NoError(t, err)
	got, err := l.AttachToBlock(done.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SessionNumber)

	// Re-attaching to the same block is a no-op.
	_, err = l.AttachToBlock(done.ID, b.ID)
	require.NoError(t, err)
	b, _ = l.Block(b.ID)
	assert.Equal(t, 1, b.SessionsUsed)
	assert.Len(t, l.BlockEntries(b.ID), 2)
}

func TestResizeBlock(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-01", "10:00")
	b, err := l.OpenSubscription(e.ID, 8, dec("8000"))
	require.NoError(t, err)
	before := l.Entries()[0].Due

	b, err = l.ResizeBlock(b.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, b.Size)
	got, _ := l.Entry(e.ID)
	assert.Equal(t, models.DueSubscription12, got.Due.Type)
	assert.Equal(t, models.DueSubscription8, before.Type, "previous due value must not be mutated")

	_, err = l.ResizeBlock(b.ID, 5)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResizeBlock_BelowUsed(t *testing.T) {
	l := newTestLedger()
	var blockID string
	for i, day := range []models.Day{"2024-11-01", "2024-11-02", "2024-11-03", "2024-11-04", "2024-11-05"} {
		e := mustCreate(t, l, "c1", day, "10:00")
		if i == 0 {
			b, err := l.OpenSubscription(e.ID, 8, dec("8000"))
			require.NoError(t, err)
			blockID = b.ID
		} else {
			_, err := l.AttachToBlock(e.ID, blockID)
			require.NoError(t, err)
		}
		_, err := l.MarkCompleted(e.ID)
		require.NoError(t, err)
	}

	_, err := l.ResizeBlock(blockID, 4)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateEntry(t *testing.T) {
	l := newTestLedger()
	e := mustCreate(t, l, "c1", "2024-11-01", "10:00")
	_, err := l.OpenSubscription(e.ID, 4, dec("4000"))
	require.NoError(t, err)

	_, err = l.UpdateEntry(e.ID, EntryInput{ChildID: "c2", SpecialistID: "sp1", Date: "2024-11-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrBlockMismatch)

	got, err := l.UpdateEntry(e.ID, EntryInput{ChildID: "c1", SpecialistID: "sp2", Date: "2024-11-02", Time: "11:30",
		Due: &models.PaymentDue{Type: models.DueSubscription4, Amount: dec("4000")}})
	require.NoError(t, err)
	assert.Equal(t, "sp2", got.SpecialistID)
	assert.Equal(t, models.Day("2024-11-02"), got.Date)
}

func TestDeleteEntry(t *testing.T) {
	l := newTestLedger()
	plain := mustCreate(t, l, "c1", "2024-11-01", "10:00")
	require.NoError(t, l.DeleteEntry(plain.ID))
	assert.ErrorIs(t, l.DeleteEntry(plain.ID), ErrNotFound)

	used := mustCreate(t, l, "c1", "2024-11-02", "10:00")
	_, err := l.OpenSubscription(used.ID, 4, dec("4000"))
	require.NoError(t, err)
	_, err = l.MarkCompleted(used.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, l.DeleteEntry(used.ID), ErrValidation)
}

func TestLedgerDoesNotMutateInput(t *testing.T) {
	entries := []models.ScheduleEntry{{ID: "e1", ChildID: "c1", Date: "2024-11-01", Time: "10:00",
		Status: models.StatusScheduled, Plan: models.SinglePlan{}}}
	l := NewLedger(entries, nil, fixedNow)

	_, err := l.MarkCompleted("e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, entries[0].Status)
}
