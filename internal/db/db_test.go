package db_test

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojf/kidcare/internal/db"
	"github.com/lojf/kidcare/internal/models"
)

func openTestKV(t *testing.T) *db.SQLiteKV {
	t.Helper()
	kv, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestLoad_MissingKeyReturnsDefault(t *testing.T) {
	kv := openTestKV(t)

	got := db.Load(kv, "kidcare_children", []models.Child{{ID: "seed"}}, slog.Default())
	require.Len(t, got, 1)
	assert.Equal(t, "seed", got[0].ID)
}

func TestLoad_CorruptValueFallsBack(t *testing.T) {
	kv := openTestKV(t)
	require.NoError(t, kv.Put("kidcare_schedule", []byte(`{"not":"a list"`)))

	got := db.Load(kv, "kidcare_schedule", []models.ScheduleEntry{}, slog.Default())
	assert.Empty(t, got)
}

func TestSaveLoad_ScheduleKeepsPlanVariant(t *testing.T) {
	kv := openTestKV(t)
	in := []models.ScheduleEntry{
		{ID: "e1", ChildID: "c1", Date: "2024-11-05", Time: "10:00", Status: models.StatusCompleted,
			Plan: models.SubscriptionPlan{BlockID: "b1"}, SessionNumber: 2,
			Payment: &models.Payment{Amount: decimal.NewFromInt(1000), Date: "2024-11-05"}},
		{ID: "e2", ChildID: "c1", Date: "2024-11-06", Time: "11:30", Status: models.StatusScheduled,
			Plan: models.PrepaidPlan{BlockID: "b2"}},
		{ID: "e3", ChildID: "c1", Date: "2024-11-07", Time: "12:00", Status: models.StatusAbsent,
			Absence: &models.Absence{Category: models.AbsenceSick}},
	}
	require.NoError(t, db.Save(kv, "kidcare_schedule", in))

	out := db.Load(kv, "kidcare_schedule", []models.ScheduleEntry{}, slog.Default())
	require.Len(t, out, 3)
	assert.Equal(t, models.SubscriptionPlan{BlockID: "b1"}, out[0].Plan)
	assert.Equal(t, models.PrepaidPlan{BlockID: "b2"}, out[1].Plan)
	assert.Equal(t, models.SinglePlan{}, out[2].Plan)
	assert.True(t, out[0].Payment.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, models.AbsenceSick, out[2].Absence.Category)
}

func TestStore_RehydratesAndPersists(t *testing.T) {
	kv := openTestKV(t)
	def := db.Defaults{
		Specialists:     []models.Specialist{{ID: "admin", Email: "a@x", Role: models.RoleAdmin, Active: true}},
		ExpenseSettings: models.ExpenseSettings{TaxRate: decimal.RequireFromString("0.06")},
	}

	s1 := db.NewStore(kv, "kidcare_", def, nil)
	require.Len(t, s1.Specialists.Get(), 1)

	s1.Children.Replace([]models.Child{{ID: "c1", FullName: "Ivan", CreatedAt: time.Now()}})

	s2 := db.NewStore(kv, "kidcare_", db.Defaults{}, nil)
	require.Len(t, s2.Children.Get(), 1)
	assert.Equal(t, "Ivan", s2.Children.Get()[0].FullName)
	// Defaults are not written back on load.
	assert.Len(t, s2.Specialists.Get(), 0)

	keys, err := kv.Keys()
	require.NoError(t, err)
	assert.Contains(t, keys, "kidcare_children")
}

func TestStore_PrefixIsolatesNamespaces(t *testing.T) {
	kv := openTestKV(t)

	a := db.NewStore(kv, "a_", db.Defaults{}, nil)
	a.Children.Replace([]models.Child{{ID: "c1"}})

	b := db.NewStore(kv, "b_", db.Defaults{}, nil)
	assert.Empty(t, b.Children.Get())
}

type failingKV struct{ db.KV }

func (failingKV) Put(string, []byte) error { return assert.AnError }

func TestSlot_WriteFailureKeepsMemory(t *testing.T) {
	kv := failingKV{openTestKV(t)}
	s := db.NewStore(kv, "kidcare_", db.Defaults{}, nil)

	s.Children.Replace([]models.Child{{ID: "c1"}})
	assert.Len(t, s.Children.Get(), 1)
}
