package db

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/lojf/kidcare/internal/models"
)

// Collection names, stored under the configured prefix.
const (
	KeyChildren          = "children"
	KeySchedule          = "schedule"
	KeyBlocks            = "subscription_blocks"
	KeySpecialists       = "specialists"
	KeyNotifications     = "notifications"
	KeySalaries          = "salaries"
	KeyExpenses          = "expenses"
	KeyExpenseSettings   = "expense_settings"
	KeyAutoSendSchedules = "auto_send_schedules"
)

// Load reads key from kv. A missing or undecodable value yields def; the
// latter is logged so the operator can notice it.
func Load[T any](kv KV, key string, def T, log *slog.Logger) T {
	raw, ok, err := kv.Get(key)
	if err != nil {
		log.Warn("store: read failed, using default", "key", key, "err", err)
		return def
	}
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn("store: corrupt value, using default", "key", key, "err", err)
		return def
	}
	return v
}

func Save[T any](kv KV, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kv.Put(key, raw)
}

// Slot holds one canonical collection and mirrors every replacement to kv.
// Values returned by Get must be treated as read-only; callers build the
// next state on a copy and hand it to Replace.
type Slot[T any] struct {
	mu  sync.RWMutex
	val T
	key string
	kv  KV
	log *slog.Logger
}

func newSlot[T any](kv KV, key string, def T, log *slog.Logger) *Slot[T] {
	return &Slot[T]{val: Load(kv, key, def, log), key: key, kv: kv, log: log}
}

func (s *Slot[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val
}

// Replace swaps the in-memory value and persists it. A write failure is
// logged and not retried; memory stays authoritative.
func (s *Slot[T]) Replace(v T) {
	s.mu.Lock()
	s.val = v
	s.mu.Unlock()
	if err := Save(s.kv, s.key, v); err != nil {
		s.log.Error("store: write failed", "key", s.key, "err", err)
	}
}

// Store is the set of canonical collections.
type Store struct {
	mu sync.Mutex

	Children        *Slot[[]models.Child]
	Schedule        *Slot[[]models.ScheduleEntry]
	Blocks          *Slot[[]models.SubscriptionBlock]
	Specialists     *Slot[[]models.Specialist]
	Notifications   *Slot[[]models.Notification]
	Salaries        *Slot[[]models.SpecialistSalary]
	Expenses        *Slot[[]models.MonthlyExpense]
	ExpenseSettings *Slot[models.ExpenseSettings]
	AutoSend        *Slot[[]models.AutoSendSchedule]
}

// Defaults seed collections that have nothing persisted yet.
type Defaults struct {
	Specialists     []models.Specialist
	ExpenseSettings models.ExpenseSettings
	AutoSend        []models.AutoSendSchedule
}

// NewStore rehydrates every collection from kv.
func NewStore(kv KV, prefix string, def Defaults, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	k := func(name string) string { return prefix + name }
	return &Store{
		Children:        newSlot(kv, k(KeyChildren), []models.Child{}, log),
		Schedule:        newSlot(kv, k(KeySchedule), []models.ScheduleEntry{}, log),
		Blocks:          newSlot(kv, k(KeyBlocks), []models.SubscriptionBlock{}, log),
		Specialists:     newSlot(kv, k(KeySpecialists), nonNil(def.Specialists), log),
		Notifications:   newSlot(kv, k(KeyNotifications), []models.Notification{}, log),
		Salaries:        newSlot(kv, k(KeySalaries), []models.SpecialistSalary{}, log),
		Expenses:        newSlot(kv, k(KeyExpenses), []models.MonthlyExpense{}, log),
		ExpenseSettings: newSlot(kv, k(KeyExpenseSettings), def.ExpenseSettings, log),
		AutoSend:        newSlot(kv, k(KeyAutoSendSchedules), nonNil(def.AutoSend), log),
	}
}

// Tx runs one read-modify-write sequence. Handlers and the reminder loop
// both go through it, so only one of them mutates collections at a time.
func (s *Store) Tx(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
