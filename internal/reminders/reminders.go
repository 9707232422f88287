package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lojf/kidcare/internal/db"
	"github.com/lojf/kidcare/internal/models"
	svc "github.com/lojf/kidcare/internal/services"
)

// Clock is the time source; tests drive it by hand.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	Interval time.Duration
	Location *time.Location
	Clock    Clock
	Logger   *slog.Logger
}

// Dispatcher polls the auto-send rules and prepares reminder messages for
// tomorrow's sessions. It is owned by the process: Start at boot, Stop at
// shutdown.
type Dispatcher struct {
	store    *db.Store
	clock    Clock
	loc      *time.Location
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store *db.Store, cfg Config) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = systemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		store:    store,
		clock:    cfg.Clock,
		loc:      cfg.Location,
		interval: cfg.Interval,
		log:      cfg.Logger.With("component", "reminders"),
	}
}

// Start launches the polling loop. Calling it on a running dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	go d.loop(ctx, d.done)
	d.log.Info("reminder loop started", "interval", d.interval)
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	d.log.Info("reminder loop stopped")
}

func (d *Dispatcher) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Batch summarises one rule firing.
type Batch struct {
	RuleID   string
	Day      models.Day
	Messages int
}

// Tick runs one poll at the clock's current time.
func (d *Dispatcher) Tick(ctx context.Context) []Batch {
	if ctx.Err() != nil {
		return nil
	}
	now := d.clock.Now().In(d.loc)

	var batches []Batch
	_ = d.store.Tx(func() error {
		rules := slices.Clone(d.store.AutoSend.Get())
		children := d.store.Children.Get()
		notifications := d.store.Notifications.Get()
		entries := d.store.Schedule.Get()
		dir := svc.NewDirectory(children, d.store.Specialists.Get(), nil)

		fired := false
		for i := range rules {
			if !svc.RuleDue(rules[i], now) {
				continue
			}
			fired = true
			rules[i].LastSendDate = models.DayOf(now)

			var sent int
			for _, r := range Plan(now, entries, dir) {
				h, err := svc.PrepareMessage(r.Contact, rules[i].Messenger, rules[i].Template, r.Vars, now)
				if err != nil {
					d.log.Warn("skip reminder", "rule", rules[i].ID, "child", r.ChildID, "err", err)
					continue
				}
				h.RuleID = rules[i].ID
				h.EntryID = r.EntryID
				next, err := svc.AppendHistory(children, r.ChildID, h)
				if err != nil {
					d.log.Warn("skip reminder", "rule", rules[i].ID, "child", r.ChildID, "err", err)
					continue
				}
				children = next
				sent++
			}

			if sent > 0 {
				notifications = append(slices.Clone(notifications), svc.NewNotification(
					"Reminders prepared",
					fmt.Sprintf("%s: %d message(s) for %s", rules[i].Name, sent, reminderDay(now).Display()),
					"", now))
			}
			d.log.Info("auto-send rule fired", "rule", rules[i].ID, "name", rules[i].Name, "messages", sent)
			batches = append(batches, Batch{RuleID: rules[i].ID, Day: models.DayOf(now), Messages: sent})
		}
		if !fired {
			return nil
		}
		d.store.Children.Replace(children)
		d.store.Notifications.Replace(notifications)
		d.store.AutoSend.Replace(rules)
		return nil
	})
	return batches
}

// reminderDay is the day reminders sent at now are about.
func reminderDay(now time.Time) models.Day { return models.DayOf(now).AddDays(1) }

// Reminder is one message to prepare: a parent contact for an entry.
type Reminder struct {
	ChildID string
	EntryID string
	Contact models.Contact
	Vars    svc.MessageVars
}

// Plan lists a reminder per parent phone on file for every entry dated the
// day after now. Absent entries and archived children are skipped.
func Plan(now time.Time, entries []models.ScheduleEntry, dir svc.Directory) []Reminder {
	tomorrow := reminderDay(now)

	var due []models.ScheduleEntry
	for _, e := range entries {
		if e.Date == tomorrow && e.Status != models.StatusAbsent {
			due = append(due, e)
		}
	}
	slices.SortStableFunc(due, func(a, b models.ScheduleEntry) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})

	var out []Reminder
	for _, e := range due {
		child, ok := dir.Child(e.ChildID)
		if !ok || child.Archived {
			continue
		}
		for _, c := range child.Contacts() {
			out = append(out, Reminder{
				ChildID: child.ID,
				EntryID: e.ID,
				Contact: c,
				Vars: svc.MessageVars{
					ChildName:      child.FullName,
					SpecialistName: dir.SpecialistName(e.SpecialistID),
					Date:           e.Date,
					Time:           e.Time,
				},
			})
		}
	}
	return out
}
