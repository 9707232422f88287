package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lojf/kidcare/internal/config"
	"github.com/lojf/kidcare/internal/db"
	"github.com/lojf/kidcare/internal/handlers"
	"github.com/lojf/kidcare/internal/models"
	"github.com/lojf/kidcare/internal/reminders"
	svc "github.com/lojf/kidcare/internal/services"
	"github.com/lojf/kidcare/internal/web"
)

func main() {
	ephemeral := flag.Bool("ephemeral", false, "keep all data in memory (nothing is written to disk)")
	flag.Parse()

	cfg := config.Load()
	log := setupLogger(cfg)

	if err := run(cfg, log, *ephemeral); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger, ephemeral bool) error {
	var kv db.KV
	if ephemeral {
		kv = db.NewMemoryKV()
		log.Warn("running with in-memory storage")
	} else {
		sq, err := db.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer sq.Close()
		kv = sq
	}

	store := db.NewStore(kv, cfg.StoragePrefix, defaults(cfg, log), log)
	seed(kv, cfg.StoragePrefix, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dispatcher *reminders.Dispatcher
	if cfg.RemindersEnabled {
		dispatcher = reminders.New(store, reminders.Config{
			Interval: cfg.ReminderInterval,
			Location: cfg.Location,
			Logger:   log,
		})
		dispatcher.Start(ctx)
	}

	api := handlers.New(store, cfg.Location, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.Router(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("kidcare listening", "addr", cfg.Addr, "tz", cfg.Location.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if dispatcher != nil {
		dispatcher.Stop()
	}
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

// defaults is what an empty store starts with: one admin account and the
// configured rates.
func defaults(cfg *config.Config, log *slog.Logger) db.Defaults {
	def := db.Defaults{
		ExpenseSettings: models.ExpenseSettings{TaxRate: cfg.TaxRate, AcquiringRate: cfg.AcquiringRate},
	}
	_, admin, err := svc.CreateSpecialist(nil, svc.SpecialistInput{
		FullName: "Administrator",
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     models.RoleAdmin,
	}, time.Now())
	if err != nil {
		log.Error("cannot build default admin", "email", cfg.AdminEmail, "err", err)
		return def
	}
	def.Specialists = []models.Specialist{admin}
	return def
}

// seed writes the defaults back on first start so the seeded admin keeps
// its id across restarts.
func seed(kv db.KV, prefix string, store *db.Store, log *slog.Logger) {
	_ = store.Tx(func() error {
		if _, ok, _ := kv.Get(prefix + db.KeySpecialists); !ok {
			store.Specialists.Replace(store.Specialists.Get())
			log.Info("seeded default admin")
		}
		if _, ok, _ := kv.Get(prefix + db.KeyExpenseSettings); !ok {
			store.ExpenseSettings.Replace(store.ExpenseSettings.Get())
		}
		return nil
	})
}
