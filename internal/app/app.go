// Package app wires the stores and services together. It owns the single
// database handle and counter store of a process.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"hskmaster/internal/assets"
	"hskmaster/internal/config"
	"hskmaster/internal/counters"
	"hskmaster/internal/database"
	"hskmaster/internal/gamification"
	"hskmaster/internal/metrics"
	"hskmaster/internal/repository"
	"hskmaster/internal/service"
)

// App holds the process-wide stores and the services built on them
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Metrics *metrics.Metrics

	DB       *database.DB
	Counters counters.Store

	Records  *repository.LearningRecordRepository
	Attempts *repository.TestAttemptRepository
	Assets   *assets.Loader

	Tracker   *gamification.Tracker
	Stats     *service.StatsService
	Tests     *service.TestService
	Learning  *service.LearningService
	Practice  *service.PracticeService
	Purchases *service.PurchaseService
	Backup    *service.BackupService
}

// New opens the database, runs migrations, opens the counter store and
// builds every service
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.WithField("type", cfg.DatabaseType).Debug("database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	store, err := counters.Open(cfg, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open counter store: %w", err)
	}
	log.WithField("backend", cfg.CounterBackend).Debug("counter store opened")

	m := metrics.New()
	records := repository.NewLearningRecordRepository(db, log, m)
	attempts := repository.NewTestAttemptRepository(db)
	tracker := gamification.NewTracker(store, cfg.Location, log, m)

	return &App{
		Config:    cfg,
		Log:       log,
		Metrics:   m,
		DB:        db,
		Counters:  store,
		Records:   records,
		Attempts:  attempts,
		Assets:    assets.NewLoader(os.DirFS(cfg.AssetsPath), log),
		Tracker:   tracker,
		Stats:     service.NewStatsService(records, cfg.Location, log),
		Tests:     service.NewTestService(attempts, log, m),
		Learning:  service.NewLearningService(records, tracker, store, log),
		Practice:  service.NewPracticeService(records, nil),
		Purchases: service.NewPurchaseService(store, log),
		Backup:    service.NewBackupService(records, attempts, store, cfg.DatabaseType, log),
	}, nil
}

// Close releases the counter store and the database
func (a *App) Close() error {
	cerr := a.Counters.Close()
	derr := a.DB.Close()
	if cerr != nil {
		return cerr
	}
	return derr
}
