package main

import (
	"context"
	"fmt"

	"parkslot/internal/config"
	"parkslot/internal/database"
	"parkslot/internal/pgstore"
	"parkslot/internal/repository"

	"github.com/rs/zerolog"
)

// storage bundles the stores for the configured driver.
type storage struct {
	slots    repository.SlotStore
	bookings repository.BookingStore
	ping     func(context.Context) error
	close    func()
	backup   *database.BackupService
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return &storage{
			slots:    repository.NewMemorySlotStore(logger),
			bookings: repository.NewMemoryBookingStore(logger),
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil

	case config.DriverSQLite:
		db, err := database.NewDB(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		st := &storage{
			slots:    database.NewSlotStore(db),
			bookings: database.NewBookingStore(db),
			ping:     db.Ping,
			close:    func() { _ = db.Close() },
		}
		if cfg.Backup.Enabled {
			st.backup = database.NewBackupService(db, cfg.Backup, cfg.BackupInterval(), logger)
		}
		return st, nil

	case config.DriverPostgres:
		db, err := pgstore.Open(ctx, cfg.Storage.PostgresDSN, logger)
		if err != nil {
			return nil, err
		}
		return &storage{
			slots:    pgstore.NewSlotStore(db),
			bookings: pgstore.NewBookingStore(db),
			ping:     db.Ping,
			close:    db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
