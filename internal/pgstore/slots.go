package pgstore

import (
	"context"
	"errors"
	"fmt"

	"parkslot/internal/models"
	"parkslot/internal/repository"

	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, category, location, hourly_rate, available, has_charging_station, max_length_ft, has_helmet_lock`

// SlotStore implements repository.SlotStore on PostgreSQL.
type SlotStore struct {
	db *DB
}

func NewSlotStore(db *DB) *SlotStore {
	return &SlotStore{db: db}
}

func scanSlot(row pgx.Row) (models.Slot, error) {
	var r repository.SlotRow
	if err := row.Scan(&r.ID, &r.Category, &r.Location, &r.HourlyRate, &r.Available,
		&r.HasChargingStation, &r.MaxLengthFt, &r.HasHelmetLock); err != nil {
		return models.Slot{}, err
	}
	return r.Slot()
}

func (s *SlotStore) query(ctx context.Context, q string, args ...any) ([]models.Slot, error) {
	rows, err := s.db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	out := make([]models.Slot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (s *SlotStore) FindAll(ctx context.Context) ([]models.Slot, error) {
	return s.query(ctx, `SELECT `+slotColumns+` FROM slots ORDER BY seq`)
}

func (s *SlotStore) FindAvailableByType(ctx context.Context, category string) ([]models.Slot, error) {
	return s.query(ctx, `SELECT `+slotColumns+` FROM slots
		WHERE available AND lower(category) = lower($1) ORDER BY seq`, category)
}

func (s *SlotStore) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := scanSlot(s.db.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE lower(id) = lower($1)`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find slot %s: %w", id, models.ErrSlotNotFound)
		}
		return nil, fmt.Errorf("find slot %s: %w", id, err)
	}
	return &slot, nil
}

func (s *SlotStore) Save(ctx context.Context, slot models.Slot) error {
	r := repository.NewSlotRow(slot)
	_, err := s.db.pool.Exec(ctx, `INSERT INTO slots (`+slotColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Category, r.Location, r.HourlyRate, r.Available, r.HasChargingStation, r.MaxLengthFt, r.HasHelmetLock)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save slot %s: %w", slot.ID, models.ErrDuplicateSlot)
		}
		return fmt.Errorf("save slot %s: %w", slot.ID, err)
	}
	return nil
}

func (s *SlotStore) Update(ctx context.Context, slot models.Slot) error {
	r := repository.NewSlotRow(slot)
	tag, err := s.db.pool.Exec(ctx, `UPDATE slots SET id = $1, category = $2, location = $3, hourly_rate = $4,
		available = $5, has_charging_station = $6, max_length_ft = $7, has_helmet_lock = $8
		WHERE lower(id) = lower($1)`,
		r.ID, r.Category, r.Location, r.HourlyRate, r.Available, r.HasChargingStation, r.MaxLengthFt, r.HasHelmetLock)
	if err != nil {
		return fmt.Errorf("update slot %s: %w", slot.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update slot %s: %w", slot.ID, models.ErrSlotNotFound)
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM slots WHERE lower(id) = lower($1)`, id)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete slot %s: %w", id, models.ErrSlotNotFound)
	}
	return nil
}

// Reserve marks the slot booked only while it is still available.
func (s *SlotStore) Reserve(ctx context.Context, id string) error {
	tx, err := s.db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("reserve slot %s: begin: %w", id, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE slots SET available = FALSE WHERE lower(id) = lower($1) AND available`, id)
	if err != nil {
		return fmt.Errorf("reserve slot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM slots WHERE lower(id) = lower($1))`, id).Scan(&exists); err != nil {
			return fmt.Errorf("reserve slot %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("reserve slot %s: %w", id, models.ErrSlotNotFound)
		}
		return fmt.Errorf("reserve slot %s: %w", id, models.ErrSlotUnavailable)
	}
	return tx.Commit(ctx)
}

func (s *SlotStore) Release(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, `UPDATE slots SET available = TRUE WHERE lower(id) = lower($1)`, id)
	if err != nil {
		return fmt.Errorf("release slot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("release slot %s: %w", id, models.ErrSlotNotFound)
	}
	return nil
}
