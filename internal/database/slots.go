package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"parkslot/internal/models"
	"parkslot/internal/repository"
)

const slotColumns = `id, category, location, hourly_rate, available, has_charging_station, max_length_ft, has_helmet_lock`

// SlotStore implements repository.SlotStore on SQLite. Rows are returned in
// rowid order, which is insertion order.
type SlotStore struct {
	db *DB
}

func NewSlotStore(db *DB) *SlotStore {
	return &SlotStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(rs rowScanner) (models.Slot, error) {
	var r repository.SlotRow
	if err := rs.Scan(&r.ID, &r.Category, &r.Location, &r.HourlyRate, &r.Available,
		&r.HasChargingStation, &r.MaxLengthFt, &r.HasHelmetLock); err != nil {
		return models.Slot{}, err
	}
	return r.Slot()
}

func (s *SlotStore) query(ctx context.Context, q string, args ...any) ([]models.Slot, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	out := make([]models.Slot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (s *SlotStore) FindAll(ctx context.Context) ([]models.Slot, error) {
	return s.query(ctx, `SELECT `+slotColumns+` FROM slots ORDER BY rowid`)
}

func (s *SlotStore) FindAvailableByType(ctx context.Context, category string) ([]models.Slot, error) {
	return s.query(ctx, `SELECT `+slotColumns+` FROM slots
		WHERE available = 1 AND category = ? COLLATE NOCASE ORDER BY rowid`, category)
}

func (s *SlotStore) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find slot %s: %w", id, models.ErrSlotNotFound)
		}
		return nil, fmt.Errorf("find slot %s: %w", id, err)
	}
	return &slot, nil
}

func (s *SlotStore) Save(ctx context.Context, slot models.Slot) error {
	r := repository.NewSlotRow(slot)
	_, err := s.db.ExecContext(ctx, `INSERT INTO slots (`+slotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
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
	res, err := s.db.ExecContext(ctx, `UPDATE slots SET id = ?, category = ?, location = ?, hourly_rate = ?,
		available = ?, has_charging_station = ?, max_length_ft = ?, has_helmet_lock = ? WHERE id = ?`,
		r.ID, r.Category, r.Location, r.HourlyRate, r.Available, r.HasChargingStation, r.MaxLengthFt, r.HasHelmetLock, r.ID)
	if err != nil {
		return fmt.Errorf("update slot %s: %w", slot.ID, err)
	}
	return checkAffected(res, models.ErrSlotNotFound, "update slot "+slot.ID)
}

func (s *SlotStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}
	return checkAffected(res, models.ErrSlotNotFound, "delete slot "+id)
}

// Reserve marks the slot booked only while it is still available. The update
// and the existence check share one transaction so a miss can be told apart
// from a slot that is already taken.
func (s *SlotStore) Reserve(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reserve slot %s: begin: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE slots SET available = 0 WHERE id = ? AND available = 1`, id)
	if err != nil {
		return fmt.Errorf("reserve slot %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve slot %s: %w", id, err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM slots WHERE id = ?)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("reserve slot %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("reserve slot %s: %w", id, models.ErrSlotNotFound)
		}
		return fmt.Errorf("reserve slot %s: %w", id, models.ErrSlotUnavailable)
	}
	return tx.Commit()
}

func (s *SlotStore) Release(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE slots SET available = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("release slot %s: %w", id, err)
	}
	return checkAffected(res, models.ErrSlotNotFound, "release slot "+id)
}
