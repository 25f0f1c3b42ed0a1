package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkslot/internal/models"
)

const bookingColumns = `id, name, email, phone, vehicle_number, slot_id, start_time, end_time, status, total_amount, created_at, updated_at`

// BookingStore implements repository.BookingStore on SQLite.
type BookingStore struct {
	db *DB
}

func NewBookingStore(db *DB) *BookingStore {
	return &BookingStore{db: db}
}

func scanBooking(rs rowScanner) (models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := rs.Scan(&b.ID, &b.Requester.Name, &b.Requester.Email, &b.Requester.Phone, &b.Requester.VehicleNumber,
		&b.SlotID, &b.StartTime, &b.EndTime, &status, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt)
	b.Status = models.BookingStatus(status)
	return b, err
}

func (s *BookingStore) query(ctx context.Context, q string, args ...any) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *BookingStore) FindAll(ctx context.Context) ([]models.Booking, error) {
	return s.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY rowid`)
}

func (s *BookingStore) FindByUser(ctx context.Context, userRef string) ([]models.Booking, error) {
	return s.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE lower(trim(phone)) = lower(trim(?)) ORDER BY rowid`, userRef)
}

func (s *BookingStore) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find booking %s: %w", id, models.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	return &b, nil
}

func (s *BookingStore) Save(ctx context.Context, b models.Booking) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Requester.Name, b.Requester.Email, b.Requester.Phone, b.Requester.VehicleNumber,
		b.SlotID, b.StartTime.UTC(), b.EndTime.UTC(), string(b.Status), b.TotalAmount,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save booking %s: %w", b.ID, models.ErrDuplicateBooking)
		}
		return fmt.Errorf("save booking %s: %w", b.ID, err)
	}
	return nil
}

func (s *BookingStore) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", id, err)
	}
	return checkAffected(res, models.ErrBookingNotFound, "update booking "+id)
}

func (s *BookingStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", id, err)
	}
	return checkAffected(res, models.ErrBookingNotFound, "delete booking "+id)
}

func (s *BookingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}
