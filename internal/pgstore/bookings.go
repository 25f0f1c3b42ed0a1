package pgstore

import (
	"context"
	"errors"
	"fmt"

	"parkslot/internal/models"

	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, name, email, phone, vehicle_number, slot_id, start_time, end_time, status, total_amount, created_at, updated_at`

// BookingStore implements repository.BookingStore on PostgreSQL.
type BookingStore struct {
	db *DB
}

func NewBookingStore(db *DB) *BookingStore {
	return &BookingStore{db: db}
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.Requester.Name, &b.Requester.Email, &b.Requester.Phone, &b.Requester.VehicleNumber,
		&b.SlotID, &b.StartTime, &b.EndTime, &status, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt)
	b.Status = models.BookingStatus(status)
	return b, err
}

func (s *BookingStore) query(ctx context.Context, q string, args ...any) ([]models.Booking, error) {
	rows, err := s.db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *BookingStore) FindAll(ctx context.Context) ([]models.Booking, error) {
	return s.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY seq`)
}

func (s *BookingStore) FindByUser(ctx context.Context, userRef string) ([]models.Booking, error) {
	return s.query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE lower(trim(phone)) = lower(trim($1)) ORDER BY seq`, userRef)
}

func (s *BookingStore) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(s.db.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE lower(id) = lower($1)`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("find booking %s: %w", id, models.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	return &b, nil
}

func (s *BookingStore) Save(ctx context.Context, b models.Booking) error {
	_, err := s.db.pool.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID, b.Requester.Name, b.Requester.Email, b.Requester.Phone, b.Requester.VehicleNumber,
		b.SlotID, b.StartTime, b.EndTime, string(b.Status), b.TotalAmount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save booking %s: %w", b.ID, models.ErrDuplicateBooking)
		}
		return fmt.Errorf("save booking %s: %w", b.ID, err)
	}
	return nil
}

func (s *BookingStore) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	tag, err := s.db.pool.Exec(ctx, `UPDATE bookings SET status = $1, updated_at = NOW() WHERE lower(id) = lower($2)`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update booking %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s: %w", id, models.ErrBookingNotFound)
	}
	return nil
}

func (s *BookingStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.pool.Exec(ctx, `DELETE FROM bookings WHERE lower(id) = lower($1)`, id)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete booking %s: %w", id, models.ErrBookingNotFound)
	}
	return nil
}

func (s *BookingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}
