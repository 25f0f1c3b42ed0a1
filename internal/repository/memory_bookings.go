package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parkslot/internal/models"

	"github.com/rs/zerolog"
)

// MemoryBookingStore is a volatile BookingStore guarded by a RWMutex.
type MemoryBookingStore struct {
	mu       sync.RWMutex
	bookings []models.Booking
	logger   *zerolog.Logger
}

// NewMemoryBookingStore creates an empty store.
func NewMemoryBookingStore(logger *zerolog.Logger) *MemoryBookingStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &MemoryBookingStore{logger: logger}
}

func (s *MemoryBookingStore) find(id string) int {
	for i := range s.bookings {
		if s.bookings[i].SameID(id) {
			return i
		}
	}
	return -1
}

func (s *MemoryBookingStore) FindAll(_ context.Context) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out, nil
}

func (s *MemoryBookingStore) FindByID(_ context.Context, id string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.find(id)
	if i < 0 {
		return nil, fmt.Errorf("find booking %s: %w", id, models.ErrBookingNotFound)
	}
	b := s.bookings[i]
	return &b, nil
}

func (s *MemoryBookingStore) FindByUser(_ context.Context, userRef string) ([]models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Booking, 0)
	for _, b := range s.bookings {
		if b.BelongsTo(userRef) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *MemoryBookingStore) Save(_ context.Context, booking models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(booking.ID) >= 0 {
		return fmt.Errorf("save booking %s: %w", booking.ID, models.ErrDuplicateBooking)
	}
	s.bookings = append(s.bookings, booking)
	s.logger.Debug().Str("booking_id", booking.ID).Msg("booking added")
	return nil
}

func (s *MemoryBookingStore) UpdateStatus(_ context.Context, id string, status models.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		s.logger.Warn().Str("booking_id", id).Msg("booking not found, update skipped")
		return fmt.Errorf("update booking %s: %w", id, models.ErrBookingNotFound)
	}
	s.bookings[i].Status = status
	s.bookings[i].UpdatedAt = time.Now()

	s.logger.Debug().Str("booking_id", id).Str("status", string(status)).Msg("booking status updated")
	return nil
}

func (s *MemoryBookingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.find(id)
	if i < 0 {
		s.logger.Warn().Str("booking_id", id).Msg("booking not found, deletion skipped")
		return fmt.Errorf("delete booking %s: %w", id, models.ErrBookingNotFound)
	}
	s.bookings = append(s.bookings[:i], s.bookings[i+1:]...)

	s.logger.Debug().Str("booking_id", id).Msg("booking deleted")
	return nil
}

func (s *MemoryBookingStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.bookings)), nil
}
