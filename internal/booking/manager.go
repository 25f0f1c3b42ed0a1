// Package booking implements the booking lifecycle: creation against an
// available slot, cancellation and completion, and administrative overrides.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkslot/internal/events"
	"parkslot/internal/lock"
	"parkslot/internal/metrics"
	"parkslot/internal/models"
	"parkslot/internal/repository"

	"github.com/rs/zerolog"
)

const maxIDAttempts = 5

// SlotService is the slot surface the booking flow depends on.
type SlotService interface {
	SlotByID(ctx context.Context, id string) (*models.Slot, error)
	MarkBooked(ctx context.Context, id string) error
	MarkAvailable(ctx context.Context, id string) error
}

// Manager coordinates bookings with slot availability. Every mutation of a
// slot's availability runs under that slot's lock.
type Manager struct {
	slots    SlotService
	bookings repository.BookingStore
	locker   lock.Locker
	bus      *events.Bus
	newID    IDGenerator
	now      func() time.Time
	logger   *zerolog.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLocker replaces the default in-process KeyedMutex.
func WithLocker(l lock.Locker) Option {
	return func(m *Manager) { m.locker = l }
}

// WithEventBus publishes lifecycle events to bus.
func WithEventBus(bus *events.Bus) Option {
	return func(m *Manager) { m.bus = bus }
}

// WithIDGenerator overrides NewBookingID.
func WithIDGenerator(gen IDGenerator) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithClock overrides time.Now for booking timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager that locks slots with a KeyedMutex unless
// WithLocker says otherwise.
func NewManager(slots SlotService, bookings repository.BookingStore, logger *zerolog.Logger, opts ...Option) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "booking").Logger()

	m := &Manager{
		slots:    slots,
		bookings: bookings,
		locker:   lock.NewKeyedMutex(),
		newID:    NewBookingID,
		now:      time.Now,
		logger:   &l,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lockSlot(ctx context.Context, slotID string) (func(), error) {
	started := time.Now()
	release, err := m.locker.Lock(ctx, lock.NormalizeKey(slotID))
	metrics.ObserveLockWait(time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, err)
	}
	return release, nil
}

// CreateBooking reserves slotID for requester over [start, end).
// end > start is expected to be checked by the caller.
func (m *Manager) CreateBooking(ctx context.Context, requester models.Requester, slotID string, start, end time.Time) (*models.Booking, error) {
	release, err := m.lockSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	defer release()

	slot, err := m.slots.SlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, models.ErrSlotNotFound) {
			metrics.IncBookingRejected("slot_not_found")
			m.logger.Info().Str("slot_id", slotID).Msg("booking rejected: slot not found")
		}
		return nil, err
	}
	if !slot.Available {
		metrics.IncBookingRejected("slot_unavailable")
		m.logger.Info().Str("slot_id", slot.ID).Msg("booking rejected: slot already booked")
		return nil, fmt.Errorf("slot %s: %w", slot.ID, models.ErrSlotUnavailable)
	}

	now := m.now()
	b := models.Booking{
		Requester:   requester,
		SlotID:      slot.ID,
		StartTime:   start,
		EndTime:     end,
		Status:      models.StatusActive,
		TotalAmount: models.Price(start, end, slot.HourlyRate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := m.saveWithFreshID(ctx, &b); err != nil {
		return nil, err
	}

	if err := m.slots.MarkBooked(ctx, slot.ID); err != nil {
		if derr := m.bookings.Delete(ctx, b.ID); derr != nil {
			m.logger.Error().Err(derr).Str("booking_id", b.ID).Msg("failed to roll back booking")
		}
		if errors.Is(err, models.ErrSlotUnavailable) {
			metrics.IncBookingRejected("slot_unavailable")
			m.logger.Info().Str("slot_id", slot.ID).Msg("booking rejected: slot taken concurrently")
		}
		return nil, fmt.Errorf("mark slot %s booked: %w", slot.ID, err)
	}

	metrics.IncBookingCreated(slot.Kind())
	m.bus.Publish(events.Event{
		Type:      events.BookingCreated,
		SlotID:    b.SlotID,
		BookingID: b.ID,
		Actor:     events.ActorUser,
		Category:  slot.Kind(),
		Amount:    b.TotalAmount,
	})
	m.logger.Info().
		Str("booking_id", b.ID).
		Str("slot_id", b.SlotID).
		Float64("total", b.TotalAmount).
		Msg("booking created")

	return &b, nil
}

// saveWithFreshID assigns a generated id to b and stores it, drawing a new id
// when the store reports a collision.
func (m *Manager) saveWithFreshID(ctx context.Context, b *models.Booking) error {
	var err error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		b.ID = m.newID()
		err = m.bookings.Save(ctx, *b)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrDuplicateBooking) {
			return fmt.Errorf("save booking: %w", err)
		}
		m.logger.Warn().Str("booking_id", b.ID).Int("attempt", attempt).Msg("booking id collision, regenerating")
	}
	return fmt.Errorf("save booking after %d attempts: %w", maxIDAttempts, err)
}

// CancelBooking moves an ACTIVE booking to CANCELLED and frees its slot.
func (m *Manager) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	return m.finish(ctx, id, models.StatusCancelled, events.ActorUser)
}

// CompleteBooking moves an ACTIVE booking to COMPLETED and frees its slot.
func (m *Manager) CompleteBooking(ctx context.Context, id string) (*models.Booking, error) {
	return m.finish(ctx, id, models.StatusCompleted, events.ActorUser)
}

// finish is the single terminal transition routine. On ErrAlreadyTerminal
// and ErrInvalidTransition the current booking is returned alongside the
// error and nothing is changed.
func (m *Manager) finish(ctx context.Context, id string, target models.BookingStatus, actor string) (*models.Booking, error) {
	b, err := m.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) {
			m.logger.Info().Str("booking_id", id).Msg("booking not found")
		}
		return nil, err
	}

	release, err := m.lockSlot(ctx, b.SlotID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock; a concurrent finish may have won.
	b, err = m.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(b.Status, target); err != nil {
		if errors.Is(err, models.ErrAlreadyTerminal) {
			m.logger.Info().Str("booking_id", b.ID).Str("status", string(b.Status)).Msg("booking already in requested state")
		} else {
			metrics.IncBookingRejected("invalid_transition")
			m.logger.Warn().Str("booking_id", b.ID).Str("status", string(b.Status)).Str("target", string(target)).Msg("transition rejected")
		}
		return b, err
	}

	released := true
	if err := m.slots.MarkAvailable(ctx, b.SlotID); err != nil {
		if !errors.Is(err, models.ErrSlotNotFound) {
			return nil, fmt.Errorf("release slot %s: %w", b.SlotID, err)
		}
		released = false
		m.logger.Warn().Str("booking_id", b.ID).Str("slot_id", b.SlotID).Msg("slot no longer exists, finishing booking anyway")
	}

	if err := m.bookings.UpdateStatus(ctx, b.ID, target); err != nil {
		if released {
			if rerr := m.slots.MarkBooked(ctx, b.SlotID); rerr != nil {
				m.logger.Error().Err(rerr).Str("slot_id", b.SlotID).Msg("failed to restore slot after status write failure")
			}
		}
		return nil, fmt.Errorf("set booking %s %s: %w", b.ID, target, err)
	}

	b.Status = target
	b.UpdatedAt = m.now()

	eventType := events.BookingCompleted
	if target == models.StatusCancelled {
		eventType = events.BookingCancelled
		metrics.IncBookingCancelled(actor)
	} else {
		metrics.IncBookingCompleted()
	}
	m.bus.Publish(events.Event{
		Type:      eventType,
		SlotID:    b.SlotID,
		BookingID: b.ID,
		Actor:     actor,
		Amount:    b.TotalAmount,
	})
	m.logger.Info().
		Str("booking_id", b.ID).
		Str("slot_id", b.SlotID).
		Str("status", string(target)).
		Str("actor", actor).
		Msg("booking finished")

	return b, nil
}

func (m *Manager) BookingByID(ctx context.Context, id string) (*models.Booking, error) {
	return m.bookings.FindByID(ctx, id)
}

func (m *Manager) BookingsByUser(ctx context.Context, userRef string) ([]models.Booking, error) {
	return m.bookings.FindByUser(ctx, userRef)
}

func (m *Manager) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return m.bookings.FindAll(ctx)
}
