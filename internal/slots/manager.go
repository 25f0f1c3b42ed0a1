// Package slots owns the availability flag of parking slots.
package slots

import (
	"context"

	"parkslot/internal/models"
	"parkslot/internal/repository"

	"github.com/rs/zerolog"
)

// Manager wraps a SlotStore with availability queries and the two flag
// mutators used by the booking flow.
type Manager struct {
	store  repository.SlotStore
	logger *zerolog.Logger
}

// NewManager wraps store; a nil logger discards output.
func NewManager(store repository.SlotStore, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "slots").Logger()
	return &Manager{store: store, logger: &l}
}

func (m *Manager) AllSlots(ctx context.Context) ([]models.Slot, error) {
	return m.store.FindAll(ctx)
}

func (m *Manager) AvailableByType(ctx context.Context, category string) ([]models.Slot, error) {
	return m.store.FindAvailableByType(ctx, category)
}

func (m *Manager) SlotByID(ctx context.Context, id string) (*models.Slot, error) {
	return m.store.FindByID(ctx, id)
}

// MarkBooked clears the availability flag. The store performs the check and
// the write atomically, so a slot that is already booked yields
// models.ErrSlotUnavailable even when callers race past the lock.
func (m *Manager) MarkBooked(ctx context.Context, id string) error {
	if err := m.store.Reserve(ctx, id); err != nil {
		m.logger.Warn().Err(err).Str("slot_id", id).Msg("cannot mark slot booked")
		return err
	}
	m.logger.Debug().Str("slot_id", id).Msg("slot marked booked")
	return nil
}

// MarkAvailable sets the availability flag.
func (m *Manager) MarkAvailable(ctx context.Context, id string) error {
	if err := m.store.Release(ctx, id); err != nil {
		m.logger.Warn().Err(err).Str("slot_id", id).Msg("cannot mark slot available")
		return err
	}
	m.logger.Debug().Str("slot_id", id).Msg("slot marked available")
	return nil
}
