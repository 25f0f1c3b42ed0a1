package booking

import (
	"context"
	"fmt"

	"parkslot/internal/events"
	"parkslot/internal/metrics"
	"parkslot/internal/models"
	"parkslot/internal/repository"

	"github.com/rs/zerolog"
)

// AdminService exposes slot maintenance and overrides. Slot changes go
// straight to the store; booking cancellation reuses Manager's transition.
type AdminService struct {
	slots   repository.SlotStore
	manager *Manager
	logger  *zerolog.Logger
}

func NewAdminService(slots repository.SlotStore, manager *Manager, logger *zerolog.Logger) *AdminService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "admin").Logger()
	return &AdminService{slots: slots, manager: manager, logger: &l}
}

func (s *AdminService) AllSlots(ctx context.Context) ([]models.Slot, error) {
	return s.slots.FindAll(ctx)
}

func (s *AdminService) CreateSlot(ctx context.Context, slot models.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}
	if err := s.slots.Save(ctx, slot); err != nil {
		return err
	}

	metrics.IncSlotAdmin("create")
	s.manager.bus.Publish(events.Event{Type: events.SlotCreated, SlotID: slot.ID, Actor: events.ActorAdmin, Category: slot.Kind()})
	s.logger.Info().Str("slot_id", slot.ID).Str("category", slot.Category).Msg("slot created")
	return nil
}

// UpdateSlot replaces the slot with the same id.
func (s *AdminService) UpdateSlot(ctx context.Context, slot models.Slot) error {
	if err := slot.Validate(); err != nil {
		return err
	}

	release, err := s.manager.lockSlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.slots.Update(ctx, slot); err != nil {
		return err
	}

	metrics.IncSlotAdmin("update")
	s.manager.bus.Publish(events.Event{Type: events.SlotUpdated, SlotID: slot.ID, Actor: events.ActorAdmin, Category: slot.Kind()})
	s.logger.Info().Str("slot_id", slot.ID).Msg("slot updated")
	return nil
}

// DeleteSlot removes a slot even when an ACTIVE booking still references it.
func (s *AdminService) DeleteSlot(ctx context.Context, id string) error {
	release, err := s.manager.lockSlot(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.slots.Delete(ctx, id); err != nil {
		return fmt.Errorf("admin delete: %w", err)
	}

	metrics.IncSlotAdmin("delete")
	s.manager.bus.Publish(events.Event{Type: events.SlotDeleted, SlotID: id, Actor: events.ActorAdmin})
	s.logger.Info().Str("slot_id", id).Msg("slot deleted")
	return nil
}

func (s *AdminService) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.manager.AllBookings(ctx)
}

// CancelBookingAsAdmin applies the same transition as a user cancellation.
func (s *AdminService) CancelBookingAsAdmin(ctx context.Context, id string) (*models.Booking, error) {
	return s.manager.finish(ctx, id, models.StatusCancelled, events.ActorAdmin)
}
