package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"parkslot/internal/models"

	"github.com/rs/zerolog"
)

// MemorySlotStore is a volatile SlotStore guarded by a RWMutex.
type MemorySlotStore struct {
	mu     sync.RWMutex
	slots  []models.Slot
	index  map[string]int // lower-cased id -> position in slots
	logger *zerolog.Logger
}

// NewMemorySlotStore creates an empty store.
func NewMemorySlotStore(logger *zerolog.Logger) *MemorySlotStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &MemorySlotStore{
		index:  make(map[string]int),
		logger: logger,
	}
}

func slotKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func (s *MemorySlotStore) FindAll(_ context.Context) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Slot, len(s.slots))
	copy(out, s.slots)
	return out, nil
}

func (s *MemorySlotStore) FindByID(_ context.Context, id string) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[slotKey(id)]
	if !ok {
		return nil, fmt.Errorf("find slot %s: %w", id, models.ErrSlotNotFound)
	}
	slot := s.slots[pos]
	return &slot, nil
}

func (s *MemorySlotStore) Save(_ context.Context, slot models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey(slot.ID)
	if _, ok := s.index[key]; ok {
		return fmt.Errorf("save slot %s: %w", slot.ID, models.ErrDuplicateSlot)
	}
	s.index[key] = len(s.slots)
	s.slots = append(s.slots, slot)

	s.logger.Debug().Str("slot_id", slot.ID).Msg("slot added")
	return nil
}

// Update replaces the slot in place, keeping its insertion position.
func (s *MemorySlotStore) Update(_ context.Context, slot models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[slotKey(slot.ID)]
	if !ok {
		s.logger.Warn().Str("slot_id", slot.ID).Msg("slot not found, update skipped")
		return fmt.Errorf("update slot %s: %w", slot.ID, models.ErrSlotNotFound)
	}
	s.slots[pos] = slot

	s.logger.Debug().Str("slot_id", slot.ID).Bool("available", slot.Available).Msg("slot updated")
	return nil
}

func (s *MemorySlotStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey(id)
	pos, ok := s.index[key]
	if !ok {
		s.logger.Warn().Str("slot_id", id).Msg("slot not found, deletion skipped")
		return fmt.Errorf("delete slot %s: %w", id, models.ErrSlotNotFound)
	}

	s.slots = append(s.slots[:pos], s.slots[pos+1:]...)
	delete(s.index, key)
	for i := pos; i < len(s.slots); i++ {
		s.index[slotKey(s.slots[i].ID)] = i
	}

	s.logger.Debug().Str("slot_id", id).Msg("slot deleted")
	return nil
}

// Reserve flips the slot to unavailable if, and only if, it is available.
func (s *MemorySlotStore) Reserve(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[slotKey(id)]
	if !ok {
		return fmt.Errorf("reserve slot %s: %w", id, models.ErrSlotNotFound)
	}
	if !s.slots[pos].Available {
		return fmt.Errorf("reserve slot %s: %w", id, models.ErrSlotUnavailable)
	}
	s.slots[pos].Available = false

	s.logger.Debug().Str("slot_id", s.slots[pos].ID).Msg("slot reserved")
	return nil
}

func (s *MemorySlotStore) Release(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[slotKey(id)]
	if !ok {
		return fmt.Errorf("release slot %s: %w", id, models.ErrSlotNotFound)
	}
	s.slots[pos].Available = true

	s.logger.Debug().Str("slot_id", s.slots[pos].ID).Msg("slot released")
	return nil
}

func (s *MemorySlotStore) FindAvailableByType(_ context.Context, category string) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Slot, 0)
	for _, slot := range s.slots {
		if slot.Available && slot.IsCategory(category) {
			out = append(out, slot)
		}
	}
	return out, nil
}
