package repository

import (
	"context"
	"errors"
	"fmt"

	"parkslot/internal/models"
)

// Seed profiles.
const (
	ProfileDev   = "dev"
	ProfileProd  = "prod"
	ProfileEmpty = "empty"
)

// SeedSlots returns the initial dataset for a profile.
func SeedSlots(profile string) ([]models.Slot, error) {
	switch profile {
	case ProfileDev, "":
		return []models.Slot{
			models.NewCarSlot("C-101", "A1", 50.0, true, true, 15),
			models.NewCarSlot("C-102", "A2", 45.0, true, false, 15),
			models.NewBikeSlot("B-201", "B1", 20.0, true, true, true),
			models.NewBikeSlot("B-202", "B2", 25.0, false, false, true),
		}, nil
	case ProfileProd:
		return []models.Slot{
			models.NewCarSlot("C-301", "P1", 100.0, true, true, 15),
			models.NewCarSlot("C-302", "P1", 120.0, false, true, 15),
			models.NewCarSlot("C-303", "P2", 110.0, true, false, 15),
			models.NewCarSlot("C-304", "P2", 95.0, true, false, 14),
			models.NewCarSlot("C-305", "P3", 130.0, false, true, 16),
			models.NewCarSlot("C-306", "P3", 125.0, true, true, 16),
			models.NewCarSlot("C-307", "P3", 90.0, true, false, 15),
			models.NewBikeSlot("B-401", "Q1", 30.0, true, true, true),
			models.NewBikeSlot("B-402", "Q1", 28.0, false, true, false),
			models.NewBikeSlot("B-403", "Q2", 25.0, true, false, true),
			models.NewBikeSlot("B-404", "Q2", 27.0, true, false, true),
			models.NewBikeSlot("B-405", "Q3", 29.0, true, true, false),
		}, nil
	case ProfileEmpty:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown seed profile %q", profile)
	}
}

// Seed loads the profile dataset into store when the store is empty.
// Returns the number of slots inserted.
func Seed(ctx context.Context, store SlotStore, profile string) (int, error) {
	existing, err := store.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list slots: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	slots, err := SeedSlots(profile)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, slot := range slots {
		if err := store.Save(ctx, slot); err != nil {
			if errors.Is(err, models.ErrDuplicateSlot) {
				continue
			}
			return added, fmt.Errorf("seed slot %s: %w", slot.ID, err)
		}
		added++
	}
	return added, nil
}
