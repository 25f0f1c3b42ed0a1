// Package repository defines the slot and booking store contracts and their
// in-memory implementations.
package repository

import (
	"context"

	"parkslot/internal/models"
)

// SlotStore holds the authoritative set of slots.
//
// FindByID, Update and Delete report a miss with models.ErrSlotNotFound.
// Save rejects an id already present with models.ErrDuplicateSlot.
// FindAll and FindAvailableByType return copies in insertion order.
//
// Reserve is an atomic compare-and-set of the availability flag from true to
// false; it fails with models.ErrSlotUnavailable when the flag is already
// false. Release sets the flag back to true unconditionally.
type SlotStore interface {
	FindAll(ctx context.Context) ([]models.Slot, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	Save(ctx context.Context, slot models.Slot) error
	Update(ctx context.Context, slot models.Slot) error
	Delete(ctx context.Context, id string) error
	FindAvailableByType(ctx context.Context, category string) ([]models.Slot, error)
	Reserve(ctx context.Context, id string) error
	Release(ctx context.Context, id string) error
}

// BookingStore holds the authoritative set of bookings.
//
// FindByID, UpdateStatus and Delete report a miss with models.ErrBookingNotFound.
// Save rejects an id already present with models.ErrDuplicateBooking.
type BookingStore interface {
	FindAll(ctx context.Context) ([]models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindByUser(ctx context.Context, userRef string) ([]models.Booking, error)
	Save(ctx context.Context, booking models.Booking) error
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
