package models

import (
	"fmt"
	"strings"
)

// Slot categories known to the system.
const (
	CategoryCar  = "Car"
	CategoryBike = "Bike"
)

// SlotFeatures holds the category-specific attributes of a slot.
// Implemented by CarFeatures and BikeFeatures only.
type SlotFeatures interface {
	slotFeatures()
}

// CarFeatures describes a four-wheeler slot.
type CarFeatures struct {
	HasChargingStation bool `json:"has_charging_station"`
	MaxLengthFt        int  `json:"max_length_ft"`
}

// BikeFeatures describes a two-wheeler slot.
type BikeFeatures struct {
	HasChargingStation bool `json:"has_charging_station"`
	HasHelmetLock      bool `json:"has_helmet_lock"`
}

func (CarFeatures) slotFeatures()  {}
func (BikeFeatures) slotFeatures() {}

// Slot represents an allocatable parking slot.
type Slot struct {
	ID         string       `json:"id"`
	Category   string       `json:"category"`
	Location   string       `json:"location"`
	HourlyRate float64      `json:"hourly_rate"`
	Available  bool         `json:"available"`
	Features   SlotFeatures `json:"-"`
}

// NewCarSlot builds a Car slot.
func NewCarSlot(id, location string, rate float64, available, charging bool, maxLengthFt int) Slot {
	return Slot{
		ID:         id,
		Category:   CategoryCar,
		Location:   location,
		HourlyRate: rate,
		Available:  available,
		Features:   CarFeatures{HasChargingStation: charging, MaxLengthFt: maxLengthFt},
	}
}

// NewBikeSlot builds a Bike slot.
func NewBikeSlot(id, location string, rate float64, available, charging, helmetLock bool) Slot {
	return Slot{
		ID:         id,
		Category:   CategoryBike,
		Location:   location,
		HourlyRate: rate,
		Available:  available,
		Features:   BikeFeatures{HasChargingStation: charging, HasHelmetLock: helmetLock},
	}
}

// SameID reports whether id refers to this slot (case-insensitive).
func (s *Slot) SameID(id string) bool {
	return strings.EqualFold(s.ID, id)
}

// IsCategory reports whether the slot belongs to category (case-insensitive).
func (s *Slot) IsCategory(category string) bool {
	return strings.EqualFold(s.Category, category)
}

// HasChargingStation is shared by both variants.
func (s *Slot) HasChargingStation() bool {
	switch f := s.Features.(type) {
	case CarFeatures:
		return f.HasChargingStation
	case BikeFeatures:
		return f.HasChargingStation
	default:
		return false
	}
}

// Validate checks fields that must hold before a slot enters a store.
func (s *Slot) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidSlot)
	}
	if s.HourlyRate < 0 {
		return fmt.Errorf("%w: hourly rate must not be negative", ErrInvalidSlot)
	}
	switch f := s.Features.(type) {
	case CarFeatures:
		if !s.IsCategory(CategoryCar) {
			return fmt.Errorf("%w: car features on %q slot", ErrInvalidSlot, s.Category)
		}
		if f.MaxLengthFt < 0 {
			return fmt.Errorf("%w: max length must not be negative", ErrInvalidSlot)
		}
	case BikeFeatures:
		if !s.IsCategory(CategoryBike) {
			return fmt.Errorf("%w: bike features on %q slot", ErrInvalidSlot, s.Category)
		}
	case nil:
		return fmt.Errorf("%w: features are required", ErrInvalidSlot)
	}
	return nil
}

func (s Slot) String() string {
	base := fmt.Sprintf("[%s] Type: %s | Location: %s | Rate: %.2f/hr | Available: %s",
		s.ID, s.Category, s.Location, s.HourlyRate, yesNo(s.Available))

	switch f := s.Features.(type) {
	case CarFeatures:
		return fmt.Sprintf("%s | Charging: %s | Max Length: %dft", base, yesNo(f.HasChargingStation), f.MaxLengthFt)
	case BikeFeatures:
		return fmt.Sprintf("%s | Charging: %s | Helmet Lock: %s", base, yesNo(f.HasChargingStation), yesNo(f.HasHelmetLock))
	default:
		return base
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Kind returns the category implied by the feature variant.
func (s *Slot) Kind() string {
	switch s.Features.(type) {
	case CarFeatures:
		return CategoryCar
	case BikeFeatures:
		return CategoryBike
	default:
		return s.Category
	}
}
