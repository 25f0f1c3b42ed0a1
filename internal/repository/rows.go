package repository

import (
	"database/sql"
	"fmt"

	"parkslot/internal/models"
)

// SlotRow is the flat column layout SQL stores use for slots. Variant
// columns that do not apply to the category are NULL.
type SlotRow struct {
	ID                 string
	Category           string
	Location           string
	HourlyRate         float64
	Available          bool
	HasChargingStation bool
	MaxLengthFt        sql.NullInt64
	HasHelmetLock      sql.NullBool
}

// NewSlotRow flattens a slot for storage.
func NewSlotRow(slot models.Slot) SlotRow {
	row := SlotRow{
		ID:         slot.ID,
		Category:   slot.Kind(),
		Location:   slot.Location,
		HourlyRate: slot.HourlyRate,
		Available:  slot.Available,
	}
	switch f := slot.Features.(type) {
	case models.CarFeatures:
		row.HasChargingStation = f.HasChargingStation
		row.MaxLengthFt = sql.NullInt64{Int64: int64(f.MaxLengthFt), Valid: true}
	case models.BikeFeatures:
		row.HasChargingStation = f.HasChargingStation
		row.HasHelmetLock = sql.NullBool{Bool: f.HasHelmetLock, Valid: true}
	}
	return row
}

// Slot rebuilds the tagged variant from the stored category.
func (r SlotRow) Slot() (models.Slot, error) {
	var probe models.Slot
	probe.Category = r.Category

	switch {
	case probe.IsCategory(models.CategoryCar):
		return models.NewCarSlot(r.ID, r.Location, r.HourlyRate, r.Available,
			r.HasChargingStation, int(r.MaxLengthFt.Int64)), nil
	case probe.IsCategory(models.CategoryBike):
		return models.NewBikeSlot(r.ID, r.Location, r.HourlyRate, r.Available,
			r.HasChargingStation, r.HasHelmetLock.Bool), nil
	default:
		return models.Slot{}, fmt.Errorf("slot %s: unknown category %q", r.ID, r.Category)
	}
}
