package repository

import (
	"testing"

	"parkslot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotRowRoundTrip(t *testing.T) {
	car := models.NewCarSlot("C-1", "A1", 50, true, true, 15)
	row := NewSlotRow(car)
	assert.True(t, row.MaxLengthFt.Valid)
	assert.False(t, row.HasHelmetLock.Valid)

	back, err := row.Slot()
	require.NoError(t, err)
	assert.Equal(t, car, back)

	bike := models.NewBikeSlot("B-1", "B1", 20, false, false, true)
	row = NewSlotRow(bike)
	assert.False(t, row.MaxLengthFt.Valid)

	back, err = row.Slot()
	require.NoError(t, err)
	assert.Equal(t, bike, back)

	_, err = SlotRow{ID: "T-1", Category: "Truck"}.Slot()
	assert.Error(t, err)
}
