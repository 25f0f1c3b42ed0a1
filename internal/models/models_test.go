package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 1, 15, hour, min, 0, 0, time.UTC)
}

func TestBillableHours(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  int64
	}{
		{"exact hour", at(10, 0), at(11, 0), 1},
		{"ninety minutes", at(10, 0), at(11, 30), 2},
		{"forty five minutes", at(10, 0), at(10, 45), 1},
		{"three hours one minute", at(10, 0), at(13, 1), 4},
		{"zero length", at(10, 0), at(10, 0), 1},
		{"negative length", at(11, 0), at(10, 0), 1},
		{"sub-minute remainder ignored", at(10, 0), at(11, 0).Add(30 * time.Second), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BillableHours(tt.start, tt.end))
		})
	}
}

func TestPrice(t *testing.T) {
	assert.Equal(t, 100.0, Price(at(10, 0), at(11, 30), 50.0))
	assert.Equal(t, 50.0, Price(at(10, 0), at(10, 45), 50.0))
	assert.Equal(t, 0.0, Price(at(10, 0), at(12, 0), 0))
}

func TestBookingStatus(t *testing.T) {
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	assert.True(t, StatusActive.Valid())
	assert.False(t, BookingStatus("PENDING").Valid())
}

func TestBooking_Helpers(t *testing.T) {
	b := Booking{
		ID:        "BKG-ABC123",
		Requester: Requester{Name: "Asha", Phone: " 9876543210 "},
		StartTime: at(9, 0),
		EndTime:   at(10, 30),
	}

	assert.True(t, b.SameID("bkg-abc123"))
	assert.False(t, b.SameID("BKG-XYZ"))
	assert.True(t, b.BelongsTo("9876543210"))
	assert.False(t, b.BelongsTo("111"))
	assert.Equal(t, 90*time.Minute, b.Duration())
}

func TestSlot_Variants(t *testing.T) {
	car := NewCarSlot("C-101", "A1", 50, true, true, 15)
	bike := NewBikeSlot("B-201", "B1", 20, false, false, true)

	assert.True(t, car.IsCategory("car"))
	assert.True(t, car.SameID("c-101"))
	assert.True(t, car.HasChargingStation())
	assert.False(t, bike.HasChargingStation())

	assert.Contains(t, car.String(), "Max Length: 15ft")
	assert.Contains(t, bike.String(), "Helmet Lock: Yes")
	assert.Contains(t, bike.String(), "Available: No")
}

func TestSlot_Validate(t *testing.T) {
	valid := NewCarSlot("C-1", "A1", 10, true, false, 14)
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		slot Slot
	}{
		{"missing id", NewCarSlot(" ", "A1", 10, true, false, 14)},
		{"negative rate", NewBikeSlot("B-1", "B1", -1, true, false, false)},
		{"mismatched features", Slot{ID: "X", Category: CategoryBike, Features: CarFeatures{}}},
		{"no features", Slot{ID: "X", Category: CategoryCar}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			assert.True(t, errors.Is(err, ErrInvalidSlot), "got %v", err)
		})
	}
}
