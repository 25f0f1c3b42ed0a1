package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// BookingStatus represents booking lifecycle status.
type BookingStatus string

const (
	StatusActive    BookingStatus = "ACTIVE"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Requester holds the contact fields captured with each booking.
type Requester struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicle_number"`
}

// Booking represents a reservation of one slot.
type Booking struct {
	ID          string        `json:"id"`
	Requester   Requester     `json:"requester"`
	SlotID      string        `json:"slot_id"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Status      BookingStatus `json:"status"`
	TotalAmount float64       `json:"total_amount"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// SameID reports whether id refers to this booking (case-insensitive).
func (b *Booking) SameID(id string) bool {
	return strings.EqualFold(b.ID, id)
}

// BelongsTo reports whether the booking was made by userRef (matched on phone).
func (b *Booking) BelongsTo(userRef string) bool {
	return strings.EqualFold(strings.TrimSpace(b.Requester.Phone), strings.TrimSpace(userRef))
}

// Duration returns the booked interval length.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

func (b Booking) String() string {
	return fmt.Sprintf("Booking[%s] %s (%s) | Vehicle: %s | Slot: %s | %s -> %s | Status: %s | Amount: %.2f",
		b.ID, b.Requester.Name, b.Requester.Phone, b.Requester.VehicleNumber, b.SlotID,
		b.StartTime.Format("02-01-2006 15:04"), b.EndTime.Format("02-01-2006 15:04"),
		b.Status, b.TotalAmount)
}

// BillableHours returns whole hours between start and end, rounding any partial
// hour up, never less than one. Only whole elapsed minutes count.
func BillableHours(start, end time.Time) int64 {
	minutes := int64(end.Sub(start) / time.Minute)
	hours := int64(math.Ceil(float64(minutes) / 60.0))
	if hours < 1 {
		return 1
	}
	return hours
}

// Price computes the total amount for a booking interval at rate per hour.
func Price(start, end time.Time, rate float64) float64 {
	return float64(BillableHours(start, end)) * rate
}
