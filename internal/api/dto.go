package api

import (
	"fmt"
	"strings"
	"time"

	"parkslot/internal/models"
)

// localLayout is the day-first format accepted alongside RFC3339.
const localLayout = "02-01-2006 15:04"

// SlotDTO is the flat wire form of a slot; variant fields are omitted when
// they do not apply.
type SlotDTO struct {
	ID                 string  `json:"id"`
	Category           string  `json:"category"`
	Location           string  `json:"location"`
	HourlyRate         float64 `json:"hourly_rate"`
	Available          bool    `json:"available"`
	HasChargingStation bool    `json:"has_charging_station"`
	MaxLengthFt        *int    `json:"max_length_ft,omitempty"`
	HasHelmetLock      *bool   `json:"has_helmet_lock,omitempty"`
}

func toSlotDTO(s models.Slot) SlotDTO {
	dto := SlotDTO{
		ID:                 s.ID,
		Category:           s.Kind(),
		Location:           s.Location,
		HourlyRate:         s.HourlyRate,
		Available:          s.Available,
		HasChargingStation: s.HasChargingStation(),
	}
	switch f := s.Features.(type) {
	case models.CarFeatures:
		n := f.MaxLengthFt
		dto.MaxLengthFt = &n
	case models.BikeFeatures:
		b := f.HasHelmetLock
		dto.HasHelmetLock = &b
	}
	return dto
}

func toSlotDTOs(slots []models.Slot) []SlotDTO {
	out := make([]SlotDTO, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotDTO(s))
	}
	return out
}

// Slot converts the request into a tagged slot.
func (d SlotDTO) Slot() (models.Slot, error) {
	var probe models.Slot
	probe.Category = d.Category

	switch {
	case probe.IsCategory(models.CategoryCar):
		if d.HasHelmetLock != nil {
			return models.Slot{}, fmt.Errorf("%w: has_helmet_lock does not apply to Car", models.ErrInvalidSlot)
		}
		maxLen := 0
		if d.MaxLengthFt != nil {
			maxLen = *d.MaxLengthFt
		}
		return models.NewCarSlot(d.ID, d.Location, d.HourlyRate, d.Available, d.HasChargingStation, maxLen), nil
	case probe.IsCategory(models.CategoryBike):
		if d.MaxLengthFt != nil {
			return models.Slot{}, fmt.Errorf("%w: max_length_ft does not apply to Bike", models.ErrInvalidSlot)
		}
		helmet := false
		if d.HasHelmetLock != nil {
			helmet = *d.HasHelmetLock
		}
		return models.NewBikeSlot(d.ID, d.Location, d.HourlyRate, d.Available, d.HasChargingStation, helmet), nil
	default:
		return models.Slot{}, fmt.Errorf("%w: unknown category %q", models.ErrInvalidSlot, d.Category)
	}
}

// BookingDTO is the wire form of a booking.
type BookingDTO struct {
	ID            string    `json:"id"`
	SlotID        string    `json:"slot_id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	VehicleNumber string    `json:"vehicle_number"`
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	Status        string    `json:"status"`
	TotalAmount   float64   `json:"total_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

func toBookingDTO(b models.Booking) BookingDTO {
	return BookingDTO{
		ID:            b.ID,
		SlotID:        b.SlotID,
		Name:          b.Requester.Name,
		Email:         b.Requester.Email,
		Phone:         b.Requester.Phone,
		VehicleNumber: b.Requester.VehicleNumber,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        string(b.Status),
		TotalAmount:   b.TotalAmount,
		CreatedAt:     b.CreatedAt,
	}
}

func toBookingDTOs(bookings []models.Booking) []BookingDTO {
	out := make([]BookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	return out
}

// CreateBookingRequest is the request body for POST /api/bookings.
type CreateBookingRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	VehicleNumber string `json:"vehicle_number"`
	SlotID        string `json:"slot_id"`
	Start         string `json:"start"` // RFC3339 or dd-MM-yyyy HH:mm
	End           string `json:"end"`
}

func (r *CreateBookingRequest) validate() (start, end time.Time, err error) {
	if strings.TrimSpace(r.SlotID) == "" {
		return start, end, fmt.Errorf("slot_id is required")
	}
	if r.Start == "" || r.End == "" {
		return start, end, fmt.Errorf("start and end are required")
	}
	if start, err = parseTime(r.Start); err != nil {
		return start, end, fmt.Errorf("invalid start: %w", err)
	}
	if end, err = parseTime(r.End); err != nil {
		return start, end, fmt.Errorf("invalid end: %w", err)
	}
	if !end.After(start) {
		return start, end, fmt.Errorf("end must be after start")
	}
	return start, end, nil
}

func (r *CreateBookingRequest) requester() models.Requester {
	return models.Requester{
		Name:          strings.TrimSpace(r.Name),
		Email:         strings.TrimSpace(r.Email),
		Phone:         strings.TrimSpace(r.Phone),
		VehicleNumber: strings.TrimSpace(r.VehicleNumber),
	}
}

func parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(localLayout, v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or %s", "dd-MM-yyyy HH:mm")
	}
	return t, nil
}

// ActionResponse is returned by cancel and complete.
type ActionResponse struct {
	Booking BookingDTO `json:"booking"`
	Message string     `json:"message"`
}
