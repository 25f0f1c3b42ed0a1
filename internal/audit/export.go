// Package audit exports slot and booking snapshots as spreadsheets.
package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"parkslot/internal/models"
)

// Source lists what gets exported.
type Source interface {
	AllSlots(ctx context.Context) ([]models.Slot, error)
	AllBookings(ctx context.Context) ([]models.Booking, error)
}

var (
	slotColumns = []string{"ID", "Category", "Location", "Hourly Rate", "Available",
		"Charging", "Max Length (ft)", "Helmet Lock"}
	bookingColumns = []string{"ID", "Slot", "Name", "Email", "Phone", "Vehicle",
		"Start", "End", "Hours", "Amount", "Status", "Created"}
)

const timeLayout = "02-01-2006 15:04"

// Export writes a workbook with a Slots and a Bookings sheet to w.
func Export(ctx context.Context, src Source, w io.Writer) error {
	slots, err := src.AllSlots(ctx)
	if err != nil {
		return fmt.Errorf("list slots: %w", err)
	}
	bookings, err := src.AllBookings(ctx)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	x := NewExcelWriter()
	defer x.Close()

	if err := x.AddSheet("Slots"); err != nil {
		return err
	}
	if err := x.WriteHeader(slotColumns); err != nil {
		return err
	}
	for i := range slots {
		if err := x.WriteRow(slotRow(&slots[i])); err != nil {
			return fmt.Errorf("write slot %s: %w", slots[i].ID, err)
		}
	}

	if err := x.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := x.WriteHeader(bookingColumns); err != nil {
		return err
	}
	for _, b := range bookings {
		if err := x.WriteRow(bookingRow(b)); err != nil {
			return fmt.Errorf("write booking %s: %w", b.ID, err)
		}
	}

	return x.Save(w)
}

// FileName returns a timestamped export file name.
func FileName(now time.Time) string {
	return fmt.Sprintf("parkslot_%s.xlsx", now.Format("20060102_150405"))
}

func slotRow(s *models.Slot) []any {
	row := []any{s.ID, s.Kind(), s.Location, s.HourlyRate, yesNo(s.Available), yesNo(s.HasChargingStation()), "", ""}
	switch f := s.Features.(type) {
	case models.CarFeatures:
		row[6] = f.MaxLengthFt
	case models.BikeFeatures:
		row[7] = yesNo(f.HasHelmetLock)
	}
	return row
}

func bookingRow(b models.Booking) []any {
	return []any{
		b.ID, b.SlotID, b.Requester.Name, b.Requester.Email, b.Requester.Phone, b.Requester.VehicleNumber,
		b.StartTime.Format(timeLayout), b.EndTime.Format(timeLayout),
		models.BillableHours(b.StartTime, b.EndTime), b.TotalAmount, string(b.Status),
		b.CreatedAt.Format(timeLayout),
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
