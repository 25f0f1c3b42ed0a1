package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"parkslot/internal/audit"
	"parkslot/internal/metrics"
	"parkslot/internal/models"

	"github.com/gorilla/mux"
)

// GET /api/slots
func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	all, err := s.slots.AllSlots(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": toSlotDTOs(all)})
}

// GET /api/slots/available?category=Car
func (s *Server) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots_available")
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	available, err := s.slots.AvailableByType(r.Context(), category)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": toSlotDTOs(available)})
}

// GET /api/slots/{id}
func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slot")
	slot, err := s.slots.SlotByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTO(*slot))
}

// POST /api/bookings
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, end, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b, err := s.bookings.CreateBooking(r.Context(), req.requester(), strings.TrimSpace(req.SlotID), start, end)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingDTO(*b))
}

// GET /api/bookings?phone=...
func (s *Server) handleUserBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("user_bookings")
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	list, err := s.bookings.BookingsByUser(r.Context(), phone)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": toBookingDTOs(list)})
}

// GET /api/bookings/{id}
func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("booking")
	b, err := s.bookings.BookingByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(*b))
}

// POST /api/bookings/{id}/cancel
func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")
	b, err := s.bookings.CancelBooking(r.Context(), mux.Vars(r)["id"])
	s.writeAction(w, r, b, err, "booking cancelled")
}

// POST /api/bookings/{id}/complete
func (s *Server) handleCompleteBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("complete_booking")
	b, err := s.bookings.CompleteBooking(r.Context(), mux.Vars(r)["id"])
	s.writeAction(w, r, b, err, "booking completed")
}

// writeAction reports the outcome of a terminal transition. An already
// terminal booking is a 200 with an informational message.
func (s *Server) writeAction(w http.ResponseWriter, r *http.Request, b *models.Booking, err error, okMsg string) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ActionResponse{Booking: toBookingDTO(*b), Message: okMsg})
	case errors.Is(err, models.ErrAlreadyTerminal) && b != nil:
		writeJSON(w, http.StatusOK, ActionResponse{
			Booking: toBookingDTO(*b),
			Message: "booking is already " + strings.ToLower(string(b.Status)),
		})
	default:
		s.writeDomainError(w, r, err)
	}
}

// GET /api/admin/slots
func (s *Server) handleAdminListSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_slots")
	all, err := s.admin.AllSlots(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": toSlotDTOs(all)})
}

func decodeSlot(r *http.Request) (models.Slot, error) {
	var dto SlotDTO
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&dto); err != nil {
		return models.Slot{}, errors.New("invalid JSON body")
	}
	if id, ok := mux.Vars(r)["id"]; ok {
		if dto.ID != "" && !strings.EqualFold(dto.ID, id) {
			return models.Slot{}, errors.New("id in body does not match path")
		}
		if dto.ID == "" {
			dto.ID = id
		}
	}
	return dto.Slot()
}

// POST /api/admin/slots
func (s *Server) handleAdminCreateSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_create_slot")
	slot, err := decodeSlot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.admin.CreateSlot(r.Context(), slot); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotDTO(slot))
}

// PUT /api/admin/slots/{id}
func (s *Server) handleAdminUpdateSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_update_slot")
	slot, err := decodeSlot(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.admin.UpdateSlot(r.Context(), slot); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSlotDTO(slot))
}

// DELETE /api/admin/slots/{id}
func (s *Server) handleAdminDeleteSlot(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_delete_slot")
	if err := s.admin.DeleteSlot(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/admin/bookings
func (s *Server) handleAdminListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_bookings")
	all, err := s.admin.AllBookings(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": toBookingDTOs(all)})
}

// POST /api/admin/bookings/{id}/cancel
func (s *Server) handleAdminCancelBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_cancel_booking")
	b, err := s.admin.CancelBookingAsAdmin(r.Context(), mux.Vars(r)["id"])
	s.writeAction(w, r, b, err, "booking cancelled by admin")
}

// GET /api/admin/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_export")

	var buf bytes.Buffer
	if err := audit.Export(r.Context(), s.admin, &buf); err != nil {
		s.log.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+audit.FileName(s.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn().Err(err).Msg("export write interrupted")
	}
}
