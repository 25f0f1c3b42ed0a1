// Package api exposes the booking engine over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"parkslot/internal/booking"
	"parkslot/internal/slots"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server serves the slot, booking and admin endpoints.
type Server struct {
	slots    *slots.Manager
	bookings *booking.Manager
	admin    *booking.AdminService
	limiter  *RateLimiter
	log      zerolog.Logger
	server   *http.Server
	now      func() time.Time
}

// NewServer wires handlers onto a router. limiter may be nil.
func NewServer(port int, slotMgr *slots.Manager, bookingMgr *booking.Manager, admin *booking.AdminService,
	limiter *RateLimiter, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &Server{
		slots:    slotMgr,
		bookings: bookingMgr,
		admin:    admin,
		limiter:  limiter,
		log:      logger.With().Str("component", "api").Logger(),
		now:      time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logMiddleware)
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/slots", s.handleListSlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/available", s.handleAvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/{id}", s.handleGetSlot).Methods(http.MethodGet)

	api.HandleFunc("/bookings", s.handleCreateBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings", s.handleUserBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", s.handleGetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/cancel", s.handleCancelBooking).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/complete", s.handleCompleteBooking).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/slots", s.handleAdminListSlots).Methods(http.MethodGet)
	admin.HandleFunc("/slots", s.handleAdminCreateSlot).Methods(http.MethodPost)
	admin.HandleFunc("/slots/{id}", s.handleAdminUpdateSlot).Methods(http.MethodPut)
	admin.HandleFunc("/slots/{id}", s.handleAdminDeleteSlot).Methods(http.MethodDelete)
	admin.HandleFunc("/bookings", s.handleAdminListBookings).Methods(http.MethodGet)
	admin.HandleFunc("/bookings/{id}/cancel", s.handleAdminCancelBooking).Methods(http.MethodPost)
	admin.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(started)).
			Msg("http request")
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.server.Addr).Msg("API server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
