// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/auth"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/reservation"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/service"
)

// BookingHandler holds all HTTP handlers for the booking API.
type BookingHandler struct {
	svc *service.BookingService
	log *slog.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService, log *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, log: log}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// classify maps a service error to its HTTP status, message and error code.
func classify(err error) (int, string, string) {
	var re *reservation.Error
	if errors.As(err, &re) {
		switch re.Code {
		case reservation.CodeSlotUnavailable, reservation.CodeInvalidTransition:
			return http.StatusConflict, re.Code.Message(), string(re.Code)
		case reservation.CodeInvalidRequest:
			return http.StatusBadRequest, re.Detail, string(re.Code)
		case reservation.CodeNotFound:
			return http.StatusNotFound, re.Detail + " not found", string(re.Code)
		default:
			return http.StatusInternalServerError, re.Code.Message(), string(re.Code)
		}
	}
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error(), string(reservation.CodeInvalidRequest)
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "you do not have access to this resource", "FORBIDDEN"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found", string(reservation.CodeNotFound)
	case errors.Is(err, repository.ErrSlotExists):
		return http.StatusConflict, "a slot already starts at that time", "SLOT_EXISTS"
	case errors.Is(err, service.ErrTicketUnavailable):
		return http.StatusConflict, err.Error(), "TICKET_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "internal server error", "INTERNAL"
}

func (h *BookingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", chimiddleware.GetReqID(r.Context()), "err", err)
	}
	writeError(w, status, msg, code)
}

func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), string(reservation.CodeInvalidRequest))
		return false
	}
	return true
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// ─── Experiences ──────────────────────────────────────────────────────────────

// CreateExperience handles POST /experiences
func (h *BookingHandler) CreateExperience(w http.ResponseWriter, r *http.Request) {
	var req model.CreateExperienceRequest
	if !h.decode(w, r, &req) {
		return
	}
	exp, err := h.svc.CreateExperience(r.Context(), principal(r).UserID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

// GetExperience handles GET /experiences/{id}
func (h *BookingHandler) GetExperience(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.GetExperience(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// CreateSlots handles POST /experiences/{id}/slots
// Opens one slot or a recurring series on the host's experience.
func (h *BookingHandler) CreateSlots(w http.ResponseWriter, r *http.Request) {
	var req model.CreateSlotsRequest
	if !h.decode(w, r, &req) {
		return
	}
	slots, err := h.svc.CreateSlots(r.Context(), principal(r).UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slots)
}

// Availability handles GET /experiences/{id}/availability?date=YYYY-MM-DD&guests=N
// guests defaults to 1.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	guests := 1
	if v := r.URL.Query().Get("guests"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("guests must be an integer, got %q", v), string(reservation.CodeInvalidRequest))
			return
		}
		guests = n
	}
	slots, err := h.svc.Availability(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("date"), guests)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// ─── Bookings ─────────────────────────────────────────────────────────────────

// CreateBooking handles POST /experiences/{id}/bookings
// Reserves the selected slot; a lost race answers 409 SLOT_UNAVAILABLE.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.Reserve(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBooking handles GET /bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.GetBooking(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Ticket handles GET /bookings/{id}/ticket
// Streams the e-ticket PDF.
func (h *BookingHandler) Ticket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pdf, err := h.svc.Ticket(r.Context(), principal(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ticket-"+id+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// CancelBooking handles POST /bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req model.CancelBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.Cancel(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ConfirmBooking handles POST /bookings/{id}/confirm
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Confirm(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// RescheduleBooking handles POST /bookings/{id}/reschedule
func (h *BookingHandler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	var req model.RescheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.svc.Reschedule(r.Context(), principal(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ListExperienceBookings handles GET /experiences/{id}/bookings
func (h *BookingHandler) ListExperienceBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListExperienceBookings(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListMyBookings handles GET /me/bookings
func (h *BookingHandler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListCustomerBookings(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListHostBookings handles GET /host/bookings?status=
func (h *BookingHandler) ListHostBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.svc.ListHostBookings(r.Context(), principal(r), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
