// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository and reservation layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/auth"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/availability"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/reservation"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/ticket"
)

var (
	// ErrValidation wraps every request validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrTicketUnavailable is returned for tickets of cancelled bookings.
	ErrTicketUnavailable = errors.New("no ticket for a cancelled booking")
)

// BookingService orchestrates marketplace operations on top of the reservation engine.
type BookingService struct {
	experiences repository.ExperienceStore
	slots       repository.SlotStore
	bookings    repository.BookingLedger
	engine      *reservation.Engine

	validate *validator.Validate
	loc      *time.Location
	query    *availability.Query
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
}

// Option customises a BookingService.
type Option func(*BookingService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *BookingService) { s.now = now } }

// WithLocation sets the zone slot dates are interpreted in.
func WithLocation(loc *time.Location) Option { return func(s *BookingService) { s.loc = loc } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(s *BookingService) { s.log = log } }

// WithIDs replaces the id generator for experiences and slots.
func WithIDs(newID func() string) Option { return func(s *BookingService) { s.newID = newID } }

// NewBookingService constructs a BookingService. slots serves the availability listing and
// slot creation; it may be a caching decorator.
func NewBookingService(
	experiences repository.ExperienceStore,
	slots repository.SlotStore,
	bookings repository.BookingLedger,
	engine *reservation.Engine,
	opts ...Option,
) *BookingService {
	s := &BookingService{
		experiences: experiences,
		slots:       slots,
		bookings:    bookings,
		engine:      engine,
		validate:    newValidator(),
		loc:         time.UTC,
		now:         time.Now,
		newID:       uuid.NewString,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.query = availability.NewQuery(slots, s.loc)
	return s
}

// CreateExperience publishes a new experience owned by hostID.
func (s *BookingService) CreateExperience(ctx context.Context, hostID string, req model.CreateExperienceRequest) (*model.Experience, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	exp := &model.Experience{
		ID:              s.newID(),
		HostID:          hostID,
		Title:           strings.TrimSpace(req.Title),
		PricePerPerson:  *req.PricePerPerson,
		MinGuests:       req.MinGuests,
		MaxGuests:       req.MaxGuests,
		DurationMinutes: req.DurationMinutes,
		CreatedAt:       s.now().UTC(),
	}
	if exp.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.experiences.CreateExperience(ctx, exp); err != nil {
		return nil, fmt.Errorf("create experience: %w", err)
	}
	s.log.Info("experience created", "experience_id", exp.ID, "host_id", hostID)
	return exp, nil
}

// GetExperience returns a single experience.
func (s *BookingService) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	exp, err := s.experiences.GetExperience(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get experience: %w", err)
	}
	return exp, nil
}

// CreateSlots opens availability on an experience the host owns, expanding recurrence.
func (s *BookingService) CreateSlots(ctx context.Context, hostID, experienceID string, req model.CreateSlotsRequest) ([]model.AvailabilitySlot, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	exp, err := s.GetExperience(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if exp.HostID != hostID {
		return nil, ErrForbidden
	}
	now := s.now()
	if req.Date < availability.Today(now, s.loc) {
		return nil, fmt.Errorf("%w: date %s is in the past", ErrValidation, req.Date)
	}

	slots, err := availability.Expand(availability.Template{
		ExperienceID:     exp.ID,
		Date:             req.Date,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Capacity:         req.Capacity,
		PriceOverride:    req.PriceOverride,
		WeatherDependent: req.WeatherDependent,
		Pattern:          req.Recurrence.Pattern,
		Until:            req.Recurrence.Until,
	}, s.newID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.slots.CreateSlots(ctx, slots); err != nil {
		if errors.Is(err, repository.ErrSlotExists) || errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("create slots: %w", err)
	}
	s.log.Info("slots created", "experience_id", exp.ID, "count", len(slots), "recurrence", string(slots[0].Recurrence))
	return slots, nil
}

// Availability lists the slots of an experience on date that can take guests.
func (s *BookingService) Availability(ctx context.Context, experienceID, date string, guests int) ([]model.AvailabilitySlot, error) {
	if _, err := availability.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if guests < 1 {
		return nil, fmt.Errorf("%w: guests must be at least 1", ErrValidation)
	}
	if _, err := s.GetExperience(ctx, experienceID); err != nil {
		return nil, err
	}
	slots, err := s.query.FindEligibleSlots(ctx, experienceID, date, guests, s.now())
	if err != nil {
		return nil, fmt.Errorf("find slots: %w", err)
	}
	return slots, nil
}

// Reserve books guests onto the selected slot for the customer p.
func (s *BookingService) Reserve(ctx context.Context, p auth.Principal, experienceID string, req model.CreateBookingRequest) (*model.Booking, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	return s.engine.Reserve(ctx, reservation.ReserveRequest{
		ExperienceID:        experienceID,
		Slot:                reservation.SlotSelector{Date: req.Date, StartTime: req.StartTime},
		UserID:              p.UserID,
		Guests:              req.Guests,
		SpecialRequests:     req.SpecialRequests,
		DietaryRequirements: req.DietaryRequirements,
	})
}

// GetBooking returns a booking visible to p: its customer or its host.
func (s *BookingService) GetBooking(ctx context.Context, p auth.Principal, id string) (*model.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if b.UserID != p.UserID && b.HostID != p.UserID {
		return nil, ErrForbidden
	}
	return b, nil
}

// Cancel cancels a booking on behalf of its customer or its host.
func (s *BookingService) Cancel(ctx context.Context, p auth.Principal, id string, req model.CancelBookingRequest) (*model.Booking, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	b, err := s.GetBooking(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if (req.Actor == model.ActorUser && b.UserID != p.UserID) ||
		(req.Actor == model.ActorHost && b.HostID != p.UserID) {
		return nil, ErrForbidden
	}
	return s.engine.Cancel(ctx, id, req.Actor)
}

// Confirm confirms a pending booking. Only the booking's host may confirm.
func (s *BookingService) Confirm(ctx context.Context, p auth.Principal, id string) (*model.Booking, error) {
	b, err := s.GetBooking(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if b.HostID != p.UserID {
		return nil, ErrForbidden
	}
	return s.engine.Confirm(ctx, id)
}

// Reschedule moves a confirmed booking to another slot of the same experience.
func (s *BookingService) Reschedule(ctx context.Context, p auth.Principal, id string, req model.RescheduleRequest) (*model.Booking, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	if _, err := s.GetBooking(ctx, p, id); err != nil {
		return nil, err
	}
	return s.engine.Reschedule(ctx, id, reservation.SlotSelector{Date: req.Date, StartTime: req.StartTime})
}

// ListCustomerBookings returns p's own bookings, newest first.
func (s *BookingService) ListCustomerBookings(ctx context.Context, p auth.Principal) ([]model.Booking, error) {
	return s.list(ctx, repository.BookingFilter{UserID: p.UserID})
}

// ListHostBookings returns bookings on p's experiences, optionally narrowed to one status.
func (s *BookingService) ListHostBookings(ctx context.Context, p auth.Principal, status string) ([]model.Booking, error) {
	f := repository.BookingFilter{HostID: p.UserID}
	if status != "" {
		st := model.BookingStatus(status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
		}
		f.Statuses = []model.BookingStatus{st}
	}
	return s.list(ctx, f)
}

// ListExperienceBookings returns the bookings of one experience. Only its host may list them.
func (s *BookingService) ListExperienceBookings(ctx context.Context, p auth.Principal, experienceID string) ([]model.Booking, error) {
	exp, err := s.GetExperience(ctx, experienceID)
	if err != nil {
		return nil, err
	}
	if exp.HostID != p.UserID {
		return nil, ErrForbidden
	}
	return s.list(ctx, repository.BookingFilter{ExperienceID: exp.ID})
}

func (s *BookingService) list(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	out, err := s.bookings.ListBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if out == nil {
		out = []model.Booking{}
	}
	return out, nil
}

// Ticket renders the e-ticket PDF for a live or completed booking.
func (s *BookingService) Ticket(ctx context.Context, p auth.Principal, id string) ([]byte, error) {
	b, err := s.GetBooking(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if b.Status.IsCancelled() {
		return nil, ErrTicketUnavailable
	}
	exp, err := s.GetExperience(ctx, b.ExperienceID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	slot, err := s.engine.Slot(ctx, b.SlotID)
	if err != nil {
		if !errors.Is(err, reservation.ErrSlotNotFound) {
			return nil, err
		}
		s.log.Warn("ticket rendered without slot details", "booking_id", b.ID, "slot_id", b.SlotID)
	}
	return ticket.Render(b, exp, slot)
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and folds failures into ErrValidation.
func (s *BookingService) check(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace()[strings.IndexByte(fe.Namespace(), '.')+1:], fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
