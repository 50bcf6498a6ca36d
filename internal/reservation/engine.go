// Package reservation turns slot selections into bookings and drives the booking lifecycle.
// It is the only code path that changes slot capacity after a slot is created.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/availability"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
)

// SlotSelector picks a slot of an experience by day and start time.
type SlotSelector struct {
	Date      string
	StartTime string
}

// ReserveRequest asks for guests places on the selected slot.
type ReserveRequest struct {
	ExperienceID        string
	Slot                SlotSelector
	UserID              string
	Guests              int
	SpecialRequests     *string
	DietaryRequirements *string
}

// Engine enforces the no-overbooking invariant. It is safe for concurrent use; the only
// serialization point is SlotStore.DecrementCapacity on the affected slot.
type Engine struct {
	experiences repository.ExperienceStore
	slots       repository.SlotStore
	bookings    repository.BookingLedger

	reader repository.SlotReader
	loc    *time.Location
	query  *availability.Query
	now    func() time.Time
	newID  func() string
	log    *slog.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDs replaces the booking id generator.
func WithIDs(newID func() string) Option { return func(e *Engine) { e.newID = newID } }

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option { return func(e *Engine) { e.log = log } }

// WithLocation sets the zone slot dates and times are interpreted in.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

// WithSlotReader makes slot re-resolution read from r instead of the slot store.
// Use it when the slot store is a caching decorator: r must reflect committed state.
func WithSlotReader(r repository.SlotReader) Option { return func(e *Engine) { e.reader = r } }

// NewEngine wires an Engine over its stores.
func NewEngine(experiences repository.ExperienceStore, slots repository.SlotStore, bookings repository.BookingLedger, opts ...Option) *Engine {
	e := &Engine{
		experiences: experiences,
		slots:       slots,
		bookings:    bookings,
		reader:      slots,
		loc:         time.UTC,
		now:         time.Now,
		newID:       uuid.NewString,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.query = availability.NewQuery(e.reader, e.loc)
	return e
}

// Reserve re-resolves the selected slot against current store state, takes the guests from
// its capacity and records a pending booking. A lost race is reported as SlotUnavailable
// straight away; the caller should query availability again.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	if req.UserID == "" {
		return nil, newError(CodeInvalidRequest, nil, "user id is required")
	}
	if req.Guests < 1 {
		return nil, newError(CodeInvalidRequest, nil, "guests must be at least 1")
	}
	date, start, err := normalize(req.Slot)
	if err != nil {
		return nil, err
	}
	exp, err := e.experience(ctx, req.ExperienceID)
	if err != nil {
		return nil, err
	}
	if req.Guests > exp.MaxGuests {
		return nil, newError(CodeInvalidRequest, nil, "at most %d guests allowed", exp.MaxGuests)
	}
	if req.Guests < exp.MinGuests {
		return nil, newError(CodeInvalidRequest, nil, "at least %d guests required", exp.MinGuests)
	}
	now := e.now()
	if date < availability.Today(now, e.loc) {
		return nil, newError(CodeInvalidRequest, nil, "date %s is in the past", date)
	}

	slot, err := e.resolve(ctx, exp.ID, date, start, req.Guests, now)
	if err != nil {
		return nil, err
	}
	total := slot.UnitPrice(exp).Mul(decimal.NewFromInt(int64(req.Guests)))

	if err := e.take(ctx, slot.ID, req.Guests); err != nil {
		return nil, err
	}

	ts := now.UTC()
	b := &model.Booking{
		ID:                  e.newID(),
		UserID:              req.UserID,
		ExperienceID:        exp.ID,
		HostID:              exp.HostID,
		SlotID:              slot.ID,
		BookingDate:         slot.Date,
		DepartureTime:       slot.StartTime,
		NumberOfGuests:      req.Guests,
		TotalPrice:          total,
		Status:              model.StatusPending,
		SpecialRequests:     req.SpecialRequests,
		DietaryRequirements: req.DietaryRequirements,
		PaymentStatus:       model.PaymentPending,
		CreatedAt:           ts,
		UpdatedAt:           ts,
	}
	if err := e.bookings.InsertBooking(ctx, b); err != nil {
		e.log.Warn("booking insert failed, releasing capacity", "slot_id", slot.ID, "guests", req.Guests, "err", err)
		e.release(ctx, slot.ID, req.Guests, b.ID)
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	e.log.Info("booking reserved",
		"booking_id", b.ID, "slot_id", slot.ID, "experience_id", exp.ID,
		"guests", req.Guests, "total_price", total.String())
	return b, nil
}

// Cancel moves a live booking to cancelled_user or cancelled_host and releases its guests.
func (e *Engine) Cancel(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error) {
	if !actor.Valid() {
		return nil, newError(CodeInvalidRequest, nil, "actor must be user or host")
	}
	b, err := e.booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := e.transition(ctx, b, model.CancelledBy(actor), nil); err != nil {
		return nil, err
	}
	e.release(ctx, b.SlotID, b.NumberOfGuests, b.ID)

	e.log.Info("booking cancelled", "booking_id", b.ID, "actor", string(actor), "slot_id", b.SlotID)
	return b, nil
}

// Reschedule moves a confirmed booking to another slot. The new slot is taken first so a
// failure leaves the booking and both slots untouched; the old slot is released last.
func (e *Engine) Reschedule(ctx context.Context, bookingID string, sel SlotSelector) (*model.Booking, error) {
	date, start, err := normalize(sel)
	if err != nil {
		return nil, err
	}
	b, err := e.booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(model.StatusRescheduled) {
		return nil, newError(CodeInvalidTransition, nil, "cannot reschedule a %s booking", b.Status)
	}
	if date == b.BookingDate && start == b.DepartureTime {
		return nil, newError(CodeInvalidRequest, nil, "booking is already on %s %s", date, start)
	}
	exp, err := e.experience(ctx, b.ExperienceID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if date < availability.Today(now, e.loc) {
		return nil, newError(CodeInvalidRequest, nil, "date %s is in the past", date)
	}

	slot, err := e.resolve(ctx, exp.ID, date, start, b.NumberOfGuests, now)
	if err != nil {
		return nil, err
	}
	if err := e.take(ctx, slot.ID, b.NumberOfGuests); err != nil {
		return nil, err
	}

	oldSlot := b.SlotID
	total := slot.UnitPrice(exp).Mul(decimal.NewFromInt(int64(b.NumberOfGuests)))
	err = e.transition(ctx, b, model.StatusRescheduled, func(next *model.Booking) {
		next.SlotID = slot.ID
		next.BookingDate = slot.Date
		next.DepartureTime = slot.StartTime
		next.TotalPrice = total
	})
	if err != nil {
		e.release(ctx, slot.ID, b.NumberOfGuests, b.ID)
		return nil, err
	}
	e.release(ctx, oldSlot, b.NumberOfGuests, b.ID)

	e.log.Info("booking rescheduled",
		"booking_id", b.ID, "from_slot", oldSlot, "to_slot", slot.ID, "total_price", total.String())
	return b, nil
}

// Confirm marks a pending booking confirmed and paid.
func (e *Engine) Confirm(ctx context.Context, bookingID string) (*model.Booking, error) {
	b, err := e.booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	err = e.transition(ctx, b, model.StatusConfirmed, func(next *model.Booking) {
		next.PaymentStatus = model.PaymentPaid
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Complete marks a confirmed or rescheduled booking completed. Capacity is not released.
func (e *Engine) Complete(ctx context.Context, bookingID string) (*model.Booking, error) {
	b, err := e.booking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := e.transition(ctx, b, model.StatusCompleted, nil); err != nil {
		return nil, err
	}
	return b, nil
}

// Slot returns the slot a booking references.
func (e *Engine) Slot(ctx context.Context, slotID string) (*model.AvailabilitySlot, error) {
	s, err := e.slots.GetSlot(ctx, slotID)
	if err != nil {
		if errors.Is(err, repository.ErrSlotNotFound) {
			return nil, newError(CodeSlotNotFound, err, "slot %s", slotID)
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

func normalize(sel SlotSelector) (date, start string, err error) {
	d, err := availability.ParseDate(sel.Date)
	if err != nil {
		return "", "", newError(CodeInvalidRequest, err, "%v", err)
	}
	start, err = availability.NormalizeClock(sel.StartTime)
	if err != nil {
		return "", "", newError(CodeInvalidRequest, err, "%v", err)
	}
	return d.Format(availability.DateLayout), start, nil
}

func (e *Engine) experience(ctx context.Context, id string) (*model.Experience, error) {
	exp, err := e.experiences.GetExperience(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(CodeNotFound, err, "experience %s", id)
		}
		return nil, fmt.Errorf("get experience: %w", err)
	}
	return exp, nil
}

func (e *Engine) booking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := e.bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(CodeNotFound, err, "booking %s", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// resolve finds the selected slot among the currently eligible ones.
func (e *Engine) resolve(ctx context.Context, experienceID, date, start string, guests int, now time.Time) (*model.AvailabilitySlot, error) {
	eligible, err := e.query.FindEligibleSlots(ctx, experienceID, date, guests, now)
	if err != nil {
		return nil, fmt.Errorf("resolve slot: %w", err)
	}
	for i := range eligible {
		if eligible[i].StartTime == start {
			return &eligible[i], nil
		}
	}
	return nil, newError(CodeSlotUnavailable, nil, "no slot at %s %s for %d guests", date, start, guests)
}

// take decrements slot capacity, reporting a lost race as SlotUnavailable.
func (e *Engine) take(ctx context.Context, slotID string, guests int) error {
	_, err := e.slots.DecrementCapacity(ctx, slotID, guests)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrInsufficientCapacity), errors.Is(err, repository.ErrSlotNotFound):
		e.log.Info("slot taken concurrently", "slot_id", slotID, "guests", guests, "err", err)
		return newError(CodeSlotUnavailable, err, "slot %s can no longer hold %d guests", slotID, guests)
	default:
		return fmt.Errorf("decrement capacity: %w", err)
	}
}

// release gives guests back to a slot. The booking change it follows is already durable,
// so failures are logged rather than returned.
func (e *Engine) release(ctx context.Context, slotID string, guests int, bookingID string) {
	_, err := e.slots.IncrementCapacity(ctx, slotID, guests)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrSlotNotFound):
		e.log.Warn("slot gone, capacity release skipped", "slot_id", slotID, "booking_id", bookingID)
	default:
		e.log.Error("capacity release failed", "slot_id", slotID, "booking_id", bookingID, "guests", guests, "err", err)
	}
}

// transition applies mutate and the status change to a copy of b and writes it only if the
// stored booking is still the version b was read at. On success b is updated in place, so
// b.SlotID before the call is the slot the winning write moved away from.
func (e *Engine) transition(ctx context.Context, b *model.Booking, next model.BookingStatus, mutate func(*model.Booking)) error {
	if !b.Status.CanTransitionTo(next) {
		return newError(CodeInvalidTransition, nil, "cannot move booking from %s to %s", b.Status, next)
	}
	updated := *b
	if mutate != nil {
		mutate(&updated)
	}
	updated.Status = next
	updated.UpdatedAt = e.now().UTC()

	err := e.bookings.UpdateBooking(ctx, &updated)
	switch {
	case err == nil:
		*b = updated
		return nil
	case errors.Is(err, repository.ErrStaleBooking):
		return newError(CodeInvalidTransition, err, "booking %s changed concurrently", b.ID)
	case errors.Is(err, repository.ErrNotFound):
		return newError(CodeNotFound, err, "booking %s", b.ID)
	default:
		return fmt.Errorf("update booking: %w", err)
	}
}
