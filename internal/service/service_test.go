package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/auth"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/logger"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/reservation"
)

var (
	clock    = time.Date(2030, 6, 1, 6, 0, 0, 0, time.UTC)
	host     = auth.Principal{UserID: "host-1", Role: auth.RoleHost}
	intruder = auth.Principal{UserID: "host-2", Role: auth.RoleHost}
	customer = auth.Principal{UserID: "cust-1", Role: auth.RoleCustomer}
)

type env struct {
	store  *repository.Memory
	engine *reservation.Engine
	svc    *BookingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repository.NewMemory()
	now := func() time.Time { return clock }
	n := 0
	ids := func() string { n++; return fmt.Sprintf("id-%d", n) }
	engine := reservation.NewEngine(store, store, store,
		reservation.WithClock(now), reservation.WithLogger(logger.Discard()))
	svc := NewBookingService(store, store, store, engine,
		WithClock(now), WithIDs(ids), WithLogger(logger.Discard()))
	return &env{store: store, engine: engine, svc: svc}
}

func ptr[T any](v T) *T { return &v }

func (e *env) experience(t *testing.T) *model.Experience {
	t.Helper()
	exp, err := e.svc.CreateExperience(context.Background(), host.UserID, model.CreateExperienceRequest{
		Title: " Reef snorkel ", PricePerPerson: ptr(decimal.NewFromInt(45)),
		MinGuests: 1, MaxGuests: 6, DurationMinutes: 90,
	})
	require.NoError(t, err)
	return exp
}

func (e *env) slots(t *testing.T, expID string, req model.CreateSlotsRequest) []model.AvailabilitySlot {
	t.Helper()
	out, err := e.svc.CreateSlots(context.Background(), host.UserID, expID, req)
	require.NoError(t, err)
	return out
}

func TestCreateExperience(t *testing.T) {
	e := newEnv(t)
	exp := e.experience(t)
	require.Equal(t, "Reef snorkel", exp.Title)
	require.Equal(t, host.UserID, exp.HostID)

	got, err := e.svc.GetExperience(context.Background(), exp.ID)
	require.NoError(t, err)
	require.Equal(t, exp.ID, got.ID)

	_, err = e.svc.GetExperience(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = e.svc.CreateExperience(context.Background(), host.UserID, model.CreateExperienceRequest{
		Title: "x", PricePerPerson: ptr(decimal.Zero), MinGuests: 5, MaxGuests: 2, DurationMinutes: 60,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.svc.CreateExperience(context.Background(), host.UserID, model.CreateExperienceRequest{
		Title: "x", MinGuests: 1, MaxGuests: 2, DurationMinutes: 60,
	})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "price_per_person")

	free, err := e.svc.CreateExperience(context.Background(), host.UserID, model.CreateExperienceRequest{
		Title: "Beach clean-up", PricePerPerson: ptr(decimal.Zero), MinGuests: 1, MaxGuests: 20, DurationMinutes: 60,
	})
	require.NoError(t, err)
	require.True(t, free.PricePerPerson.IsZero())

	_, err = e.svc.CreateExperience(context.Background(), host.UserID, model.CreateExperienceRequest{Title: "x"})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "min_guests")
}

func TestCreateSlots(t *testing.T) {
	e := newEnv(t)
	exp := e.experience(t)

	created := e.slots(t, exp.ID, model.CreateSlotsRequest{
		Date: "2030-06-02", StartTime: "09:00", EndTime: "10:30", Capacity: 6,
		Recurrence: model.RecurrenceRequest{Pattern: model.RecurDaily, Until: "2030-06-04"},
	})
	require.Len(t, created, 3)

	_, err := e.svc.CreateSlots(context.Background(), host.UserID, exp.ID, model.CreateSlotsRequest{
		Date: "2030-06-03", StartTime: "09:00", EndTime: "10:00", Capacity: 2,
	})
	require.ErrorIs(t, err, repository.ErrSlotExists)

	_, err = e.svc.CreateSlots(context.Background(), intruder.UserID, exp.ID, model.CreateSlotsRequest{
		Date: "2030-06-05", StartTime: "09:00", EndTime: "10:00", Capacity: 2,
	})
	require.ErrorIs(t, err, ErrForbidden)

	_, err = e.svc.CreateSlots(context.Background(), host.UserID, exp.ID, model.CreateSlotsRequest{
		Date: "2030-05-31", StartTime: "09:00", EndTime: "10:00", Capacity: 2,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.svc.CreateSlots(context.Background(), host.UserID, exp.ID, model.CreateSlotsRequest{
		Date: "2030-06-05", StartTime: "11:00", EndTime: "10:00", Capacity: 2,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.svc.CreateSlots(context.Background(), host.UserID, exp.ID, model.CreateSlotsRequest{
		Date: "2030-06-05", StartTime: "9am", EndTime: "10:00", Capacity: 2,
	})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorContains(t, err, "start_time")
}

func TestAvailabilityAndReserve(t *testing.T) {
	e := newEnv(t)
	exp := e.experience(t)
	price := decimal.NewFromInt(20)
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-01", StartTime: "05:00", EndTime: "06:00", Capacity: 6})
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-01", StartTime: "09:00", EndTime: "11:00", Capacity: 6, PriceOverride: &price})
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-01", StartTime: "13:00", EndTime: "15:00", Capacity: 2})

	got, err := e.svc.Availability(context.Background(), exp.ID, "2030-06-01", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "09:00", got[0].StartTime)

	b, err := e.svc.Reserve(context.Background(), customer, exp.ID, model.CreateBookingRequest{
		Date: "2030-06-01", StartTime: "09:00", Guests: 3,
	})
	require.NoError(t, err)
	require.Equal(t, "60", b.TotalPrice.String())
	require.Equal(t, customer.UserID, b.UserID)

	got, err = e.svc.Availability(context.Background(), exp.ID, "2030-06-01", 4)
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = e.svc.Availability(context.Background(), exp.ID, "June 1", 1)
	require.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.Availability(context.Background(), exp.ID, "2030-06-01", 0)
	require.ErrorIs(t, err, ErrValidation)
	_, err = e.svc.Availability(context.Background(), "missing", "2030-06-01", 1)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = e.svc.Reserve(context.Background(), customer, exp.ID, model.CreateBookingRequest{Date: "2030-06-01", StartTime: "09:00"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestBookingLifecycleWithOwnership(t *testing.T) {
	e := newEnv(t)
	exp := e.experience(t)
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-01", StartTime: "09:00", EndTime: "11:00", Capacity: 6})
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-02", StartTime: "09:00", EndTime: "11:00", Capacity: 6})
	ctx := context.Background()

	b, err := e.svc.Reserve(ctx, customer, exp.ID, model.CreateBookingRequest{Date: "2030-06-01", StartTime: "09:00", Guests: 2})
	require.NoError(t, err)

	_, err = e.svc.GetBooking(ctx, intruder, b.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = e.svc.GetBooking(ctx, host, b.ID)
	require.NoError(t, err)

	_, err = e.svc.Confirm(ctx, customer, b.ID)
	require.ErrorIs(t, err, ErrForbidden)
	confirmed, err := e.svc.Confirm(ctx, host, b.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, confirmed.Status)

	moved, err := e.svc.Reschedule(ctx, customer, b.ID, model.RescheduleRequest{Date: "2030-06-02", StartTime: "09:00"})
	require.NoError(t, err)
	require.Equal(t, model.StatusRescheduled, moved.Status)

	_, err = e.svc.Cancel(ctx, customer, b.ID, model.CancelBookingRequest{Actor: model.ActorHost})
	require.ErrorIs(t, err, ErrForbidden)
	_, err = e.svc.Cancel(ctx, customer, b.ID, model.CancelBookingRequest{Actor: "admin"})
	require.ErrorIs(t, err, ErrValidation)

	cancelled, err := e.svc.Cancel(ctx, customer, b.ID, model.CancelBookingRequest{Actor: model.ActorUser})
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelledUser, cancelled.Status)

	_, err = e.svc.Cancel(ctx, host, b.ID, model.CancelBookingRequest{Actor: model.ActorHost})
	require.ErrorIs(t, err, reservation.ErrInvalidTransition)

	_, err = e.svc.Ticket(ctx, customer, b.ID)
	require.ErrorIs(t, err, ErrTicketUnavailable)
}

func TestListings(t *testing.T) {
	e := newEnv(t)
	exp := e.experience(t)
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-01", StartTime: "09:00", EndTime: "11:00", Capacity: 6})
	ctx := context.Background()

	first, err := e.svc.Reserve(ctx, customer, exp.ID, model.CreateBookingRequest{Date: "2030-06-01", StartTime: "09:00", Guests: 1})
	require.NoError(t, err)
	other := auth.Principal{UserID: "cust-2", Role: auth.RoleCustomer}
	_, err = e.svc.Reserve(ctx, other, exp.ID, model.CreateBookingRequest{Date: "2030-06-01", StartTime: "09:00", Guests: 1})
	require.NoError(t, err)
	_, err = e.svc.Confirm(ctx, host, first.ID)
	require.NoError(t, err)

	mine, err := e.svc.ListCustomerBookings(ctx, customer)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := e.svc.ListHostBookings(ctx, host, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	confirmed, err := e.svc.ListHostBookings(ctx, host, "confirmed")
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	require.Equal(t, first.ID, confirmed[0].ID)

	none, err := e.svc.ListHostBookings(ctx, intruder, "")
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)

	_, err = e.svc.ListHostBookings(ctx, host, "lost")
	require.ErrorIs(t, err, ErrValidation)

	byExp, err := e.svc.ListExperienceBookings(ctx, host, exp.ID)
	require.NoError(t, err)
	require.Len(t, byExp, 2)
	_, err = e.svc.ListExperienceBookings(ctx, intruder, exp.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = e.svc.ListExperienceBookings(ctx, host, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTicket(t *testing.T) {
	e := newEnv(t)
	exp := e.experience(t)
	e.slots(t, exp.ID, model.CreateSlotsRequest{Date: "2030-06-01", StartTime: "09:00", EndTime: "11:00", Capacity: 6, WeatherDependent: true})
	b, err := e.svc.Reserve(context.Background(), customer, exp.ID, model.CreateBookingRequest{Date: "2030-06-01", StartTime: "09:00", Guests: 2})
	require.NoError(t, err)

	pdf, err := e.svc.Ticket(context.Background(), customer, b.ID)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, err = e.svc.Ticket(context.Background(), intruder, b.ID)
	require.ErrorIs(t, err, ErrForbidden)
}
