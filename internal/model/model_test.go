package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelledUser, true},
		{StatusPending, StatusCancelledHost, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusRescheduled, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusRescheduled, true},
		{StatusConfirmed, StatusCancelledHost, true},
		{StatusConfirmed, StatusPending, false},
		{StatusRescheduled, StatusRescheduled, true},
		{StatusRescheduled, StatusCompleted, true},
		{StatusCompleted, StatusCancelledUser, false},
		{StatusCancelledUser, StatusConfirmed, false},
		{StatusCancelledHost, StatusPending, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestBookingStatus_Terminal(t *testing.T) {
	require.True(t, StatusCompleted.IsTerminal())
	require.True(t, StatusCancelledUser.IsTerminal())
	require.True(t, StatusCancelledHost.IsTerminal())
	require.False(t, StatusPending.IsTerminal())
	require.False(t, StatusRescheduled.IsTerminal())
	require.False(t, BookingStatus("bogus").Valid())
	require.Equal(t, StatusCancelledHost, CancelledBy(ActorHost))
	require.Equal(t, StatusCancelledUser, CancelledBy(ActorUser))
}

func TestExperience_Validate(t *testing.T) {
	exp := Experience{PricePerPerson: decimal.NewFromInt(15), MinGuests: 1, MaxGuests: 8, DurationMinutes: 90}
	require.NoError(t, exp.Validate())

	bad := exp
	bad.MinGuests = 9
	require.Error(t, bad.Validate())

	bad = exp
	bad.PricePerPerson = decimal.NewFromInt(-1)
	require.Error(t, bad.Validate())

	bad = exp
	bad.MinGuests = 0
	require.Error(t, bad.Validate())
}

func TestSlot_UnitPrice(t *testing.T) {
	exp := &Experience{PricePerPerson: decimal.NewFromInt(15)}
	slot := &AvailabilitySlot{MaxCapacity: 10, AvailableCapacity: 4}
	require.True(t, slot.UnitPrice(exp).Equal(decimal.NewFromInt(15)))
	require.Equal(t, 6, slot.Booked())

	override := decimal.NewFromInt(20)
	slot.PriceOverride = &override
	require.True(t, slot.UnitPrice(exp).Equal(decimal.NewFromInt(20)))
}
