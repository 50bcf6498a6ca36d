package availability_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/availability"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

type readerMock struct {
	getSlotsFn func(ctx context.Context, experienceID, date string) ([]model.AvailabilitySlot, error)
}

func (m *readerMock) GetSlots(ctx context.Context, experienceID, date string) ([]model.AvailabilitySlot, error) {
	return m.getSlotsFn(ctx, experienceID, date)
}

func fixed(slots ...model.AvailabilitySlot) *readerMock {
	return &readerMock{getSlotsFn: func(context.Context, string, string) ([]model.AvailabilitySlot, error) {
		return slots, nil
	}}
}

func slot(id, date, start string, capacity int) model.AvailabilitySlot {
	return model.AvailabilitySlot{ID: id, ExperienceID: "exp", Date: date, StartTime: start,
		EndTime: "23:59", AvailableCapacity: capacity, MaxCapacity: 10}
}

func ids(slots []model.AvailabilitySlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.ID
	}
	return out
}

func TestFindEligibleSlots_FiltersAndOrders(t *testing.T) {
	now := time.Date(2030, 6, 1, 10, 0, 0, 0, time.UTC)
	q := availability.NewQuery(fixed(
		slot("late", "2030-06-01", "16:00", 4),
		slot("past", "2030-06-01", "09:00", 10),
		slot("exact-now", "2030-06-01", "10:00", 10),
		slot("small", "2030-06-01", "12:00", 2),
		slot("b-tie", "2030-06-01", "14:00", 3),
		slot("a-tie", "2030-06-01", "14:00", 3),
		slot("other-day", "2030-06-02", "11:00", 10),
	), time.UTC)

	got, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 3, now)
	require.NoError(t, err)
	require.Equal(t, []string{"a-tie", "b-tie", "late"}, ids(got))
}

func TestFindEligibleSlots_NeverReturnsPastSlots(t *testing.T) {
	var slots []model.AvailabilitySlot
	for h := 0; h < 24; h++ {
		slots = append(slots, slot(fmt.Sprintf("s%02d", h), "2030-06-01", fmt.Sprintf("%02d:30", h), 5))
	}
	q := availability.NewQuery(fixed(slots...), time.UTC)

	for h := 0; h < 24; h++ {
		now := time.Date(2030, 6, 1, h, 30, 0, 0, time.UTC)
		got, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 1, now)
		require.NoError(t, err)
		for _, s := range got {
			start, err := availability.Combine(s.Date, s.StartTime, time.UTC)
			require.NoError(t, err)
			require.True(t, start.After(now), "slot %s offered at %s", s.ID, now)
		}
		require.Len(t, got, 23-h)
	}
}

func TestFindEligibleSlots_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	q := availability.NewQuery(fixed(slot("s", "2030-06-01", "11:00", 5)), loc)

	// 11:00 at UTC+2 is 09:00 UTC.
	got, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 1,
		time.Date(2030, 6, 1, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindEligibleSlots_EmptyIsNotAnError(t *testing.T) {
	q := availability.NewQuery(fixed(), time.UTC)
	got, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 1, time.Now())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFindEligibleSlots_Idempotent(t *testing.T) {
	now := time.Date(2030, 6, 1, 6, 0, 0, 0, time.UTC)
	q := availability.NewQuery(fixed(
		slot("c", "2030-06-01", "08:00", 5),
		slot("a", "2030-06-01", "08:00", 5),
		slot("b", "2030-06-01", "07:00", 5),
	), time.UTC)

	first, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 2, now)
	require.NoError(t, err)
	second, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 2, now)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, []string{"b", "a", "c"}, ids(first))
}

func TestFindEligibleSlots_StoreError(t *testing.T) {
	boom := errors.New("boom")
	q := availability.NewQuery(&readerMock{getSlotsFn: func(context.Context, string, string) ([]model.AvailabilitySlot, error) {
		return nil, boom
	}}, nil)
	_, err := q.FindEligibleSlots(context.Background(), "exp", "2030-06-01", 1, time.Now())
	require.ErrorIs(t, err, boom)
}
