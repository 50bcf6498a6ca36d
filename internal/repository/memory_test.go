package repository_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
)

func seed(t *testing.T, m *repository.Memory, capacity int) model.AvailabilitySlot {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.CreateExperience(ctx, &model.Experience{
		ID: "exp-1", HostID: "host-1", PricePerPerson: decimal.NewFromInt(15),
		MinGuests: 1, MaxGuests: 10, DurationMinutes: 60,
	}))
	slot := model.AvailabilitySlot{
		ID: "slot-1", ExperienceID: "exp-1", Date: "2030-06-01",
		StartTime: "09:00", EndTime: "11:00",
		AvailableCapacity: capacity, MaxCapacity: capacity, Recurrence: model.RecurNone,
	}
	require.NoError(t, m.CreateSlots(ctx, []model.AvailabilitySlot{slot}))
	return slot
}

func TestMemory_DecrementIncrement(t *testing.T) {
	ctx := context.Background()
	m := repository.NewMemory()
	seed(t, m, 5)

	s, err := m.DecrementCapacity(ctx, "slot-1", 3)
	require.NoError(t, err)
	require.Equal(t, 2, s.AvailableCapacity)

	_, err = m.DecrementCapacity(ctx, "slot-1", 3)
	require.ErrorIs(t, err, repository.ErrInsufficientCapacity)

	_, err = m.DecrementCapacity(ctx, "missing", 1)
	require.ErrorIs(t, err, repository.ErrSlotNotFound)

	_, err = m.DecrementCapacity(ctx, "slot-1", 0)
	require.ErrorIs(t, err, repository.ErrInvalidAmount)

	s, err = m.IncrementCapacity(ctx, "slot-1", 10)
	require.NoError(t, err)
	require.Equal(t, 5, s.AvailableCapacity, "increment clamps at max capacity")
}

func TestMemory_ConcurrentDecrementNeverOverbooks(t *testing.T) {
	ctx := context.Background()
	m := repository.NewMemory()
	seed(t, m, 7)

	var (
		wg      sync.WaitGroup
		granted atomic.Int64
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.DecrementCapacity(ctx, "slot-1", 2); err == nil {
				granted.Add(2)
			}
		}()
	}
	wg.Wait()

	s, err := m.GetSlot(ctx, "slot-1")
	require.NoError(t, err)
	require.Equal(t, int64(6), granted.Load())
	require.Equal(t, 1, s.AvailableCapacity)
}

func TestMemory_SlotsOrderingAndDuplicates(t *testing.T) {
	ctx := context.Background()
	m := repository.NewMemory()
	seed(t, m, 4)

	require.NoError(t, m.CreateSlots(ctx, []model.AvailabilitySlot{
		{ID: "slot-b", ExperienceID: "exp-1", Date: "2030-06-01", StartTime: "07:30", EndTime: "08:30", AvailableCapacity: 1, MaxCapacity: 1},
		{ID: "slot-a", ExperienceID: "exp-1", Date: "2030-06-01", StartTime: "13:00", EndTime: "14:00", AvailableCapacity: 0, MaxCapacity: 2},
	}))

	err := m.CreateSlots(ctx, []model.AvailabilitySlot{
		{ID: "slot-x", ExperienceID: "exp-1", Date: "2030-06-01", StartTime: "09:00", EndTime: "10:00", AvailableCapacity: 1, MaxCapacity: 1},
	})
	require.ErrorIs(t, err, repository.ErrSlotExists)

	slots, err := m.GetSlots(ctx, "exp-1", "2030-06-01")
	require.NoError(t, err)
	require.Len(t, slots, 3, "exhausted slots are still returned")
	require.Equal(t, []string{"07:30", "09:00", "13:00"}, []string{slots[0].StartTime, slots[1].StartTime, slots[2].StartTime})

	n, err := m.ArchiveBefore(ctx, "2030-06-02")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	slots, err = m.GetSlots(ctx, "exp-1", "2030-06-01")
	require.NoError(t, err)
	require.Empty(t, slots)

	_, err = m.DecrementCapacity(ctx, "slot-1", 1)
	require.ErrorIs(t, err, repository.ErrSlotNotFound)
}

func TestMemory_BookingCompareAndSet(t *testing.T) {
	ctx := context.Background()
	m := repository.NewMemory()
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	b := &model.Booking{ID: "b-1", UserID: "u-1", HostID: "h-1", ExperienceID: "exp-1",
		BookingDate: "2030-06-01", Status: model.StatusPending, CreatedAt: now}
	require.NoError(t, m.InsertBooking(ctx, b))
	require.NoError(t, m.InsertBooking(ctx, &model.Booking{ID: "b-2", UserID: "u-2", HostID: "h-1",
		BookingDate: "2030-05-01", Status: model.StatusConfirmed, CreatedAt: now.Add(time.Hour)}))

	upd := *b
	upd.Status = model.StatusConfirmed
	require.NoError(t, m.UpdateBooking(ctx, &upd))
	require.Equal(t, 1, upd.Version)

	// A writer still holding version 0 loses even though the status it read is unchanged.
	stale := *b
	stale.Status = model.StatusCancelledUser
	require.ErrorIs(t, m.UpdateBooking(ctx, &stale), repository.ErrStaleBooking)
	require.ErrorIs(t, m.UpdateBooking(ctx, &model.Booking{ID: "nope"}), repository.ErrNotFound)

	got, err := m.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	require.Equal(t, model.StatusConfirmed, got.Status)
	require.Equal(t, 1, got.Version)

	all, err := m.ListBookings(ctx, repository.BookingFilter{HostID: "h-1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "b-2", all[0].ID, "newest first")

	due, err := m.ListBookings(ctx, repository.BookingFilter{
		Statuses:   []model.BookingStatus{model.StatusConfirmed},
		DateBefore: "2030-05-15",
	})
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "b-2", due[0].ID)
}
