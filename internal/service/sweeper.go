package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/availability"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/reservation"
)

// SweepResult counts what one sweep changed.
type SweepResult struct {
	ArchivedSlots     int64
	CompletedBookings int
}

// Sweeper periodically archives past slots and completes bookings whose day has passed.
type Sweeper struct {
	slots    repository.SlotStore
	bookings repository.BookingLedger
	engine   *reservation.Engine
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

// NewSweeper returns a Sweeper running every interval. A nil loc means UTC.
func NewSweeper(slots repository.SlotStore, bookings repository.BookingLedger, engine *reservation.Engine,
	interval time.Duration, loc *time.Location, log *slog.Logger) *Sweeper {
	if loc == nil {
		loc = time.UTC
	}
	return &Sweeper{
		slots: slots, bookings: bookings, engine: engine,
		interval: interval, loc: loc, now: time.Now, log: log,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if res, err := s.Sweep(ctx); err != nil {
			s.log.Error("sweep failed", "err", err)
		} else if res.ArchivedSlots > 0 || res.CompletedBookings > 0 {
			s.log.Info("sweep done", "archived_slots", res.ArchivedSlots, "completed_bookings", res.CompletedBookings)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep archives slots dated before today and completes confirmed or rescheduled bookings
// dated before today. Bookings that change concurrently are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	today := availability.Today(s.now(), s.loc)

	n, err := s.slots.ArchiveBefore(ctx, today)
	if err != nil {
		return res, fmt.Errorf("archive slots: %w", err)
	}
	res.ArchivedSlots = n

	due, err := s.bookings.ListBookings(ctx, repository.BookingFilter{
		Statuses:   []model.BookingStatus{model.StatusConfirmed, model.StatusRescheduled},
		DateBefore: today,
	})
	if err != nil {
		return res, fmt.Errorf("list due bookings: %w", err)
	}
	for _, b := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		_, err := s.engine.Complete(ctx, b.ID)
		switch {
		case err == nil:
			res.CompletedBookings++
		case errors.Is(err, reservation.ErrInvalidTransition):
		default:
			s.log.Warn("could not complete booking", "booking_id", b.ID, "err", err)
		}
	}
	return res, nil
}
