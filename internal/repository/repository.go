// Package repository implements persistence for experiences, availability slots and bookings.
// The PostgreSQL stores use pgx directly (no ORM); Memory keeps the same contracts in-process.
package repository

import (
	"context"
	"errors"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

// ErrNotFound is returned when a requested experience or booking does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotNotFound is returned when a referenced slot does not exist.
var ErrSlotNotFound = errors.New("slot not found")

// ErrInsufficientCapacity is returned when a slot cannot hold the requested guests.
var ErrInsufficientCapacity = errors.New("insufficient slot capacity")

// ErrStaleBooking is returned when a booking was updated since it was read.
var ErrStaleBooking = errors.New("booking changed concurrently")

// ErrSlotExists is returned when a slot with the same experience, date and start time exists.
var ErrSlotExists = errors.New("slot already exists")

// ErrInvalidAmount is returned for non-positive capacity adjustments.
var ErrInvalidAmount = errors.New("capacity adjustment must be positive")

// ExperienceStore looks up and registers experiences.
type ExperienceStore interface {
	CreateExperience(ctx context.Context, e *model.Experience) error
	GetExperience(ctx context.Context, id string) (*model.Experience, error)
}

// SlotReader is the read side of SlotStore.
type SlotReader interface {
	// GetSlots returns every non-archived slot of an experience on date, exhausted ones included,
	// ordered by start time then id.
	GetSlots(ctx context.Context, experienceID, date string) ([]model.AvailabilitySlot, error)
}

// SlotStore holds the authoritative capacity state per slot.
type SlotStore interface {
	SlotReader
	CreateSlots(ctx context.Context, slots []model.AvailabilitySlot) error
	GetSlot(ctx context.Context, id string) (*model.AvailabilitySlot, error)
	// DecrementCapacity atomically takes amount from the slot or fails with
	// ErrInsufficientCapacity / ErrSlotNotFound, leaving it untouched.
	DecrementCapacity(ctx context.Context, slotID string, amount int) (*model.AvailabilitySlot, error)
	// IncrementCapacity returns amount to the slot, clamped at its max capacity.
	IncrementCapacity(ctx context.Context, slotID string, amount int) (*model.AvailabilitySlot, error)
	// ArchiveBefore hides every slot dated strictly before date and reports how many changed.
	ArchiveBefore(ctx context.Context, date string) (int64, error)
}

// BookingFilter narrows ListBookings. Zero fields are ignored.
type BookingFilter struct {
	UserID       string
	HostID       string
	ExperienceID string
	Statuses     []model.BookingStatus
	// DateBefore keeps bookings whose booking date is strictly before it (YYYY-MM-DD).
	DateBefore string
}

// BookingLedger is the durable record of bookings.
type BookingLedger interface {
	InsertBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	// UpdateBooking writes the mutable fields of b only if the stored version still equals
	// b.Version, then sets b.Version to the new version. A lost race returns ErrStaleBooking.
	UpdateBooking(ctx context.Context, b *model.Booking) error
	// ListBookings returns matching bookings newest first.
	ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error)
}
