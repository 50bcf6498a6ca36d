// Package model defines the core domain types for the adventure booking marketplace.
package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Experience is a bookable offering published by a host.
type Experience struct {
	ID              string          `json:"id"`
	HostID          string          `json:"host_id"`
	Title           string          `json:"title"`
	PricePerPerson  decimal.Decimal `json:"price_per_person"`
	MinGuests       int             `json:"min_guests"`
	MaxGuests       int             `json:"max_guests"`
	DurationMinutes int             `json:"duration_minutes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Validate checks the guest limits and price baseline.
func (e *Experience) Validate() error {
	if e.MinGuests < 1 {
		return errors.New("min_guests must be at least 1")
	}
	if e.MinGuests > e.MaxGuests {
		return errors.New("min_guests cannot exceed max_guests")
	}
	if e.PricePerPerson.IsNegative() {
		return errors.New("price_per_person cannot be negative")
	}
	if e.DurationMinutes <= 0 {
		return errors.New("duration_minutes must be positive")
	}
	return nil
}

// RecurrencePattern describes how a slot template repeats.
type RecurrencePattern string

const (
	RecurNone   RecurrencePattern = "none"
	RecurDaily  RecurrencePattern = "daily"
	RecurWeekly RecurrencePattern = "weekly"
)

// AvailabilitySlot is a concrete bookable date/time window with finite capacity.
// Date is YYYY-MM-DD, StartTime and EndTime are zero-padded HH:MM.
type AvailabilitySlot struct {
	ID                string            `json:"id"`
	ExperienceID      string            `json:"experience_id"`
	Date              string            `json:"date"`
	StartTime         string            `json:"start_time"`
	EndTime           string            `json:"end_time"`
	AvailableCapacity int               `json:"available_capacity"`
	MaxCapacity       int               `json:"max_capacity"`
	PriceOverride     *decimal.Decimal  `json:"price_override,omitempty"`
	WeatherDependent  bool              `json:"weather_dependent"`
	Recurrence        RecurrencePattern `json:"recurrence"`
	SeriesID          *string           `json:"series_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// UnitPrice returns the per-guest price for this slot, preferring the override.
func (s *AvailabilitySlot) UnitPrice(exp *Experience) decimal.Decimal {
	if s.PriceOverride != nil {
		return *s.PriceOverride
	}
	return exp.PricePerPerson
}

// Booked returns the number of guests currently holding this slot.
func (s *AvailabilitySlot) Booked() int {
	return s.MaxCapacity - s.AvailableCapacity
}

// PaymentStatus tracks the payment side of a booking.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Actor identifies which party performs an action on a booking.
type Actor string

const (
	ActorUser Actor = "user"
	ActorHost Actor = "host"
)

// Valid reports whether a is a known actor.
func (a Actor) Valid() bool {
	return a == ActorUser || a == ActorHost
}

// Booking is a customer's reservation against one slot.
type Booking struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	ExperienceID        string          `json:"experience_id"`
	HostID              string          `json:"host_id"`
	SlotID              string          `json:"slot_id"`
	BookingDate         string          `json:"booking_date"`
	DepartureTime       string          `json:"departure_time"`
	NumberOfGuests      int             `json:"number_of_guests"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	Status              BookingStatus   `json:"status"`
	SpecialRequests     *string         `json:"special_requests,omitempty"`
	DietaryRequirements *string         `json:"dietary_requirements,omitempty"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	// Version increases by one on every stored update.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
