package model

import "github.com/shopspring/decimal"

// CreateExperienceRequest is the payload a host sends to publish an experience.
type CreateExperienceRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	// PricePerPerson must be sent; "0" publishes a free experience.
	PricePerPerson  *decimal.Decimal `json:"price_per_person" validate:"required"`
	MinGuests       int              `json:"min_guests" validate:"required,min=1"`
	MaxGuests       int              `json:"max_guests" validate:"required,min=1"`
	DurationMinutes int              `json:"duration_minutes" validate:"required,min=1"`
}

// RecurrenceRequest describes how a slot template repeats.
type RecurrenceRequest struct {
	Pattern RecurrencePattern `json:"pattern" validate:"omitempty,oneof=none daily weekly"`
	Until   string            `json:"until,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CreateSlotsRequest is the payload a host sends to open availability.
type CreateSlotsRequest struct {
	Date             string            `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime        string            `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string            `json:"end_time" validate:"required,datetime=15:04"`
	Capacity         int               `json:"capacity" validate:"required,min=1"`
	PriceOverride    *decimal.Decimal  `json:"price_override,omitempty"`
	WeatherDependent bool              `json:"weather_dependent"`
	Recurrence       RecurrenceRequest `json:"recurrence"`
}

// CreateBookingRequest is the payload a customer sends to reserve a slot.
type CreateBookingRequest struct {
	Date                string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime           string  `json:"start_time" validate:"required,datetime=15:04"`
	Guests              int     `json:"guests" validate:"required,min=1"`
	SpecialRequests     *string `json:"special_requests,omitempty" validate:"omitempty,max=2000"`
	DietaryRequirements *string `json:"dietary_requirements,omitempty" validate:"omitempty,max=2000"`
}

// CancelBookingRequest is the payload for cancelling a booking.
type CancelBookingRequest struct {
	Actor Actor `json:"actor" validate:"required,oneof=user host"`
}

// RescheduleRequest moves a booking to another slot.
type RescheduleRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required,datetime=15:04"`
}
