package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

// MaxOccurrences caps how many concrete slots one recurring template may produce.
const MaxOccurrences = 366

// ErrInvalidTemplate wraps every Expand validation failure.
var ErrInvalidTemplate = errors.New("invalid slot template")

// Template is a host's request for one slot or a recurring series of slots.
type Template struct {
	ExperienceID     string
	Date             string
	StartTime        string
	EndTime          string
	Capacity         int
	PriceOverride    *decimal.Decimal
	WeatherDependent bool
	Pattern          model.RecurrencePattern
	Until            string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTemplate, fmt.Sprintf(format, args...))
}

// Expand turns t into concrete slots, one per occurrence from t.Date through t.Until.
// Every occurrence gets its own id and full capacity; recurring ones share a series id.
func Expand(t Template, newID func() string, now time.Time) ([]model.AvailabilitySlot, error) {
	start, err := NormalizeClock(t.StartTime)
	if err != nil {
		return nil, invalid("%v", err)
	}
	end, err := NormalizeClock(t.EndTime)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if start >= end {
		return nil, invalid("start_time must be before end_time")
	}
	if t.Capacity < 1 {
		return nil, invalid("capacity must be at least 1")
	}
	if t.PriceOverride != nil && t.PriceOverride.IsNegative() {
		return nil, invalid("price_override cannot be negative")
	}
	first, err := ParseDate(t.Date)
	if err != nil {
		return nil, invalid("%v", err)
	}

	pattern := t.Pattern
	if pattern == "" {
		pattern = model.RecurNone
	}

	var step int
	last := first
	switch pattern {
	case model.RecurNone:
	case model.RecurDaily, model.RecurWeekly:
		step = 1
		if pattern == model.RecurWeekly {
			step = 7
		}
		if t.Until == "" {
			return nil, invalid("until is required for %s recurrence", pattern)
		}
		if last, err = ParseDate(t.Until); err != nil {
			return nil, invalid("%v", err)
		}
		if last.Before(first) {
			return nil, invalid("until must not be before date")
		}
	default:
		return nil, invalid("unknown recurrence %q", pattern)
	}

	var series *string
	if pattern != model.RecurNone {
		id := newID()
		series = &id
	}

	var out []model.AvailabilitySlot
	for d := first; !d.After(last); d = d.AddDate(0, 0, max(step, 1)) {
		if len(out) == MaxOccurrences {
			return nil, invalid("recurrence produces more than %d slots", MaxOccurrences)
		}
		out = append(out, model.AvailabilitySlot{
			ID:                newID(),
			ExperienceID:      t.ExperienceID,
			Date:              d.Format(DateLayout),
			StartTime:         start,
			EndTime:           end,
			AvailableCapacity: t.Capacity,
			MaxCapacity:       t.Capacity,
			PriceOverride:     t.PriceOverride,
			WeatherDependent:  t.WeatherDependent,
			Recurrence:        pattern,
			SeriesID:          series,
			CreatedAt:         now,
		})
	}
	return out, nil
}
