package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
	"github.com/omarkt13/SeaFable-v01-sub000/internal/repository"
)

// Query answers "which slots can this party book on this day". It never mutates the store.
type Query struct {
	slots repository.SlotReader
	loc   *time.Location
}

// NewQuery returns a Query reading from slots. Slot dates and times are interpreted in loc.
func NewQuery(slots repository.SlotReader, loc *time.Location) *Query {
	if loc == nil {
		loc = time.UTC
	}
	return &Query{slots: slots, loc: loc}
}

// Location returns the zone slot times are interpreted in.
func (q *Query) Location() *time.Location { return q.loc }

// FindEligibleSlots returns the slots of experienceID on date that can hold guests and start
// strictly after now, ordered by start time then id. No match is an empty slice, not an error.
func (q *Query) FindEligibleSlots(ctx context.Context, experienceID, date string, guests int, now time.Time) ([]model.AvailabilitySlot, error) {
	all, err := q.slots.GetSlots(ctx, experienceID, date)
	if err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}

	eligible := make([]model.AvailabilitySlot, 0, len(all))
	for _, s := range all {
		if s.Date != date || s.AvailableCapacity < guests {
			continue
		}
		start, err := Combine(s.Date, s.StartTime, q.loc)
		if err != nil || !start.After(now) {
			continue
		}
		eligible = append(eligible, s)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].StartTime != eligible[j].StartTime {
			return eligible[i].StartTime < eligible[j].StartTime
		}
		return eligible[i].ID < eligible[j].ID
	})
	return eligible, nil
}
