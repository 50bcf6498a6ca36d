package repository

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

type slotEntry struct {
	mu       sync.Mutex
	slot     model.AvailabilitySlot
	archived bool
}

type dayKey struct {
	experienceID string
	date         string
}

// Memory is an in-process implementation of ExperienceStore, SlotStore and BookingLedger.
// Capacity changes lock only the affected slot; the index lock is held just long enough
// to find it.
type Memory struct {
	mu          sync.RWMutex
	experiences map[string]model.Experience
	slots       map[string]*slotEntry
	days        map[dayKey][]string

	bookingsMu sync.RWMutex
	bookings   map[string]model.Booking
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		experiences: make(map[string]model.Experience),
		slots:       make(map[string]*slotEntry),
		days:        make(map[dayKey][]string),
		bookings:    make(map[string]model.Booking),
	}
}

// CreateExperience stores e, replacing any experience with the same id.
func (m *Memory) CreateExperience(_ context.Context, e *model.Experience) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.experiences[e.ID] = *e
	return nil
}

// GetExperience returns a copy of the experience or ErrNotFound.
func (m *Memory) GetExperience(_ context.Context, id string) (*model.Experience, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.experiences[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// CreateSlots inserts all slots or none. A duplicate start time returns ErrSlotExists.
func (m *Memory) CreateSlots(_ context.Context, slots []model.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[[3]string]bool, len(slots))
	for _, s := range slots {
		if _, ok := m.experiences[s.ExperienceID]; !ok {
			return ErrNotFound
		}
		k := [3]string{s.ExperienceID, s.Date, s.StartTime}
		if seen[k] {
			return ErrSlotExists
		}
		seen[k] = true
		for _, id := range m.days[dayKey{s.ExperienceID, s.Date}] {
			if m.slots[id].slot.StartTime == s.StartTime {
				return ErrSlotExists
			}
		}
	}
	for _, s := range slots {
		m.slots[s.ID] = &slotEntry{slot: s}
		k := dayKey{s.ExperienceID, s.Date}
		m.days[k] = append(m.days[k], s.ID)
	}
	return nil
}

func (m *Memory) entry(id string) (*slotEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.slots[id]
	return e, ok
}

// GetSlot returns a copy of the slot, archived or not, or ErrSlotNotFound.
func (m *Memory) GetSlot(_ context.Context, id string) (*model.AvailabilitySlot, error) {
	e, ok := m.entry(id)
	if !ok {
		return nil, ErrSlotNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.slot
	return &s, nil
}

// GetSlots returns the non-archived slots of an experience on date ordered by start time.
func (m *Memory) GetSlots(_ context.Context, experienceID, date string) ([]model.AvailabilitySlot, error) {
	m.mu.RLock()
	ids := slices.Clone(m.days[dayKey{experienceID, date}])
	entries := make([]*slotEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, m.slots[id])
	}
	m.mu.RUnlock()

	out := make([]model.AvailabilitySlot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.archived {
			out = append(out, e.slot)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DecrementCapacity takes amount from the slot or returns ErrInsufficientCapacity.
func (m *Memory) DecrementCapacity(_ context.Context, slotID string, amount int) (*model.AvailabilitySlot, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	e, ok := m.entry(slotID)
	if !ok {
		return nil, ErrSlotNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.archived {
		return nil, ErrSlotNotFound
	}
	if e.slot.AvailableCapacity < amount {
		return nil, ErrInsufficientCapacity
	}
	e.slot.AvailableCapacity -= amount
	s := e.slot
	return &s, nil
}

// IncrementCapacity gives amount back to the slot, capped at its max capacity.
func (m *Memory) IncrementCapacity(_ context.Context, slotID string, amount int) (*model.AvailabilitySlot, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	e, ok := m.entry(slotID)
	if !ok {
		return nil, ErrSlotNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.slot.AvailableCapacity = min(e.slot.MaxCapacity, e.slot.AvailableCapacity+amount)
	s := e.slot
	return &s, nil
}

// ArchiveBefore hides slots dated before date and returns how many it archived.
func (m *Memory) ArchiveBefore(_ context.Context, date string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.slots {
		e.mu.Lock()
		if !e.archived && e.slot.Date < date {
			e.archived = true
			n++
		}
		e.mu.Unlock()
	}
	return n, nil
}

// InsertBooking records b.
func (m *Memory) InsertBooking(_ context.Context, b *model.Booking) error {
	m.bookingsMu.Lock()
	defer m.bookingsMu.Unlock()
	m.bookings[b.ID] = *b
	return nil
}

// GetBooking returns a copy of the booking or ErrNotFound.
func (m *Memory) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	m.bookingsMu.RLock()
	defer m.bookingsMu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

// UpdateBooking compares b.Version with the stored version and writes b's mutable fields.
func (m *Memory) UpdateBooking(_ context.Context, b *model.Booking) error {
	m.bookingsMu.Lock()
	defer m.bookingsMu.Unlock()
	cur, ok := m.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != b.Version {
		return ErrStaleBooking
	}
	cur.SlotID = b.SlotID
	cur.BookingDate = b.BookingDate
	cur.DepartureTime = b.DepartureTime
	cur.TotalPrice = b.TotalPrice
	cur.Status = b.Status
	cur.PaymentStatus = b.PaymentStatus
	cur.UpdatedAt = b.UpdatedAt
	cur.Version++
	m.bookings[b.ID] = cur
	b.Version = cur.Version
	return nil
}

// ListBookings returns bookings matching f, newest first.
func (m *Memory) ListBookings(_ context.Context, f BookingFilter) ([]model.Booking, error) {
	m.bookingsMu.RLock()
	defer m.bookingsMu.RUnlock()
	var out []model.Booking
	for _, b := range m.bookings {
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		if f.HostID != "" && b.HostID != f.HostID {
			continue
		}
		if f.ExperienceID != "" && b.ExperienceID != f.ExperienceID {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
			continue
		}
		if f.DateBefore != "" && b.BookingDate >= f.DateBefore {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

var (
	_ ExperienceStore = (*Memory)(nil)
	_ SlotStore       = (*Memory)(nil)
	_ BookingLedger   = (*Memory)(nil)
	_ ExperienceStore = (*ExperienceRepository)(nil)
	_ SlotStore       = (*SlotRepository)(nil)
	_ BookingLedger   = (*BookingRepository)(nil)
)
