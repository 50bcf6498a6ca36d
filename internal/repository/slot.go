package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

const slotColumns = `id, experience_id, to_char(slot_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	available_capacity, max_capacity, price_override::text, weather_dependent,
	recurrence, series_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*model.AvailabilitySlot, error) {
	var (
		s     model.AvailabilitySlot
		price *string
		recur string
	)
	err := row.Scan(
		&s.ID, &s.ExperienceID, &s.Date, &s.StartTime, &s.EndTime,
		&s.AvailableCapacity, &s.MaxCapacity, &price, &s.WeatherDependent,
		&recur, &s.SeriesID, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Recurrence = model.RecurrencePattern(recur)
	if price != nil {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("parse price override: %w", err)
		}
		s.PriceOverride = &p
	}
	return &s, nil
}

func priceParam(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	s := p.String()
	return &s
}

// SlotRepository handles persistence for availability slots.
type SlotRepository struct {
	db *pgxpool.Pool
}

// NewSlotRepository constructs a SlotRepository.
func NewSlotRepository(db *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db: db}
}

// CreateSlots inserts all slots in one transaction; a duplicate start time rejects the batch.
func (r *SlotRepository) CreateSlots(ctx context.Context, slots []model.AvailabilitySlot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, s := range slots {
		_, err = tx.Exec(ctx,
			`INSERT INTO availability_slots (id, experience_id, slot_date, start_time, end_time,
			    available_capacity, max_capacity, price_override, weather_dependent, recurrence,
			    series_id, created_at, updated_at)
			 VALUES ($1, $2, $3::text::date, $4::text::time, $5::text::time, $6, $7,
			    $8::text::numeric, $9, $10, $11, $12, $12)`,
			s.ID, s.ExperienceID, s.Date, s.StartTime, s.EndTime,
			s.AvailableCapacity, s.MaxCapacity, priceParam(s.PriceOverride), s.WeatherDependent,
			string(s.Recurrence), s.SeriesID, s.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert slot %s %s: %w", s.Date, s.StartTime, translate(err))
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetSlot returns a single slot, archived or not, or ErrSlotNotFound.
func (r *SlotRepository) GetSlot(ctx context.Context, id string) (*model.AvailabilitySlot, error) {
	s, err := scanSlot(r.db.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM availability_slots WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return s, nil
}

// GetSlots returns all live slots of an experience on date.
func (r *SlotRepository) GetSlots(ctx context.Context, experienceID, date string) ([]model.AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+slotColumns+`
		 FROM availability_slots
		 WHERE experience_id = $1 AND slot_date = $2::text::date AND NOT archived
		 ORDER BY start_time ASC, id ASC`,
		experienceID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []model.AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

// DecrementCapacity takes amount guests from a slot inside a transaction.
//
// SELECT ... FOR UPDATE takes a row-level lock on the slot, so concurrent reservations for
// the same slot queue behind each other and each one sees the capacity left by the previous
// commit. Reservations on other slots are not blocked. The slot_capacity_bounds CHECK
// constraint backs the guard below.
func (r *SlotRepository) DecrementCapacity(ctx context.Context, slotID string, amount int) (*model.AvailabilitySlot, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var available int
	err = tx.QueryRow(ctx,
		`SELECT available_capacity
		 FROM availability_slots
		 WHERE id = $1 AND NOT archived
		 FOR UPDATE`,
		slotID,
	).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("lock slot row: %w", err)
	}
	if available < amount {
		return nil, ErrInsufficientCapacity
	}

	slot, err := scanSlot(tx.QueryRow(ctx,
		`UPDATE availability_slots
		 SET available_capacity = available_capacity - $2, updated_at = $3
		 WHERE id = $1
		 RETURNING `+slotColumns,
		slotID, amount, time.Now().UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("decrement capacity: %w", translate(err))
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return slot, nil
}

// IncrementCapacity returns amount guests to a slot, never above max_capacity.
func (r *SlotRepository) IncrementCapacity(ctx context.Context, slotID string, amount int) (*model.AvailabilitySlot, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	slot, err := scanSlot(r.db.QueryRow(ctx,
		`UPDATE availability_slots
		 SET available_capacity = LEAST(max_capacity, available_capacity + $2), updated_at = $3
		 WHERE id = $1
		 RETURNING `+slotColumns,
		slotID, amount, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("increment capacity: %w", err)
	}
	return slot, nil
}

// ArchiveBefore marks slots dated before date as archived.
func (r *SlotRepository) ArchiveBefore(ctx context.Context, date string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE availability_slots
		 SET archived = TRUE, updated_at = $2
		 WHERE slot_date < $1::text::date AND NOT archived`,
		date, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("archive slots: %w", err)
	}
	return tag.RowsAffected(), nil
}
