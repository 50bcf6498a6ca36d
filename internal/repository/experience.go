package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

// ExperienceRepository handles persistence for experiences.
type ExperienceRepository struct {
	db *pgxpool.Pool
}

// NewExperienceRepository constructs an ExperienceRepository.
func NewExperienceRepository(db *pgxpool.Pool) *ExperienceRepository {
	return &ExperienceRepository{db: db}
}

// CreateExperience inserts e. The caller assigns the id and timestamps.
func (r *ExperienceRepository) CreateExperience(ctx context.Context, e *model.Experience) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO experiences (id, host_id, title, price_per_person, min_guests, max_guests, duration_minutes, created_at)
		 VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8)`,
		e.ID, e.HostID, e.Title, e.PricePerPerson.String(), e.MinGuests, e.MaxGuests, e.DurationMinutes, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert experience: %w", err)
	}
	return nil
}

// GetExperience returns a single experience or ErrNotFound.
func (r *ExperienceRepository) GetExperience(ctx context.Context, id string) (*model.Experience, error) {
	var (
		e     model.Experience
		price string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, host_id, title, price_per_person::text, min_guests, max_guests, duration_minutes, created_at
		 FROM experiences WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.HostID, &e.Title, &price, &e.MinGuests, &e.MaxGuests, &e.DurationMinutes, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get experience: %w", err)
	}
	if e.PricePerPerson, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse experience price: %w", err)
	}
	return &e, nil
}
