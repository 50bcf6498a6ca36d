package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/omarkt13/SeaFable-v01-sub000/internal/model"
)

const bookingColumns = `id, user_id, experience_id, host_id, slot_id,
	to_char(booking_date, 'YYYY-MM-DD'), to_char(departure_time, 'HH24:MI'),
	number_of_guests, total_price::text, status, special_requests,
	dietary_requirements, payment_status, version, created_at, updated_at`

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b                     model.Booking
		total, status, paying string
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.ExperienceID, &b.HostID, &b.SlotID,
		&b.BookingDate, &b.DepartureTime, &b.NumberOfGuests, &total, &status,
		&b.SpecialRequests, &b.DietaryRequirements, &paying, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(paying)
	if b.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total price: %w", err)
	}
	return &b, nil
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// InsertBooking creates the booking record.
func (r *BookingRepository) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO bookings (id, user_id, experience_id, host_id, slot_id, booking_date,
		    departure_time, number_of_guests, total_price, status, special_requests,
		    dietary_requirements, payment_status, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6::text::date, $7::text::time, $8, $9::text::numeric,
		    $10, $11, $12, $13, $14, $15, $16)`,
		b.ID, b.UserID, b.ExperienceID, b.HostID, b.SlotID, b.BookingDate,
		b.DepartureTime, b.NumberOfGuests, b.TotalPrice.String(), string(b.Status), b.SpecialRequests,
		b.DietaryRequirements, string(b.PaymentStatus), b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetBooking returns a single booking or ErrNotFound.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// UpdateBooking compares b.Version with the stored version and writes b's mutable fields.
func (r *BookingRepository) UpdateBooking(ctx context.Context, b *model.Booking) error {
	var version int
	err := r.db.QueryRow(ctx,
		`UPDATE bookings
		 SET slot_id = $3, booking_date = $4::text::date, departure_time = $5::text::time,
		     total_price = $6::text::numeric, status = $7, payment_status = $8, updated_at = $9,
		     version = version + 1
		 WHERE id = $1 AND version = $2
		 RETURNING version`,
		b.ID, b.Version, b.SlotID, b.BookingDate, b.DepartureTime,
		b.TotalPrice.String(), string(b.Status), string(b.PaymentStatus), b.UpdatedAt,
	).Scan(&version)
	if err == nil {
		b.Version = version
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("update booking: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, b.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check booking: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleBooking
}

// ListBookings returns bookings matching f, newest first.
func (r *BookingRepository) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.HostID != "" {
		add("host_id = $%d", f.HostID)
	}
	if f.ExperienceID != "" {
		add("experience_id = $%d", f.ExperienceID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}
	if f.DateBefore != "" {
		add("booking_date < $%d::text::date", f.DateBefore)
	}

	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
