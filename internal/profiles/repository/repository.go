// Package repository provides pgx-backed persistence for technician and
// dealer profiles.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldserve_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Technician is a field technician profile. The trust fields are owned by
// the trust engine; everything else is self-service.
type Technician struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         string
	Lat           *float64
	Lng           *float64
	Rating        *float64
	TotalJobs     int
	CompletedJobs int
	CancelledJobs int
	TrustScore    float64
	TrustStatus   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Dealer is a dealer profile.
type Dealer struct {
	ID          uuid.UUID
	Name        string
	CompanyName string
	Email       string
	Phone       string
	TrustScore  float64
	TrustStatus string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const technicianColumns = `
	id, name, email, phone, lat, lng, rating,
	total_jobs, completed_jobs, cancelled_jobs, trust_score, trust_status,
	created_at, updated_at`

func scanTechnician(row pgx.Row) (Technician, error) {
	var t Technician
	err := row.Scan(
		&t.ID, &t.Name, &t.Email, &t.Phone, &t.Lat, &t.Lng, &t.Rating,
		&t.TotalJobs, &t.CompletedJobs, &t.CancelledJobs, &t.TrustScore, &t.TrustStatus,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// CreateTechnician inserts a technician profile with the baseline trust score.
func (r *Repository) CreateTechnician(ctx context.Context, t Technician) (Technician, error) {
	created, err := scanTechnician(r.pool.QueryRow(ctx, `
		INSERT INTO technicians (name, email, phone, lat, lng)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+technicianColumns,
		t.Name, t.Email, t.Phone, t.Lat, t.Lng))
	if err != nil {
		return Technician{}, fmt.Errorf("create technician: %w", err)
	}
	return created, nil
}

// GetTechnician retrieves a technician profile by id.
func (r *Repository) GetTechnician(ctx context.Context, id uuid.UUID) (Technician, error) {
	t, err := scanTechnician(r.pool.QueryRow(ctx,
		`SELECT `+technicianColumns+` FROM technicians WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Technician{}, apperr.NotFound("technician not found")
	}
	if err != nil {
		return Technician{}, fmt.Errorf("get technician: %w", err)
	}
	return t, nil
}

// UpdateTechnician updates the self-service fields of a profile.
func (r *Repository) UpdateTechnician(ctx context.Context, t Technician) (Technician, error) {
	updated, err := scanTechnician(r.pool.QueryRow(ctx, `
		UPDATE technicians SET
			name = $2, email = $3, phone = $4, lat = $5, lng = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING `+technicianColumns,
		t.ID, t.Name, t.Email, t.Phone, t.Lat, t.Lng))
	if errors.Is(err, pgx.ErrNoRows) {
		return Technician{}, apperr.NotFound("technician not found")
	}
	if err != nil {
		return Technician{}, fmt.Errorf("update technician: %w", err)
	}
	return updated, nil
}

// IncrementCompletedJobs bumps the completed-jobs counter and raises
// total_jobs so it never lags behind it.
func (r *Repository) IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE technicians SET
			completed_jobs = completed_jobs + 1,
			total_jobs = GREATEST(total_jobs, completed_jobs + 1),
			updated_at = now()
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment completed jobs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("technician not found")
	}
	return nil
}

// IncrementCancelledJobs bumps the cancelled-jobs counter.
func (r *Repository) IncrementCancelledJobs(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE technicians SET cancelled_jobs = cancelled_jobs + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment cancelled jobs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("technician not found")
	}
	return nil
}

// SetRating overwrites the technician's average rating.
func (r *Repository) SetRating(ctx context.Context, id uuid.UUID, rating float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE technicians SET rating = $2, updated_at = now() WHERE id = $1`, id, rating)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("technician not found")
	}
	return nil
}

const dealerColumns = `
	id, name, company_name, email, phone, trust_score, trust_status,
	created_at, updated_at`

func scanDealer(row pgx.Row) (Dealer, error) {
	var d Dealer
	err := row.Scan(
		&d.ID, &d.Name, &d.CompanyName, &d.Email, &d.Phone,
		&d.TrustScore, &d.TrustStatus, &d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

// CreateDealer inserts a dealer profile.
func (r *Repository) CreateDealer(ctx context.Context, d Dealer) (Dealer, error) {
	created, err := scanDealer(r.pool.QueryRow(ctx, `
		INSERT INTO dealers (name, company_name, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING `+dealerColumns,
		d.Name, d.CompanyName, d.Email, d.Phone))
	if err != nil {
		return Dealer{}, fmt.Errorf("create dealer: %w", err)
	}
	return created, nil
}

// GetDealer retrieves a dealer profile by id.
func (r *Repository) GetDealer(ctx context.Context, id uuid.UUID) (Dealer, error) {
	d, err := scanDealer(r.pool.QueryRow(ctx,
		`SELECT `+dealerColumns+` FROM dealers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Dealer{}, apperr.NotFound("dealer not found")
	}
	if err != nil {
		return Dealer{}, fmt.Errorf("get dealer: %w", err)
	}
	return d, nil
}
