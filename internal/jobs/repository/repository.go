// Package repository provides pgx-backed persistence for jobs and bids.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobNotFoundMsg = "job not found"

// concurrentUpdateMsg is returned when a guarded update matches no row:
// another request won the race between our read and our write.
const concurrentUpdateMsg = "job was modified concurrently, please retry"

// Repository is the pgx implementation of Store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new jobs repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const jobColumns = `
	id, dealer_id, title, description,
	customer_name, customer_email, customer_phone, site_lat, site_lng,
	final_price_cents, price_locked, status, assigned_technician_id,
	soft_locked_at, soft_lock_expires_at, soft_locked_by,
	rejected_technician_ids, last_rejected_at,
	completion_code, code_expires_at, code_verified_at,
	started_at, completed_at, estimated_duration_minutes, cancel_reason,
	version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var j Job
	var status string
	err := row.Scan(
		&j.ID, &j.DealerID, &j.Title, &j.Description,
		&j.CustomerName, &j.CustomerEmail, &j.CustomerPhone, &j.SiteLat, &j.SiteLng,
		&j.FinalPriceCents, &j.PriceLocked, &status, &j.AssignedTechnicianID,
		&j.SoftLockedAt, &j.SoftLockExpiresAt, &j.SoftLockedByTechnicianID,
		&j.RejectedTechnicianIDs, &j.LastRejectedAt,
		&j.CompletionCode, &j.CodeExpiresAt, &j.CodeVerifiedAt,
		&j.StartedAt, &j.CompletedAt, &j.EstimatedDurationMinutes, &j.CancelReason,
		&j.Version, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return Job{}, err
	}
	j.Status = domain.Status(status)
	return j, nil
}

// CreateJob inserts a new job in pending status.
func (r *Repository) CreateJob(ctx context.Context, job Job) (Job, error) {
	query := `
		INSERT INTO jobs (
			dealer_id, title, description,
			customer_name, customer_email, customer_phone, site_lat, site_lng,
			final_price_cents, estimated_duration_minutes, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending')
		RETURNING ` + jobColumns

	row := r.pool.QueryRow(ctx, query,
		job.DealerID, job.Title, job.Description,
		job.CustomerName, job.CustomerEmail, job.CustomerPhone, job.SiteLat, job.SiteLng,
		job.FinalPriceCents, job.EstimatedDurationMinutes,
	)
	created, err := scanJob(row)
	if err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	return created, nil
}

// GetJob retrieves a job by id.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, apperr.NotFound(jobNotFoundMsg)
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (r *Repository) ListJobs(ctx context.Context, filter ListFilter) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []any{}

	if filter.DealerID != nil {
		args = append(args, *filter.DealerID)
		query += fmt.Sprintf(" AND dealer_id = $%d", len(args))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		query += fmt.Sprintf(" AND assigned_technician_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// AcquireSoftLock performs the whole acquisition as one transaction: the
// guarded job update, the ACCEPTED bid insert, and the sibling rejection.
// Two concurrent acceptors can both read a pending job, but only the first
// guarded update matches; the loser gets a conflict without mutating anything.
func (r *Repository) AcquireSoftLock(ctx context.Context, p AcquireLockParams) (Job, Bid, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Job{}, Bid{}, fmt.Errorf("begin acquire soft lock: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		UPDATE jobs SET
			status = 'soft_locked',
			soft_locked_by = $3,
			soft_locked_at = $4,
			soft_lock_expires_at = $5,
			assigned_technician_id = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		  AND status IN ('pending', 'soft_locked')
		RETURNING ` + jobColumns

	job, err := scanJob(tx.QueryRow(ctx, query,
		p.JobID, p.ExpectedVersion, p.TechnicianID, p.LockedAt, p.ExpiresAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, Bid{}, apperr.Conflict(concurrentUpdateMsg)
	}
	if err != nil {
		return Job{}, Bid{}, fmt.Errorf("acquire soft lock: %w", err)
	}

	// Sibling pending/countered bids lose the round.
	if _, err := tx.Exec(ctx, `
		UPDATE bids SET status = 'rejected'
		WHERE job_id = $1 AND technician_id <> $2 AND status IN ('pending', 'countered')`,
		p.JobID, p.TechnicianID,
	); err != nil {
		return Job{}, Bid{}, fmt.Errorf("reject sibling bids: %w", err)
	}

	// Re-confirmation by the same holder reuses its accepted bid.
	var bid Bid
	err = scanBid(tx.QueryRow(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE job_id = $1 AND technician_id = $2 AND status = 'accepted'
		ORDER BY created_at DESC LIMIT 1`,
		p.JobID, p.TechnicianID), &bid)
	if errors.Is(err, pgx.ErrNoRows) {
		err = scanBid(tx.QueryRow(ctx, `
			INSERT INTO bids (job_id, technician_id, offered_price_cents, status, round_number, distance_km, rating_snapshot)
			VALUES ($1, $2, $3, 'accepted', $4, $5, $6)
			RETURNING `+bidColumns,
			p.JobID, p.TechnicianID, p.OfferedPriceCents, p.RoundNumber, p.DistanceKm, p.RatingSnapshot), &bid)
	}
	if err != nil {
		return Job{}, Bid{}, fmt.Errorf("record accepted bid: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Job{}, Bid{}, fmt.Errorf("commit acquire soft lock: %w", err)
	}
	return job, bid, nil
}

// RenewSoftLock pushes the lock expiry forward for the current holder.
func (r *Repository) RenewSoftLock(ctx context.Context, jobID uuid.UUID, expectedVersion int64, expiresAt time.Time) (Job, error) {
	query := `
		UPDATE jobs SET
			soft_lock_expires_at = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status = 'soft_locked'
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "renew soft lock", query, jobID, expectedVersion, expiresAt)
}

// ConfirmAssignment finalizes the soft-locked technician and locks the price.
func (r *Repository) ConfirmAssignment(ctx context.Context, jobID uuid.UUID, expectedVersion int64) (Job, error) {
	query := `
		UPDATE jobs SET
			status = 'assigned',
			price_locked = TRUE,
			soft_locked_by = NULL,
			soft_locked_at = NULL,
			soft_lock_expires_at = NULL,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status = 'soft_locked'
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "confirm assignment", query, jobID, expectedVersion)
}

// RecordRejection books the technician's rejection and releases their lock.
func (r *Repository) RecordRejection(ctx context.Context, jobID uuid.UUID, technicianID uuid.UUID, expectedVersion int64, rejectedAt time.Time) (Job, error) {
	query := `
		UPDATE jobs SET
			status = 'pending',
			soft_locked_by = NULL,
			soft_locked_at = NULL,
			soft_lock_expires_at = NULL,
			assigned_technician_id = NULL,
			rejected_technician_ids = array_append(
				array_remove(rejected_technician_ids, $3), $3),
			last_rejected_at = $4,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status IN ('pending', 'soft_locked')
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "record rejection", query, jobID, expectedVersion, technicianID, rejectedAt)
}

// StartWork transitions assigned -> in_progress.
func (r *Repository) StartWork(ctx context.Context, jobID uuid.UUID, expectedVersion int64, startedAt time.Time) (Job, error) {
	query := `
		UPDATE jobs SET
			status = 'in_progress',
			started_at = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status = 'assigned'
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "start work", query, jobID, expectedVersion, startedAt)
}

// SetCompletionCode stores a fresh code, overwriting any prior unverified one.
func (r *Repository) SetCompletionCode(ctx context.Context, jobID uuid.UUID, expectedVersion int64, code string, expiresAt time.Time) (Job, error) {
	query := `
		UPDATE jobs SET
			completion_code = $3,
			code_expires_at = $4,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		  AND status = 'in_progress' AND code_verified_at IS NULL
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "set completion code", query, jobID, expectedVersion, code, expiresAt)
}

// MarkCompletionVerified consumes the code exactly once. The
// code_verified_at IS NULL guard makes double-consumption impossible even
// under concurrent verify calls.
func (r *Repository) MarkCompletionVerified(ctx context.Context, jobID uuid.UUID, expectedVersion int64, verifiedAt time.Time) (Job, error) {
	query := `
		UPDATE jobs SET
			status = 'completion_pending_approval',
			code_verified_at = $3,
			completed_at = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		  AND status = 'in_progress' AND code_verified_at IS NULL
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "mark completion verified", query, jobID, expectedVersion, verifiedAt)
}

// ApproveCompletion transitions completion_pending_approval -> completed.
func (r *Repository) ApproveCompletion(ctx context.Context, jobID uuid.UUID, expectedVersion int64) (Job, error) {
	query := `
		UPDATE jobs SET
			status = 'completed',
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2 AND status = 'completion_pending_approval'
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "approve completion", query, jobID, expectedVersion)
}

// CancelJob transitions any non-terminal status to cancelled.
func (r *Repository) CancelJob(ctx context.Context, jobID uuid.UUID, expectedVersion int64, reason string) (Job, error) {
	query := `
		UPDATE jobs SET
			status = 'cancelled',
			cancel_reason = NULLIF($3, ''),
			soft_locked_by = NULL,
			soft_locked_at = NULL,
			soft_lock_expires_at = NULL,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		  AND status NOT IN ('completed', 'cancelled')
		RETURNING ` + jobColumns

	return r.guardedUpdate(ctx, "cancel job", query, jobID, expectedVersion, reason)
}

func (r *Repository) guardedUpdate(ctx context.Context, op, query string, jobID uuid.UUID, expectedVersion int64, extra ...any) (Job, error) {
	args := append([]any{jobID, expectedVersion}, extra...)
	job, err := scanJob(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, apperr.Conflict(concurrentUpdateMsg)
	}
	if err != nil {
		return Job{}, fmt.Errorf("%s: %w", op, err)
	}
	return job, nil
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)
