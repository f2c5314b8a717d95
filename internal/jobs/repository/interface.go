package repository

import (
	"context"
	"time"

	"fieldserve_backend/internal/jobs/domain"

	"github.com/google/uuid"
)

// Job is the persistent record for a marketplace job.
type Job struct {
	ID       uuid.UUID
	DealerID uuid.UUID

	Title         string
	Description   *string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	SiteLat       float64
	SiteLng       float64

	FinalPriceCents int64
	PriceLocked     bool

	Status               domain.Status
	AssignedTechnicianID *uuid.UUID

	// Soft-lock fields, owned by the coordinator until confirmation.
	SoftLockedAt             *time.Time
	SoftLockExpiresAt        *time.Time
	SoftLockedByTechnicianID *uuid.UUID

	// Rejection-cooldown fields.
	RejectedTechnicianIDs []uuid.UUID
	LastRejectedAt        *time.Time

	// Completion fields.
	CompletionCode           *string
	CodeExpiresAt            *time.Time
	CodeVerifiedAt           *time.Time
	StartedAt                *time.Time
	CompletedAt              *time.Time
	EstimatedDurationMinutes int
	CancelReason             *string

	// Version is the optimistic concurrency token. Every write increments it
	// and is guarded on the value read beforehand.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockExpired reports whether the job's soft lock has formally expired at now.
// A job with no lock set is not considered expired.
func (j Job) LockExpired(now time.Time) bool {
	return j.SoftLockExpiresAt != nil && now.After(*j.SoftLockExpiresAt)
}

// LockHeldBy reports whether technicianID currently holds an unexpired lock.
func (j Job) LockHeldBy(technicianID uuid.UUID, now time.Time) bool {
	return j.Status == domain.StatusSoftLocked &&
		j.SoftLockedByTechnicianID != nil &&
		*j.SoftLockedByTechnicianID == technicianID &&
		!j.LockExpired(now)
}

// WasRejectedBy reports whether the technician previously rejected this job.
func (j Job) WasRejectedBy(technicianID uuid.UUID) bool {
	for _, id := range j.RejectedTechnicianIDs {
		if id == technicianID {
			return true
		}
	}
	return false
}

// BidStatus is the lifecycle state of a bid.
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidCountered BidStatus = "countered"
)

// Bid is a technician's priced claim on a job. Distance and rating are
// snapshots captured at bid time; they are historical context, never updated.
type Bid struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	TechnicianID      uuid.UUID
	OfferedPriceCents int64
	Status            BidStatus
	RoundNumber       int
	DistanceKm        *float64
	RatingSnapshot    *float64
	CreatedAt         time.Time
}

// AcquireLockParams carries everything the atomic soft-lock acquisition needs.
type AcquireLockParams struct {
	JobID             uuid.UUID
	TechnicianID      uuid.UUID
	ExpectedVersion   int64
	LockedAt          time.Time
	ExpiresAt         time.Time
	OfferedPriceCents int64
	RoundNumber       int
	DistanceKm        *float64
	RatingSnapshot    *float64
}

// ListFilter narrows job listings.
type ListFilter struct {
	DealerID     *uuid.UUID
	TechnicianID *uuid.UUID
	Status       *domain.Status
	Limit        int
	Offset       int
}

// Store is the record-store contract the soft-lock coordinator and the
// completion protocol depend on. Every mutating call is a single conditional
// update guarded on the version read beforehand; zero affected rows surfaces
// as a typed conflict so callers can distinguish a lost race from success.
type Store interface {
	CreateJob(ctx context.Context, job Job) (Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)
	ListJobs(ctx context.Context, filter ListFilter) ([]Job, error)

	// AcquireSoftLock atomically locks the job for the technician, creates an
	// ACCEPTED bid at the offered price and rejects all sibling
	// pending/countered bids, all in one transaction keyed on the expected
	// version. Returns a conflict error when the guarded update matches no row.
	AcquireSoftLock(ctx context.Context, p AcquireLockParams) (Job, Bid, error)

	// RenewSoftLock pushes the lock expiry forward without changing the holder.
	RenewSoftLock(ctx context.Context, jobID uuid.UUID, expectedVersion int64, expiresAt time.Time) (Job, error)

	// ConfirmAssignment finalizes the current holder: status assigned, price
	// locked, lock fields cleared.
	ConfirmAssignment(ctx context.Context, jobID uuid.UUID, expectedVersion int64) (Job, error)

	// RecordRejection adds the technician to the rejected set, stamps
	// last_rejected_at, and releases the lock when held by that technician.
	RecordRejection(ctx context.Context, jobID uuid.UUID, technicianID uuid.UUID, expectedVersion int64, rejectedAt time.Time) (Job, error)

	// StartWork transitions assigned -> in_progress and stamps started_at.
	StartWork(ctx context.Context, jobID uuid.UUID, expectedVersion int64, startedAt time.Time) (Job, error)

	// SetCompletionCode stores a fresh code and expiry, overwriting any prior
	// unverified code.
	SetCompletionCode(ctx context.Context, jobID uuid.UUID, expectedVersion int64, code string, expiresAt time.Time) (Job, error)

	// MarkCompletionVerified consumes the code: stamps code_verified_at and
	// completed_at and transitions to completion_pending_approval. The update
	// is additionally guarded on code_verified_at IS NULL so a concurrent
	// verify can never consume the code twice.
	MarkCompletionVerified(ctx context.Context, jobID uuid.UUID, expectedVersion int64, verifiedAt time.Time) (Job, error)

	// ApproveCompletion transitions completion_pending_approval -> completed.
	ApproveCompletion(ctx context.Context, jobID uuid.UUID, expectedVersion int64) (Job, error)

	// CancelJob transitions any non-terminal status to cancelled.
	CancelJob(ctx context.Context, jobID uuid.UUID, expectedVersion int64, reason string) (Job, error)

	// CreateCounterBid records a dealer counter-offer for the next round.
	CreateCounterBid(ctx context.Context, bid Bid) (Bid, error)

	ListBidsForJob(ctx context.Context, jobID uuid.UUID) ([]Bid, error)
}
