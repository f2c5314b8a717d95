// Package service implements the job lifecycle: posting, the soft-lock
// acquisition protocol, assignment, and the completion verification flow.
package service

import (
	"context"
	"fmt"
	"time"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/geo"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/phone"

	"github.com/google/uuid"
)

// TechnicianInfo is the slice of a technician profile the coordinator needs:
// contact details for notifications and location/rating for bid snapshots.
type TechnicianInfo struct {
	ID     uuid.UUID
	Name   string
	Email  string
	Phone  string
	Lat    *float64
	Lng    *float64
	Rating *float64
}

// TechnicianDirectory is the profile lookup port, implemented by the
// profiles module.
type TechnicianDirectory interface {
	GetTechnician(ctx context.Context, id uuid.UUID) (TechnicianInfo, error)
	IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error
}

// PaymentLedger records the dealer/platform split when a job completes.
type PaymentLedger interface {
	RecordSplit(ctx context.Context, jobID uuid.UUID, dealerID uuid.UUID, technicianID uuid.UUID, grossCents, technicianCents, platformCents int64) error
}

// technicianShareMultiplier is the fraction of the locked price paid out to
// the technician; the remainder is the platform fee.
const technicianShareMultiplier = 0.90

type Service struct {
	store     repository.Store
	directory TechnicianDirectory
	payments  PaymentLedger
	bus       events.Bus
	cfg       config.JobsConfig
	log       *logger.Logger

	// now is swapped out in tests to control lock expiry and cooldown math.
	now func() time.Time
}

func New(store repository.Store, directory TechnicianDirectory, payments PaymentLedger, bus events.Bus, cfg config.JobsConfig, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		payments:  payments,
		bus:       bus,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Create posts a new job on behalf of a dealer.
func (s *Service) Create(ctx context.Context, dealerID uuid.UUID, req transport.CreateJobRequest) (transport.JobResponse, error) {
	job, err := s.store.CreateJob(ctx, repository.Job{
		DealerID:                 dealerID,
		Title:                    req.Title,
		Description:              req.Description,
		CustomerName:             req.CustomerName,
		CustomerEmail:            req.CustomerEmail,
		CustomerPhone:            phone.NormalizeE164(req.CustomerPhone),
		SiteLat:                  req.SiteLat,
		SiteLng:                  req.SiteLng,
		FinalPriceCents:          req.PriceCents,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
	})
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.bus.Publish(ctx, events.JobPosted{
		BaseEvent: events.NewBaseEvent(),
		JobID:     job.ID,
		DealerID:  job.DealerID,
		Title:     job.Title,
		Price:     job.FinalPriceCents,
	})
	return transport.ToJobResponse(job), nil
}

// Get returns a single job.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return transport.JobResponse{}, err
	}
	return transport.ToJobResponse(job), nil
}

// List returns jobs matching the filter.
func (s *Service) List(ctx context.Context, filter repository.ListFilter) (transport.ListJobsResponse, error) {
	jobs, err := s.store.ListJobs(ctx, filter)
	if err != nil {
		return transport.ListJobsResponse{}, err
	}

	resp := transport.ListJobsResponse{Jobs: make([]transport.JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, transport.ToJobResponse(j))
	}
	resp.Count = len(resp.Jobs)
	return resp, nil
}

// Accept is the soft-lock acquisition protocol. First accept wins: the job is
// provisionally claimed for the lock TTL, during which the dealer must
// confirm. A lock held by someone else blocks the call unless it has expired,
// in which case the job is treated as free again. A technician inside their
// rejection cooldown is refused with the seconds remaining.
func (s *Service) Accept(ctx context.Context, jobID, technicianID uuid.UUID, req transport.AcceptJobRequest) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if err := domain.ValidateJobStateForOperation(job.Status, domain.OpAccept); err != nil {
		return transport.JobResponse{}, err
	}

	now := s.now()
	if job.Status == domain.StatusSoftLocked && !job.LockExpired(now) &&
		job.SoftLockedByTechnicianID != nil && *job.SoftLockedByTechnicianID != technicianID {
		return transport.JobResponse{}, apperr.Conflict("job is currently locked by another technician")
	}

	if remaining := s.cooldownRemaining(job, technicianID, now); remaining > 0 {
		return transport.JobResponse{}, apperr.Cooldown("rejection cooldown active, try again later", remaining)
	}

	tech, err := s.directory.GetTechnician(ctx, technicianID)
	if err != nil {
		return transport.JobResponse{}, fmt.Errorf("lookup technician: %w", err)
	}

	price := job.FinalPriceCents
	if req.OfferedPriceCents != nil {
		price = *req.OfferedPriceCents
	}

	params := repository.AcquireLockParams{
		JobID:             jobID,
		TechnicianID:      technicianID,
		ExpectedVersion:   job.Version,
		LockedAt:          now,
		ExpiresAt:         now.Add(s.cfg.GetSoftLockTTL()),
		OfferedPriceCents: price,
		RoundNumber:       s.nextRound(ctx, jobID),
	}
	if tech.Lat != nil && tech.Lng != nil {
		km := geo.HaversineKm(
			geo.Point{Lat: *tech.Lat, Lng: *tech.Lng},
			geo.Point{Lat: job.SiteLat, Lng: job.SiteLng},
		)
		params.DistanceKm = &km
	}
	params.RatingSnapshot = tech.Rating

	locked, bid, err := s.store.AcquireSoftLock(ctx, params)
	if err != nil {
		s.log.LockEvent("acquire_failed", jobID.String(), technicianID.String())
		return transport.JobResponse{}, err
	}

	s.log.LockEvent("acquired", jobID.String(), technicianID.String())
	s.log.JobTransition(jobID.String(), string(job.Status), string(locked.Status), technicianID.String())

	s.bus.Publish(ctx, events.JobSoftLocked{
		BaseEvent:      events.NewBaseEvent(),
		JobID:          locked.ID,
		DealerID:       locked.DealerID,
		TechnicianID:   technicianID,
		TechnicianName: tech.Name,
		BidID:          bid.ID,
		PriceCents:     bid.OfferedPriceCents,
		LockExpiresAt:  params.ExpiresAt,
	})
	return transport.ToJobResponse(locked), nil
}

// RenewLock extends the holder's soft lock by one full TTL from now.
func (s *Service) RenewLock(ctx context.Context, jobID, technicianID uuid.UUID) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if err := domain.ValidateJobStateForOperation(job.Status, domain.OpRenewLock); err != nil {
		return transport.JobResponse{}, err
	}

	now := s.now()
	if !job.LockHeldBy(technicianID, now) {
		return transport.JobResponse{}, apperr.Conflict("soft lock is not held by this technician")
	}

	renewed, err := s.store.RenewSoftLock(ctx, jobID, job.Version, now.Add(s.cfg.GetSoftLockTTL()))
	if err != nil {
		return transport.JobResponse{}, err
	}
	s.log.LockEvent("renewed", jobID.String(), technicianID.String())
	return transport.ToJobResponse(renewed), nil
}

// Confirm finalizes the soft-locked technician. Only the posting dealer may
// confirm, and only while the lock is still live; an expired lock means the
// claim has lapsed and the technician must accept again.
func (s *Service) Confirm(ctx context.Context, jobID, dealerID uuid.UUID) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if job.DealerID != dealerID {
		return transport.JobResponse{}, apperr.Forbidden("only the posting dealer can confirm an assignment")
	}
	if err := domain.ValidateJobStateForOperation(job.Status, domain.OpConfirm); err != nil {
		return transport.JobResponse{}, err
	}
	if _, err := domain.ValidateTransition(job.Status, domain.OpConfirm); err != nil {
		return transport.JobResponse{}, err
	}
	if job.SoftLockedByTechnicianID == nil || job.LockExpired(s.now()) {
		return transport.JobResponse{}, apperr.Conflict("soft lock has expired, the technician must accept again")
	}
	technicianID := *job.SoftLockedByTechnicianID

	confirmed, err := s.store.ConfirmAssignment(ctx, jobID, job.Version)
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.log.JobTransition(jobID.String(), string(job.Status), string(confirmed.Status), dealerID.String())

	tech, err := s.directory.GetTechnician(ctx, technicianID)
	if err != nil {
		s.log.DatabaseError("lookup technician for assignment event", err)
		tech = TechnicianInfo{ID: technicianID}
	}
	s.bus.Publish(ctx, events.JobAssigned{
		BaseEvent:       events.NewBaseEvent(),
		JobID:           confirmed.ID,
		DealerID:        confirmed.DealerID,
		TechnicianID:    technicianID,
		TechnicianEmail: tech.Email,
		TechnicianPhone: tech.Phone,
		CustomerName:    confirmed.CustomerName,
		PriceCents:      confirmed.FinalPriceCents,
	})
	return transport.ToJobResponse(confirmed), nil
}

// Reject records the technician declining the job. A holder rejecting their
// own soft lock releases it; the rejection starts the cooldown either way.
func (s *Service) Reject(ctx context.Context, jobID, technicianID uuid.UUID, req transport.RejectJobRequest) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if err := domain.ValidateJobStateForOperation(job.Status, domain.OpReject); err != nil {
		return transport.JobResponse{}, err
	}

	now := s.now()
	if job.Status == domain.StatusSoftLocked && !job.LockExpired(now) &&
		job.SoftLockedByTechnicianID != nil && *job.SoftLockedByTechnicianID != technicianID {
		return transport.JobResponse{}, apperr.Conflict("job is currently locked by another technician")
	}

	wasHolder := job.SoftLockedByTechnicianID != nil && *job.SoftLockedByTechnicianID == technicianID

	rejected, err := s.store.RecordRejection(ctx, jobID, technicianID, job.Version, now)
	if err != nil {
		return transport.JobResponse{}, err
	}

	if wasHolder {
		s.log.LockEvent("released", jobID.String(), technicianID.String())
	}
	s.log.JobTransition(jobID.String(), string(job.Status), string(rejected.Status), technicianID.String())
	return transport.ToJobResponse(rejected), nil
}

// StartWork transitions the job to in_progress. Only the assigned technician
// may start.
func (s *Service) StartWork(ctx context.Context, jobID, technicianID uuid.UUID) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if job.AssignedTechnicianID == nil || *job.AssignedTechnicianID != technicianID {
		return transport.JobResponse{}, apperr.Forbidden("only the assigned technician can start this job")
	}
	if _, err := domain.ValidateTransition(job.Status, domain.OpStart); err != nil {
		return transport.JobResponse{}, err
	}

	started, err := s.store.StartWork(ctx, jobID, job.Version, s.now())
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.log.JobTransition(jobID.String(), string(job.Status), string(started.Status), technicianID.String())
	s.bus.Publish(ctx, events.JobStarted{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        started.ID,
		DealerID:     started.DealerID,
		TechnicianID: technicianID,
	})
	return transport.ToJobResponse(started), nil
}

// Cancel moves a non-terminal job to cancelled. The posting dealer or the
// assigned technician may cancel.
func (s *Service) Cancel(ctx context.Context, jobID, actorID uuid.UUID, req transport.CancelJobRequest) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	isDealer := job.DealerID == actorID
	isAssigned := job.AssignedTechnicianID != nil && *job.AssignedTechnicianID == actorID
	if !isDealer && !isAssigned {
		return transport.JobResponse{}, apperr.Forbidden("only the dealer or the assigned technician can cancel this job")
	}
	if _, err := domain.ValidateTransition(job.Status, domain.OpCancel); err != nil {
		return transport.JobResponse{}, err
	}

	cancelled, err := s.store.CancelJob(ctx, jobID, job.Version, req.Reason)
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.log.JobTransition(jobID.String(), string(job.Status), string(cancelled.Status), actorID.String())
	s.bus.Publish(ctx, events.JobCancelled{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        cancelled.ID,
		DealerID:     cancelled.DealerID,
		TechnicianID: cancelled.AssignedTechnicianID,
		CancelledBy:  actorID,
		Reason:       req.Reason,
	})
	return transport.ToJobResponse(cancelled), nil
}

// CounterBid records a technician offering a different price. The job stays
// open; acceptance of a countered price goes through the normal accept flow.
func (s *Service) CounterBid(ctx context.Context, jobID, technicianID uuid.UUID, req transport.CounterBidRequest) (transport.BidResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.BidResponse{}, err
	}
	if job.Status != domain.StatusPending {
		return transport.BidResponse{}, apperr.Validation("counter offers are only possible on pending jobs")
	}
	if job.PriceLocked {
		return transport.BidResponse{}, apperr.Validation("the price on this job is locked")
	}

	bid, err := s.store.CreateCounterBid(ctx, repository.Bid{
		JobID:             jobID,
		TechnicianID:      technicianID,
		OfferedPriceCents: req.PriceCents,
		RoundNumber:       s.nextRound(ctx, jobID),
	})
	if err != nil {
		return transport.BidResponse{}, err
	}
	return transport.ToBidResponse(bid), nil
}

// ListBids returns all bids placed on a job.
func (s *Service) ListBids(ctx context.Context, jobID uuid.UUID) ([]transport.BidResponse, error) {
	if _, err := s.store.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	bids, err := s.store.ListBidsForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	resp := make([]transport.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, transport.ToBidResponse(b))
	}
	return resp, nil
}

// cooldownRemaining returns the whole seconds the technician still has to
// wait after a rejection, or 0 when no cooldown applies.
func (s *Service) cooldownRemaining(job repository.Job, technicianID uuid.UUID, now time.Time) int64 {
	if !job.WasRejectedBy(technicianID) || job.LastRejectedAt == nil {
		return 0
	}
	until := job.LastRejectedAt.Add(s.cfg.GetRejectionCooldown())
	if !now.Before(until) {
		return 0
	}
	remaining := int64(until.Sub(now).Seconds())
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

// nextRound derives the bid round number from existing bids. Best effort: a
// listing failure falls back to round 1 rather than blocking the accept.
func (s *Service) nextRound(ctx context.Context, jobID uuid.UUID) int {
	bids, err := s.store.ListBidsForJob(ctx, jobID)
	if err != nil {
		return 1
	}
	max := 0
	for _, b := range bids {
		if b.RoundNumber > max {
			max = b.RoundNumber
		}
	}
	return max + 1
}
