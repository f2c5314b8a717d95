package service

import (
	"context"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/platform/apperr"

	"github.com/google/uuid"
)

// IssueCompletionCode generates a fresh code for an in-progress job and hands
// it to the notification pipeline for delivery to the customer. Re-issuing
// replaces any earlier unverified code; the API response never carries the
// code itself.
func (s *Service) IssueCompletionCode(ctx context.Context, jobID, technicianID uuid.UUID) (transport.CompletionCodeResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.CompletionCodeResponse{}, err
	}
	if job.AssignedTechnicianID == nil || *job.AssignedTechnicianID != technicianID {
		return transport.CompletionCodeResponse{}, apperr.Forbidden("only the assigned technician can request a completion code")
	}
	if err := domain.ValidateJobStateForOperation(job.Status, domain.OpIssueCode); err != nil {
		return transport.CompletionCodeResponse{}, err
	}
	if job.CodeVerifiedAt != nil {
		return transport.CompletionCodeResponse{}, apperr.AlreadyVerified("completion was already verified for this job")
	}

	code := domain.GenerateCompletionCode(s.cfg.GetCompletionCodeDigits())
	expiresAt := s.now().Add(s.cfg.GetCompletionCodeTTL())

	updated, err := s.store.SetCompletionCode(ctx, jobID, job.Version, code, expiresAt)
	if err != nil {
		return transport.CompletionCodeResponse{}, err
	}

	s.bus.Publish(ctx, events.CompletionCodeIssued{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         updated.ID,
		TechnicianID:  technicianID,
		CustomerName:  updated.CustomerName,
		CustomerEmail: updated.CustomerEmail,
		CustomerPhone: updated.CustomerPhone,
		Code:          code,
		ExpiresAt:     expiresAt,
	})
	return transport.CompletionCodeResponse{JobID: updated.ID, ExpiresAt: expiresAt}, nil
}

// VerifyCompletionCode checks the customer-held code and, on a match, moves
// the job to completion_pending_approval, bumps the technician's counters and
// books the payment split. The code is single use: a consumed code answers
// already-verified before any other check, and the store refuses a second
// consumption even under concurrent calls. Verification normally comes from
// the assigned technician's device, but the customer may be holding it, so a
// mismatched caller is logged rather than refused.
func (s *Service) VerifyCompletionCode(ctx context.Context, jobID, actorID uuid.UUID, req transport.VerifyCompletionRequest) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if job.CodeVerifiedAt != nil {
		return transport.JobResponse{}, apperr.AlreadyVerified("completion code was already used")
	}
	if err := domain.ValidateJobStateForOperation(job.Status, domain.OpVerifyCode); err != nil {
		return transport.JobResponse{}, err
	}
	if job.AssignedTechnicianID != nil && *job.AssignedTechnicianID != actorID {
		s.log.Warn("completion code verified by someone other than the assigned technician",
			"job_id", jobID.String(), "actor_id", actorID.String())
	}

	if job.CompletionCode == nil {
		return transport.JobResponse{}, apperr.Validation("no completion code has been issued for this job")
	}
	now := s.now()
	if job.CodeExpiresAt != nil && now.After(*job.CodeExpiresAt) {
		return transport.JobResponse{}, apperr.Expired("completion code has expired, request a new one")
	}
	if req.Code != *job.CompletionCode {
		return transport.JobResponse{}, apperr.InvalidCode("completion code does not match")
	}

	verified, err := s.store.MarkCompletionVerified(ctx, jobID, job.Version, now)
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.log.JobTransition(jobID.String(), string(job.Status), string(verified.Status), actorID.String())
	if verified.AssignedTechnicianID != nil {
		technicianID := *verified.AssignedTechnicianID

		// Counter bump and payment split ride along with the verification;
		// failures are logged and never roll back the transition.
		if err := s.directory.IncrementCompletedJobs(ctx, technicianID); err != nil {
			s.log.DatabaseError("increment completed jobs", err)
		}
		gross := verified.FinalPriceCents
		technicianCents := int64(float64(gross) * technicianShareMultiplier)
		platformCents := gross - technicianCents
		if err := s.payments.RecordSplit(ctx, jobID, verified.DealerID, technicianID, gross, technicianCents, platformCents); err != nil {
			s.log.DatabaseError("record payment split", err)
		}

		s.bus.Publish(ctx, events.JobCompletionVerified{
			BaseEvent:    events.NewBaseEvent(),
			JobID:        verified.ID,
			DealerID:     verified.DealerID,
			TechnicianID: technicianID,
			CompletedAt:  now,
		})
	}
	return transport.ToJobResponse(verified), nil
}

// ApproveCompletion is the dealer's sign-off on a verified completion. It
// closes the job; settlement bookkeeping already happened at verification.
func (s *Service) ApproveCompletion(ctx context.Context, jobID, dealerID uuid.UUID) (transport.JobResponse, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	if job.DealerID != dealerID {
		return transport.JobResponse{}, apperr.Forbidden("only the posting dealer can approve completion")
	}
	if _, err := domain.ValidateTransition(job.Status, domain.OpApprove); err != nil {
		return transport.JobResponse{}, err
	}

	completed, err := s.store.ApproveCompletion(ctx, jobID, job.Version)
	if err != nil {
		return transport.JobResponse{}, err
	}

	s.log.JobTransition(jobID.String(), string(job.Status), string(completed.Status), dealerID.String())

	if completed.AssignedTechnicianID != nil {
		s.bus.Publish(ctx, events.JobCompleted{
			BaseEvent:    events.NewBaseEvent(),
			JobID:        completed.ID,
			DealerID:     completed.DealerID,
			TechnicianID: *completed.AssignedTechnicianID,
			PriceCents:   completed.FinalPriceCents,
		})
	}
	return transport.ToJobResponse(completed), nil
}
