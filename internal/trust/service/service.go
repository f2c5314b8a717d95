// Package service orchestrates trust score recomputation: factor gathering,
// the pure formula, the audit ledger and the score cache.
package service

import (
	"context"
	"fmt"
	"time"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/trust/domain"
	"fieldserve_backend/internal/trust/repository"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Change types recorded in the audit ledger.
const (
	ChangeSystemRecalculation = "SYSTEM_RECALCULATION"
	ChangeJobCompletion       = "JOB_COMPLETION"
	ChangeRatingImpact        = "RATING_IMPACT"
	ChangeComplaintImpact     = "COMPLAINT_IMPACT"
	ChangeDisputeResolution   = "DISPUTE_RESOLUTION"
	ChangeManualIncrease      = "MANUAL_INCREASE"
	ChangeManualDecrease      = "MANUAL_DECREASE"
)

// Store is the persistence contract the engine depends on.
type Store interface {
	GatherTechnicianFactors(ctx context.Context, id uuid.UUID) (domain.Factors, error)
	GatherDealerFactors(ctx context.Context, id uuid.UUID) (domain.Factors, error)
	GetSubject(ctx context.Context, id uuid.UUID, st repository.SubjectType) (repository.Subject, error)
	WriteScore(ctx context.Context, row repository.HistoryRow) error
	ListHistory(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, limit, offset int) ([]repository.HistoryRow, error)
	ListStaleSubjects(ctx context.Context, cutoff time.Time, limit int) ([]repository.Subject, error)
}

// ScoreCache is the read-through cache of current scores. Implementations
// must treat a miss as (found=false, nil error); infrastructure failures are
// logged by the caller, never fatal.
type ScoreCache interface {
	Get(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType) (score float64, status string, found bool, err error)
	Set(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, score float64, status string) error
	Invalidate(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType) error
}

// Result is the outcome of a recomputation.
type Result struct {
	SubjectID uuid.UUID
	NewScore  float64
	OldScore  float64
	Status    domain.Band
	Reason    string
}

type Service struct {
	store Store
	cache ScoreCache
	bus   events.Bus
	log   *logger.Logger

	// group serializes recomputations per subject: read-modify-write of
	// "current score -> new score" is not commutative.
	group singleflight.Group
}

func New(store Store, cache ScoreCache, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, cache: cache, bus: bus, log: log}
}

// ParseSubjectType validates the wire value for a subject type.
func ParseSubjectType(raw string) (repository.SubjectType, error) {
	switch repository.SubjectType(raw) {
	case repository.SubjectTechnician:
		return repository.SubjectTechnician, nil
	case repository.SubjectDealer:
		return repository.SubjectDealer, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown subject type %q", raw))
	}
}

// Recalculate gathers factors, applies the formula and persists the result
// through the ledger. Concurrent calls for the same subject collapse into
// one computation.
func (s *Service) Recalculate(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, changeType string) (Result, error) {
	key := string(st) + ":" + subjectID.String()
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.recalculate(ctx, subjectID, st, changeType)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) recalculate(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, changeType string) (Result, error) {
	subject, err := s.store.GetSubject(ctx, subjectID, st)
	if err != nil {
		return Result{}, err
	}

	var factors domain.Factors
	if st == repository.SubjectTechnician {
		factors, err = s.store.GatherTechnicianFactors(ctx, subjectID)
	} else {
		factors, err = s.store.GatherDealerFactors(ctx, subjectID)
	}
	if err != nil {
		return Result{}, err
	}

	breakdown := domain.Compute(factors)
	if changeType == "" {
		changeType = ChangeSystemRecalculation
	}

	return s.writeScore(ctx, subject, breakdown.Score, changeType, breakdown.Reason, nil)
}

// ManualAdjust applies an admin override: either a delta on the current
// score or an absolute value, clamped to [0,100]. The write goes through the
// same ledger path as automatic recomputation, tagged with the admin's id.
func (s *Service) ManualAdjust(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, delta, set *float64, adminID uuid.UUID, reason string) (Result, error) {
	if (delta == nil) == (set == nil) {
		return Result{}, apperr.Validation("exactly one of delta or score must be provided")
	}
	if reason == "" {
		return Result{}, apperr.Validation("a reason is required for manual adjustments")
	}

	key := string(st) + ":" + subjectID.String()
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		subject, err := s.store.GetSubject(ctx, subjectID, st)
		if err != nil {
			return Result{}, err
		}

		newScore := subject.Score
		if delta != nil {
			newScore += *delta
		} else {
			newScore = *set
		}
		if newScore < 0 {
			newScore = 0
		}
		if newScore > 100 {
			newScore = 100
		}

		changeType := ChangeManualIncrease
		if newScore < subject.Score {
			changeType = ChangeManualDecrease
		}
		return s.writeScore(ctx, subject, newScore, changeType, reason, &adminID)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) writeScore(ctx context.Context, subject repository.Subject, newScore float64, changeType, reason string, changedBy *uuid.UUID) (Result, error) {
	row := repository.HistoryRow{
		SubjectID:   subject.ID,
		SubjectType: subject.Type,
		OldScore:    subject.Score,
		NewScore:    newScore,
		Delta:       newScore - subject.Score,
		ChangeType:  changeType,
		Reason:      reason,
		ChangedBy:   changedBy,
	}
	if err := s.store.WriteScore(ctx, row); err != nil {
		return Result{}, err
	}

	newStatus := domain.BandFor(newScore)
	if s.cache != nil {
		if err := s.cache.Set(ctx, subject.ID, subject.Type, newScore, string(newStatus)); err != nil {
			s.log.Warn("trust score cache update failed", "subject_id", subject.ID.String(), "error", err)
		}
	}

	s.log.TrustScoreChange(subject.ID.String(), subject.Score, newScore, changeType)
	s.bus.Publish(ctx, events.TrustScoreChanged{
		BaseEvent:   events.NewBaseEvent(),
		SubjectID:   subject.ID,
		SubjectType: string(subject.Type),
		OldScore:    subject.Score,
		NewScore:    newScore,
		OldStatus:   subject.Status,
		NewStatus:   string(newStatus),
		ChangeType:  changeType,
	})

	return Result{
		SubjectID: subject.ID,
		NewScore:  newScore,
		OldScore:  subject.Score,
		Status:    newStatus,
		Reason:    reason,
	}, nil
}

// Current returns the subject's current score, served from the cache when
// possible.
func (s *Service) Current(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType) (float64, string, error) {
	if s.cache != nil {
		score, status, found, err := s.cache.Get(ctx, subjectID, st)
		if err != nil {
			s.log.Warn("trust score cache read failed", "subject_id", subjectID.String(), "error", err)
		} else if found {
			return score, status, nil
		}
	}

	subject, err := s.store.GetSubject(ctx, subjectID, st)
	if err != nil {
		return 0, "", err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, subjectID, st, subject.Score, subject.Status); err != nil {
			s.log.Warn("trust score cache update failed", "subject_id", subjectID.String(), "error", err)
		}
	}
	return subject.Score, subject.Status, nil
}

// History returns the audit ledger for a subject, newest first.
func (s *Service) History(ctx context.Context, subjectID uuid.UUID, st repository.SubjectType, limit, offset int) ([]repository.HistoryRow, error) {
	return s.store.ListHistory(ctx, subjectID, st, limit, offset)
}

// SweepStale recomputes every subject whose score is older than the cutoff.
// Per-subject failures are logged and skipped so one broken profile cannot
// stall the sweep.
func (s *Service) SweepStale(ctx context.Context, staleAfter time.Duration, limit int) (int, error) {
	subjects, err := s.store.ListStaleSubjects(ctx, time.Now().Add(-staleAfter), limit)
	if err != nil {
		return 0, err
	}

	recomputed := 0
	for _, subject := range subjects {
		if _, err := s.Recalculate(ctx, subject.ID, subject.Type, ChangeSystemRecalculation); err != nil {
			s.log.Error("stale trust recompute failed",
				"subject_id", subject.ID.String(), "subject_type", string(subject.Type), "error", err)
			continue
		}
		recomputed++
	}
	return recomputed, nil
}
