// Package repository gathers trust factors from the operational tables and
// maintains the append-only score history ledger.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldserve_backend/internal/trust/domain"
	"fieldserve_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubjectType discriminates the two scored parties.
type SubjectType string

const (
	SubjectTechnician SubjectType = "technician"
	SubjectDealer     SubjectType = "dealer"
)

// HistoryRow is one entry in the append-only audit ledger.
type HistoryRow struct {
	ID          uuid.UUID
	SubjectID   uuid.UUID
	SubjectType SubjectType
	OldScore    float64
	NewScore    float64
	Delta       float64
	ChangeType  string
	Reason      string
	ChangedBy   *uuid.UUID
	CreatedAt   time.Time
}

// Subject is a scored party with its current persisted score.
type Subject struct {
	ID          uuid.UUID
	Type        SubjectType
	Score       float64
	Status      string
	LastUpdated *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recentWindow = 30 * 24 * time.Hour

// GatherTechnicianFactors assembles the full factor set for a technician
// from jobs, bids, ratings, complaints, disputes and rework requests.
func (r *Repository) GatherTechnicianFactors(ctx context.Context, id uuid.UUID) (domain.Factors, error) {
	var f domain.Factors
	since := time.Now().Add(-recentWindow)

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(stars), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE stars <= 2 AND created_at >= $2)
		FROM ratings
		WHERE subject_id = $1 AND subject_type = 'technician'`,
		id, since).Scan(&f.AvgRating, &f.RatingCount, &f.RecentLowRatings)
	if err != nil {
		return domain.Factors{}, fmt.Errorf("gather rating stats: %w", err)
	}

	var withProof int
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'completed'
				AND started_at IS NOT NULL AND completed_at IS NOT NULL
				AND completed_at <= started_at + make_interval(mins => estimated_duration_minutes)),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'cancelled' AND cancelled_by_admin),
			COUNT(*) FILTER (WHERE status = 'completed' AND has_photo_proof),
			COUNT(*) FILTER (WHERE status = 'completed' AND code_verified_at IS NOT NULL),
			COUNT(*) FILTER (WHERE status = 'completed' AND code_verified_at IS NULL)
		FROM jobs
		WHERE assigned_technician_id = $1`,
		id).Scan(&f.TotalJobs, &f.CompletedJobs, &f.OnTimeCompletions,
		&f.AbandonedJobs, &f.AdminForcedClosures, &withProof,
		&f.CustomerVerifiedClosures, &f.DealerOnlyClosures)
	if err != nil {
		return domain.Factors{}, fmt.Errorf("gather job stats: %w", err)
	}
	f.LateCompletions = f.CompletedJobs - f.OnTimeCompletions
	if f.LateCompletions < 0 {
		f.LateCompletions = 0
	}
	if f.CompletedJobs > 0 {
		f.PhotoProofRate = float64(withProof) / float64(f.CompletedJobs)
	}

	var rejections, offered int
	err = r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM jobs WHERE $1 = ANY(rejected_technician_ids)),
			(SELECT COUNT(*) FROM bids WHERE technician_id = $1)`,
		id).Scan(&rejections, &offered)
	if err != nil {
		return domain.Factors{}, fmt.Errorf("gather rejection stats: %w", err)
	}
	if total := rejections + offered; total > 0 {
		f.RejectionRate = float64(rejections) / float64(total)
	}

	if err := r.gatherGrievances(ctx, id, SubjectTechnician, since, &f); err != nil {
		return domain.Factors{}, err
	}
	return f, nil
}

// GatherDealerFactors assembles the factor set for a dealer. Dealers carry
// fewer operational signals: posted-job outcomes plus the shared
// rating/complaint/dispute categories.
func (r *Repository) GatherDealerFactors(ctx context.Context, id uuid.UUID) (domain.Factors, error) {
	var f domain.Factors
	since := time.Now().Add(-recentWindow)

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(AVG(stars), 0),
			COUNT(*),
			COUNT(*) FILTER (WHERE stars <= 2 AND created_at >= $2)
		FROM ratings
		WHERE subject_id = $1 AND subject_type = 'dealer'`,
		id, since).Scan(&f.AvgRating, &f.RatingCount, &f.RecentLowRatings)
	if err != nil {
		return domain.Factors{}, fmt.Errorf("gather rating stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE status = 'completed' AND code_verified_at IS NOT NULL),
			COUNT(*) FILTER (WHERE status = 'completed' AND code_verified_at IS NULL)
		FROM jobs
		WHERE dealer_id = $1`,
		id).Scan(&f.TotalJobs, &f.CompletedJobs, &f.AbandonedJobs,
		&f.CustomerVerifiedClosures, &f.DealerOnlyClosures)
	if err != nil {
		return domain.Factors{}, fmt.Errorf("gather job stats: %w", err)
	}

	if err := r.gatherGrievances(ctx, id, SubjectDealer, since, &f); err != nil {
		return domain.Factors{}, err
	}
	return f, nil
}

func (r *Repository) gatherGrievances(ctx context.Context, id uuid.UUID, st SubjectType, since time.Time, f *domain.Factors) error {
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE created_at >= $3)
		FROM complaints
		WHERE subject_id = $1 AND subject_type = $2`,
		id, string(st), since).Scan(&f.TotalComplaints, &f.RecentComplaints)
	if err != nil {
		return fmt.Errorf("gather complaint stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE resolved)
		FROM disputes
		WHERE subject_id = $1 AND subject_type = $2`,
		id, string(st)).Scan(&f.TotalDisputes, &f.ResolvedDisputes)
	if err != nil {
		return fmt.Errorf("gather dispute stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM rework_requests
		WHERE subject_id = $1 AND subject_type = $2`,
		id, string(st)).Scan(&f.ReworkRequests)
	if err != nil {
		return fmt.Errorf("gather rework stats: %w", err)
	}
	return nil
}

// GetSubject reads the subject's current persisted score from its profile.
func (r *Repository) GetSubject(ctx context.Context, id uuid.UUID, st SubjectType) (Subject, error) {
	table := "technicians"
	if st == SubjectDealer {
		table = "dealers"
	}

	s := Subject{ID: id, Type: st}
	err := r.pool.QueryRow(ctx,
		`SELECT trust_score, trust_status, last_trust_score_update FROM `+table+` WHERE id = $1`,
		id).Scan(&s.Score, &s.Status, &s.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subject{}, apperr.NotFound(string(st) + " not found")
	}
	if err != nil {
		return Subject{}, fmt.Errorf("get subject score: %w", err)
	}
	return s, nil
}

// WriteScore appends the audit row and persists the new score on the profile
// in one transaction: the ledger is never missing an entry for a score write.
func (r *Repository) WriteScore(ctx context.Context, row HistoryRow) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin score write: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO trust_score_history
			(subject_id, subject_type, old_score, new_score, delta, change_type, reason, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.SubjectID, string(row.SubjectType), row.OldScore, row.NewScore,
		row.Delta, row.ChangeType, row.Reason, row.ChangedBy,
	); err != nil {
		return fmt.Errorf("insert trust history: %w", err)
	}

	table := "technicians"
	if row.SubjectType == SubjectDealer {
		table = "dealers"
	}
	tag, err := tx.Exec(ctx,
		`UPDATE `+table+` SET trust_score = $2, trust_status = $3, last_trust_score_update = now(), updated_at = now() WHERE id = $1`,
		row.SubjectID, row.NewScore, string(domain.BandFor(row.NewScore)))
	if err != nil {
		return fmt.Errorf("update subject score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(string(row.SubjectType) + " not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit score write: %w", err)
	}
	return nil
}

// ListHistory returns ledger entries for a subject, newest first.
func (r *Repository) ListHistory(ctx context.Context, subjectID uuid.UUID, st SubjectType, limit, offset int) ([]HistoryRow, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, subject_id, subject_type, old_score, new_score, delta, change_type, reason, changed_by, created_at
		FROM trust_score_history
		WHERE subject_id = $1 AND subject_type = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		subjectID, string(st), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list trust history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		var subjectType string
		if err := rows.Scan(&h.ID, &h.SubjectID, &subjectType, &h.OldScore, &h.NewScore,
			&h.Delta, &h.ChangeType, &h.Reason, &h.ChangedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trust history: %w", err)
		}
		h.SubjectType = SubjectType(subjectType)
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trust history: %w", err)
	}
	return out, nil
}

// ListStaleSubjects returns subjects whose score has not been recomputed
// since the cutoff, for the periodic sweep.
func (r *Repository) ListStaleSubjects(ctx context.Context, cutoff time.Time, limit int) ([]Subject, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, 'technician', trust_score, trust_status, last_trust_score_update
		FROM technicians
		WHERE last_trust_score_update IS NULL OR last_trust_score_update < $1
		UNION ALL
		SELECT id, 'dealer', trust_score, trust_status, last_trust_score_update
		FROM dealers
		WHERE last_trust_score_update IS NULL OR last_trust_score_update < $1
		LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale subjects: %w", err)
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		var s Subject
		var st string
		if err := rows.Scan(&s.ID, &st, &s.Score, &s.Status, &s.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan stale subject: %w", err)
		}
		s.Type = SubjectType(st)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale subjects: %w", err)
	}
	return out, nil
}
