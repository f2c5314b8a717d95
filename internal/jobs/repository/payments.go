package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordSplit books the payout split for a completed job. One row per job;
// a replayed approval is a no-op.
func (r *Repository) RecordSplit(ctx context.Context, jobID uuid.UUID, dealerID uuid.UUID, technicianID uuid.UUID, grossCents, technicianCents, platformCents int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO payment_splits (job_id, dealer_id, technician_id, gross_cents, technician_cents, platform_cents)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id) DO NOTHING`,
		jobID, dealerID, technicianID, grossCents, technicianCents, platformCents)
	if err != nil {
		return fmt.Errorf("record payment split: %w", err)
	}
	return nil
}
