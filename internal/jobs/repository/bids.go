package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const bidColumns = `
	id, job_id, technician_id, offered_price_cents, status,
	round_number, distance_km, rating_snapshot, created_at`

func scanBid(row rowScanner, b *Bid) error {
	var status string
	err := row.Scan(
		&b.ID, &b.JobID, &b.TechnicianID, &b.OfferedPriceCents, &status,
		&b.RoundNumber, &b.DistanceKm, &b.RatingSnapshot, &b.CreatedAt,
	)
	if err != nil {
		return err
	}
	b.Status = BidStatus(status)
	return nil
}

// CreateCounterBid records a counter-offer at a different price. The job
// itself stays pending; acceptance of the countered price goes through the
// normal accept flow.
func (r *Repository) CreateCounterBid(ctx context.Context, bid Bid) (Bid, error) {
	var created Bid
	err := scanBid(r.pool.QueryRow(ctx, `
		INSERT INTO bids (job_id, technician_id, offered_price_cents, status, round_number, distance_km, rating_snapshot)
		VALUES ($1, $2, $3, 'countered', $4, $5, $6)
		RETURNING `+bidColumns,
		bid.JobID, bid.TechnicianID, bid.OfferedPriceCents, bid.RoundNumber,
		bid.DistanceKm, bid.RatingSnapshot), &created)
	if err != nil {
		return Bid{}, fmt.Errorf("create counter bid: %w", err)
	}
	return created, nil
}

// ListBidsForJob returns all bids on a job, newest round first.
func (r *Repository) ListBidsForJob(ctx context.Context, jobID uuid.UUID) ([]Bid, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bidColumns+` FROM bids
		WHERE job_id = $1
		ORDER BY round_number DESC, created_at DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []Bid
	for rows.Next() {
		var b Bid
		if err := scanBid(rows, &b); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return bids, nil
}
