// Package domain implements the trust score formula. Everything here is
// pure: factors in, breakdown out, no I/O.
package domain

import (
	"fmt"
	"strings"
)

// Baseline is the starting score every subject is measured from.
const Baseline = 50.0

// Band is the status band derived from a score.
type Band string

const (
	BandGood     Band = "GOOD"
	BandNormal   Band = "NORMAL"
	BandRisk     Band = "RISK"
	BandCritical Band = "CRITICAL"
)

// BandFor maps a score onto its status band.
func BandFor(score float64) Band {
	switch {
	case score >= 80:
		return BandGood
	case score >= 60:
		return BandNormal
	case score >= 40:
		return BandRisk
	default:
		return BandCritical
	}
}

// Factors carries every signal the formula reads, one typed field per
// category. Zero-valued denominators mean "no data yet" and the matching
// term contributes nothing.
type Factors struct {
	// Rating statistics.
	AvgRating        float64
	RatingCount      int
	RecentLowRatings int // 1-2 star ratings in the trailing 30 days

	// Job statistics.
	TotalJobs         int
	CompletedJobs     int
	OnTimeCompletions int
	LateCompletions   int
	AbandonedJobs     int
	PhotoProofRate    float64 // fraction of completions with photo proof
	RejectionRate     float64 // rejections / offered, from bid history

	// Completion verification source mix.
	CustomerVerifiedClosures int
	DealerOnlyClosures       int

	// Complaints and disputes.
	TotalComplaints  int
	RecentComplaints int // trailing 30 days
	TotalDisputes    int
	ResolvedDisputes int

	// Other signals.
	ReworkRequests      int
	AdminForcedClosures int
}

// Breakdown is the result of one computation: the final score, its band,
// the per-term contributions and a human-readable reason.
type Breakdown struct {
	Score  float64
	Band   Band
	Terms  map[string]float64
	Reason string
}

func clamp(min, max, v float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Compute applies the scoring formula: baseline 50, each term independently
// clamped, then summed and clamped to [0,100].
func Compute(f Factors) Breakdown {
	terms := make(map[string]float64)

	if f.RatingCount > 0 {
		terms["rating"] = clamp(-20, 20, (f.AvgRating-3.0)*4)
		if f.RecentLowRatings > 0 {
			terms["recent_low_ratings"] = -clamp(0, 10, float64(f.RecentLowRatings)*2)
		}
	}

	if f.TotalJobs > 0 {
		rate := float64(f.CompletedJobs) / float64(f.TotalJobs)
		terms["completion_rate"] = clamp(-24, 6, (rate-0.8)*30)
	}
	if f.CompletedJobs > 0 {
		onTime := float64(f.OnTimeCompletions) / float64(f.CompletedJobs)
		terms["on_time"] = clamp(0, 5, onTime*5)
	}
	if f.LateCompletions > 0 {
		terms["late_completions"] = -clamp(0, 10, float64(f.LateCompletions)*2)
	}

	if closures := f.CustomerVerifiedClosures + f.DealerOnlyClosures; closures > 0 {
		share := float64(f.CustomerVerifiedClosures) / float64(closures)
		terms["verification_mix"] = (share - 0.5) * 20
		if f.DealerOnlyClosures > 3 {
			terms["dealer_only_excess"] = -clamp(0, 5, float64(f.DealerOnlyClosures-3))
		}
	}

	if f.TotalComplaints > 0 {
		terms["complaints"] = -clamp(0, 20, float64(f.TotalComplaints)*4)
	}
	if f.RecentComplaints > 0 {
		terms["recent_complaints"] = -clamp(0, 10, float64(f.RecentComplaints)*5)
	}

	if f.TotalDisputes > 0 {
		resolved := float64(f.ResolvedDisputes) / float64(f.TotalDisputes)
		terms["disputes"] = -(1 - resolved) * 15
	}

	if f.ReworkRequests > 0 {
		terms["reworks"] = -clamp(0, 10, float64(f.ReworkRequests)*3)
	}

	if f.PhotoProofRate > 0 {
		terms["photo_proof"] = clamp(0, 5, f.PhotoProofRate*5)
	}

	if f.AdminForcedClosures > 0 {
		terms["admin_closures"] = -clamp(0, 10, float64(f.AdminForcedClosures)*5)
	}

	if f.RejectionRate > 0.3 {
		terms["rejection_rate"] = -(f.RejectionRate - 0.3) * 20
	}

	if f.AbandonedJobs > 0 {
		terms["abandoned"] = -clamp(0, 15, float64(f.AbandonedJobs)*5)
	}

	score := Baseline
	for _, v := range terms {
		score += v
	}
	score = clamp(0, 100, score)

	return Breakdown{
		Score:  score,
		Band:   BandFor(score),
		Terms:  terms,
		Reason: reason(score, terms),
	}
}

// reason renders the strongest contributions into a short audit string.
func reason(score float64, terms map[string]float64) string {
	var parts []string
	for _, name := range []string{
		"rating", "recent_low_ratings", "completion_rate", "on_time",
		"late_completions", "verification_mix", "dealer_only_excess",
		"complaints", "recent_complaints", "disputes", "reworks",
		"photo_proof", "admin_closures", "rejection_rate", "abandoned",
	} {
		v, ok := terms[name]
		if !ok || v == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %+.1f", name, v))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("baseline %.1f, no signals", Baseline)
	}
	return fmt.Sprintf("score %.1f: %s", score, strings.Join(parts, ", "))
}
