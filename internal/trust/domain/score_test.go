package domain

import (
	"math"
	"testing"
)

func TestComputeNoHistoryIsBaseline(t *testing.T) {
	b := Compute(Factors{})
	if b.Score != Baseline {
		t.Errorf("score = %v, want baseline %v", b.Score, Baseline)
	}
	if b.Band != BandRisk {
		t.Errorf("band = %q, want RISK for a fresh subject at 50", b.Band)
	}
	if len(b.Terms) != 0 {
		t.Errorf("terms = %v, want none for zero history", b.Terms)
	}
}

func TestComputeBounds(t *testing.T) {
	cases := []struct {
		name string
		f    Factors
	}{
		{"all zero", Factors{}},
		{"maximally negative", Factors{
			AvgRating: 1.0, RatingCount: 50, RecentLowRatings: 40,
			TotalJobs: 100, CompletedJobs: 5, LateCompletions: 30,
			AbandonedJobs: 20, RejectionRate: 1.0,
			DealerOnlyClosures: 50,
			TotalComplaints:    30, RecentComplaints: 10,
			TotalDisputes: 10, ResolvedDisputes: 0,
			ReworkRequests: 10, AdminForcedClosures: 8,
		}},
		{"maximally positive", Factors{
			AvgRating: 5.0, RatingCount: 200,
			TotalJobs: 100, CompletedJobs: 100, OnTimeCompletions: 100,
			PhotoProofRate:           1.0,
			CustomerVerifiedClosures: 100,
			TotalDisputes:            2, ResolvedDisputes: 2,
		}},
		{"absurd inputs", Factors{
			AvgRating: 100, RatingCount: 1, TotalJobs: 1, CompletedJobs: 1000,
			RejectionRate: 50, PhotoProofRate: 99,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Compute(tc.f)
			if b.Score < 0 || b.Score > 100 {
				t.Errorf("score = %v, out of [0,100]", b.Score)
			}
			if math.IsNaN(b.Score) {
				t.Error("score is NaN")
			}
		})
	}
}

func TestComputeRatingTerm(t *testing.T) {
	b := Compute(Factors{AvgRating: 4.6, RatingCount: 12})
	want := (4.6 - 3.0) * 4
	if got := b.Terms["rating"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("rating term = %v, want %v", got, want)
	}

	b = Compute(Factors{AvgRating: -10, RatingCount: 1})
	if got := b.Terms["rating"]; got != -20 {
		t.Errorf("rating term = %v, want clamped -20", got)
	}
}

func TestComputeRecentLowRatingsCapped(t *testing.T) {
	b := Compute(Factors{AvgRating: 3.0, RatingCount: 10, RecentLowRatings: 9})
	if got := b.Terms["recent_low_ratings"]; got != -10 {
		t.Errorf("recent low ratings term = %v, want capped -10", got)
	}
}

func TestComputeDisputeTerm(t *testing.T) {
	b := Compute(Factors{TotalDisputes: 4, ResolvedDisputes: 1})
	want := -(1 - 0.25) * 15
	if got := b.Terms["disputes"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("disputes term = %v, want %v", got, want)
	}
}

func TestComputeRejectionRateThreshold(t *testing.T) {
	b := Compute(Factors{RejectionRate: 0.3})
	if _, ok := b.Terms["rejection_rate"]; ok {
		t.Error("rejection rate at the threshold should not penalize")
	}

	b = Compute(Factors{RejectionRate: 0.5})
	want := -(0.5 - 0.3) * 20
	if got := b.Terms["rejection_rate"]; math.Abs(got-want) > 1e-9 {
		t.Errorf("rejection rate term = %v, want %v", got, want)
	}
}

// A solid performer lands well above baseline and in the GOOD band.
func TestComputeStrongTechnician(t *testing.T) {
	b := Compute(Factors{
		AvgRating:                4.6,
		RatingCount:              10,
		TotalJobs:                10,
		CompletedJobs:            10,
		OnTimeCompletions:        9,
		PhotoProofRate:           1.0,
		CustomerVerifiedClosures: 10,
	})

	if b.Score <= 60 {
		t.Errorf("score = %v, want materially above baseline", b.Score)
	}
	if b.Band != BandGood {
		t.Errorf("band = %q, want GOOD (score %v)", b.Band, b.Score)
	}
	if got, want := b.Terms["rating"], 6.4; math.Abs(got-want) > 1e-9 {
		t.Errorf("rating term = %v, want %v", got, want)
	}
	if got, want := b.Terms["on_time"], 4.5; math.Abs(got-want) > 1e-9 {
		t.Errorf("on-time term = %v, want %v", got, want)
	}
	if b.Reason == "" {
		t.Error("breakdown should carry a reason string")
	}
}

func TestBandFor(t *testing.T) {
	cases := []struct {
		score float64
		want  Band
	}{
		{100, BandGood}, {80, BandGood},
		{79.9, BandNormal}, {60, BandNormal},
		{59.9, BandRisk}, {40, BandRisk},
		{39.9, BandCritical}, {0, BandCritical},
	}
	for _, tc := range cases {
		if got := BandFor(tc.score); got != tc.want {
			t.Errorf("BandFor(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
