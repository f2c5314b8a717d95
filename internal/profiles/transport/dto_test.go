package transport

import (
	"testing"
	"time"

	"fieldserve_backend/internal/profiles/repository"

	"github.com/google/uuid"
)

func TestToTechnicianResponseCarriesCounters(t *testing.T) {
	rating := 4.5
	tech := repository.Technician{
		ID:            uuid.New(),
		Name:          "Jan",
		Email:         "jan@example.com",
		Phone:         "+31612345678",
		Rating:        &rating,
		TotalJobs:     12,
		CompletedJobs: 10,
		CancelledJobs: 1,
		TrustScore:    71.5,
		TrustStatus:   "NORMAL",
		CreatedAt:     time.Now(),
	}

	resp := ToTechnicianResponse(tech)
	if resp.TotalJobs != 12 {
		t.Errorf("totalJobs = %d, want 12", resp.TotalJobs)
	}
	if resp.CompletedJobs != 10 {
		t.Errorf("completedJobs = %d, want 10", resp.CompletedJobs)
	}
	if resp.CancelledJobs != 1 {
		t.Errorf("cancelledJobs = %d, want 1", resp.CancelledJobs)
	}
	if resp.TrustScore != 71.5 || resp.TrustStatus != "NORMAL" {
		t.Errorf("trust = %v/%q, want 71.5/NORMAL", resp.TrustScore, resp.TrustStatus)
	}
}
