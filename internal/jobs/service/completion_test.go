package service

import (
	"context"
	"testing"
	"time"

	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/platform/apperr"

	"github.com/google/uuid"
)

// startJob drives a fresh job all the way to in_progress.
func startJob(t *testing.T, f *fixture) (jobID, dealerID, techID uuid.UUID) {
	t.Helper()
	dealerID = uuid.New()
	job := f.postJob(t, dealerID)
	techID = f.newTech("jan")
	mustAssign(t, f, job.ID, dealerID, techID)
	if _, err := f.svc.StartWork(context.Background(), job.ID, techID); err != nil {
		t.Fatalf("StartWork: %v", err)
	}
	return job.ID, dealerID, techID
}

// issuedCode digs the generated code out of the published event, the same
// place the customer would get it from.
func issuedCode(t *testing.T, f *fixture) (code string, expiresAt time.Time) {
	t.Helper()
	f.bus.mu.Lock()
	defer f.bus.mu.Unlock()
	for i := len(f.bus.events) - 1; i >= 0; i-- {
		if e, ok := f.bus.events[i].(events.CompletionCodeIssued); ok {
			return e.Code, e.ExpiresAt
		}
	}
	t.Fatal("no CompletionCodeIssued event published")
	return "", time.Time{}
}

func TestIssueCompletionCode(t *testing.T) {
	f := newFixture(t)
	jobID, _, techID := startJob(t, f)

	resp, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID)
	if err != nil {
		t.Fatalf("IssueCompletionCode: %v", err)
	}
	wantExpiry := f.clock.Add(30 * time.Minute)
	if !resp.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", resp.ExpiresAt, wantExpiry)
	}

	code, _ := issuedCode(t, f)
	if len(code) != 6 {
		t.Errorf("code %q, want 6 digits", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Errorf("code %q contains non-digit", code)
		}
	}

	// The job response never exposes the code.
	job, err := f.svc.Get(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.CodeExpiresAt == nil {
		t.Error("expected codeExpiresAt on the job response")
	}
}

func TestIssueCompletionCodeRequiresAssignedTechnician(t *testing.T) {
	f := newFixture(t)
	jobID, _, _ := startJob(t, f)

	_, err := f.svc.IssueCompletionCode(context.Background(), jobID, uuid.New())
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestReissueReplacesCode(t *testing.T) {
	f := newFixture(t)
	jobID, _, techID := startJob(t, f)

	if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	first, _ := issuedCode(t, f)

	f.advance(time.Minute)
	if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
		t.Fatalf("second issue: %v", err)
	}
	second, _ := issuedCode(t, f)

	// The first code is dead regardless of whether the values collide.
	if first != second {
		_, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: first})
		if !apperr.Is(err, apperr.KindInvalidCode) {
			t.Fatalf("verify with replaced code err = %v, want invalid code", err)
		}
	}

	if _, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: second}); err != nil {
		t.Fatalf("verify with current code: %v", err)
	}
}

func TestVerifyCompletionCode(t *testing.T) {
	f := newFixture(t)
	jobID, _, techID := startJob(t, f)

	if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
		t.Fatalf("IssueCompletionCode: %v", err)
	}
	code, _ := issuedCode(t, f)

	verified, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: code})
	if err != nil {
		t.Fatalf("VerifyCompletionCode: %v", err)
	}
	if verified.Status != string(domain.StatusCompletionPendingApproval) {
		t.Errorf("status = %q, want completion_pending_approval", verified.Status)
	}
	if verified.CompletedAt == nil || !verified.CompletedAt.Equal(f.clock) {
		t.Errorf("completedAt = %v, want %v", verified.CompletedAt, f.clock)
	}

	// The counter bump and payment split land at verification, not at the
	// dealer's later approval.
	if got := f.directory.completed[techID]; got != 1 {
		t.Errorf("completed jobs counter after verify = %d, want 1", got)
	}
	if len(f.ledger.splits) != 1 {
		t.Fatalf("payment splits after verify = %d, want 1", len(f.ledger.splits))
	}
	split := f.ledger.splits[0]
	if split.GrossCents != 250_00 || split.TechnicianCents != 225_00 || split.PlatformCents != 25_00 {
		t.Errorf("split = %+v, want 25000 gross, 22500 technician, 2500 platform", split)
	}
}

func TestVerifyCompletionCodeErrors(t *testing.T) {
	t.Run("no code issued", func(t *testing.T) {
		f := newFixture(t)
		jobID, _, techID := startJob(t, f)

		_, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: "123456"})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		f := newFixture(t)
		jobID, _, techID := startJob(t, f)
		if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
			t.Fatalf("IssueCompletionCode: %v", err)
		}
		code, _ := issuedCode(t, f)

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}
		_, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: wrong})
		if !apperr.Is(err, apperr.KindInvalidCode) {
			t.Fatalf("err = %v, want invalid code", err)
		}
	})

	t.Run("expired code", func(t *testing.T) {
		f := newFixture(t)
		jobID, _, techID := startJob(t, f)
		if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
			t.Fatalf("IssueCompletionCode: %v", err)
		}
		code, _ := issuedCode(t, f)

		f.advance(31 * time.Minute)
		_, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: code})
		if !apperr.Is(err, apperr.KindExpired) {
			t.Fatalf("err = %v, want expired", err)
		}
	})

	t.Run("single use", func(t *testing.T) {
		f := newFixture(t)
		jobID, _, techID := startJob(t, f)
		if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
			t.Fatalf("IssueCompletionCode: %v", err)
		}
		code, _ := issuedCode(t, f)

		if _, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: code}); err != nil {
			t.Fatalf("first verify: %v", err)
		}
		_, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: code})
		if !apperr.Is(err, apperr.KindAlreadyVerified) {
			t.Fatalf("second verify err = %v, want already verified", err)
		}

		// No double bookkeeping on the replay.
		if got := f.directory.completed[techID]; got != 1 {
			t.Errorf("completed jobs counter = %d, want 1", got)
		}
		if len(f.ledger.splits) != 1 {
			t.Errorf("payment splits = %d, want 1", len(f.ledger.splits))
		}
	})
}

func TestApproveCompletion(t *testing.T) {
	f := newFixture(t)
	jobID, dealerID, techID := startJob(t, f)
	if _, err := f.svc.IssueCompletionCode(context.Background(), jobID, techID); err != nil {
		t.Fatalf("IssueCompletionCode: %v", err)
	}
	code, _ := issuedCode(t, f)
	if _, err := f.svc.VerifyCompletionCode(context.Background(), jobID, techID, transport.VerifyCompletionRequest{Code: code}); err != nil {
		t.Fatalf("VerifyCompletionCode: %v", err)
	}

	if _, err := f.svc.ApproveCompletion(context.Background(), jobID, uuid.New()); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("approve by stranger err = %v, want forbidden", err)
	}

	completed, err := f.svc.ApproveCompletion(context.Background(), jobID, dealerID)
	if err != nil {
		t.Fatalf("ApproveCompletion: %v", err)
	}
	if completed.Status != string(domain.StatusCompleted) {
		t.Errorf("status = %q, want completed", completed.Status)
	}

	// Approval does not re-run the settlement bookkeeping done at verify.
	if got := f.directory.completed[techID]; got != 1 {
		t.Errorf("completed jobs counter = %d, want 1", got)
	}
	if len(f.ledger.splits) != 1 {
		t.Fatalf("payment splits = %d, want 1", len(f.ledger.splits))
	}

	names := f.bus.names()
	if names[len(names)-1] != "jobs.job.completed" {
		t.Errorf("last event = %q, want jobs.job.completed", names[len(names)-1])
	}
}
