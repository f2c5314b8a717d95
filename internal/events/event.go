// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"fieldserve_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Job Domain Events
// =============================================================================

// JobPosted is published when a dealer posts a new job.
type JobPosted struct {
	BaseEvent
	JobID    uuid.UUID `json:"jobId"`
	DealerID uuid.UUID `json:"dealerId"`
	Title    string    `json:"title"`
	Price    int64     `json:"priceCents"`
}

func (e JobPosted) EventName() string { return "jobs.job.posted" }

// JobSoftLocked is published when a technician wins the provisional claim on
// a job. The dealer must confirm before the lock expires.
type JobSoftLocked struct {
	BaseEvent
	JobID          uuid.UUID `json:"jobId"`
	DealerID       uuid.UUID `json:"dealerId"`
	TechnicianID   uuid.UUID `json:"technicianId"`
	TechnicianName string    `json:"technicianName"`
	BidID          uuid.UUID `json:"bidId"`
	PriceCents     int64     `json:"priceCents"`
	LockExpiresAt  time.Time `json:"lockExpiresAt"`
}

func (e JobSoftLocked) EventName() string { return "jobs.job.soft_locked" }

// JobAssigned is published when a dealer confirms the soft-locked technician.
// From this point the price is locked and the assignment is final.
type JobAssigned struct {
	BaseEvent
	JobID           uuid.UUID `json:"jobId"`
	DealerID        uuid.UUID `json:"dealerId"`
	TechnicianID    uuid.UUID `json:"technicianId"`
	TechnicianEmail string    `json:"technicianEmail"`
	TechnicianPhone string    `json:"technicianPhone"`
	CustomerName    string    `json:"customerName"`
	PriceCents      int64     `json:"priceCents"`
}

func (e JobAssigned) EventName() string { return "jobs.job.assigned" }

// JobStarted is published when the assigned technician begins work.
type JobStarted struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
}

func (e JobStarted) EventName() string { return "jobs.job.started" }

// JobCancelled is published when a job is cancelled from any non-terminal state.
type JobCancelled struct {
	BaseEvent
	JobID        uuid.UUID  `json:"jobId"`
	DealerID     uuid.UUID  `json:"dealerId"`
	TechnicianID *uuid.UUID `json:"technicianId,omitempty"`
	CancelledBy  uuid.UUID  `json:"cancelledBy"`
	Reason       string     `json:"reason,omitempty"`
}

func (e JobCancelled) EventName() string { return "jobs.job.cancelled" }

// CompletionCodeIssued is published when a technician requests a completion
// code. The notification module delivers the code to the customer.
type CompletionCodeIssued struct {
	BaseEvent
	JobID         uuid.UUID `json:"jobId"`
	TechnicianID  uuid.UUID `json:"technicianId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone"`
	Code          string    `json:"code"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func (e CompletionCodeIssued) EventName() string { return "jobs.completion.code_issued" }

// JobCompletionVerified is published when the customer-held completion code
// is verified and the job moves to pending approval.
type JobCompletionVerified struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	CompletedAt  time.Time `json:"completedAt"`
}

func (e JobCompletionVerified) EventName() string { return "jobs.completion.verified" }

// JobCompleted is published when the dealer approves the pending completion.
// This is the terminal success event and triggers trust recomputation for
// both parties.
type JobCompleted struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	DealerID     uuid.UUID `json:"dealerId"`
	TechnicianID uuid.UUID `json:"technicianId"`
	PriceCents   int64     `json:"priceCents"`
}

func (e JobCompleted) EventName() string { return "jobs.job.completed" }

// =============================================================================
// Trust Domain Events
// =============================================================================

// TrustScoreChanged is published after every trust score recomputation.
type TrustScoreChanged struct {
	BaseEvent
	SubjectID   uuid.UUID `json:"subjectId"`
	SubjectType string    `json:"subjectType"` // "technician" or "dealer"
	OldScore    float64   `json:"oldScore"`
	NewScore    float64   `json:"newScore"`
	OldStatus   string    `json:"oldStatus"`
	NewStatus   string    `json:"newStatus"`
	ChangeType  string    `json:"changeType"`
}

func (e TrustScoreChanged) EventName() string { return "trust.score.changed" }
