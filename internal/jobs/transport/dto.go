// Package transport defines the request and response DTOs for the jobs API.
package transport

import (
	"time"

	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"

	"github.com/google/uuid"
)

// Request DTOs

type CreateJobRequest struct {
	Title                    string  `json:"title" validate:"required,min=3,max=200"`
	Description              *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	CustomerName             string  `json:"customerName" validate:"required,min=1,max=150"`
	CustomerEmail            string  `json:"customerEmail" validate:"required,email"`
	CustomerPhone            string  `json:"customerPhone" validate:"required,min=5,max=20"`
	SiteLat                  float64 `json:"siteLat" validate:"min=-90,max=90"`
	SiteLng                  float64 `json:"siteLng" validate:"min=-180,max=180"`
	PriceCents               int64   `json:"priceCents" validate:"required,gt=0"`
	EstimatedDurationMinutes int     `json:"estimatedDurationMinutes" validate:"omitempty,gt=0,lte=1440"`
}

type AcceptJobRequest struct {
	// OfferedPriceCents defaults to the job's listed price when omitted.
	OfferedPriceCents *int64 `json:"offeredPriceCents,omitempty" validate:"omitempty,gt=0"`
}

type RejectJobRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type CancelJobRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type VerifyCompletionRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type CounterBidRequest struct {
	PriceCents int64 `json:"priceCents" validate:"required,gt=0"`
}

// Response DTOs

type SoftLockResponse struct {
	TechnicianID uuid.UUID `json:"technicianId"`
	LockedAt     time.Time `json:"lockedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type JobResponse struct {
	ID                       uuid.UUID         `json:"id"`
	DealerID                 uuid.UUID         `json:"dealerId"`
	Title                    string            `json:"title"`
	Description              *string           `json:"description,omitempty"`
	CustomerName             string            `json:"customerName"`
	CustomerEmail            string            `json:"customerEmail"`
	CustomerPhone            string            `json:"customerPhone"`
	SiteLat                  float64           `json:"siteLat"`
	SiteLng                  float64           `json:"siteLng"`
	PriceCents               int64             `json:"priceCents"`
	PriceLocked              bool              `json:"priceLocked"`
	Status                   string            `json:"status"`
	AssignedTechnicianID     *uuid.UUID        `json:"assignedTechnicianId,omitempty"`
	SoftLock                 *SoftLockResponse `json:"softLock,omitempty"`
	CodeExpiresAt            *time.Time        `json:"codeExpiresAt,omitempty"`
	StartedAt                *time.Time        `json:"startedAt,omitempty"`
	CompletedAt              *time.Time        `json:"completedAt,omitempty"`
	EstimatedDurationMinutes int               `json:"estimatedDurationMinutes,omitempty"`
	CancelReason             *string           `json:"cancelReason,omitempty"`
	Version                  int64             `json:"version"`
	CreatedAt                time.Time         `json:"createdAt"`
	UpdatedAt                time.Time         `json:"updatedAt"`
}

type BidResponse struct {
	ID                uuid.UUID `json:"id"`
	JobID             uuid.UUID `json:"jobId"`
	TechnicianID      uuid.UUID `json:"technicianId"`
	OfferedPriceCents int64     `json:"offeredPriceCents"`
	Status            string    `json:"status"`
	RoundNumber       int       `json:"roundNumber"`
	DistanceKm        *float64  `json:"distanceKm,omitempty"`
	RatingSnapshot    *float64  `json:"ratingSnapshot,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type CompletionCodeResponse struct {
	JobID     uuid.UUID `json:"jobId"`
	ExpiresAt time.Time `json:"expiresAt"`
	// The code itself is delivered to the customer out of band; the API
	// response never carries it.
}

type ListJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// ToJobResponse maps a job record onto the wire shape. The completion code
// never leaves the service boundary.
func ToJobResponse(j repository.Job) JobResponse {
	resp := JobResponse{
		ID:                       j.ID,
		DealerID:                 j.DealerID,
		Title:                    j.Title,
		Description:              j.Description,
		CustomerName:             j.CustomerName,
		CustomerEmail:            j.CustomerEmail,
		CustomerPhone:            j.CustomerPhone,
		SiteLat:                  j.SiteLat,
		SiteLng:                  j.SiteLng,
		PriceCents:               j.FinalPriceCents,
		PriceLocked:              j.PriceLocked,
		Status:                   string(j.Status),
		AssignedTechnicianID:     j.AssignedTechnicianID,
		CodeExpiresAt:            j.CodeExpiresAt,
		StartedAt:                j.StartedAt,
		CompletedAt:              j.CompletedAt,
		EstimatedDurationMinutes: j.EstimatedDurationMinutes,
		CancelReason:             j.CancelReason,
		Version:                  j.Version,
		CreatedAt:                j.CreatedAt,
		UpdatedAt:                j.UpdatedAt,
	}
	if j.Status == domain.StatusSoftLocked && j.SoftLockedByTechnicianID != nil &&
		j.SoftLockedAt != nil && j.SoftLockExpiresAt != nil {
		resp.SoftLock = &SoftLockResponse{
			TechnicianID: *j.SoftLockedByTechnicianID,
			LockedAt:     *j.SoftLockedAt,
			ExpiresAt:    *j.SoftLockExpiresAt,
		}
	}
	return resp
}

// ToBidResponse maps a bid record onto the wire shape.
func ToBidResponse(b repository.Bid) BidResponse {
	return BidResponse{
		ID:                b.ID,
		JobID:             b.JobID,
		TechnicianID:      b.TechnicianID,
		OfferedPriceCents: b.OfferedPriceCents,
		Status:            string(b.Status),
		RoundNumber:       b.RoundNumber,
		DistanceKm:        b.DistanceKm,
		RatingSnapshot:    b.RatingSnapshot,
		CreatedAt:         b.CreatedAt,
	}
}
