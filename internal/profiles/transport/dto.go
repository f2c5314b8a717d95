// Package transport defines the request and response DTOs for the profiles API.
package transport

import (
	"time"

	"fieldserve_backend/internal/profiles/repository"

	"github.com/google/uuid"
)

type CreateTechnicianRequest struct {
	Name  string   `json:"name" validate:"required,min=1,max=150"`
	Email string   `json:"email" validate:"required,email"`
	Phone string   `json:"phone" validate:"required,min=5,max=20"`
	Lat   *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng   *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
}

type UpdateTechnicianRequest struct {
	Name  *string  `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	Email *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string  `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Lat   *float64 `json:"lat,omitempty" validate:"omitempty,min=-90,max=90"`
	Lng   *float64 `json:"lng,omitempty" validate:"omitempty,min=-180,max=180"`
}

type CreateDealerRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=150"`
	CompanyName string `json:"companyName" validate:"required,min=1,max=200"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,min=5,max=20"`
}

type TechnicianResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Lat           *float64  `json:"lat,omitempty"`
	Lng           *float64  `json:"lng,omitempty"`
	Rating        *float64  `json:"rating,omitempty"`
	TotalJobs     int       `json:"totalJobs"`
	CompletedJobs int       `json:"completedJobs"`
	CancelledJobs int       `json:"cancelledJobs"`
	TrustScore    float64   `json:"trustScore"`
	TrustStatus   string    `json:"trustStatus"`
	CreatedAt     time.Time `json:"createdAt"`
}

type DealerResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CompanyName string    `json:"companyName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	TrustScore  float64   `json:"trustScore"`
	TrustStatus string    `json:"trustStatus"`
	CreatedAt   time.Time `json:"createdAt"`
}

func ToTechnicianResponse(t repository.Technician) TechnicianResponse {
	return TechnicianResponse{
		ID:            t.ID,
		Name:          t.Name,
		Email:         t.Email,
		Phone:         t.Phone,
		Lat:           t.Lat,
		Lng:           t.Lng,
		Rating:        t.Rating,
		TotalJobs:     t.TotalJobs,
		CompletedJobs: t.CompletedJobs,
		CancelledJobs: t.CancelledJobs,
		TrustScore:    t.TrustScore,
		TrustStatus:   t.TrustStatus,
		CreatedAt:     t.CreatedAt,
	}
}

func ToDealerResponse(d repository.Dealer) DealerResponse {
	return DealerResponse{
		ID:          d.ID,
		Name:        d.Name,
		CompanyName: d.CompanyName,
		Email:       d.Email,
		Phone:       d.Phone,
		TrustScore:  d.TrustScore,
		TrustStatus: d.TrustStatus,
		CreatedAt:   d.CreatedAt,
	}
}
