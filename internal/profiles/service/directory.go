package service

import (
	"context"

	jobsvc "fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/internal/profiles/repository"

	"github.com/google/uuid"
)

// Directory adapts the profiles repository to the technician lookup port the
// jobs coordinator consumes.
type Directory struct {
	repo *repository.Repository
}

func NewDirectory(repo *repository.Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) GetTechnician(ctx context.Context, id uuid.UUID) (jobsvc.TechnicianInfo, error) {
	t, err := d.repo.GetTechnician(ctx, id)
	if err != nil {
		return jobsvc.TechnicianInfo{}, err
	}
	return jobsvc.TechnicianInfo{
		ID:     t.ID,
		Name:   t.Name,
		Email:  t.Email,
		Phone:  t.Phone,
		Lat:    t.Lat,
		Lng:    t.Lng,
		Rating: t.Rating,
	}, nil
}

func (d *Directory) IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error {
	return d.repo.IncrementCompletedJobs(ctx, id)
}

var _ jobsvc.TechnicianDirectory = (*Directory)(nil)
