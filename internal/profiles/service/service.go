// Package service implements profile management for technicians and dealers.
package service

import (
	"context"

	"fieldserve_backend/internal/profiles/repository"
	"fieldserve_backend/internal/profiles/transport"
	"fieldserve_backend/platform/phone"

	"github.com/google/uuid"
)

type Service struct {
	repo *repository.Repository
}

func New(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTechnician(ctx context.Context, req transport.CreateTechnicianRequest) (transport.TechnicianResponse, error) {
	created, err := s.repo.CreateTechnician(ctx, repository.Technician{
		Name:  req.Name,
		Email: req.Email,
		Phone: phone.NormalizeE164(req.Phone),
		Lat:   req.Lat,
		Lng:   req.Lng,
	})
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return transport.ToTechnicianResponse(created), nil
}

func (s *Service) GetTechnician(ctx context.Context, id uuid.UUID) (transport.TechnicianResponse, error) {
	t, err := s.repo.GetTechnician(ctx, id)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return transport.ToTechnicianResponse(t), nil
}

func (s *Service) UpdateTechnician(ctx context.Context, id uuid.UUID, req transport.UpdateTechnicianRequest) (transport.TechnicianResponse, error) {
	current, err := s.repo.GetTechnician(ctx, id)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	if req.Name != nil {
		current.Name = *req.Name
	}
	if req.Email != nil {
		current.Email = *req.Email
	}
	if req.Phone != nil {
		current.Phone = phone.NormalizeE164(*req.Phone)
	}
	if req.Lat != nil {
		current.Lat = req.Lat
	}
	if req.Lng != nil {
		current.Lng = req.Lng
	}

	updated, err := s.repo.UpdateTechnician(ctx, current)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return transport.ToTechnicianResponse(updated), nil
}

func (s *Service) CreateDealer(ctx context.Context, req transport.CreateDealerRequest) (transport.DealerResponse, error) {
	created, err := s.repo.CreateDealer(ctx, repository.Dealer{
		Name:        req.Name,
		CompanyName: req.CompanyName,
		Email:       req.Email,
		Phone:       phone.NormalizeE164(req.Phone),
	})
	if err != nil {
		return transport.DealerResponse{}, err
	}
	return transport.ToDealerResponse(created), nil
}

func (s *Service) GetDealer(ctx context.Context, id uuid.UUID) (transport.DealerResponse, error) {
	d, err := s.repo.GetDealer(ctx, id)
	if err != nil {
		return transport.DealerResponse{}, err
	}
	return transport.ToDealerResponse(d), nil
}
