// Package jobs provides the job marketplace bounded context module: posting,
// the soft-lock assignment protocol, and completion verification.
package jobs

import (
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/jobs/handler"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/events"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the jobs bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and wires the jobs module.
func NewModule(pool *pgxpool.Pool, directory service.TechnicianDirectory, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, directory, repo, eventBus, cfg, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "jobs" }

// Service exposes the job service for composition (scheduler tasks).
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts the jobs API under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/jobs")
	m.handler.RegisterRoutes(group, ctx.VerifyRateLimiter.RateLimit())
}
