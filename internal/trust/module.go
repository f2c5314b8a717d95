// Package trust provides the trust score bounded context: recomputation,
// manual overrides, the audit ledger and the score cache.
package trust

import (
	"context"
	"time"

	"fieldserve_backend/internal/events"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/trust/handler"
	"fieldserve_backend/internal/trust/repository"
	"fieldserve_backend/internal/trust/service"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the trust bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and wires the trust module. redisClient may be nil, in
// which case scores are always read from the database.
func NewModule(pool *pgxpool.Pool, redisClient *redis.Client, cacheTTL time.Duration, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var cache service.ScoreCache
	if redisClient != nil {
		cache = service.NewRedisCache(redisClient, cacheTTL)
	}
	svc := service.New(repo, cache, eventBus, log)

	// A completed job moves both parties' stats.
	eventBus.Subscribe(events.JobCompleted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.JobCompleted)
		if !ok {
			return nil
		}
		if _, err := svc.Recalculate(ctx, e.TechnicianID, repository.SubjectTechnician, service.ChangeJobCompletion); err != nil {
			log.Error("trust recompute after completion failed", "technician_id", e.TechnicianID.String(), "error", err)
		}
		if _, err := svc.Recalculate(ctx, e.DealerID, repository.SubjectDealer, service.ChangeJobCompletion); err != nil {
			log.Error("trust recompute after completion failed", "dealer_id", e.DealerID.String(), "error", err)
		}
		return nil
	}))

	// Cancellations feed the abandoned-jobs signal for the technician.
	eventBus.Subscribe(events.JobCancelled{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.JobCancelled)
		if !ok || e.TechnicianID == nil {
			return nil
		}
		if _, err := svc.Recalculate(ctx, *e.TechnicianID, repository.SubjectTechnician, service.ChangeSystemRecalculation); err != nil {
			log.Error("trust recompute after cancellation failed", "technician_id", e.TechnicianID.String(), "error", err)
		}
		return nil
	}))

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "trust" }

// Service exposes the engine for the scheduler's periodic sweep.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts the trust routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected, ctx.Admin)
}
