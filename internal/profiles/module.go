// Package profiles provides the technician and dealer profile bounded context.
package profiles

import (
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/profiles/handler"
	"fieldserve_backend/internal/profiles/repository"
	"fieldserve_backend/internal/profiles/service"
	"fieldserve_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the profiles bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	directory *service.Directory
	repo      *repository.Repository
}

// NewModule creates and wires the profiles module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	return &Module{
		handler:   handler.New(service.New(repo), val),
		directory: service.NewDirectory(repo),
		repo:      repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "profiles" }

// Directory exposes the technician lookup port consumed by the jobs module.
func (m *Module) Directory() *service.Directory { return m.directory }

// Repository exposes the profile store for the trust engine's score writes.
func (m *Module) Repository() *repository.Repository { return m.repo }

// RegisterRoutes mounts the profile routes under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
}
