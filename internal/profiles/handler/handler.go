// Package handler exposes the profiles HTTP API.
package handler

import (
	"net/http"

	"fieldserve_backend/internal/profiles/service"
	"fieldserve_backend/internal/profiles/transport"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/technicians", h.CreateTechnician)
	rg.GET("/technicians/:id", h.GetTechnician)
	rg.PUT("/technicians/:id", h.UpdateTechnician)
	rg.POST("/dealers", h.CreateDealer)
	rg.GET("/dealers/:id", h.GetDealer)
}

func (h *Handler) CreateTechnician(c *gin.Context) {
	var req transport.CreateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tech, err := h.svc.CreateTechnician(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, tech)
}

func (h *Handler) GetTechnician(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	tech, err := h.svc.GetTechnician(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tech)
}

func (h *Handler) UpdateTechnician(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	tech, err := h.svc.UpdateTechnician(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, tech)
}

func (h *Handler) CreateDealer(c *gin.Context) {
	var req transport.CreateDealerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	dealer, err := h.svc.CreateDealer(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, dealer)
}

func (h *Handler) GetDealer(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	dealer, err := h.svc.GetDealer(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dealer)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid profile id", nil)
		return uuid.Nil, false
	}
	return id, true
}
