// Package handler exposes the trust score HTTP API.
package handler

import (
	"net/http"
	"strconv"

	"fieldserve_backend/internal/trust/repository"
	"fieldserve_backend/internal/trust/service"
	"fieldserve_backend/internal/trust/transport"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the read/recalculate routes on the authenticated
// group and the manual-adjust route on the admin group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin *gin.RouterGroup) {
	rg.GET("/trust/:subjectType/:id", h.Current)
	rg.GET("/trust/:subjectType/:id/history", h.History)
	rg.POST("/trust/:subjectType/:id/recalculate", h.Recalculate)
	admin.POST("/trust/:subjectType/:id/adjust", h.Adjust)
}

func (h *Handler) Current(c *gin.Context) {
	subjectID, st, ok := h.subject(c)
	if !ok {
		return
	}

	score, status, err := h.svc.Current(c.Request.Context(), subjectID, st)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ScoreResponse{
		SubjectID:   subjectID,
		SubjectType: string(st),
		Score:       score,
		Status:      status,
	})
}

func (h *Handler) Recalculate(c *gin.Context) {
	subjectID, st, ok := h.subject(c)
	if !ok {
		return
	}

	result, err := h.svc.Recalculate(c.Request.Context(), subjectID, st, service.ChangeSystemRecalculation)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRecalculateResponse(result))
}

func (h *Handler) Adjust(c *gin.Context) {
	subjectID, st, ok := h.subject(c)
	if !ok {
		return
	}
	adminID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.AdjustScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.ManualAdjust(c.Request.Context(), subjectID, st, req.Delta, req.Score, adminID, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToRecalculateResponse(result))
}

func (h *Handler) History(c *gin.Context) {
	subjectID, st, ok := h.subject(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, err := h.svc.History(c.Request.Context(), subjectID, st, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToHistoryResponse(subjectID, rows))
}

func (h *Handler) subject(c *gin.Context) (uuid.UUID, repository.SubjectType, bool) {
	st, err := service.ParseSubjectType(c.Param("subjectType"))
	if err != nil {
		httpkit.HandleError(c, err)
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid subject id", nil)
		return uuid.Nil, "", false
	}
	return id, st, true
}
