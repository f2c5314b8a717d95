// Package handler exposes the jobs HTTP API.
package handler

import (
	"net/http"

	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid job id"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the job routes. verifyLimit is the stricter rate
// limit applied to the completion-code verify endpoint only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, verifyLimit gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/bids", h.ListBids)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/renew-lock", h.RenewLock)
	rg.POST("/:id/confirm", h.Confirm)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/counter-bid", h.CounterBid)
	rg.POST("/:id/start", h.Start)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/completion-code", h.IssueCompletionCode)
	rg.POST("/:id/verify-completion", verifyLimit, h.VerifyCompletion)
	rg.POST("/:id/approve-completion", h.ApproveCompletion)
}

func (h *Handler) Create(c *gin.Context) {
	dealerID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.Create(c.Request.Context(), dealerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, job)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) List(c *gin.Context) {
	filter := repository.ListFilter{}

	if raw := c.Query("dealerId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid dealerId", nil)
			return
		}
		filter.DealerID = &id
	}
	if raw := c.Query("technicianId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid technicianId", nil)
			return
		}
		filter.TechnicianID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		filter.Status = &status
	}

	jobs, err := h.svc.List(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, jobs)
}

func (h *Handler) Accept(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	technicianID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	// Body is optional: an empty accept takes the listed price.
	var req transport.AcceptJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	job, err := h.svc.Accept(c.Request.Context(), id, technicianID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) RenewLock(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	technicianID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	job, err := h.svc.RenewLock(c.Request.Context(), id, technicianID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) Confirm(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	dealerID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	job, err := h.svc.Confirm(c.Request.Context(), id, dealerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	technicianID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.RejectJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	job, err := h.svc.Reject(c.Request.Context(), id, technicianID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) CounterBid(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	technicianID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.CounterBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	bid, err := h.svc.CounterBid(c.Request.Context(), id, technicianID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, bid)
}

func (h *Handler) ListBids(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	bids, err := h.svc.ListBids(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"bids": bids, "count": len(bids)})
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	technicianID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	job, err := h.svc.StartWork(c.Request.Context(), id, technicianID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	actorID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.CancelJobRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	job, err := h.svc.Cancel(c.Request.Context(), id, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) IssueCompletionCode(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	technicianID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	resp, err := h.svc.IssueCompletionCode(c.Request.Context(), id, technicianID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) VerifyCompletion(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	actorID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	var req transport.VerifyCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.VerifyCompletionCode(c.Request.Context(), id, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) ApproveCompletion(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	dealerID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	job, err := h.svc.ApproveCompletion(c.Request.Context(), id, dealerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

func (h *Handler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return uuid.Nil, false
	}
	return id, true
}
