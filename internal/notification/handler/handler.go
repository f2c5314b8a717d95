// Package handler exposes the in-app notification feed.
package handler

import (
	"net/http"
	"strconv"

	"fieldserve_backend/internal/notification/inapp"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	inApp *inapp.Repository
}

func New(inApp *inapp.Repository) *Handler {
	return &Handler{inApp: inApp}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("/:id/read", h.MarkRead)
}

// NotificationResponse is one in-app notification as returned to clients.
type NotificationResponse struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	JobID     *uuid.UUID `json:"jobId,omitempty"`
	ReadAt    *string    `json:"readAt,omitempty"`
	CreatedAt string     `json:"createdAt"`
}

func (h *Handler) List(c *gin.Context) {
	userID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	items, err := h.inApp.ListForRecipient(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		resp := NotificationResponse{
			ID:        n.ID,
			Kind:      n.Kind,
			Title:     n.Title,
			Body:      n.Body,
			JobID:     n.JobID,
			CreatedAt: n.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if n.ReadAt != nil {
			formatted := n.ReadAt.Format("2006-01-02T15:04:05Z07:00")
			resp.ReadAt = &formatted
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID, err := httpkit.UserID(c)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid notification id"))
		return
	}

	if err := h.inApp.MarkRead(c.Request.Context(), userID, id); err != nil {
		httpkit.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
