// Package transport defines the request and response DTOs for the trust API.
package transport

import (
	"time"

	"fieldserve_backend/internal/trust/repository"
	"fieldserve_backend/internal/trust/service"

	"github.com/google/uuid"
)

type AdjustScoreRequest struct {
	Delta  *float64 `json:"delta,omitempty" validate:"omitempty,gte=-100,lte=100"`
	Score  *float64 `json:"score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Reason string   `json:"reason" validate:"required,min=3,max=500"`
}

type ScoreResponse struct {
	SubjectID   uuid.UUID `json:"subjectId"`
	SubjectType string    `json:"subjectType"`
	Score       float64   `json:"score"`
	Status      string    `json:"status"`
}

type RecalculateResponse struct {
	SubjectID uuid.UUID `json:"subjectId"`
	OldScore  float64   `json:"oldScore"`
	NewScore  float64   `json:"newScore"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
}

type HistoryEntryResponse struct {
	ID         uuid.UUID  `json:"id"`
	OldScore   float64    `json:"oldScore"`
	NewScore   float64    `json:"newScore"`
	Delta      float64    `json:"delta"`
	ChangeType string     `json:"changeType"`
	Reason     string     `json:"reason"`
	ChangedBy  *uuid.UUID `json:"changedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type HistoryResponse struct {
	SubjectID uuid.UUID              `json:"subjectId"`
	Entries   []HistoryEntryResponse `json:"entries"`
	Count     int                    `json:"count"`
}

func ToRecalculateResponse(r service.Result) RecalculateResponse {
	return RecalculateResponse{
		SubjectID: r.SubjectID,
		OldScore:  r.OldScore,
		NewScore:  r.NewScore,
		Status:    string(r.Status),
		Reason:    r.Reason,
	}
}

func ToHistoryResponse(subjectID uuid.UUID, rows []repository.HistoryRow) HistoryResponse {
	entries := make([]HistoryEntryResponse, 0, len(rows))
	for _, h := range rows {
		entries = append(entries, HistoryEntryResponse{
			ID:         h.ID,
			OldScore:   h.OldScore,
			NewScore:   h.NewScore,
			Delta:      h.Delta,
			ChangeType: h.ChangeType,
			Reason:     h.Reason,
			ChangedBy:  h.ChangedBy,
			CreatedAt:  h.CreatedAt,
		})
	}
	return HistoryResponse{SubjectID: subjectID, Entries: entries, Count: len(entries)}
}
