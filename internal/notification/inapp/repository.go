// Package inapp stores notifications shown inside the product UI.
package inapp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Kind        string
	Title       string
	Body        string
	JobID       *uuid.UUID
	ReadAt      *time.Time
	CreatedAt   time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO in_app_notifications (recipient_id, kind, title, body, job_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		n.RecipientID, n.Kind, n.Title, n.Body, n.JobID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert in-app notification: %w", err)
	}
	return id, nil
}

// ListForRecipient returns the recipient's notifications, newest first.
func (r *Repository) ListForRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit int) ([]Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	query := `SELECT id, recipient_id, kind, title, body, job_id, read_at, created_at
		FROM in_app_notifications
		WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list in-app notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Body, &n.JobID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan in-app notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate in-app notifications: %w", err)
	}
	return out, nil
}

// MarkRead stamps a notification as read for its recipient.
func (r *Repository) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE in_app_notifications SET read_at = now()
		 WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
