package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"fieldserve_backend/internal/email"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/notification/handler"
	"fieldserve_backend/internal/notification/inapp"
	"fieldserve_backend/internal/notification/outbox"
	"fieldserve_backend/internal/whatsapp"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/events"
	"fieldserve_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// maxAttempts is how many delivery attempts a record gets before it is
// parked as failed.
const maxAttempts = 5

// Module is the notification bounded context: durable outbox, multi-channel
// dispatch and the in-app feed.
type Module struct {
	outbox     *outbox.Repository
	inApp      *inapp.Repository
	dispatcher *Dispatcher
	handler    *handler.Handler
	log        *logger.Logger
}

// NewModule wires delivery channels from config and subscribes to the
// domain events that produce notifications.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cfg *config.Config, log *logger.Logger) *Module {
	outboxRepo := outbox.New(pool)
	inAppRepo := inapp.New(pool)

	var emailSender EmailSender = email.NoopSender{}
	if cfg.GetEmailEnabled() {
		emailSender = email.NewSMTPSender(cfg)
	}

	var textSender TextSender
	if wa := whatsapp.NewClient(cfg, log); wa != nil {
		textSender = wa
	}

	dispatcher := NewDispatcher(emailSender, textSender, inAppRepo, log)

	m := &Module{
		outbox:     outboxRepo,
		inApp:      inAppRepo,
		dispatcher: dispatcher,
		handler:    handler.New(inAppRepo),
		log:        log,
	}

	sub := &subscriber{outbox: outboxRepo, dispatcher: dispatcher, log: log}
	sub.register(eventBus)

	return m
}

func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the in-app notification feed.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

// ProcessOutbox drains up to limit due outbox records, dispatching each one
// across its channels. Records where every channel failed are requeued until
// maxAttempts, then parked as failed. Returns how many records were delivered.
func (m *Module) ProcessOutbox(ctx context.Context, limit int) (int, error) {
	records, err := m.outbox.ClaimDue(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("claim due notifications: %w", err)
	}

	delivered := 0
	for _, rec := range records {
		if err := m.processRecord(ctx, rec); err != nil {
			m.log.Error("outbox record delivery failed",
				"outbox_id", rec.ID, "kind", rec.Kind, "attempts", rec.Attempts+1, "error", err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (m *Module) processRecord(ctx context.Context, rec outbox.Record) error {
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(rec.Payload, &msg); err != nil {
		// Malformed payloads never become deliverable; park immediately.
		_ = m.outbox.MarkFailed(ctx, rec.ID, "malformed payload: "+err.Error())
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if _, err := m.dispatcher.Dispatch(ctx, msg); err != nil {
		errText := err.Error()
		if rec.Attempts+1 >= maxAttempts {
			_ = m.outbox.MarkFailed(ctx, rec.ID, errText)
		} else {
			_ = m.outbox.MarkPending(ctx, rec.ID, &errText)
		}
		return err
	}

	return m.outbox.MarkSucceeded(ctx, rec.ID)
}
