package notification

import (
	"context"
	"time"

	"fieldserve_backend/internal/email"
	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/notification/outbox"
	"fieldserve_backend/platform/logger"
)

// subscriber turns domain events into durable outbox records. Delivery
// itself happens when the scheduler drains the outbox; the completion code
// is the exception and is also dispatched immediately because the customer
// is waiting for it on site.
type subscriber struct {
	outbox     *outbox.Repository
	dispatcher *Dispatcher
	log        *logger.Logger
}

func (s *subscriber) enqueue(ctx context.Context, msg Message) {
	if _, err := s.outbox.Insert(ctx, outbox.InsertParams{
		RecipientID: msg.RecipientID,
		Kind:        msg.Kind,
		Payload:     msg,
		RunAt:       time.Now().UTC(),
	}); err != nil {
		s.log.Error("outbox insert failed", "kind", msg.Kind, "error", err)
	}
}

func (s *subscriber) register(bus events.Bus) {
	bus.Subscribe(events.JobSoftLocked{}.EventName(), events.HandlerFunc(s.onSoftLocked))
	bus.Subscribe(events.JobAssigned{}.EventName(), events.HandlerFunc(s.onAssigned))
	bus.Subscribe(events.CompletionCodeIssued{}.EventName(), events.HandlerFunc(s.onCodeIssued))
	bus.Subscribe(events.JobCompletionVerified{}.EventName(), events.HandlerFunc(s.onCompletionVerified))
	bus.Subscribe(events.JobCompleted{}.EventName(), events.HandlerFunc(s.onCompleted))
	bus.Subscribe(events.TrustScoreChanged{}.EventName(), events.HandlerFunc(s.onTrustChanged))
}

func (s *subscriber) onSoftLocked(ctx context.Context, event events.Event) error {
	e, ok := event.(events.JobSoftLocked)
	if !ok {
		return nil
	}
	s.enqueue(ctx, Message{
		RecipientID: e.DealerID,
		Channels:    []Channel{ChannelInApp, ChannelEmail},
		Kind:        e.EventName(),
		Subject:     email.SoftLockSubject(),
		Body:        email.SoftLockBody(e.TechnicianName, e.PriceCents),
		JobID:       &e.JobID,
	})
	return nil
}

func (s *subscriber) onAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.JobAssigned)
	if !ok {
		return nil
	}
	s.enqueue(ctx, Message{
		RecipientID: e.TechnicianID,
		Channels:    []Channel{ChannelInApp, ChannelEmail, ChannelWhatsApp},
		Email:       e.TechnicianEmail,
		Phone:       e.TechnicianPhone,
		Kind:        e.EventName(),
		Subject:     email.AssignedSubject(),
		Body:        email.AssignedBody(e.CustomerName, e.PriceCents),
		Text:        "You are confirmed for the job. Check the app for details.",
		JobID:       &e.JobID,
	})
	return nil
}

// onCodeIssued dispatches synchronously: the technician is standing next to
// the customer. A copy still goes through the outbox for retry if every
// immediate channel fails.
func (s *subscriber) onCodeIssued(ctx context.Context, event events.Event) error {
	e, ok := event.(events.CompletionCodeIssued)
	if !ok {
		return nil
	}
	validMinutes := int(time.Until(e.ExpiresAt).Minutes())
	msg := Message{
		RecipientID: e.JobID, // customer has no account; keyed by job
		Channels:    []Channel{ChannelEmail, ChannelWhatsApp},
		Email:       e.CustomerEmail,
		Phone:       e.CustomerPhone,
		Kind:        e.EventName(),
		Subject:     email.CompletionCodeSubject(),
		Body:        email.CompletionCodeBody(e.CustomerName, e.Code, validMinutes),
		Text:        "Your completion code: " + e.Code,
		JobID:       &e.JobID,
	}
	if _, err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.enqueue(ctx, msg)
	}
	return nil
}

func (s *subscriber) onCompletionVerified(ctx context.Context, event events.Event) error {
	e, ok := event.(events.JobCompletionVerified)
	if !ok {
		return nil
	}
	s.enqueue(ctx, Message{
		RecipientID: e.DealerID,
		Channels:    []Channel{ChannelInApp, ChannelEmail},
		Kind:        e.EventName(),
		Subject:     email.CompletionPendingSubject(),
		Body:        email.CompletionPendingBody(),
		JobID:       &e.JobID,
	})
	return nil
}

func (s *subscriber) onCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.JobCompleted)
	if !ok {
		return nil
	}
	s.enqueue(ctx, Message{
		RecipientID: e.TechnicianID,
		Channels:    []Channel{ChannelInApp, ChannelEmail},
		Kind:        e.EventName(),
		Subject:     email.CompletedSubject(),
		Body:        email.CompletedBody(e.PriceCents),
		JobID:       &e.JobID,
	})
	return nil
}

// onTrustChanged only notifies on a band drop; routine recomputations stay
// quiet.
func (s *subscriber) onTrustChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.TrustScoreChanged)
	if !ok || !isBandDrop(e.OldStatus, e.NewStatus) {
		return nil
	}
	s.enqueue(ctx, Message{
		RecipientID: e.SubjectID,
		Channels:    []Channel{ChannelInApp, ChannelEmail},
		Kind:        e.EventName(),
		Subject:     email.TrustBandDropSubject(),
		Body:        email.TrustBandDropBody(e.NewStatus),
	})
	return nil
}

var bandRank = map[string]int{
	"GOOD": 3, "NORMAL": 2, "RISK": 1, "CRITICAL": 0,
}

func isBandDrop(oldStatus, newStatus string) bool {
	oldRank, okOld := bandRank[oldStatus]
	newRank, okNew := bandRank[newStatus]
	return okOld && okNew && newRank < oldRank
}
