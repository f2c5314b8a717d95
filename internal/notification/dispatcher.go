// Package notification fans job and trust events out to customers, dealers
// and technicians over email, WhatsApp and in-app channels.
package notification

import (
	"context"
	"fmt"

	"fieldserve_backend/internal/notification/inapp"
	"fieldserve_backend/platform/logger"

	"github.com/google/uuid"
)

// Channel identifies a delivery mechanism.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelInApp    Channel = "IN_APP"
)

// Message is one notification to one recipient across any set of channels.
// It is also the outbox payload shape.
type Message struct {
	RecipientID uuid.UUID  `json:"recipientId"`
	Channels    []Channel  `json:"channels"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Kind        string     `json:"kind"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Text        string     `json:"text,omitempty"` // plain-text variant for WhatsApp
	JobID       *uuid.UUID `json:"jobId,omitempty"`
}

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// TextSender delivers one plain text message to a phone number.
type TextSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

// InAppStore persists an in-app notification.
type InAppStore interface {
	Insert(ctx context.Context, n inapp.Notification) (uuid.UUID, error)
}

// Dispatcher delivers a Message across its channels. Every channel attempt
// is isolated: one channel failing never stops the others, and no failure
// ever propagates to the caller beyond the returned count.
type Dispatcher struct {
	email EmailSender
	text  TextSender
	inApp InAppStore
	log   *logger.Logger
}

func NewDispatcher(email EmailSender, text TextSender, inApp InAppStore, log *logger.Logger) *Dispatcher {
	return &Dispatcher{email: email, text: text, inApp: inApp, log: log}
}

// Dispatch attempts every requested channel and returns how many succeeded.
// An error is returned only when every channel failed, so outbox processing
// can requeue the record.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (int, error) {
	if len(msg.Channels) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, channel := range msg.Channels {
		if err := d.deliver(ctx, channel, msg); err != nil {
			recipient := msg.Email
			if channel == ChannelWhatsApp {
				recipient = msg.Phone
			}
			if channel == ChannelInApp {
				recipient = msg.RecipientID.String()
			}
			d.log.NotificationError(string(channel), recipient, err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return 0, fmt.Errorf("all %d channels failed for %q", len(msg.Channels), msg.Kind)
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, msg Message) (err error) {
	// A panicking channel implementation counts as that channel failing,
	// nothing more.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", channel, r)
		}
	}()

	switch channel {
	case ChannelEmail:
		if d.email == nil {
			return fmt.Errorf("email channel not configured")
		}
		if msg.Email == "" {
			return fmt.Errorf("no email address for recipient")
		}
		return d.email.Send(ctx, msg.Email, msg.Subject, msg.Body)

	case ChannelWhatsApp:
		if d.text == nil {
			return fmt.Errorf("whatsapp channel not configured")
		}
		if msg.Phone == "" {
			return fmt.Errorf("no phone number for recipient")
		}
		text := msg.Text
		if text == "" {
			text = msg.Subject
		}
		return d.text.SendMessage(ctx, msg.Phone, text)

	case ChannelInApp:
		if d.inApp == nil {
			return fmt.Errorf("in-app channel not configured")
		}
		_, err := d.inApp.Insert(ctx, inapp.Notification{
			RecipientID: msg.RecipientID,
			Kind:        msg.Kind,
			Title:       msg.Subject,
			Body:        msg.Body,
			JobID:       msg.JobID,
		})
		return err

	default:
		return fmt.Errorf("unknown channel %q", channel)
	}
}
