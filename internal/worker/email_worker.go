package worker

// email_worker.go
// Sends the order confirmation with the pickup slip attached.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pickupshop/internal/infra"

	"github.com/rs/zerolog/log"
)

// MailSender is satisfied by *infra.Mailer.
type MailSender interface {
	Send(to, subject, body, attachmentName string, attachment []byte) error
}

// EmailWorker processes jobs from QueueEmail.
type EmailWorker struct {
	mailer   MailSender
	cb       *infra.Breaker
	shopName string
}

func NewEmailWorker(mailer MailSender, cb *infra.Breaker, shopName string) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb, shopName: shopName}
}

// Process renders and sends one confirmation. Malformed payloads and
// payloads without a recipient are dropped without retry.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload OrderEmailPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Str("order_id", payload.Order.ID).Msg("email_worker: empty to_email, skipping")
		return nil
	}

	var slip bytes.Buffer
	if err := infra.WriteSlipPDF(&slip, w.shopName, &payload.Order); err != nil {
		return fmt.Errorf("email_worker: render slip: %w", err)
	}

	subject := fmt.Sprintf("%s: order %s confirmed", w.shopName, shortID(payload.Order.ID))
	body := confirmationBody(w.shopName, payload)
	send := func() error {
		return w.mailer.Send(payload.ToEmail, subject, body, "pickup-slip-"+shortID(payload.Order.ID)+".pdf", slip.Bytes())
	}

	var err error
	if w.cb != nil {
		err = w.cb.Do(send)
	} else {
		err = send()
	}
	if err != nil && !errors.Is(err, infra.ErrBreakerOpen) && !infra.IsTransientMailError(err) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}
	log.Info().Str("to", payload.ToEmail).Str("order_id", payload.Order.ID).Msg("email_worker: confirmation sent")
	return nil
}

func confirmationBody(shop string, p OrderEmailPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", p.CustomerName)
	fmt.Fprintf(&b, "Thank you for your order at %s.\n\n", shop)
	for _, l := range p.Order.Lines {
		fmt.Fprintf(&b, "  %-30s x%-4d %10s\n", l.ProductName, l.Quantity, l.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", p.Order.TotalAmount.StringFixed(2))
	if s := p.Order.Schedule; s != nil {
		fmt.Fprintf(&b, "Pickup: %s %s-%s at %s\n", s.Date, s.PickupStart, s.PickupEnd, s.Location)
	} else {
		fmt.Fprintf(&b, "Delivery: %s\n", p.Order.DeliveryMethod)
	}
	b.WriteString("\nYour pickup slip is attached.\n")
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
