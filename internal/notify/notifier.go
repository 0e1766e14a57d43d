// Package notify delivers alert messages to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// Message is a single notification.
type Message struct {
	PositionID int64        `json:"position_id,omitempty"`
	Kind       string       `json:"kind,omitempty"`
	Title      string       `json:"title"`
	Text       string       `json:"text"`
	Level      domain.Level `json:"level"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Notifier delivers messages. Implementations return an error wrapping
// domain.ErrDeliveryFailed when the transport rejected the message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, msg Message) error

func (f Func) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }

// Multi fans a message out to every sink. All sinks are attempted; the
// returned error joins the individual failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliveryError marks err as a delivery failure unless it already is one.
func deliveryError(sink string, err error) error {
	if errors.Is(err, domain.ErrDeliveryFailed) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", sink, domain.ErrDeliveryFailed, err)
}
