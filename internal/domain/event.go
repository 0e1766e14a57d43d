package domain

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zapcore"
)

// AlertKind identifies one of the alert conditions evaluated for a position.
type AlertKind int

const (
	AlertOutOfBounds AlertKind = iota
	AlertOldPosition
	AlertPnL
	AlertImpermanentLoss
)

// AllAlertKinds returns every alert kind in evaluation order.
func AllAlertKinds() []AlertKind {
	return []AlertKind{AlertOutOfBounds, AlertOldPosition, AlertPnL, AlertImpermanentLoss}
}

func (k AlertKind) String() string {
	switch k {
	case AlertOutOfBounds:
		return "out_of_bounds"
	case AlertOldPosition:
		return "old_position"
	case AlertPnL:
		return "pnl"
	case AlertImpermanentLoss:
		return "impermanent_loss"
	default:
		return "unknown"
	}
}

// Title is the short notification tag for the alert kind.
func (k AlertKind) Title() string {
	switch k {
	case AlertOutOfBounds:
		return "🚨 Reposition 🚨"
	case AlertOldPosition:
		return "⏰ Reposition? ⏰"
	case AlertPnL:
		return "💵 Cash out 💵"
	case AlertImpermanentLoss:
		return "🚨 Exit position! 🚨"
	default:
		return "Alert"
	}
}

// Level maps the kind onto a delivery severity.
func (k AlertKind) Level() Level {
	switch k {
	case AlertOutOfBounds, AlertImpermanentLoss:
		return LevelCritical
	case AlertOldPosition:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// Level is the severity attached to an outgoing notification.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// AlertEvent is produced by the engine for every allowed trigger.
type AlertEvent struct {
	ID         string    `json:"id"`
	PositionID int64     `json:"position_id"`
	Kind       AlertKind `json:"kind"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`

	// Value carries the kind-specific figure: current tick, age in days,
	// P&L percent or impermanent loss percent.
	Value float64 `json:"value"`

	Delivered bool `json:"delivered"`
}

// NewAlertEvent creates an event with a fresh ID and the kind's title.
func NewAlertEvent(positionID int64, kind AlertKind, message string, value float64, ts time.Time) AlertEvent {
	return AlertEvent{
		ID:         uuid.New().String(),
		PositionID: positionID,
		Kind:       kind,
		Title:      kind.Title(),
		Message:    message,
		Timestamp:  ts,
		Value:      value,
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e AlertEvent) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", e.ID)
	enc.AddInt64("position_id", e.PositionID)
	enc.AddString("kind", e.Kind.String())
	enc.AddFloat64("value", e.Value)
	enc.AddBool("delivered", e.Delivered)
	return nil
}
