// internal/monitor/alerts.go
package monitor

import (
	"sync"
	"time"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

type alertKey struct {
	positionID int64
	kind       domain.AlertKind
}

// AlertTracker remembers when each (position, alert kind) last fired and
// enforces a cooldown between two triggers of the same key.
//
// State lives only in memory. After a restart every key starts as "never
// triggered", so one redundant alert per active condition can be sent.
type AlertTracker struct {
	mu            sync.Mutex
	cooldown      time.Duration
	lastTriggered map[alertKey]time.Time
}

// NewAlertTracker creates a tracker with the given cooldown.
func NewAlertTracker(cooldown time.Duration) *AlertTracker {
	return &AlertTracker{
		cooldown:      cooldown,
		lastTriggered: make(map[alertKey]time.Time),
	}
}

// ShouldTrigger reports whether kind may fire for positionID at now. When it
// returns true, now is recorded as the new last-triggered time.
func (t *AlertTracker) ShouldTrigger(positionID int64, kind domain.AlertKind, now time.Time) bool {
	key := alertKey{positionID: positionID, kind: kind}

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastTriggered[key]; ok && now.Sub(last) < t.cooldown {
		return false
	}

	t.lastTriggered[key] = now
	return true
}

// LastTriggered returns the last recorded trigger for a key.
func (t *AlertTracker) LastTriggered(positionID int64, kind domain.AlertKind) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastTriggered[alertKey{positionID: positionID, kind: kind}]
	return last, ok
}

// Reset forgets every alert recorded for a position.
func (t *AlertTracker) Reset(positionID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, kind := range domain.AllAlertKinds() {
		delete(t.lastTriggered, alertKey{positionID: positionID, kind: kind})
	}
}

// Cooldown returns the configured cooldown.
func (t *AlertTracker) Cooldown() time.Duration {
	return t.cooldown
}
