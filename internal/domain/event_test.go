package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertKindMetadata(t *testing.T) {
	titles := map[string]bool{}
	for _, k := range AllAlertKinds() {
		assert.NotEqual(t, "unknown", k.String())
		titles[k.Title()] = true
	}
	assert.Len(t, titles, 4, "every kind has a distinct title")

	assert.Equal(t, LevelCritical, AlertOutOfBounds.Level())
	assert.Equal(t, LevelWarning, AlertOldPosition.Level())
	assert.Equal(t, LevelInfo, AlertPnL.Level())
	assert.Equal(t, "unknown", AlertKind(42).String())
}

func TestNewAlertEvent(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAlertEvent(7, AlertPnL, "Position 7 in high USD profit: 25.00%", 25, ts)
	b := NewAlertEvent(7, AlertPnL, "", 25, ts)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "💵 Cash out 💵", a.Title)
	assert.Equal(t, ts, a.Timestamp)
	assert.False(t, a.Delivered)
}
