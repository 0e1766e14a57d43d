package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// ConsoleNotifier renders alerts as bordered blocks on a terminal.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (c *ConsoleNotifier) Send(_ context.Context, msg Message) error {
	color := lipgloss.Color("10")
	switch msg.Level {
	case domain.LevelCritical:
		color = lipgloss.Color("9")
	case domain.LevelWarning:
		color = lipgloss.Color("11")
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)
	title := lipgloss.NewStyle().Bold(true).Foreground(color)

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	block := box.Render(fmt.Sprintf("%s  %s\n%s",
		title.Render(msg.Title),
		ts.Format("15:04:05"),
		msg.Text))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.out, block); err != nil {
		return deliveryError("console", err)
	}
	return nil
}
