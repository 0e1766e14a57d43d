package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/domain"
)

// DiscordNotifier posts messages to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	username   string
	client     *http.Client
	logger     *zap.Logger
	maxElapsed time.Duration
}

type discordMessage struct {
	Content  string  `json:"content,omitempty"`
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds,omitempty"`
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// errRateLimited is retried; every other error is permanent.
var errRateLimited = errors.New("discord rate limited")

// NewDiscordNotifier creates a webhook notifier.
func NewDiscordNotifier(webhookURL string, logger *zap.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		username:   "LP Monitor",
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger.Named("discord"),
		maxElapsed: 30 * time.Second,
	}
}

func (d *DiscordNotifier) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(d.buildMessage(msg))
	if err != nil {
		return deliveryError("discord", fmt.Errorf("marshal message: %w", err))
	}

	op := func() (int, error) {
		return d.post(ctx, payload)
	}

	status, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(d.maxElapsed),
	)
	if err != nil {
		return deliveryError("discord", err)
	}

	d.logger.Debug("Discord alert delivered",
		zap.Int64("position_id", msg.PositionID),
		zap.Int("status", status))
	return nil
}

func (d *DiscordNotifier) post(ctx context.Context, payload []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("post webhook: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return 0, backoff.RetryAfter(secs)
		}
		return 0, errRateLimited
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, backoff.Permanent(fmt.Errorf("discord returned status %d: %s", resp.StatusCode, string(body)))
	}
}

func (d *DiscordNotifier) buildMessage(msg Message) discordMessage {
	color := 0x7289DA
	switch msg.Level {
	case domain.LevelCritical:
		color = 0xFF0000
	case domain.LevelWarning:
		color = 0xFFA500
	case domain.LevelInfo:
		color = 0x2ECC71
	}

	e := embed{
		Title:       msg.Title,
		Description: msg.Text,
		Color:       color,
	}
	if msg.PositionID != 0 {
		e.Fields = append(e.Fields, field{Name: "Position", Value: strconv.FormatInt(msg.PositionID, 10), Inline: true})
	}
	if msg.Kind != "" {
		e.Fields = append(e.Fields, field{Name: "Alert", Value: msg.Kind, Inline: true})
	}
	if !msg.Timestamp.IsZero() {
		e.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}

	return discordMessage{Username: d.username, Embeds: []embed{e}}
}
