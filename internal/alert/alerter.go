// Package alert delivers operator notifications for conditions the
// settlement process cannot resolve on its own. Alerting never affects
// control flow: a failed delivery is logged and dropped.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
)

// Type categorizes an alert.
type Type string

const (
	TypeStoreIO         Type = "STORE_IO_FAILURE"
	TypeCanonStall      Type = "CANON_STALL"
	TypePipelineFailure Type = "PIPELINE_FAILURE"
	TypeRecovery        Type = "RECOVERY"
)

// Alert is one operator notification.
type Alert struct {
	Type    Type
	Chain   string
	Network string
	Title   string
	Message string
	Fields  map[string]string
}

// Alerter delivers alerts to one channel.
type Alerter interface {
	Send(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every configured channel, suppressing
// repeats of the same (type, chain, network) within the cooldown window.
type Multi struct {
	channels []Alerter
	cooldown time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	nowFn    func() time.Time
}

func NewMulti(cooldown time.Duration, logger *slog.Logger, channels ...Alerter) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{
		channels: channels,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		lastSent: make(map[string]time.Time),
		nowFn:    time.Now,
	}
}

func (m *Multi) Send(ctx context.Context, a Alert) error {
	key := fmt.Sprintf("%s:%s:%s", a.Type, a.Chain, a.Network)

	m.mu.Lock()
	now := m.nowFn()
	if last, ok := m.lastSent[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		m.logger.Debug("alert suppressed by cooldown", "key", key)
		for _, ch := range m.channels {
			metrics.AlertsCooldownSkipped.WithLabelValues(channelName(ch), string(a.Type)).Inc()
		}
		return nil
	}
	m.lastSent[key] = now
	m.mu.Unlock()

	var firstErr error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, a); err != nil {
			m.logger.Warn("alert delivery failed",
				"channel", channelName(ch),
				"type", a.Type,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues(channelName(ch), string(a.Type)).Inc()
	}
	return firstErr
}

func channelName(a Alerter) string {
	switch a.(type) {
	case *SlackAlerter:
		return "slack"
	case *WebhookAlerter:
		return "webhook"
	default:
		return "unknown"
	}
}

// SlackAlerter posts alerts to a Slack incoming webhook.
type SlackAlerter struct {
	webhookURL string
	client     *http.Client
}

func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackAlerter) Send(ctx context.Context, a Alert) error {
	emoji := ":rotating_light:"
	if a.Type == TypeRecovery {
		emoji = ":white_check_mark:"
	}

	text := fmt.Sprintf("%s *[%s]* %s/%s: %s\n%s",
		emoji, a.Type, a.Chain, a.Network, a.Title, a.Message)
	for k, v := range a.Fields {
		text += fmt.Sprintf("\n- *%s*: %s", k, v)
	}

	return postJSON(ctx, s.client, s.webhookURL, map[string]string{"text": text}, "slack")
}

// WebhookAlerter posts the alert as JSON to a generic HTTP endpoint.
type WebhookAlerter struct {
	url    string
	client *http.Client
}

func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookAlerter) Send(ctx context.Context, a Alert) error {
	payload := map[string]any{
		"type":    string(a.Type),
		"chain":   a.Chain,
		"network": a.Network,
		"title":   a.Title,
		"message": a.Message,
		"fields":  a.Fields,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}
	return postJSON(ctx, w.client, w.url, payload, "webhook")
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, channel string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", channel, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s alert: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", channel, resp.StatusCode)
	}
	return nil
}

// NoopAlerter is used when no channels are configured.
type NoopAlerter struct{}

func (*NoopAlerter) Send(context.Context, Alert) error { return nil }
