package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"polarconv/internal/config"
	"polarconv/internal/convert"
)

const userAgent = "polarconv/0.1.0"

// Service defines the notification surface exposed to the host.
type Service interface {
	NotifyConversion(ctx context.Context, outcome convert.Outcome) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyConversion(ctx context.Context, outcome convert.Outcome) error {
	world := filepath.Base(strings.TrimSpace(outcome.Source))
	if world == "." || world == string(filepath.Separator) {
		world = "world"
	}

	if outcome.Succeeded {
		message := fmt.Sprintf("Converted %s: %d chunks", world, outcome.Chunks)
		if outcome.Output != "" {
			message = fmt.Sprintf("%s\nFile: %s", message, outcome.Output)
		}
		return n.send(ctx, payload{
			title:   "Polar Converter Finished",
			message: message,
			tags:    []string{"polarconv", "convert", "completed"},
		})
	}

	message := strings.TrimSpace(outcome.Message)
	if message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "Polar Converter Failed",
		message:  fmt.Sprintf("Conversion of %s failed: %s", world, message),
		tags:     []string{"polarconv", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Polar Converter - Test",
		message:  "Notification system test",
		tags:     []string{"polarconv", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyConversion(context.Context, convert.Outcome) error { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
