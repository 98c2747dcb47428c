package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil/internal/config"
	"vigil/internal/task"
)

const userAgent = "Vigil/0.1.0"

// Service defines the notification surface exposed to the agent and
// CLI.
type Service interface {
	NotifyAgentStarted(ctx context.Context, clientID string) error
	NotifyTaskStarted(ctx context.Context, taskID int64, roomID string) error
	NotifyTaskCompleted(ctx context.Context, taskID int64, roomID string, minutes int) error
	NotifyTaskFailed(ctx context.Context, taskID int64, roomID string, reason task.FailureReason, detail string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when
// configured. When no ntfy topic is configured, a noop implementation
// is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	endpoint := topic
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://ntfy.sh/" + endpoint
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: timeout},
		taskEvents: cfg.Notifications.TaskEvents,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	taskEvents bool
	errors     bool
}

func (n *ntfyService) NotifyAgentStarted(ctx context.Context, clientID string) error {
	data := payload{
		title:   "Vigil - Agent Online",
		message: fmt.Sprintf("Watching for tasks as %s", strings.TrimSpace(clientID)),
		tags:    []string{"vigil", "agent", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskStarted(ctx context.Context, taskID int64, roomID string) error {
	if !n.taskEvents {
		return nil
	}
	data := payload{
		title:   "Vigil - Watch Started",
		message: fmt.Sprintf("▶️ Watching room %s (task %d)", strings.TrimSpace(roomID), taskID),
		tags:    []string{"vigil", "task", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskCompleted(ctx context.Context, taskID int64, roomID string, minutes int) error {
	if !n.taskEvents {
		return nil
	}
	data := payload{
		title:   "Vigil - Watch Complete",
		message: fmt.Sprintf("✅ Room %s quota met after %d minutes (task %d)", strings.TrimSpace(roomID), minutes, taskID),
		tags:    []string{"vigil", "task", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTaskFailed(ctx context.Context, taskID int64, roomID string, reason task.FailureReason, detail string) error {
	if !n.taskEvents {
		return nil
	}
	message := fmt.Sprintf("❌ Room %s failed (%s)", strings.TrimSpace(roomID), reason)
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	data := payload{
		title:    "Vigil - Watch Failed",
		message:  fmt.Sprintf("%s (task %d)", message, taskID),
		tags:     []string{"vigil", "task", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Vigil - Error",
		message:  builder.String(),
		tags:     []string{"vigil", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vigil - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"vigil", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
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

func (noopService) NotifyAgentStarted(context.Context, string) error              { return nil }
func (noopService) NotifyTaskStarted(context.Context, int64, string) error        { return nil }
func (noopService) NotifyTaskCompleted(context.Context, int64, string, int) error { return nil }
func (noopService) NotifyTaskFailed(context.Context, int64, string, task.FailureReason, string) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
