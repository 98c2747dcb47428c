package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vigil/internal/logging"
	"vigil/internal/services"
	"vigil/internal/task"
)

const (
	userAgent       = "Vigil/0.1.0"
	maxResponseBody = 1 << 20
)

// HTTPClient talks to the control plane over its JSON HTTP API.
type HTTPClient struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient builds a client for the given base URL and client id.
func NewHTTPClient(baseURL, clientID string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		clientID:   clientID,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "control"),
	}
}

// ClientID returns the identity this client reports as.
func (c *HTTPClient) ClientID() string {
	return c.clientID
}

// Heartbeat implements Client.
func (c *HTTPClient) Heartbeat(ctx context.Context) error {
	_, err := c.post(ctx, "/api/heartbeat", heartbeatRequest{ClientID: c.clientID})
	return err
}

// NextTask implements Client. The endpoint returns a null payload when
// no assignment is queued; that is not an error.
func (c *HTTPClient) NextTask(ctx context.Context) (*task.Task, error) {
	data, err := c.get(ctx, "/api/tasks/client/"+c.clientID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var assignment task.Task
	if err := json.Unmarshal(data, &assignment); err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "next-task", "malformed task payload", err)
	}
	if err := assignment.Validate(); err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "next-task", "unusable assignment", err)
	}
	assignment.Normalize()

	c.logger.Debug("task fetched",
		logging.Int64(logging.FieldTaskID, assignment.ID),
		logging.String(logging.FieldRoomID, assignment.RoomID),
		logging.Int("total_minutes", assignment.TotalWatchTime),
		logging.Int("watched_minutes", assignment.WatchedTime))
	return &assignment, nil
}

// ReportProgress implements Client.
func (c *HTTPClient) ReportProgress(ctx context.Context, taskID int64, watchedMinutes int, percent float64) error {
	_, err := c.post(ctx, "/api/tasks/progress", progressRequest{
		TaskID:      taskID,
		WatchedTime: watchedMinutes,
		Progress:    percent,
	})
	return err
}

// ReportError implements Client.
func (c *HTTPClient) ReportError(ctx context.Context, taskID int64, message, snapshotPath string) error {
	_, err := c.post(ctx, "/api/tasks/error", errorRequest{
		TaskID:         taskID,
		ErrorMessage:   message,
		ScreenshotPath: snapshotPath,
	})
	return err
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "encode", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "build-request", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

func (c *HTTPClient) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "build-request", path, err)
	}
	return c.do(req, path)
}

func (c *HTTPClient) do(req *http.Request, path string) (json.RawMessage, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "request", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "read-response", path, err)
	}
	if resp.StatusCode >= 300 {
		detail := fmt.Sprintf("%s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
		return nil, services.Wrap(services.ErrControlPlane, "control", "request", detail, nil)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, services.Wrap(services.ErrControlPlane, "control", "decode-response", path, err)
	}
	if env.Code != 0 {
		detail := fmt.Sprintf("%s rejected with code %d: %s", path, env.Code, env.Message)
		return nil, services.Wrap(services.ErrControlPlane, "control", "request", detail, nil)
	}
	return env.Data, nil
}
