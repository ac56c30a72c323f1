// Package notifications delivers observation window alerts through Pushover.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"astroweather/internal/config"
	"astroweather/internal/external"
	"astroweather/internal/types"
)

// PushoverClient sends messages through the Pushover message API.
type PushoverClient struct {
	http   *external.Client
	cfg    config.NotifyConfig
	logger *slog.Logger
}

// NewPushoverClient creates a PushoverClient. The external.Client provides
// circuit breaking and retries for the upstream calls.
func NewPushoverClient(httpClient *external.Client, cfg config.NotifyConfig, logger *slog.Logger) *PushoverClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushoverClient{http: httpClient, cfg: cfg, logger: logger}
}

// Send delivers one message. Priority follows the Pushover scale: 0 is
// normal, 1 bypasses quiet hours.
func (c *PushoverClient) Send(ctx context.Context, title, message string, priority int) error {
	form := url.Values{}
	form.Set("token", c.cfg.PushoverToken.Unmask())
	form.Set("user", c.cfg.PushoverUser.Unmask())
	form.Set("title", title)
	form.Set("message", message)
	form.Set("priority", strconv.Itoa(priority))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.PushoverURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamPushover, "failed to build pushover request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewAppError(
			types.ErrCodeUpstreamPushover,
			fmt.Sprintf("pushover returned status %d: %s", resp.StatusCode, string(body)),
			nil)
	}

	// Pushover reports request-level failures inside a 200 body.
	var result struct {
		Status int      `json:"status"`
		Errors []string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Status != 1 {
		return types.NewAppError(
			types.ErrCodeUpstreamPushover,
			fmt.Sprintf("pushover rejected message: %s", strings.Join(result.Errors, "; ")),
			nil)
	}

	c.logger.InfoContext(ctx, "pushover message sent", "title", title)
	return nil
}
