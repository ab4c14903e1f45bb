package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	loginCodeMessage  = "The messaging account is waiting for a login code scan. Open the gateway to link the device."
	disconnectMessage = "The messaging account disconnected"
)

// Notifier posts operator notifications to an ntfy-style endpoint. A nil
// Notifier or an empty endpoint does nothing.
type Notifier struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
}

// New returns a notifier for endpoint. client may be nil.
func New(client *http.Client, endpoint string) *Notifier {
	return &Notifier{client: client, endpoint: endpoint, timeout: 10 * time.Second}
}

// LoginCode reports that the account needs a login scan.
func (n *Notifier) LoginCode(ctx context.Context) {
	n.fire(ctx, loginCodeMessage)
}

// Disconnected reports that the account dropped, with the gateway's reason.
func (n *Notifier) Disconnected(ctx context.Context, reason string) {
	msg := disconnectMessage
	if reason != "" {
		msg += ": " + reason
	}
	n.fire(ctx, msg)
}

func (n *Notifier) fire(ctx context.Context, message string) {
	if n == nil || n.endpoint == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := Send(ctx, n.client, n.endpoint, message); err != nil {
		slog.Warn("operator notification failed", "error", err)
		return
	}
	slog.Debug("operator notification sent", "endpoint", n.endpoint)
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
