package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dbarrero/terraria-launcher/internal/logger"
)

const (
	// DefaultTimeout bounds webhook delivery.
	DefaultTimeout = 10 * time.Second

	// embedColor is the green accent used for the announcement.
	embedColor = 0x00FF00
)

// message is the webhook payload envelope.
type message struct {
	Embeds []embed `json:"embeds"`
}

// embed is one rich-content block in a Discord webhook message.
type embed struct {
	Title  string  `json:"title"`
	Color  int     `json:"color"`
	Fields []field `json:"fields"`
	Footer footer  `json:"footer"`
}

// field is a name/value pair inside an embed.
type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// footer is the embed footer line.
type footer struct {
	Text string `json:"text"`
}

// Notifier announces the tunnel address to a Discord webhook.
type Notifier struct {
	// client performs the webhook POST.
	client *http.Client
}

// New creates a Notifier with a bounded-timeout HTTP client.
func New() *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

// Notify posts the server address to the webhook on an independent goroutine.
// It returns immediately; startup never waits for delivery. An empty endpoint
// is a no-op, and every failure inside is logged and swallowed.
func (n *Notifier) Notify(ctx context.Context, endpoint, address string) {
	if endpoint == "" {
		logger.Info(ctx, "Notification webhook not configured")

		return
	}

	go func() {
		if err := n.send(ctx, endpoint, address); err != nil {
			logger.ErrorKV(ctx, "Failed to deliver notification", "error", err)

			return
		}

		logger.Info(ctx, "Notification delivered")
	}()
}

// send builds and posts the announcement synchronously.
func (n *Notifier) send(ctx context.Context, endpoint, address string) error {
	host, port, err := splitAddress(address)
	if err != nil {
		return err
	}

	payload := message{
		Embeds: []embed{{
			Title: "Terraria Server Online",
			Color: embedColor,
			Fields: []field{
				{Name: "IP", Value: "`" + host + "`", Inline: true},
				{Name: "Port", Value: "`" + port + "`", Inline: true},
			},
			Footer: footer{
				Text: "Started: " + time.Now().Format(time.DateTime),
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	response, err := n.client.Do(request)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook rejected: %s", response.Status)
	}

	return nil
}

// splitAddress parses host:port and validates the port is numeric.
func splitAddress(address string) (string, string, error) {
	host, port, found := strings.Cut(address, ":")
	if !found || host == "" {
		return "", "", fmt.Errorf("address %q is missing host:port separator", address)
	}

	if _, err := strconv.Atoi(port); err != nil {
		return "", "", fmt.Errorf("address %q has a non-numeric port", address)
	}

	return host, port, nil
}
