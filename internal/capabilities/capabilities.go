// Package capabilities holds outbound integrations that receive workspace
// change events (e.g. a generic webhook, Slack).
package capabilities

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

// Capability is an integration that can receive a change notification.
type Capability interface {
	Name() string
	Notify(ctx context.Context, ev models.ChangeEvent) error
}

// Registry holds loaded capabilities by name.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]Capability)}
}

func (r *Registry) Register(name string, c Capability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps[name] = c
}

func (r *Registry) Get(name string) Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caps[name]
}

// NotifyAll delivers the event to every registered capability. Failures are
// collected, not fatal; a broken webhook must never block engine mutations.
func (r *Registry) NotifyAll(ctx context.Context, ev models.ChangeEvent) []error {
	r.mu.RLock()
	caps := make([]Capability, 0, len(r.caps))
	for _, c := range r.caps {
		caps = append(caps, c)
	}
	r.mu.RUnlock()
	var errs []error
	for _, c := range caps {
		if err := c.Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return errs
}

// Webhook POSTs change events as JSON to a configured URL.
type Webhook struct {
	URL    string
	Client *http.Client
}

func (wh Webhook) Name() string { return "webhook" }

func (wh Webhook) Notify(ctx context.Context, ev models.ChangeEvent) error {
	if wh.URL == "" {
		return fmt.Errorf("webhook URL not set")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := wh.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

// SlackWebhook sends a rendered line to a Slack incoming webhook.
type SlackWebhook struct {
	WebhookURL string
	Channel    string // optional override
	Username   string // optional
}

func (s SlackWebhook) Name() string { return "slack" }

func (s SlackWebhook) Notify(ctx context.Context, ev models.ChangeEvent) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL not set")
	}
	text := fmt.Sprintf("workspace %s: %s", ev.WorkspaceID, ev.Change)
	if ev.NodeID != "" {
		text += " (node " + ev.NodeID + ")"
	}
	payload := map[string]any{"text": text}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	if s.Username != "" {
		payload["username"] = s.Username
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
