// Package events publishes build run notifications over NATS.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// RootEvent is the per-root portion of a run notification.
type RootEvent struct {
	Root       string `json:"root"`
	Status     string `json:"status"`
	Artifact   string `json:"artifact,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// RunEvent is the payload published after each build run.
type RunEvent struct {
	RunID      string      `json:"run_id"`
	Trigger    string      `json:"trigger"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"started_at"`
	DurationMS int64       `json:"duration_ms"`
	Changed    int         `json:"changed"`
	Resolved   int         `json:"resolved"`
	Built      int         `json:"built"`
	Failed     int         `json:"failed"`
	Warnings   int         `json:"warnings"`
	Roots      []RootEvent `json:"roots,omitempty"`
}

// Publisher sends run events to a NATS subject. A nil Publisher is valid
// and discards events, so callers need no enabled-check at publish sites.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to the NATS server at url and returns a Publisher
// for the given subject.
func NewPublisher(url, subject string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("texbuilder"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	slog.Info("NATS publisher connected", "url", url, logfields.Subject(subject))
	return &Publisher{conn: conn, subject: subject}, nil
}

// Publish sends a run event. Marshal or transport failures are returned so
// the caller can downgrade them to warnings.
func (p *Publisher) Publish(event RunEvent) error {
	if p == nil || p.conn == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("published run event", logfields.RunID(event.RunID), logfields.Subject(p.subject))
	return nil
}

// Close drains the connection, flushing any buffered events.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("drain connection: %w", err)
	}
	return nil
}
