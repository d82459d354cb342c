package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

var ErrNATSSubjectRequired = errors.New("trigger: nats subject required")

// Event is the payload published per fire.
type Event struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	TimestampMS int64  `json:"timestamp_ms"`
}

// NewEvent stamps a detection event.
func NewEvent(at time.Time) Event {
	return Event{
		ID:          uuid.New().String(),
		Kind:        "eyes_closed",
		TimestampMS: at.UnixMilli(),
	}
}

// NATS publishes a JSON Event per fire.
type NATS struct {
	conn    *nats.Conn
	subject string
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		return nil, ErrNATSSubjectRequired
	}
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url, nats.Name("cortexctl"))
	if err != nil {
		return nil, fmt.Errorf("trigger: nats connect %s: %w", url, err)
	}
	return &NATS{conn: conn, subject: subject}, nil
}

func (n *NATS) Fire() error {
	payload, err := json.Marshal(NewEvent(time.Now()))
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("trigger: nats publish %s: %w", n.subject, err)
	}
	return n.conn.FlushTimeout(time.Second)
}

func (n *NATS) Close() error {
	return n.conn.Drain()
}
