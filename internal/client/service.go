package client

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/danmuck/cortexctl/internal/observability"
	"github.com/danmuck/cortexctl/internal/protocol/session"
	"github.com/danmuck/cortexctl/internal/telemetry"
	"github.com/danmuck/cortexctl/internal/transport"
	"github.com/danmuck/cortexctl/internal/trigger"
)

// ServiceConfig configures one cortexctl process.
type ServiceConfig struct {
	Transport        transport.Config
	Session          session.Config
	Detector         telemetry.Config
	Cooldown         time.Duration
	Trigger          trigger.Config
	AdminListenAddr  string
	AdminCORSOrigins []string
	// AdminToken, when set, is required as a bearer token on /status and
	// /metrics.
	AdminToken string
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Transport:        transport.DefaultConfig(),
		Session:          session.DefaultConfig(),
		Detector:         telemetry.DefaultConfig(),
		Cooldown:         telemetry.DefaultCooldown,
		Trigger:          trigger.DefaultConfig(),
		AdminListenAddr:  "",
		AdminCORSOrigins: []string{"http://localhost:3000"},
	}
}

// Channel is the message channel the service runs over.
type Channel interface {
	Sender
	Listen(ctx context.Context, onMessage func(string), onError func(error)) error
	Close() error
}

// Dialer opens a Channel.
type Dialer func(ctx context.Context, cfg transport.Config) (Channel, error)

// Service owns the process lifecycle around a Client.
type Service struct {
	cfg  ServiceConfig
	dial Dialer
	now  func() time.Time

	mu     sync.RWMutex
	client *Client
}

func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

func NewServiceWithConfig(cfg ServiceConfig) *Service {
	cfg.Session = cfg.Session.WithDefaults()
	cfg.Detector = cfg.Detector.WithDefaults()
	cfg.Transport = cfg.Transport.WithDefaults()
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = telemetry.DefaultCooldown
	}
	return &Service{
		cfg:  cfg,
		dial: dialTransport,
	}
}

// Run blocks until SIGINT/SIGTERM or the channel fails.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext dials, performs the handshake and handles stream data until
// ctx ends. A lost connection is returned; it is not redialed.
func (s *Service) RunContext(ctx context.Context) error {
	observability.RegisterMetrics()

	action, err := trigger.New(s.cfg.Trigger)
	if err != nil {
		return err
	}
	defer func() {
		if err := action.Close(); err != nil {
			logs.Warnf("client.Service.run trigger close err=%v", err)
		}
	}()

	ch, err := s.dial(ctx, s.cfg.Transport)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := newLoop(ctx)
	gate := telemetry.NewGate(s.cfg.Cooldown, s.now)
	interp := telemetry.NewInterpreter(s.cfg.Detector, gate, action)
	c, err := NewClient(s.cfg.Session, ch, interp, events.after)
	if err != nil {
		return err
	}
	s.setClient(c)

	errs := make(chan error, 2)
	go func() {
		err := ch.Listen(ctx,
			func(text string) { events.post(func() { _ = c.HandleMessage(text) }) },
			func(err error) { events.post(func() { c.HandleTransportError(err) }) },
		)
		if err != nil {
			err = fmt.Errorf("client: channel closed: %w", err)
		}
		errs <- err
	}()
	if addr := strings.TrimSpace(s.cfg.AdminListenAddr); addr != "" {
		go func() {
			errs <- s.serveAdmin(ctx, addr)
		}()
	}

	events.post(func() {
		if err := c.Open(); err != nil {
			logs.Errorf("client.Service.run open err=%v", err)
		}
	})

	logs.Infof(
		"client.Service.run started mode=%s url=%s triggers=%v",
		s.cfg.Session.Mode,
		s.cfg.Transport.URL,
		s.cfg.Trigger.Kinds,
	)
	err = events.run(errs)
	logs.Infof("client.Service.run shutdown err=%v", err)
	return err
}

// Client returns the running client, or nil before RunContext has dialed.
func (s *Service) Client() *Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

func (s *Service) setClient(c *Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

func dialTransport(ctx context.Context, cfg transport.Config) (Channel, error) {
	return transport.Dial(ctx, cfg)
}
