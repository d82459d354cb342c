// Package trigger provides the external actions fired on a detection.
package trigger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownKind = errors.New("trigger: unknown kind")
	ErrNoKinds     = errors.New("trigger: no kinds configured")
)

const (
	KindBell = "bell"
	KindExec = "exec"
	KindOSC  = "osc"
	KindNATS = "nats"
	KindLog  = "log"
)

// Action is one side-effecting trigger sink.
type Action interface {
	Fire() error
	Close() error
}

type ExecConfig struct {
	Command []string
	Timeout time.Duration
}

type OSCConfig struct {
	Host    string
	Port    int
	Address string
}

type NATSConfig struct {
	URL     string
	Subject string
}

// Config selects and configures sinks. Every listed kind fires on each
// detection.
type Config struct {
	Kinds []string
	Exec  ExecConfig
	OSC   OSCConfig
	NATS  NATSConfig
}

func DefaultConfig() Config {
	return Config{
		Kinds: []string{KindBell, KindExec},
		Exec: ExecConfig{
			Command: []string{"xdotool", "click", "1"},
			Timeout: 5 * time.Second,
		},
		OSC: OSCConfig{
			Host:    "127.0.0.1",
			Port:    9000,
			Address: "/cortexctl/trigger",
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "cortexctl.trigger",
		},
	}
}

// New builds the configured sinks. Sinks built before a failure are closed.
func New(cfg Config) (Action, error) {
	if len(cfg.Kinds) == 0 {
		return nil, ErrNoKinds
	}
	actions := make(Multi, 0, len(cfg.Kinds))
	for _, kind := range cfg.Kinds {
		action, err := newAction(strings.ToLower(strings.TrimSpace(kind)), cfg)
		if err != nil {
			_ = actions.Close()
			return nil, err
		}
		actions = append(actions, action)
	}
	if len(actions) == 1 {
		return actions[0], nil
	}
	return actions, nil
}

func newAction(kind string, cfg Config) (Action, error) {
	switch kind {
	case KindBell:
		return NewBell(nil), nil
	case KindExec:
		return NewExec(cfg.Exec)
	case KindOSC:
		return NewOSC(cfg.OSC)
	case KindNATS:
		return NewNATS(cfg.NATS)
	case KindLog:
		return Log{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Multi fires every sink in order and joins their errors.
type Multi []Action

func (m Multi) Fire() error {
	var errs []error
	for _, a := range m {
		if err := a.Fire(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
