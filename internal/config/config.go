// Package config maps the cortexctl TOML file onto runtime settings.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/cortexctl/internal/client"
)

var (
	ErrMissingCredentials = errors.New("config: client id and secret required")
	ErrNoStreams          = errors.New("config: no streams to subscribe")
	ErrInvalidDetector    = errors.New("config: invalid detector settings")
)

// File is the on-disk layout. Durations are Go duration strings.
type File struct {
	Cortex      Cortex      `toml:"cortex"`
	Headset     Headset     `toml:"headset"`
	Credentials Credentials `toml:"credentials"`
	Handshake   Handshake   `toml:"handshake"`
	Detector    Detector    `toml:"detector"`
	Trigger     Trigger     `toml:"trigger"`
	Admin       Admin       `toml:"admin"`
}

type Cortex struct {
	URL                string `toml:"url"`
	HandshakeTimeout   string `toml:"handshake_timeout"`
	WriteTimeout       string `toml:"write_timeout"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	CAFile             string `toml:"ca_file"`
	ServerName         string `toml:"server_name"`
}

// Headset selects the device. An empty id means discovery.
type Headset struct {
	ID string `toml:"id"`
}

type Credentials struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

type Handshake struct {
	ScanDelay string   `toml:"scan_delay"`
	Streams   []string `toml:"streams"`
}

type Detector struct {
	AlphaThreshold float64 `toml:"alpha_threshold"`
	ThetaThreshold float64 `toml:"theta_threshold"`
	Persistence    int     `toml:"persistence"`
	QualityFloor   float64 `toml:"quality_floor"`
	Cooldown       string  `toml:"cooldown"`
}

type Trigger struct {
	Kinds []string    `toml:"kinds"`
	Exec  TriggerExec `toml:"exec"`
	OSC   TriggerOSC  `toml:"osc"`
	NATS  TriggerNATS `toml:"nats"`
}

type TriggerExec struct {
	Command []string `toml:"command"`
	Timeout string   `toml:"timeout"`
}

type TriggerOSC struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Address string `toml:"address"`
}

type TriggerNATS struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

type Admin struct {
	Listen      string   `toml:"listen"`
	CORSOrigins []string `toml:"cors_origins"`
	Token       string   `toml:"token"`
}

// Default is the file form of client.DefaultServiceConfig.
func Default() File {
	return FromService(client.DefaultServiceConfig())
}

// Validate checks a fully loaded config before the service starts.
func Validate(cfg client.ServiceConfig) error {
	if err := cfg.Transport.WithDefaults().Validate(); err != nil {
		return err
	}
	creds := cfg.Session.Credentials
	if strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.ClientSecret) == "" {
		return ErrMissingCredentials
	}
	if len(cfg.Session.Streams) == 0 {
		return ErrNoStreams
	}
	d := cfg.Detector
	if d.AlphaThreshold < 0 || d.ThetaThreshold < 0 || d.Persistence < 0 || d.QualityFloor < 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidDetector, d)
	}
	if len(cfg.Trigger.Kinds) == 0 {
		return fmt.Errorf("config: trigger kinds required")
	}
	return nil
}
