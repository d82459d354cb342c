package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/cortexctl/internal/client"
	"github.com/danmuck/cortexctl/internal/config"
	"github.com/danmuck/cortexctl/internal/protocol/session"
)

// cortexctl loader for TOML config with default overlay.
func loadServiceConfig(path string) (client.ServiceConfig, error) {
	cfg := client.DefaultServiceConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw config.File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return client.ServiceConfig{}, fmt.Errorf("load cortexctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return client.ServiceConfig{}, fmt.Errorf("load cortexctl config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("cortex", "url") {
		cfg.Transport.URL = strings.TrimSpace(raw.Cortex.URL)
	}
	if meta.IsDefined("cortex", "handshake_timeout") {
		if cfg.Transport.HandshakeTimeout, err = parseDuration("cortex.handshake_timeout", raw.Cortex.HandshakeTimeout); err != nil {
			return client.ServiceConfig{}, err
		}
	}
	if meta.IsDefined("cortex", "write_timeout") {
		if cfg.Transport.WriteTimeout, err = parseDuration("cortex.write_timeout", raw.Cortex.WriteTimeout); err != nil {
			return client.ServiceConfig{}, err
		}
	}
	if meta.IsDefined("cortex", "insecure_skip_verify") {
		cfg.Transport.TLS.InsecureSkipVerify = raw.Cortex.InsecureSkipVerify
	}
	if meta.IsDefined("cortex", "ca_file") {
		cfg.Transport.TLS.CAFile = strings.TrimSpace(raw.Cortex.CAFile)
	}
	if meta.IsDefined("cortex", "server_name") {
		cfg.Transport.TLS.ServerName = strings.TrimSpace(raw.Cortex.ServerName)
	}

	if meta.IsDefined("headset", "id") {
		cfg.Session.Mode = session.NewDeviceMode(raw.Headset.ID)
	}
	if meta.IsDefined("credentials", "client_id") {
		cfg.Session.Credentials.ClientID = strings.TrimSpace(raw.Credentials.ClientID)
	}
	if meta.IsDefined("credentials", "client_secret") {
		cfg.Session.Credentials.ClientSecret = strings.TrimSpace(raw.Credentials.ClientSecret)
	}
	if meta.IsDefined("handshake", "scan_delay") {
		if cfg.Session.ScanDelay, err = parseDuration("handshake.scan_delay", raw.Handshake.ScanDelay); err != nil {
			return client.ServiceConfig{}, err
		}
	}
	if meta.IsDefined("handshake", "streams") {
		cfg.Session.Streams = normalizeList(raw.Handshake.Streams)
	}

	if meta.IsDefined("detector", "alpha_threshold") {
		cfg.Detector.AlphaThreshold = raw.Detector.AlphaThreshold
	}
	if meta.IsDefined("detector", "theta_threshold") {
		cfg.Detector.ThetaThreshold = raw.Detector.ThetaThreshold
	}
	if meta.IsDefined("detector", "persistence") {
		cfg.Detector.Persistence = raw.Detector.Persistence
	}
	if meta.IsDefined("detector", "quality_floor") {
		cfg.Detector.QualityFloor = raw.Detector.QualityFloor
	}
	if meta.IsDefined("detector", "cooldown") {
		if cfg.Cooldown, err = parseDuration("detector.cooldown", raw.Detector.Cooldown); err != nil {
			return client.ServiceConfig{}, err
		}
	}

	if meta.IsDefined("trigger", "kinds") {
		cfg.Trigger.Kinds = normalizeList(raw.Trigger.Kinds)
	}
	if meta.IsDefined("trigger", "exec", "command") {
		cfg.Trigger.Exec.Command = normalizeList(raw.Trigger.Exec.Command)
	}
	if meta.IsDefined("trigger", "exec", "timeout") {
		if cfg.Trigger.Exec.Timeout, err = parseDuration("trigger.exec.timeout", raw.Trigger.Exec.Timeout); err != nil {
			return client.ServiceConfig{}, err
		}
	}
	if meta.IsDefined("trigger", "osc", "host") {
		cfg.Trigger.OSC.Host = strings.TrimSpace(raw.Trigger.OSC.Host)
	}
	if meta.IsDefined("trigger", "osc", "port") {
		cfg.Trigger.OSC.Port = raw.Trigger.OSC.Port
	}
	if meta.IsDefined("trigger", "osc", "address") {
		cfg.Trigger.OSC.Address = strings.TrimSpace(raw.Trigger.OSC.Address)
	}
	if meta.IsDefined("trigger", "nats", "url") {
		cfg.Trigger.NATS.URL = strings.TrimSpace(raw.Trigger.NATS.URL)
	}
	if meta.IsDefined("trigger", "nats", "subject") {
		cfg.Trigger.NATS.Subject = strings.TrimSpace(raw.Trigger.NATS.Subject)
	}

	if meta.IsDefined("admin", "listen") {
		cfg.AdminListenAddr = strings.TrimSpace(raw.Admin.Listen)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.AdminCORSOrigins = normalizeList(raw.Admin.CORSOrigins)
	}
	if meta.IsDefined("admin", "token") {
		cfg.AdminToken = strings.TrimSpace(raw.Admin.Token)
	}

	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("parse %s: must be positive, got %s", key, raw)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
