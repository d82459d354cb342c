package config

import (
	"time"

	"github.com/danmuck/cortexctl/internal/client"
)

// FromService renders runtime settings in file form.
func FromService(cfg client.ServiceConfig) File {
	return File{
		Cortex: Cortex{
			URL:                cfg.Transport.URL,
			HandshakeTimeout:   duration(cfg.Transport.HandshakeTimeout),
			WriteTimeout:       duration(cfg.Transport.WriteTimeout),
			InsecureSkipVerify: cfg.Transport.TLS.InsecureSkipVerify,
			CAFile:             cfg.Transport.TLS.CAFile,
			ServerName:         cfg.Transport.TLS.ServerName,
		},
		Headset: Headset{ID: cfg.Session.Mode.HeadsetID()},
		Credentials: Credentials{
			ClientID:     cfg.Session.Credentials.ClientID,
			ClientSecret: cfg.Session.Credentials.ClientSecret,
		},
		Handshake: Handshake{
			ScanDelay: duration(cfg.Session.ScanDelay),
			Streams:   cloneStrings(cfg.Session.Streams),
		},
		Detector: Detector{
			AlphaThreshold: cfg.Detector.AlphaThreshold,
			ThetaThreshold: cfg.Detector.ThetaThreshold,
			Persistence:    cfg.Detector.Persistence,
			QualityFloor:   cfg.Detector.QualityFloor,
			Cooldown:       duration(cfg.Cooldown),
		},
		Trigger: Trigger{
			Kinds: cloneStrings(cfg.Trigger.Kinds),
			Exec: TriggerExec{
				Command: cloneStrings(cfg.Trigger.Exec.Command),
				Timeout: duration(cfg.Trigger.Exec.Timeout),
			},
			OSC: TriggerOSC{
				Host:    cfg.Trigger.OSC.Host,
				Port:    cfg.Trigger.OSC.Port,
				Address: cfg.Trigger.OSC.Address,
			},
			NATS: TriggerNATS{
				URL:     cfg.Trigger.NATS.URL,
				Subject: cfg.Trigger.NATS.Subject,
			},
		},
		Admin: Admin{
			Listen:      cfg.AdminListenAddr,
			CORSOrigins: cloneStrings(cfg.AdminCORSOrigins),
			Token:       cfg.AdminToken,
		},
	}
}

func duration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
