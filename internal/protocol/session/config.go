package session

import (
	"strings"
	"time"
)

const (
	DefaultScanDelay = 20 * time.Second

	StreamBandPower = "pow"
	StreamQuality   = "eq"
	StreamCommand   = "com"
)

// DeviceMode selects how the headset is found. It is fixed at startup.
type DeviceMode struct {
	headsetID string
}

// Discover scans for headsets and connects the first one found.
func Discover() DeviceMode {
	return DeviceMode{}
}

// Fixed connects a known headset and skips discovery.
func Fixed(headsetID string) DeviceMode {
	return DeviceMode{headsetID: strings.TrimSpace(headsetID)}
}

// NewDeviceMode picks Fixed when headsetID is set, Discover otherwise.
func NewDeviceMode(headsetID string) DeviceMode {
	if strings.TrimSpace(headsetID) == "" {
		return Discover()
	}
	return Fixed(headsetID)
}

func (m DeviceMode) IsFixed() bool {
	return m.headsetID != ""
}

func (m DeviceMode) HeadsetID() string {
	return m.headsetID
}

func (m DeviceMode) String() string {
	if m.IsFixed() {
		return "fixed(" + m.headsetID + ")"
	}
	return "discover"
}

// Credentials are the Cortex application credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Config defines handshake inputs.
type Config struct {
	Mode        DeviceMode
	Credentials Credentials
	// ScanDelay is how long the headset scan needs before queryHeadsets.
	ScanDelay time.Duration
	Streams   []string
}

// DefaultConfig returns discovery mode with the pow/eq subscription.
func DefaultConfig() Config {
	return Config{
		Mode:      Discover(),
		ScanDelay: DefaultScanDelay,
		Streams:   []string{StreamBandPower, StreamQuality},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ScanDelay <= 0 {
		c.ScanDelay = def.ScanDelay
	}
	if len(c.Streams) == 0 {
		c.Streams = def.Streams
	}
	return c
}
