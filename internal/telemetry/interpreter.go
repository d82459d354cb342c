package telemetry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/danmuck/cortexctl/internal/observability"
)

const (
	StreamBandPower = "pow"
	StreamCommand   = "com"
	StreamQuality   = "eq"
)

// Trigger is the external action fired on a sustained detection.
type Trigger interface {
	Fire() error
}

// TriggerFunc adapts a plain function to Trigger.
type TriggerFunc func() error

func (f TriggerFunc) Fire() error {
	return f()
}

// Config holds detector thresholds.
type Config struct {
	AlphaThreshold float64
	ThetaThreshold float64
	// Persistence is how many consecutive qualifying samples must be
	// exceeded before firing.
	Persistence  int
	QualityFloor float64
}

func DefaultConfig() Config {
	return Config{
		AlphaThreshold: 3,
		ThetaThreshold: 4,
		Persistence:    10,
		QualityFloor:   2,
	}
}

// WithDefaults fills non-positive fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.AlphaThreshold <= 0 {
		c.AlphaThreshold = def.AlphaThreshold
	}
	if c.ThetaThreshold <= 0 {
		c.ThetaThreshold = def.ThetaThreshold
	}
	if c.Persistence <= 0 {
		c.Persistence = def.Persistence
	}
	if c.QualityFloor <= 0 {
		c.QualityFloor = def.QualityFloor
	}
	return c
}

// Stats summarises what the interpreter has seen.
type Stats struct {
	BandPowerSamples uint64  `json:"band_power_samples"`
	QualitySamples   uint64  `json:"quality_samples"`
	CommandSamples   uint64  `json:"command_samples"`
	PoorQuality      uint64  `json:"poor_quality"`
	Fired            uint64  `json:"fired"`
	Suppressed       uint64  `json:"suppressed"`
	TriggerErrors    uint64  `json:"trigger_errors"`
	LastBands        Bands   `json:"last_bands"`
	LastQuality      float64 `json:"last_quality"`
	Battery          float64 `json:"battery"`
}

// Interpreter consumes unsolicited stream data. It owns the debounce
// counter and is driven from a single goroutine.
type Interpreter struct {
	cfg     Config
	gate    *Gate
	trigger Trigger
	counter int
	stats   Stats
}

func NewInterpreter(cfg Config, gate *Gate, trigger Trigger) *Interpreter {
	if gate == nil {
		gate = NewGate(DefaultCooldown, nil)
	}
	return &Interpreter{
		cfg:     cfg.WithDefaults(),
		gate:    gate,
		trigger: trigger,
	}
}

// Handle dispatches one stream message by the stream member it carries.
func (i *Interpreter) Handle(fields map[string]json.RawMessage) error {
	switch {
	case present(fields, StreamBandPower):
		sample, err := ParseBandPower(fields[StreamBandPower])
		if err != nil {
			return err
		}
		i.HandleBandPower(sample)
		return nil
	case present(fields, StreamCommand):
		i.HandleCommand(fields[StreamCommand])
		return nil
	case present(fields, StreamQuality):
		sample, err := ParseQuality(fields[StreamQuality])
		if err != nil {
			return err
		}
		return i.HandleQuality(sample)
	default:
		return fmt.Errorf("%w: keys=%s", ErrUnrecognizedStream, keys(fields))
	}
}

// HandleBandPower folds one band power sample into the debounce counter and
// reports whether the trigger ran.
func (i *Interpreter) HandleBandPower(sample BandPower) bool {
	i.stats.BandPowerSamples++
	observability.RecordSample(StreamBandPower)

	bands := sample.Means()
	i.stats.LastBands = bands
	logs.Debugf(
		"telemetry.Interpreter.pow alpha=%.3f theta=%.3f beta_l=%.3f beta_h=%.3f gamma=%.3f",
		bands.Alpha, bands.Theta, bands.BetaL, bands.BetaH, bands.Gamma,
	)

	if bands.Alpha > i.cfg.AlphaThreshold && bands.Theta > i.cfg.ThetaThreshold {
		i.counter++
	} else {
		i.counter = 0
	}
	defer func() { observability.SetDebounce(i.counter) }()

	if i.counter <= i.cfg.Persistence {
		return false
	}
	i.counter = 0
	return i.fire()
}

// HandleQuality clears the debounce counter when contact on the detector
// channels is below the floor.
func (i *Interpreter) HandleQuality(sample Quality) error {
	i.stats.QualitySamples++
	observability.RecordSample(StreamQuality)

	mean := sample.Mean()
	i.stats.LastQuality = mean
	i.stats.Battery = sample.Battery
	if mean >= i.cfg.QualityFloor {
		return nil
	}
	i.stats.PoorQuality++
	i.counter = 0
	observability.SetDebounce(0)
	observability.RecordPoorQuality()
	return fmt.Errorf("%w: mean=%.2f floor=%.2f, disabling output", ErrPoorSignalQuality, mean, i.cfg.QualityFloor)
}

// HandleCommand only logs mental command samples.
func (i *Interpreter) HandleCommand(raw json.RawMessage) {
	i.stats.CommandSamples++
	observability.RecordSample(StreamCommand)
	logs.Infof("telemetry.Interpreter.com data=%s", raw)
}

// Counter is the current debounce count.
func (i *Interpreter) Counter() int {
	return i.counter
}

func (i *Interpreter) Stats() Stats {
	return i.stats
}

func (i *Interpreter) Gate() *Gate {
	return i.gate
}

func (i *Interpreter) fire() bool {
	logs.Infof("telemetry.Interpreter.detect eyes closed, attempting trigger")
	var fireErr error
	ran := i.gate.Attempt(func() {
		if i.trigger != nil {
			fireErr = i.trigger.Fire()
		}
	})
	if !ran {
		i.stats.Suppressed++
		observability.RecordTrigger(observability.TriggerSuppressed)
		logs.Debugf("telemetry.Interpreter.fire suppressed reopens_at=%s", i.gate.ReopensAt())
		return false
	}
	i.stats.Fired++
	if fireErr != nil {
		i.stats.TriggerErrors++
		observability.RecordTrigger(observability.TriggerFailed)
		logs.Errorf("telemetry.Interpreter.fire trigger err=%v", fireErr)
		return true
	}
	observability.RecordTrigger(observability.TriggerFired)
	return true
}

func present(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	return ok && len(raw) > 0 && string(raw) != "null"
}

func keys(fields map[string]json.RawMessage) string {
	out := make([]string, 0, len(fields))
	for k := range fields {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
