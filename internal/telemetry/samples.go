package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedStream = errors.New("telemetry: unrecognized stream shape")
	ErrSampleShape        = errors.New("telemetry: unexpected sample shape")
	ErrPoorSignalQuality  = errors.New("telemetry: poor signal quality")
)

// Channel positions as streamed by an Insight headset.
const (
	ChannelAF3 = iota
	ChannelT7
	ChannelPz
	ChannelT8
	ChannelAF4
	ChannelCount
)

// Band positions within one channel.
const (
	BandTheta = iota
	BandAlpha
	BandBetaL
	BandBetaH
	BandGamma
	BandCount
)

const (
	BandPowerLen = ChannelCount * BandCount
	// battery, overall, sample rate, then one reading per channel
	QualityLen = 3 + ChannelCount
)

// detectorChannels are the channels averaged for both detection and quality.
var detectorChannels = [...]int{ChannelAF3, ChannelT7, ChannelT8}

// BandPower is one "pow" sample, channel-major.
type BandPower [BandPowerLen]float64

// At returns the reading of band on channel.
func (p BandPower) At(channel, band int) float64 {
	return p[channel*BandCount+band]
}

// Bands are per-band means over the detector channels.
type Bands struct {
	Theta float64 `json:"theta"`
	Alpha float64 `json:"alpha"`
	BetaL float64 `json:"beta_l"`
	BetaH float64 `json:"beta_h"`
	Gamma float64 `json:"gamma"`
}

// Means averages each band over AF3, T7 and T8.
func (p BandPower) Means() Bands {
	return Bands{
		Theta: p.mean(BandTheta),
		Alpha: p.mean(BandAlpha),
		BetaL: p.mean(BandBetaL),
		BetaH: p.mean(BandBetaH),
		Gamma: p.mean(BandGamma),
	}
}

func (p BandPower) mean(band int) float64 {
	var sum float64
	for _, ch := range detectorChannels {
		sum += p.At(ch, band)
	}
	return sum / float64(len(detectorChannels))
}

// Quality is one "eq" sample.
type Quality struct {
	Battery    float64
	Overall    float64
	SampleRate float64
	Channels   [ChannelCount]float64
}

// Mean averages the contact quality of AF3, T7 and T8.
func (q Quality) Mean() float64 {
	var sum float64
	for _, ch := range detectorChannels {
		sum += q.Channels[ch]
	}
	return sum / float64(len(detectorChannels))
}

// ParseBandPower decodes a "pow" payload.
func ParseBandPower(raw json.RawMessage) (BandPower, error) {
	values, err := parseFloats(raw, BandPowerLen)
	if err != nil {
		return BandPower{}, fmt.Errorf("pow: %w", err)
	}
	var out BandPower
	copy(out[:], values)
	return out, nil
}

// ParseQuality decodes an "eq" payload.
func ParseQuality(raw json.RawMessage) (Quality, error) {
	values, err := parseFloats(raw, QualityLen)
	if err != nil {
		return Quality{}, fmt.Errorf("eq: %w", err)
	}
	out := Quality{
		Battery:    values[0],
		Overall:    values[1],
		SampleRate: values[2],
	}
	copy(out.Channels[:], values[3:])
	return out, nil
}

func parseFloats(raw json.RawMessage, want int) ([]float64, error) {
	var values []float64
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSampleShape, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("%w: got %d values want %d", ErrSampleShape, len(values), want)
	}
	return values, nil
}
