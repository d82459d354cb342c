package trigger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hypebeast/go-osc/osc"
)

var ErrInvalidOSC = errors.New("trigger: invalid osc config")

// OSC sends one message to an OSC listener per fire.
type OSC struct {
	client  *osc.Client
	address string
}

func NewOSC(cfg OSCConfig) (*OSC, error) {
	host := strings.TrimSpace(cfg.Host)
	address := strings.TrimSpace(cfg.Address)
	if host == "" || cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: host=%q port=%d", ErrInvalidOSC, host, cfg.Port)
	}
	if !strings.HasPrefix(address, "/") {
		return nil, fmt.Errorf("%w: address %q must start with /", ErrInvalidOSC, address)
	}
	return &OSC{
		client:  osc.NewClient(host, cfg.Port),
		address: address,
	}, nil
}

func (o *OSC) Fire() error {
	msg := osc.NewMessage(o.address)
	msg.Append(int32(1))
	if err := o.client.Send(msg); err != nil {
		return fmt.Errorf("trigger: osc send %s: %w", o.address, err)
	}
	return nil
}

func (o *OSC) Close() error {
	return nil
}
