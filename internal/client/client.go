package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/danmuck/cortexctl/internal/observability"
	"github.com/danmuck/cortexctl/internal/protocol"
	"github.com/danmuck/cortexctl/internal/protocol/session"
	"github.com/danmuck/cortexctl/internal/telemetry"
)

var ErrNoSender = errors.New("client: sender required")

// Drop reasons reported on the dropped-messages counter.
const (
	DropMalformed     = "malformed"
	DropProtocolError = "protocol_error"
	DropUnexpectedID  = "unexpected_correlation"
	DropUnrecognized  = "unrecognized_stream"
	DropSampleShape   = "sample_shape"
)

// Sender is the outbound half of the message channel.
type Sender interface {
	Send(text string) error
}

// Scheduler runs fn after d on the same serial loop as message handling.
type Scheduler func(d time.Duration, fn func())

// Status is a point-in-time view for the admin endpoint.
type Status struct {
	Mode       string          `json:"mode"`
	Step       string          `json:"step"`
	StepID     int             `json:"step_id"`
	HeadsetID  string          `json:"headset_id,omitempty"`
	SessionID  string          `json:"session_id,omitempty"`
	Authorized bool            `json:"authorized"`
	Halted     bool            `json:"halted"`
	HaltedAt   string          `json:"halted_at,omitempty"`
	HaltError  string          `json:"halt_error,omitempty"`
	Debounce   int             `json:"debounce"`
	GateArmed  bool            `json:"gate_armed"`
	Telemetry  telemetry.Stats `json:"telemetry"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Client routes inbound messages. HandleMessage, Open and scheduled sends
// must all run on one goroutine.
type Client struct {
	handshake *session.Handshake
	interp    *telemetry.Interpreter
	sender    Sender
	schedule  Scheduler

	mu     sync.RWMutex
	status Status
}

// NewClient builds a client. A nil schedule defers with time.AfterFunc,
// which is only safe when nothing else handles messages concurrently.
func NewClient(cfg session.Config, sender Sender, interp *telemetry.Interpreter, schedule Scheduler) (*Client, error) {
	if sender == nil {
		return nil, ErrNoSender
	}
	if interp == nil {
		interp = telemetry.NewInterpreter(telemetry.DefaultConfig(), nil, nil)
	}
	if schedule == nil {
		schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	c := &Client{
		handshake: session.NewHandshake(cfg),
		interp:    interp,
		sender:    sender,
		schedule:  schedule,
	}
	c.publishStatus()
	return c, nil
}

// Open sends the first handshake request. It is the channel's open hook.
func (c *Client) Open() error {
	defer c.publishStatus()
	emit, err := c.handshake.Start()
	if err != nil {
		return err
	}
	logs.Infof("client.Client.Open authenticating mode=%s", c.handshake.Mode())
	return c.dispatch(emit)
}

// HandleMessage decodes, classifies and routes one inbound message. The
// returned error is already logged; it only concerns this message.
func (c *Client) HandleMessage(text string) error {
	defer c.publishStatus()

	resp, err := protocol.Decode(text)
	if err != nil {
		observability.RecordDropped(DropMalformed)
		logs.Warnf("client.Client.HandleMessage dropped malformed message err=%v", err)
		return err
	}

	switch resp.Kind {
	case protocol.KindError:
		return c.handleError(resp)
	case protocol.KindCorrelated:
		return c.handleReply(resp)
	default:
		return c.handleStream(resp)
	}
}

// HandleTransportError is the channel's error hook.
func (c *Client) HandleTransportError(err error) {
	logs.Errorf("client.Client.transport err=%v step=%s", err, c.handshake.Step())
}

// Status returns the latest snapshot.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Client) handleError(resp protocol.Response) error {
	observability.RecordDropped(DropProtocolError)
	logs.Errorf("client.Client.handleError id=%s error=%v", resp.IDString(), resp.Error)
	if resp.ID == nil {
		return fmt.Errorf("%w: %v", session.ErrProtocol, resp.Error)
	}
	return c.handshake.HandleError(resp)
}

func (c *Client) handleReply(resp protocol.Response) error {
	logs.Infof("client.Client.handleReply received response to step %s", resp.IDString())
	emit, err := c.handshake.HandleResponse(resp)
	if err != nil {
		if errors.Is(err, session.ErrUnexpectedCorrelation) {
			observability.RecordDropped(DropUnexpectedID)
			logs.Warnf("client.Client.handleReply ignored err=%v", err)
		}
		return err
	}
	if emit == nil {
		observability.RecordHandshakeStep(c.handshake.Step().String(), int(c.handshake.Step()))
		return nil
	}
	return c.dispatch(*emit)
}

func (c *Client) handleStream(resp protocol.Response) error {
	err := c.interp.Handle(resp.Fields)
	switch {
	case err == nil:
	case errors.Is(err, telemetry.ErrPoorSignalQuality):
		logs.Warnf("client.Client.handleStream %v", err)
	case errors.Is(err, telemetry.ErrUnrecognizedStream):
		observability.RecordDropped(DropUnrecognized)
		logs.Warnf("client.Client.handleStream received unknown message err=%v", err)
	case errors.Is(err, telemetry.ErrSampleShape):
		observability.RecordDropped(DropSampleShape)
		logs.Warnf("client.Client.handleStream dropped sample err=%v", err)
	default:
		logs.Errorf("client.Client.handleStream err=%v", err)
	}
	return err
}

func (c *Client) dispatch(emit session.Emit) error {
	if emit.Delay <= 0 {
		return c.transmit(emit)
	}
	logs.Infof("client.Client.dispatch waiting for scan delay=%s before step=%s", emit.Delay, emit.Step)
	c.schedule(emit.Delay, func() {
		_ = c.transmit(emit)
		c.publishStatus()
	})
	return nil
}

func (c *Client) transmit(emit session.Emit) error {
	text, err := protocol.Marshal(emit.Request)
	if err != nil {
		logs.Errorf("client.Client.transmit encode step=%s err=%v", emit.Step, err)
		return err
	}
	if err := c.sender.Send(text); err != nil {
		logs.Errorf("client.Client.transmit send step=%s err=%v", emit.Step, err)
		return err
	}
	observability.RecordHandshakeStep(emit.Step.String(), int(emit.Step))
	return nil
}

func (c *Client) publishStatus() {
	state := c.handshake.State()
	step := c.handshake.Step()
	st := Status{
		Mode:       c.handshake.Mode().String(),
		Step:       step.String(),
		StepID:     step.ID(),
		HeadsetID:  state.HeadsetID,
		SessionID:  state.SessionID,
		Authorized: state.Token != "",
		Halted:     c.handshake.Halted(),
		Debounce:   c.interp.Counter(),
		GateArmed:  c.interp.Gate().Armed(),
		Telemetry:  c.interp.Stats(),
		UpdatedAt:  time.Now(),
	}
	if st.Halted {
		st.HaltedAt = c.handshake.HaltedAt().String()
		if err := c.handshake.Err(); err != nil {
			st.HaltError = err.Error()
		}
	}
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}
