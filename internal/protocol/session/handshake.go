package session

import (
	"errors"
	"fmt"
	"time"

	logs "github.com/danmuck/cortexctl/internal/logging"
	"github.com/danmuck/cortexctl/internal/protocol"
)

var (
	ErrAlreadyStarted        = errors.New("session: handshake already started")
	ErrNotStarted            = errors.New("session: handshake not started")
	ErrUnexpectedCorrelation = errors.New("session: unexpected correlation id")
	ErrProtocol              = errors.New("session: server returned error")
	ErrInvalidResult         = errors.New("session: invalid result")
	ErrNoHeadsets            = errors.New("session: no headsets discovered")
	ErrStateIncomplete       = errors.New("session: session state incomplete")
	ErrHalted                = errors.New("session: handshake halted")
)

const (
	MethodRequestAccess = "requestAccess"
	MethodControlDevice = "controlDevice"
	MethodQueryHeadsets = "queryHeadsets"
	MethodAuthorize     = "authorize"
	MethodCreateSession = "createSession"
	MethodSubscribe     = "subscribe"

	SessionStatusActive = "active"
	SessionStatusOpen   = "open"
)

// Step is one handshake step. Steps RequestAccess through Subscribe use their
// ordinal as the correlation id of the request they send.
type Step int

const (
	StepRequestAccess Step = iota + 1
	StepScanDevices
	StepQueryDevices
	StepConnectDevice
	StepAuthorize
	StepCreateSession
	StepSubscribe
	StepStreaming
	StepHalted
)

func (s Step) String() string {
	switch s {
	case StepRequestAccess:
		return "request_access"
	case StepScanDevices:
		return "scan_devices"
	case StepQueryDevices:
		return "query_devices"
	case StepConnectDevice:
		return "connect_device"
	case StepAuthorize:
		return "authorize"
	case StepCreateSession:
		return "create_session"
	case StepSubscribe:
		return "subscribe"
	case StepStreaming:
		return "streaming"
	case StepHalted:
		return "halted"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ID is the correlation id of the step's request; zero for terminal states.
func (s Step) ID() int {
	if s < StepRequestAccess || s > StepSubscribe {
		return 0
	}
	return int(s)
}

// State is the session-scoped state the handshake accumulates. Fields are
// only ever set, never cleared.
type State struct {
	Token     string
	SessionID string
	HeadsetID string
}

// Emit is the next request to send and how long to hold it first.
type Emit struct {
	Step    Step
	Request protocol.Request
	Delay   time.Duration
}

type stepSpec struct {
	method string
	params func(h *Handshake) (any, error)
	// apply folds the reply into State before moving on.
	apply func(h *Handshake, resp protocol.Response) error
	next  Step
	// delayNext holds the next request for Config.ScanDelay.
	delayNext bool
}

var steps = map[Step]stepSpec{
	StepRequestAccess: {
		method: MethodRequestAccess,
		params: credentialParams,
		next:   StepScanDevices,
	},
	StepScanDevices: {
		method:    MethodControlDevice,
		params:    func(*Handshake) (any, error) { return map[string]any{"command": "refresh"}, nil },
		next:      StepQueryDevices,
		delayNext: true,
	},
	StepQueryDevices: {
		method: MethodQueryHeadsets,
		params: func(*Handshake) (any, error) { return nil, nil },
		apply:  applyHeadsets,
		next:   StepConnectDevice,
	},
	StepConnectDevice: {
		method: MethodControlDevice,
		params: connectParams,
		next:   StepAuthorize,
	},
	StepAuthorize: {
		method: MethodAuthorize,
		params: credentialParams,
		apply:  applyAuthorize,
		next:   StepCreateSession,
	},
	StepCreateSession: {
		method: MethodCreateSession,
		params: createSessionParams,
		apply:  applySession,
		next:   StepSubscribe,
	},
	StepSubscribe: {
		method: MethodSubscribe,
		params: subscribeParams,
		next:   StepStreaming,
	},
}

// Handshake drives the setup sequence. It is not safe for concurrent use;
// callers serialise message handling.
type Handshake struct {
	cfg     Config
	state   State
	step    Step
	started bool
	err     error
	// haltedAt is the step that was in flight when the handshake halted.
	haltedAt Step
}

// NewHandshake picks the first step from the device mode: discovery starts at
// requestAccess, a fixed headset starts at the query step and reuses its id.
func NewHandshake(cfg Config) *Handshake {
	cfg = cfg.WithDefaults()
	h := &Handshake{cfg: cfg, step: StepRequestAccess}
	if cfg.Mode.IsFixed() {
		h.step = StepQueryDevices
		h.state.HeadsetID = cfg.Mode.HeadsetID()
	}
	return h
}

// Start returns the first request. It is sent when the channel opens.
func (h *Handshake) Start() (Emit, error) {
	if h.started {
		return Emit{}, ErrAlreadyStarted
	}
	h.started = true
	first := h.step
	if h.cfg.Mode.IsFixed() {
		// access is still requested, under the query step's id
		first = StepRequestAccess
	}
	req, err := h.build(first, h.step.ID())
	if err != nil {
		h.halt(err)
		return Emit{}, err
	}
	logs.Infof("session.Handshake.Start mode=%s step=%s id=%d", h.cfg.Mode, h.step, req.ID)
	return Emit{Step: h.step, Request: req}, nil
}

// HandleResponse applies a correlated reply for the step in flight and
// returns the next request, or nil once streaming.
func (h *Handshake) HandleResponse(resp protocol.Response) (*Emit, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}
	if resp.Kind == protocol.KindError {
		return nil, h.HandleError(resp)
	}
	if resp.Kind != protocol.KindCorrelated || h.step.ID() == 0 || !resp.HasID(h.step.ID()) {
		return nil, h.unexpected(resp)
	}

	spec := steps[h.step]
	if spec.apply != nil {
		if err := spec.apply(h, resp); err != nil {
			h.halt(err)
			return nil, err
		}
	}
	logs.Infof("session.Handshake.advance step=%s id=%d next=%s", h.step, h.step.ID(), spec.next)
	h.step = spec.next
	if h.step == StepStreaming {
		logs.Infof("session.Handshake.streaming session=%q headset=%q", h.state.SessionID, h.state.HeadsetID)
		return nil, nil
	}

	req, err := h.build(h.step, h.step.ID())
	if err != nil {
		h.halt(err)
		return nil, err
	}
	out := &Emit{Step: h.step, Request: req}
	if spec.delayNext {
		out.Delay = h.cfg.ScanDelay
	}
	return out, nil
}

// HandleError applies an error reply. An error for the step in flight halts
// the handshake; anything else is reported and ignored.
func (h *Handshake) HandleError(resp protocol.Response) error {
	if err := h.ready(); err != nil {
		return err
	}
	detail := "unknown"
	if resp.Error != nil {
		detail = fmt.Sprintf("code=%d message=%q", resp.Error.Code, resp.Error.Message)
	}
	if h.step.ID() == 0 || !resp.HasID(h.step.ID()) {
		return fmt.Errorf("%w: got=%s want=%d: %w: %s", ErrUnexpectedCorrelation, resp.IDString(), h.step.ID(), ErrProtocol, detail)
	}
	err := fmt.Errorf("%w: step=%s %s", ErrProtocol, h.step, detail)
	h.halt(err)
	return err
}

func (h *Handshake) Step() Step {
	return h.step
}

func (h *Handshake) State() State {
	return h.state
}

func (h *Handshake) Streaming() bool {
	return h.step == StepStreaming
}

func (h *Handshake) Halted() bool {
	return h.step == StepHalted
}

// Err returns the error that halted the handshake, if any.
func (h *Handshake) Err() error {
	return h.err
}

// HaltedAt is the step that was in flight when the handshake halted.
func (h *Handshake) HaltedAt() Step {
	return h.haltedAt
}

func (h *Handshake) Mode() DeviceMode {
	return h.cfg.Mode
}

func (h *Handshake) ready() error {
	if !h.started {
		return ErrNotStarted
	}
	if h.step == StepHalted {
		return fmt.Errorf("%w at %s: %v", ErrHalted, h.haltedAt, h.err)
	}
	return nil
}

func (h *Handshake) unexpected(resp protocol.Response) error {
	if h.step == StepStreaming {
		return fmt.Errorf("%w: got=%s, no step in flight", ErrUnexpectedCorrelation, resp.IDString())
	}
	return fmt.Errorf("%w: got=%s want=%d step=%s", ErrUnexpectedCorrelation, resp.IDString(), h.step.ID(), h.step)
}

func (h *Handshake) halt(err error) {
	logs.Errorf("session.Handshake.halt step=%s err=%v", h.step, err)
	h.haltedAt = h.step
	h.err = err
	h.step = StepHalted
}

func (h *Handshake) build(step Step, id int) (protocol.Request, error) {
	spec, ok := steps[step]
	if !ok {
		return protocol.Request{}, fmt.Errorf("session: no request for step %s", step)
	}
	params, err := spec.params(h)
	if err != nil {
		return protocol.Request{}, err
	}
	return protocol.NewRequest(id, spec.method, params), nil
}

func credentialParams(h *Handshake) (any, error) {
	return map[string]any{
		"clientId":     h.cfg.Credentials.ClientID,
		"clientSecret": h.cfg.Credentials.ClientSecret,
	}, nil
}

func connectParams(h *Handshake) (any, error) {
	if h.state.HeadsetID == "" {
		return nil, fmt.Errorf("%w: connect needs headset id", ErrStateIncomplete)
	}
	return map[string]any{
		"command": "connect",
		"headset": h.state.HeadsetID,
	}, nil
}

func createSessionParams(h *Handshake) (any, error) {
	if h.state.Token == "" || h.state.HeadsetID == "" {
		return nil, fmt.Errorf("%w: createSession needs token and headset id", ErrStateIncomplete)
	}
	status := SessionStatusActive
	if h.cfg.Mode.IsFixed() {
		status = SessionStatusOpen
	}
	return map[string]any{
		"cortexToken": h.state.Token,
		"status":      status,
		"headset":     h.state.HeadsetID,
	}, nil
}

func subscribeParams(h *Handshake) (any, error) {
	if h.state.Token == "" || h.state.SessionID == "" {
		return nil, fmt.Errorf("%w: subscribe needs token and session id", ErrStateIncomplete)
	}
	streams := make([]string, len(h.cfg.Streams))
	copy(streams, h.cfg.Streams)
	return map[string]any{
		"cortexToken": h.state.Token,
		"session":     h.state.SessionID,
		"streams":     streams,
	}, nil
}

func applyHeadsets(h *Handshake, resp protocol.Response) error {
	if h.state.HeadsetID != "" {
		return nil
	}
	headsets, err := protocol.DecodeHeadsets(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}
	if len(headsets) == 0 || headsets[0].ID == "" {
		return ErrNoHeadsets
	}
	h.state.HeadsetID = headsets[0].ID
	logs.Infof("session.Handshake.headset selected=%q discovered=%d", h.state.HeadsetID, len(headsets))
	return nil
}

func applyAuthorize(h *Handshake, resp protocol.Response) error {
	out, err := protocol.DecodeAuthorize(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}
	h.state.Token = out.CortexToken
	return nil
}

func applySession(h *Handshake, resp protocol.Response) error {
	out, err := protocol.DecodeSession(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResult, err)
	}
	h.state.SessionID = out.ID
	return nil
}
