package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/danmuck/cortexctl/internal/protocol"
	"github.com/danmuck/cortexctl/internal/testutil/testlog"
)

func testConfig(mode DeviceMode) Config {
	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.Credentials = Credentials{ClientID: "client.alpha", ClientSecret: "secret.alpha"}
	cfg.ScanDelay = 20 * time.Second
	return cfg
}

func reply(t *testing.T, id int, result string) protocol.Response {
	t.Helper()
	resp, err := protocol.Decode(fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","result":%s}`, id, result))
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	return resp
}

func errorReply(t *testing.T, id int) protocol.Response {
	t.Helper()
	resp, err := protocol.Decode(fmt.Sprintf(`{"id":%d,"jsonrpc":"2.0","error":{"code":-32021,"message":"Invalid client credentials."}}`, id))
	if err != nil {
		t.Fatalf("decode error reply: %v", err)
	}
	return resp
}

func params(t *testing.T, req protocol.Request) map[string]any {
	t.Helper()
	raw, err := json.Marshal(req.Params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	return out
}

func expectEmit(t *testing.T, emit *Emit, id int, method string) map[string]any {
	t.Helper()
	if emit == nil {
		t.Fatalf("expected request id=%d method=%s, got none", id, method)
	}
	if emit.Request.ID != id || emit.Request.Method != method || emit.Request.JSONRPC != protocol.Version {
		t.Fatalf("unexpected request: %+v", emit.Request)
	}
	if emit.Step.ID() != id {
		t.Fatalf("emit step %s does not match id %d", emit.Step, id)
	}
	return params(t, emit.Request)
}

// driveToStep starts a discovery handshake and feeds valid replies until the
// given step is in flight.
func driveToStep(t *testing.T, target Step) *Handshake {
	t.Helper()
	h := NewHandshake(testConfig(Discover()))
	if _, err := h.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	results := map[Step]string{
		StepRequestAccess: `{"accessGranted":true}`,
		StepScanDevices:   `{"command":"refresh"}`,
		StepQueryDevices:  `[{"id":"INSIGHT-59683B0B","status":"discovered"}]`,
		StepConnectDevice: `{"command":"connect"}`,
		StepAuthorize:     `{"cortexToken":"token.abc"}`,
		StepCreateSession: `{"id":"session.1","status":"activated"}`,
	}
	for h.Step() != target {
		step := h.Step()
		if _, err := h.HandleResponse(reply(t, step.ID(), results[step])); err != nil {
			t.Fatalf("advance %s: %v", step, err)
		}
	}
	return h
}

func TestDiscoverHandshakeSequence(t *testing.T) {
	testlog.Start(t)
	h := NewHandshake(testConfig(Discover()))

	first, err := h.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	p := expectEmit(t, &first, 1, MethodRequestAccess)
	if p["clientId"] != "client.alpha" || p["clientSecret"] != "secret.alpha" {
		t.Fatalf("unexpected requestAccess params: %+v", p)
	}

	emit, err := h.HandleResponse(reply(t, 1, `{"accessGranted":true}`))
	if err != nil {
		t.Fatalf("step 1: %v", err)
	}
	p = expectEmit(t, emit, 2, MethodControlDevice)
	if p["command"] != "refresh" || emit.Delay != 0 {
		t.Fatalf("unexpected refresh emit: %+v delay=%v", p, emit.Delay)
	}

	emit, err = h.HandleResponse(reply(t, 2, `{"command":"refresh","message":"Refreshing"}`))
	if err != nil {
		t.Fatalf("step 2: %v", err)
	}
	expectEmit(t, emit, 3, MethodQueryHeadsets)
	if emit.Delay != 20*time.Second {
		t.Fatalf("expected scan delay before query, got %v", emit.Delay)
	}
	if emit.Request.Params != nil {
		t.Fatalf("queryHeadsets should carry no params: %+v", emit.Request.Params)
	}

	emit, err = h.HandleResponse(reply(t, 3, `[{"id":"INSIGHT-59683B0B"},{"id":"EPOC-2"}]`))
	if err != nil {
		t.Fatalf("step 3: %v", err)
	}
	p = expectEmit(t, emit, 4, MethodControlDevice)
	if p["command"] != "connect" || p["headset"] != "INSIGHT-59683B0B" {
		t.Fatalf("unexpected connect params: %+v", p)
	}

	emit, err = h.HandleResponse(reply(t, 4, `{"command":"connect"}`))
	if err != nil {
		t.Fatalf("step 4: %v", err)
	}
	p = expectEmit(t, emit, 5, MethodAuthorize)
	if p["clientId"] != "client.alpha" {
		t.Fatalf("unexpected authorize params: %+v", p)
	}

	emit, err = h.HandleResponse(reply(t, 5, `{"cortexToken":"token.abc"}`))
	if err != nil {
		t.Fatalf("step 5: %v", err)
	}
	p = expectEmit(t, emit, 6, MethodCreateSession)
	if p["cortexToken"] != "token.abc" || p["status"] != SessionStatusActive || p["headset"] != "INSIGHT-59683B0B" {
		t.Fatalf("unexpected createSession params: %+v", p)
	}

	emit, err = h.HandleResponse(reply(t, 6, `{"id":"session.1","status":"activated"}`))
	if err != nil {
		t.Fatalf("step 6: %v", err)
	}
	p = expectEmit(t, emit, 7, MethodSubscribe)
	streams, _ := p["streams"].([]any)
	if p["session"] != "session.1" || len(streams) != 2 || streams[0] != "pow" || streams[1] != "eq" {
		t.Fatalf("unexpected subscribe params: %+v", p)
	}

	emit, err = h.HandleResponse(reply(t, 7, `{"success":[{"streamName":"pow"},{"streamName":"eq"}]}`))
	if err != nil {
		t.Fatalf("step 7: %v", err)
	}
	if emit != nil {
		t.Fatalf("expected no request after subscribe, got %+v", emit)
	}
	if !h.Streaming() {
		t.Fatalf("expected streaming, got %s", h.Step())
	}
	state := h.State()
	if state.Token != "token.abc" || state.SessionID != "session.1" || state.HeadsetID != "INSIGHT-59683B0B" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestFixedHeadsetSkipsDiscovery(t *testing.T) {
	testlog.Start(t)
	h := NewHandshake(testConfig(NewDeviceMode(" INSIGHT-59683B0B ")))
	if !h.Mode().IsFixed() {
		t.Fatalf("expected fixed mode")
	}

	first, err := h.Start()
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	expectEmit(t, &first, 3, MethodRequestAccess)
	if h.Step() != StepQueryDevices {
		t.Fatalf("expected query step in flight, got %s", h.Step())
	}

	emit, err := h.HandleResponse(reply(t, 3, `{"accessGranted":true}`))
	if err != nil {
		t.Fatalf("access reply: %v", err)
	}
	p := expectEmit(t, emit, 4, MethodControlDevice)
	if p["headset"] != "INSIGHT-59683B0B" {
		t.Fatalf("unexpected connect params: %+v", p)
	}

	if _, err := h.HandleResponse(reply(t, 4, `{}`)); err != nil {
		t.Fatalf("connect reply: %v", err)
	}
	emit, err = h.HandleResponse(reply(t, 5, `{"cortexToken":"token.fixed"}`))
	if err != nil {
		t.Fatalf("authorize reply: %v", err)
	}
	p = expectEmit(t, emit, 6, MethodCreateSession)
	if p["status"] != SessionStatusOpen {
		t.Fatalf("expected open status for fixed headset, got %+v", p)
	}
}

func TestMismatchedIDLeavesStateUnchanged(t *testing.T) {
	testlog.Start(t)
	for step := StepRequestAccess; step <= StepSubscribe; step++ {
		h := driveToStep(t, step)
		before := h.State()
		wrong := step.ID() + 1
		emit, err := h.HandleResponse(reply(t, wrong, `{"cortexToken":"token.other","id":"session.other"}`))
		if !errors.Is(err, ErrUnexpectedCorrelation) {
			t.Fatalf("step %s: expected ErrUnexpectedCorrelation, got %v", step, err)
		}
		if emit != nil {
			t.Fatalf("step %s: unexpected emit %+v", step, emit)
		}
		if h.Step() != step || h.State() != before {
			t.Fatalf("step %s: state changed to %s %+v", step, h.Step(), h.State())
		}
	}
}

func TestErrorForStepInFlightHalts(t *testing.T) {
	testlog.Start(t)
	h := driveToStep(t, StepAuthorize)
	emit, err := h.HandleResponse(errorReply(t, 5))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
	if emit != nil {
		t.Fatalf("unexpected emit after error: %+v", emit)
	}
	if !h.Halted() || h.HaltedAt() != StepAuthorize {
		t.Fatalf("expected halt at authorize, got step=%s at=%s", h.Step(), h.HaltedAt())
	}
	if h.State().Token != "" {
		t.Fatalf("token must stay unset after error")
	}

	if _, err := h.HandleResponse(reply(t, 5, `{"cortexToken":"late"}`)); !errors.Is(err, ErrHalted) {
		t.Fatalf("expected ErrHalted after halt, got %v", err)
	}
}

func TestErrorForOtherIDIsIgnored(t *testing.T) {
	testlog.Start(t)
	h := driveToStep(t, StepConnectDevice)
	err := h.HandleError(errorReply(t, 2))
	if !errors.Is(err, ErrUnexpectedCorrelation) || !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected unexpected-correlation protocol error, got %v", err)
	}
	if h.Halted() || h.Step() != StepConnectDevice {
		t.Fatalf("handshake should not move, got %s", h.Step())
	}
}

func TestEmptyDiscoveryHalts(t *testing.T) {
	testlog.Start(t)
	h := driveToStep(t, StepQueryDevices)
	if _, err := h.HandleResponse(reply(t, 3, `[]`)); !errors.Is(err, ErrNoHeadsets) {
		t.Fatalf("expected ErrNoHeadsets, got %v", err)
	}
	if !h.Halted() {
		t.Fatalf("expected halt")
	}
}

func TestInvalidResultHalts(t *testing.T) {
	testlog.Start(t)
	h := driveToStep(t, StepCreateSession)
	if _, err := h.HandleResponse(reply(t, 6, `{"status":"activated"}`)); !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
	if !h.Halted() || h.State().SessionID != "" {
		t.Fatalf("expected halt without session id, got %s %+v", h.Step(), h.State())
	}
}

func TestRepliesAfterStreamingAreUnexpected(t *testing.T) {
	testlog.Start(t)
	h := driveToStep(t, StepSubscribe)
	if _, err := h.HandleResponse(reply(t, 7, `{}`)); err != nil {
		t.Fatalf("subscribe reply: %v", err)
	}
	for _, id := range []int{0, 7, 8} {
		if _, err := h.HandleResponse(reply(t, id, `{}`)); !errors.Is(err, ErrUnexpectedCorrelation) {
			t.Fatalf("id %d: expected ErrUnexpectedCorrelation, got %v", id, err)
		}
	}
	if err := h.HandleError(errorReply(t, 0)); !errors.Is(err, ErrUnexpectedCorrelation) {
		t.Fatalf("expected error reply to be ignored while streaming, got %v", err)
	}
	if !h.Streaming() {
		t.Fatalf("expected to stay streaming, got %s", h.Step())
	}
}

func TestStartOnceAndRequiresStart(t *testing.T) {
	testlog.Start(t)
	h := NewHandshake(testConfig(Discover()))
	if _, err := h.HandleResponse(reply(t, 1, `{}`)); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if _, err := h.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := h.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.ScanDelay != DefaultScanDelay {
		t.Fatalf("unexpected scan delay: %v", cfg.ScanDelay)
	}
	if len(cfg.Streams) != 2 || cfg.Streams[0] != StreamBandPower || cfg.Streams[1] != StreamQuality {
		t.Fatalf("unexpected streams: %+v", cfg.Streams)
	}
	if NewDeviceMode("  ").IsFixed() {
		t.Fatalf("blank headset id should select discovery")
	}
	if got := Fixed("INSIGHT-1").String(); got != "fixed(INSIGHT-1)" {
		t.Fatalf("unexpected mode string: %q", got)
	}
}
