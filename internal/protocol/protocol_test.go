package protocol

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/danmuck/cortexctl/internal/testutil/testlog"
)

func TestEncodeEnvelopeShape(t *testing.T) {
	testlog.Start(t)
	text, err := Encode(4, "controlDevice", map[string]any{"command": "connect", "headset": "INSIGHT-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["id"] != float64(4) || got["jsonrpc"] != "2.0" || got["method"] != "controlDevice" {
		t.Fatalf("unexpected envelope: %s", text)
	}
	params, ok := got["params"].(map[string]any)
	if !ok || params["headset"] != "INSIGHT-1" {
		t.Fatalf("unexpected params: %s", text)
	}
}

func TestEncodeOmitsNilParams(t *testing.T) {
	testlog.Start(t)
	text, err := Encode(3, "queryHeadsets", nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(text, "params") {
		t.Fatalf("expected params to be omitted: %s", text)
	}
}

func TestEncodeRejectsEmptyMethod(t *testing.T) {
	testlog.Start(t)
	if _, err := Encode(1, " ", nil); !errors.Is(err, ErrEmptyMethod) {
		t.Fatalf("expected ErrEmptyMethod, got %v", err)
	}
}

func TestDecodeReplyMatchesEncodedID(t *testing.T) {
	testlog.Start(t)
	params := map[string]any{"clientId": "abc"}
	text, err := Encode(5, "authorize", params)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var req Request
	if err := json.Unmarshal([]byte(text), &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	reply, err := json.Marshal(map[string]any{"id": req.ID, "jsonrpc": "2.0", "result": req.Params})
	if err != nil {
		t.Fatalf("marshal reply: %v", err)
	}

	resp, err := Decode(string(reply))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != KindCorrelated {
		t.Fatalf("expected correlated, got %s", resp.Kind)
	}
	if !resp.HasID(5) {
		t.Fatalf("expected id 5, got %s", resp.IDString())
	}
}

func TestDecodeClassification(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name string
		text string
		want Kind
	}{
		{"error with id", `{"id":5,"error":{"code":-32021,"message":"Invalid client credentials."}}`, KindError},
		{"error without id", `{"error":{"code":-32600,"message":"bad"}}`, KindError},
		{"null error with id", `{"id":2,"error":null,"result":{}}`, KindCorrelated},
		{"stream data", `{"pow":[1,2,3],"sid":"s","time":1.5}`, KindUnsolicited},
		{"null id", `{"id":null,"eq":[1]}`, KindUnsolicited},
		{"correlated", `{"id":1,"jsonrpc":"2.0","result":{"accessGranted":true}}`, KindCorrelated},
	}
	for _, tc := range cases {
		resp, err := Decode(tc.text)
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if resp.Kind != tc.want {
			t.Fatalf("%s: kind=%s want=%s", tc.name, resp.Kind, tc.want)
		}
	}
}

func TestDecodeErrorPayload(t *testing.T) {
	testlog.Start(t)
	resp, err := Decode(`{"id":5,"error":{"code":-32021,"message":"Invalid client credentials."}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Message != "Invalid client credentials." || resp.Error.Code != -32021 {
		t.Fatalf("unexpected error payload: %+v", resp.Error)
	}
	if !resp.HasID(5) {
		t.Fatalf("expected id to be kept on error envelope")
	}

	resp, err = Decode(`{"id":1,"error":"denied"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error == nil || resp.Error.Message != `"denied"` {
		t.Fatalf("unexpected fallback payload: %+v", resp.Error)
	}
}

func TestDecodeMalformed(t *testing.T) {
	testlog.Start(t)
	for _, text := range []string{"", "not json", "[1,2]", "null", `{"id":"seven","result":1}`, `{"id":1.5}`} {
		if _, err := Decode(text); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("Decode(%q): expected ErrMalformedMessage, got %v", text, err)
		}
	}
}

func TestDecodeResults(t *testing.T) {
	testlog.Start(t)
	resp, err := Decode(`{"id":3,"result":[{"id":"INSIGHT-59683B0B","status":"discovered"},{"id":"EPOC-1"}]}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	headsets, err := DecodeHeadsets(resp)
	if err != nil {
		t.Fatalf("headsets: %v", err)
	}
	if len(headsets) != 2 || headsets[0].ID != "INSIGHT-59683B0B" {
		t.Fatalf("unexpected headsets: %+v", headsets)
	}

	resp, _ = Decode(`{"id":5,"result":{"cortexToken":""}}`)
	if _, err := DecodeAuthorize(resp); !errors.Is(err, ErrResultShape) {
		t.Fatalf("expected ErrResultShape for empty token, got %v", err)
	}

	resp, _ = Decode(`{"id":6,"result":{"id":"sess-1","status":"activated"}}`)
	sess, err := DecodeSession(resp)
	if err != nil || sess.ID != "sess-1" {
		t.Fatalf("unexpected session: %+v err=%v", sess, err)
	}

	resp, _ = Decode(`{"pow":[1]}`)
	if _, err := DecodeSession(resp); !errors.Is(err, ErrNotCorrelated) {
		t.Fatalf("expected ErrNotCorrelated, got %v", err)
	}
}
