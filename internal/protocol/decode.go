package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"go.lsp.dev/jsonrpc2"
)

var jsonNull = []byte("null")

// Decode parses one incoming envelope and classifies it.
//
// Classification order: a non-null "error" member makes it KindError, an
// absent or null "id" makes it KindUnsolicited, anything else is
// KindCorrelated.
func Decode(text string) (Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if fields == nil {
		return Response{}, fmt.Errorf("%w: null envelope", ErrMalformedMessage)
	}

	resp := Response{Fields: fields}
	if raw, ok := fields["id"]; ok && !isNull(raw) {
		id, err := parseID(raw)
		if err != nil {
			return Response{}, err
		}
		resp.ID = &id
	}
	if raw, ok := fields["result"]; ok {
		resp.Result = raw
	}

	switch {
	case present(fields, "error"):
		resp.Kind = KindError
		resp.Error = parseError(fields["error"])
	case resp.ID == nil:
		resp.Kind = KindUnsolicited
	default:
		resp.Kind = KindCorrelated
	}
	return resp, nil
}

func parseID(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("%w: %w: %s", ErrMalformedMessage, ErrInvalidID, raw)
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %w: %s", ErrMalformedMessage, ErrInvalidID, raw)
	}
	return int(f), nil
}

// parseError keeps the server's code and message when the payload has the
// JSON-RPC error shape; any other value is carried verbatim as the message.
func parseError(raw json.RawMessage) *jsonrpc2.Error {
	var out jsonrpc2.Error
	if err := json.Unmarshal(raw, &out); err == nil && (out.Message != "" || out.Code != 0) {
		return &out
	}
	return &jsonrpc2.Error{Message: string(bytes.TrimSpace(raw))}
}

func present(fields map[string]json.RawMessage, key string) bool {
	raw, ok := fields[key]
	return ok && !isNull(raw)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}
