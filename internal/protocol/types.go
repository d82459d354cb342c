package protocol

import (
	"encoding/json"
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// Version is the JSON-RPC version tag carried by every outgoing request.
const Version = "2.0"

// Request is one outgoing call. It is built, encoded and dropped.
type Request struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Kind classifies an incoming envelope.
type Kind int

const (
	KindCorrelated Kind = iota
	KindUnsolicited
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindCorrelated:
		return "correlated"
	case KindUnsolicited:
		return "unsolicited"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Response is a decoded incoming envelope.
//
// ID is nil for unsolicited stream data. Fields holds every top-level member
// so stream payloads ("pow", "eq", "com", ...) can be dispatched by name.
type Response struct {
	ID     *int
	Result json.RawMessage
	Error  *jsonrpc2.Error
	Kind   Kind
	Fields map[string]json.RawMessage
}

// HasID reports whether the envelope carries id.
func (r Response) HasID(id int) bool {
	return r.ID != nil && *r.ID == id
}

// IDString renders the correlation id for log lines.
func (r Response) IDString() string {
	if r.ID == nil {
		return "none"
	}
	return fmt.Sprintf("%d", *r.ID)
}
