package protocol

import (
	"encoding/json"
	"strings"

	logs "github.com/danmuck/cortexctl/internal/logging"
)

// NewRequest builds a request envelope for method.
func NewRequest(id int, method string, params any) Request {
	return Request{
		ID:      id,
		JSONRPC: Version,
		Method:  method,
		Params:  params,
	}
}

// Encode renders the canonical envelope text for one call.
func Encode(id int, method string, params any) (string, error) {
	return Marshal(NewRequest(id, method, params))
}

// Marshal renders req as envelope text.
func Marshal(req Request) (string, error) {
	if strings.TrimSpace(req.Method) == "" {
		return "", ErrEmptyMethod
	}
	if req.JSONRPC == "" {
		req.JSONRPC = Version
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	text := string(payload)
	logs.Debugf("protocol.Encode sending command %s", text)
	return text, nil
}
