package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Headset is one entry of a queryHeadsets result.
type Headset struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// AuthorizeResult is the authorize result payload.
type AuthorizeResult struct {
	CortexToken string `json:"cortexToken"`
}

// SessionResult is the createSession result payload.
type SessionResult struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// DecodeResult unmarshals the result member of a correlated reply into out.
func DecodeResult(resp Response, out any) error {
	if resp.Kind != KindCorrelated {
		return fmt.Errorf("%w: kind=%s", ErrNotCorrelated, resp.Kind)
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("%w: missing result", ErrResultShape)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: %v", ErrResultShape, err)
	}
	return nil
}

// DecodeHeadsets returns the headsets listed in a queryHeadsets reply.
func DecodeHeadsets(resp Response) ([]Headset, error) {
	var list []Headset
	if err := DecodeResult(resp, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// DecodeAuthorize returns the cortex token of an authorize reply.
func DecodeAuthorize(resp Response) (AuthorizeResult, error) {
	var out AuthorizeResult
	if err := DecodeResult(resp, &out); err != nil {
		return AuthorizeResult{}, err
	}
	if strings.TrimSpace(out.CortexToken) == "" {
		return AuthorizeResult{}, fmt.Errorf("%w: missing cortexToken", ErrResultShape)
	}
	return out, nil
}

// DecodeSession returns the session of a createSession reply.
func DecodeSession(resp Response) (SessionResult, error) {
	var out SessionResult
	if err := DecodeResult(resp, &out); err != nil {
		return SessionResult{}, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return SessionResult{}, fmt.Errorf("%w: missing session id", ErrResultShape)
	}
	return out, nil
}
