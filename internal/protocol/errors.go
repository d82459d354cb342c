package protocol

import "errors"

var (
	ErrMalformedMessage = errors.New("protocol: malformed message")
	ErrInvalidID        = errors.New("protocol: invalid correlation id")
	ErrEmptyMethod      = errors.New("protocol: empty method")
	ErrNotCorrelated    = errors.New("protocol: response is not correlated")
	ErrResultShape      = errors.New("protocol: unexpected result shape")
)
