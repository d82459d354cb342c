// Package client runs one Cortex session: it wires the envelope codec, the
// handshake and the telemetry interpreter to a message channel.
//
// Ownership boundary:
// - routing of decoded envelopes (errors, replies, stream data)
// - the serial event loop all handling runs on
// - process lifecycle and the optional admin endpoint
package client
