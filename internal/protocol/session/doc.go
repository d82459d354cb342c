// Package session owns the Cortex session handshake.
//
// Ownership boundary:
// - the ordered setup steps from requestAccess through subscribe
// - correlation of each reply with the step in flight
// - session-scoped state (cortex token, session id, headset id)
//
// The handshake never retries and never times out: a server error or a
// missing reply leaves it parked on the step in flight until restart.
package session
