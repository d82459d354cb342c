// Package protocol owns the Cortex JSON-RPC wire contract.
//
// Ownership boundary:
// - request envelope encoding
// - response envelope decoding and classification
// - typed views over the result payloads the handshake consumes
package protocol
