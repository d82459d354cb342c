// Package tools holds host helpers shared by trigger sinks.
//
// Ownership boundary:
// - bounded command execution with captured output and exit codes
package tools
