// Package commands defines the peerseal CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init                 Create the device key and local identity
//   - identity             Show, rotate or replenish the local keys
//   - safety-number        Print the safety number (or QR payload) for a peer
//   - verify-qr            Check a scanned QR payload against a peer's key
//   - compare              Compare two safety numbers ignoring spacing
//   - session-fingerprint  Print the live fingerprint of a session
//   - sessions             List, show or delete stored sessions
//   - selftest             Run a local two-party handshake and exchange
//
// # Implementation
//
// The root command loads <home>/config.yaml, applies flag overrides and
// builds the dependency graph (backend, store, services) before any
// subcommand runs. The graph is released after the subcommand returns.
package commands
