// Package app wires application dependencies for the CLI.
//
// It loads Config from <home>/config.yaml, builds the storage backend, the
// device key provider, the encrypted store, the ratchet engine and the
// services, and exposes them via the Wire struct for commands to use.
package app
