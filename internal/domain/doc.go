// Package domain defines core data models and interfaces shared across peerseal.
// It contains plain types (ratchet state, keys, persisted records) and
// contracts (stores, key providers, services) only.
package domain
