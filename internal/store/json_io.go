package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// recordVersion tags every persisted record.
const recordVersion = 1

// ErrSerialization marks persisted data that does not decode.
var ErrSerialization = errors.New("store: malformed record")

// putJSON encodes v, seals it with the envelope cipher and writes it under
// name.
func (s *Store) putJSON(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	blob, err := s.cipher.Encrypt(b)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, name, blob)
}

// loadError records which stage of a read failed.
type loadError struct {
	op  string
	err error
}

func (e *loadError) Error() string { return "store: " + e.op + " failed: " + e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

// readJSON reads name into out. It reports false with a nil error when the
// record is absent, and a *loadError for anything else.
func (s *Store) readJSON(ctx context.Context, name string, out any) (bool, error) {
	blob, err := s.backend.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &loadError{"read", err}
	}
	b, err := s.cipher.Decrypt(blob)
	if err != nil {
		return false, &loadError{"decrypt", err}
	}
	if err := decode(b, out); err != nil {
		return false, &loadError{"decode", err}
	}
	return true, nil
}

// getJSON best-effort reads name into out. Every failure is logged and
// reported as false; the stored blob is never modified.
func (s *Store) getJSON(ctx context.Context, name string, out any) bool {
	found, err := s.readJSON(ctx, name, out)
	var le *loadError
	if errors.As(err, &le) {
		s.log.Warn("store: "+le.op+" failed", zap.String("name", name), zap.Error(le.err))
		return false
	}
	if !found {
		s.log.Debug("store: no record", zap.String("name", name))
	}
	return found
}

func decode(b []byte, out any) error {
	var hdr struct {
		V int `json:"v"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if hdr.V != recordVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrSerialization, hdr.V)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return nil
}
