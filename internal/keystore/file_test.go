package keystore_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"peerseal/internal/domain"
	"peerseal/internal/keystore"
)

// cheap scrypt cost so tests stay fast.
func newFile(dir, pass string) *keystore.File {
	return keystore.NewFile(dir, pass, keystore.WithScryptParams(1<<10, 8, 1))
}

func TestFile_CreateThenReload(t *testing.T) {
	home := t.TempDir()
	var kp domain.DeviceKeyProvider = newFile(home, "correct horse")

	if kp.DeviceKeyExists() {
		t.Fatal("key exists before creation")
	}
	key, err := kp.GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("GetOrCreateDeviceKey: %v", err)
	}
	if len(key) != keystore.DeviceKeySize {
		t.Fatalf("key length = %d", len(key))
	}
	if !kp.DeviceKeyExists() {
		t.Fatal("key missing after creation")
	}

	again, err := newFile(home, "correct horse").GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Fatal("reloaded key differs")
	}

	raw, err := os.ReadFile(filepath.Join(home, "device.key"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, key) {
		t.Fatal("sealed file contains the raw key")
	}
}

func TestFile_WrongPassphrase_Fails(t *testing.T) {
	home := t.TempDir()
	if _, err := newFile(home, "correct").GetOrCreateDeviceKey(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := newFile(home, "wrong").GetOrCreateDeviceKey(); !errors.Is(err, keystore.ErrWrongPassphrase) {
		t.Fatalf("got %v, want ErrWrongPassphrase", err)
	}
	if _, err := newFile(home, "").GetOrCreateDeviceKey(); !errors.Is(err, keystore.ErrPassphraseRequired) {
		t.Fatalf("got %v, want ErrPassphraseRequired", err)
	}
}

func TestFile_NoPassphrase(t *testing.T) {
	home := t.TempDir()
	key, err := newFile(home, "").GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	again, err := newFile(home, "").GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !bytes.Equal(key, again) {
		t.Fatal("reloaded key differs")
	}
	fi, err := os.Stat(filepath.Join(home, "device.key"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", fi.Mode().Perm())
	}
}

func TestFile_Delete(t *testing.T) {
	home := t.TempDir()
	f := newFile(home, "")
	first, err := f.GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.DeleteDeviceKey(); err != nil {
		t.Fatalf("DeleteDeviceKey: %v", err)
	}
	if f.DeviceKeyExists() {
		t.Fatal("key still exists after delete")
	}
	if err := f.DeleteDeviceKey(); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	second, err := f.GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("recreate: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("recreated key equals deleted key")
	}
}

func TestMemory(t *testing.T) {
	m := keystore.NewMemory()
	if m.DeviceKeyExists() {
		t.Fatal("fresh memory provider has a key")
	}
	a, err := m.GetOrCreateDeviceKey()
	if err != nil {
		t.Fatalf("GetOrCreateDeviceKey: %v", err)
	}
	a[0] ^= 0xff // callers get a copy
	b, _ := m.GetOrCreateDeviceKey()
	if bytes.Equal(a, b) {
		t.Fatal("provider handed out its internal buffer")
	}
	_ = m.DeleteDeviceKey()
	if m.DeviceKeyExists() {
		t.Fatal("key survived delete")
	}
}
