package store

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"peerseal/internal/util/fileio"
)

const (
	blobExt   = ".blob"
	hashedExt = ".hblob"

	// maxEncodedName keeps base name, extension and the temp suffix added by
	// fileio.WriteAtomic under the usual 255-byte file name limit.
	maxEncodedName = 160
)

var errNameMismatch = errors.New("store: hashed blob holds another name")

// FileBackend keeps one file per blob under dir. Short names are base64url
// encoded into the file name. Longer ones are stored as hex(sha256(name))
// with the name framed in front of the data, so List can still recover it.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend returns a FileBackend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// path returns the file for name and whether it is a hashed (framed) file.
func (b *FileBackend) path(name string) (string, bool) {
	enc := base64.RawURLEncoding.EncodeToString([]byte(name))
	if len(enc) <= maxEncodedName {
		return filepath.Join(b.dir, enc+blobExt), false
	}
	sum := sha256.Sum256([]byte(name))
	return filepath.Join(b.dir, hex.EncodeToString(sum[:])+hashedExt), true
}

// frame prefixes data with the big-endian length of name and name itself.
func frame(name string, data []byte) []byte {
	out := make([]byte, 4, 4+len(name)+len(data))
	binary.BigEndian.PutUint32(out, uint32(len(name)))
	out = append(out, name...)
	return append(out, data...)
}

func unframe(raw []byte) (string, []byte, error) {
	if len(raw) < 4 {
		return "", nil, fmt.Errorf("store: truncated hashed blob")
	}
	n := binary.BigEndian.Uint32(raw)
	if uint64(len(raw)-4) < uint64(n) {
		return "", nil, fmt.Errorf("store: truncated hashed blob")
	}
	return string(raw[4 : 4+n]), raw[4+n:], nil
}

// Put writes data for name via a temp file and rename.
func (b *FileBackend) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, hashed := b.path(name)
	if hashed {
		data = frame(name, data)
	}
	return fileio.WriteAtomic(p, data, 0o600)
}

// Get reads the blob stored under name.
func (b *FileBackend) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, hashed := b.path(name)
	data, err := fileio.Read(p)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	if !hashed {
		return data, nil
	}
	stored, body, err := unframe(data)
	if err != nil {
		return nil, err
	}
	if stored != name {
		return nil, errNameMismatch
	}
	return body, nil
}

// Delete removes the blob stored under name.
func (b *FileBackend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, _ := b.path(name)
	return fileio.Remove(p)
}

// List returns stored names with the given prefix. Files that do not decode
// to a name are ignored.
func (b *FileBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := b.nameOf(e.Name())
		if ok && strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// nameOf recovers the blob name stored in file.
func (b *FileBackend) nameOf(file string) (string, bool) {
	if base, ok := strings.CutSuffix(file, blobExt); ok {
		raw, err := base64.RawURLEncoding.DecodeString(base)
		return string(raw), err == nil
	}
	if _, ok := strings.CutSuffix(file, hashedExt); ok {
		raw, err := fileio.Read(filepath.Join(b.dir, file))
		if err != nil || raw == nil {
			return "", false
		}
		name, _, err := unframe(raw)
		return name, err == nil
	}
	return "", false
}

func (b *FileBackend) Close() error { return nil }

var _ Backend = (*FileBackend)(nil)
