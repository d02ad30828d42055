// Package storage keeps uploaded client documents on local disk under
// ULID keys.
package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNotFound = errors.New("blob not found")
	ErrTooLarge = errors.New("blob exceeds size limit")
	ErrBadKey   = errors.New("invalid blob key")
)

// Blobs stores opaque file contents.
type Blobs interface {
	Put(r io.Reader, maxBytes int64) (key string, size int64, err error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// Disk is a Blobs implementation rooted at one directory.
type Disk struct {
	root string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewDisk creates root if needed.
func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{root: root, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

func (d *Disk) newKey() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), d.entropy).String()
}

// path maps a key to its file. Keys are ULIDs, so they never contain separators.
func (d *Disk) path(key string) (string, error) {
	if _, err := ulid.ParseStrict(key); err != nil {
		return "", ErrBadKey
	}
	return filepath.Join(d.root, key[:2], key), nil
}

// Put copies r to a new blob. A maxBytes of 0 disables the limit.
func (d *Disk) Put(r io.Reader, maxBytes int64) (string, int64, error) {
	key := d.newKey()
	p, _ := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), key+".*.part")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, err
	}
	if maxBytes > 0 && n > maxBytes {
		return "", 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return "", 0, err
	}
	return key, n, nil
}

func (d *Disk) Open(key string) (io.ReadCloser, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (d *Disk) Delete(key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
