// Copyright © 2024 The ELPS authors

// Package cache stores lint results on disk so unchanged files are not
// parsed again. Entries are keyed by a hash of the file name, its content,
// the enabled rule set and the tool version, and are encoded with msgpack.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/luthersystems/baseline/lint"
	"github.com/minio/highwayhash"
	"github.com/vmihailenco/msgpack/v5"
)

// Version is mixed into every key. Bumping it invalidates old entries.
var Version = "dev"

const schemaVersion uint16 = 1

var hashKey = []byte("baseline-lint-cache-0123456789AB")

// Cache is a directory of cached lint results. It is safe for concurrent
// use. A nil *Cache never hits and drops every Put.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

type entry struct {
	Schema      uint16            `msgpack:"schema"`
	Diagnostics []lint.Diagnostic `msgpack:"diagnostics"`
}

// Open returns a cache rooted at dir, creating the directory if needed.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key derives the cache key for linting src as filename with the given
// rules. The order of ruleIDs does not matter.
func Key(filename string, src []byte, ruleIDs []string) (string, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", err
	}
	ids := append([]string(nil), ruleIDs...)
	sort.Strings(ids)
	var parts []string
	parts = append(parts, Version, filename)
	parts = append(parts, ids...)
	for _, p := range parts {
		writeField(h, []byte(p))
	}
	writeField(h, src)
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], h.Sum64())
	return hex.EncodeToString(sum[:]), nil
}

// writeField writes a length-prefixed field so adjacent fields cannot run
// into each other.
func writeField(h interface{ Write([]byte) (int, error) }, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	_, _ = h.Write(n[:])
	_, _ = h.Write(b)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key[:2], key+".mp")
}

// Get returns the diagnostics stored under key. A missing, unreadable or
// corrupt entry is a miss.
func (c *Cache) Get(key string) ([]lint.Diagnostic, bool) {
	if c == nil || len(key) < 2 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := msgpack.Unmarshal(b, &e); err != nil || e.Schema != schemaVersion {
		return nil, false
	}
	if e.Diagnostics == nil {
		e.Diagnostics = []lint.Diagnostic{}
	}
	return e.Diagnostics, true
}

// Put stores diags under key. The entry is written to a temporary file and
// renamed into place.
func (c *Cache) Put(key string, diags []lint.Diagnostic) error {
	if c == nil {
		return nil
	}
	if len(key) < 2 {
		return fmt.Errorf("cache: invalid key %q", key)
	}
	b, err := msgpack.Marshal(&entry{Schema: schemaVersion, Diagnostics: diags})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer os.Remove(f.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := f.Write(b); err != nil {
		f.Close() //nolint:errcheck,gosec
		return fmt.Errorf("cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.Rename(f.Name(), p); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return os.MkdirAll(c.dir, 0o755)
}
