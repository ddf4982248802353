// Package fsblob is a filesystem-backed BlobStore adapter: four
// subdirectories (objects, vheads, rmaps, private) under a root directory,
// with optional hash bucketing for the objects space - the layout a
// content-addressable blob store traditionally uses on disk (bucket by the
// first n hex characters of the key to avoid one directory holding every
// object).
package fsblob

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned by Get when (space, key) does not exist. Callers
// in the root package translate this into onestore.ErrFileNotFound.
var ErrNotFound = errors.New("fsblob: not found")

// ErrWriteOnceViolation is returned by WriteOnce when the same key already
// holds different bytes.
var ErrWriteOnceViolation = errors.New("fsblob: write-once violation")

// Store is a filesystem-backed blob store rooted at Dir.
type Store struct {
	dir              string
	nHashCharsForSub int
}

// Open creates (if needed) the four logical space directories under dir and
// returns a Store. nHashCharsForSubDirs buckets the objects space by that
// many leading hex characters of the key (0 disables bucketing).
func Open(dir string, nHashCharsForSubDirs int) (*Store, error) {
	if nHashCharsForSubDirs < 0 || nHashCharsForSubDirs > 2 {
		return nil, fmt.Errorf("fsblob: nHashCharsForSubDirs must be 0-2, got %d", nHashCharsForSubDirs)
	}
	for _, sub := range []string{"objects", "vheads", "rmaps", "private"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, err
		}
	}
	return &Store{dir: dir, nHashCharsForSub: nHashCharsForSubDirs}, nil
}

// Wipe removes and recreates the instance directory. Used when the host
// configures wipeStorage on init.
func Wipe(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

func (s *Store) path(space string, key string) string {
	if space == "objects" && s.nHashCharsForSub > 0 && len(key) >= s.nHashCharsForSub {
		return filepath.Join(s.dir, space, key[:s.nHashCharsForSub], key)
	}
	return filepath.Join(s.dir, space, key)
}

// SupportsSubDirBucketing reports true: the filesystem adapter buckets the
// objects space by leading hex characters of the key.
func (s *Store) SupportsSubDirBucketing() bool { return true }

// WriteOnce writes data at (space, key) iff the file is absent. If present
// with different bytes it returns ErrWriteOnceViolation; if present with
// identical bytes it is a no-op reporting existed=true.
func (s *Store) WriteOnce(space, key string, data []byte) (bool, error) {
	p := s.path(space, key)
	existing, err := os.ReadFile(p)
	if err == nil {
		if bytes.Equal(existing, data) {
			return true, nil
		}
		return false, ErrWriteOnceViolation
	}
	if !os.IsNotExist(err) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return false, err
	}
	return false, writeFileAtomic(p, data)
}

// Put overwrites (or creates) the value at (space, key) unconditionally.
func (s *Store) Put(space, key string, data []byte) error {
	p := s.path(space, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return writeFileAtomic(p, data)
}

// Get returns the bytes at (space, key), or ErrNotFound.
func (s *Store) Get(space, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(space, key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Has reports whether (space, key) exists.
func (s *Store) Has(space, key string) (bool, error) {
	_, err := os.Stat(s.path(space, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Delete removes (space, key). Missing keys are not an error.
func (s *Store) Delete(space, key string) error {
	err := os.Remove(s.path(space, key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns every key stored under space, walking bucket subdirectories
// when the objects space is bucketed.
func (s *Store) List(space string) ([]string, error) {
	root := filepath.Join(s.dir, space)
	var keys []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		keys = append(keys, filepath.Base(path))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op: the filesystem adapter holds no long-lived handles.
func (s *Store) Close() error { return nil }

// writeFileAtomic writes to a temp file in the same directory then renames
// over the destination, so a crash mid-write never leaves a torn file
// visible under its final name - required for the write-stream's
// promise-of-completion to be the single commit point.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
