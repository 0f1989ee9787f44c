package legendre

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Jar is a Store keeping one gob-encoded file per degree in a directory.
// Writes go through a temporary file and a rename, so readers never observe
// a partially written table and concurrent writers of the same degree leave
// one intact winner. A file that fails to decode is reported as a miss and
// overwritten by the next Put.
type Jar struct {
	dir string
}

// NewJar opens (creating if needed) the jar directory.
func NewJar(dir string) (*Jar, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("legendre: create jar dir: %w", err)
	}
	return &Jar{dir: dir}, nil
}

func (j *Jar) path(l int) string {
	return filepath.Join(j.dir, fmt.Sprintf("l%d.gob", l))
}

// Get implements Store.
func (j *Jar) Get(l int) (*Table, bool, error) {
	f, err := os.Open(j.path(l))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	var t Table
	if err := gob.NewDecoder(f).Decode(&t); err != nil {
		// Truncated or stale-format file: a miss, not a failure.
		return nil, false, nil
	}
	if t.L != l || len(t.Orders) != l+1 {
		return nil, false, nil
	}
	return &t, true, nil
}

// Put implements Store.
func (j *Jar) Put(l int, t *Table) error {
	f, err := os.CreateTemp(j.dir, fmt.Sprintf("l%d-*.tmp", l))
	if err != nil {
		return fmt.Errorf("legendre: jar put: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(t); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("legendre: jar put: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("legendre: jar put: %w", err)
	}
	if err := os.Rename(f.Name(), j.path(l)); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("legendre: jar put: %w", err)
	}
	return nil
}
