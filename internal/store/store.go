// Package store persists the pairwise distances of a run so that the matrix
// can be rebuilt after every comparison has finished, and so that an
// interrupted run can be resumed from a kept store file.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ludo-technologies/asmcluster/domain"
)

var errStoreClosed = errors.New("store is closed")

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// New creates a result store of the given backend. path is only used by the
// SQLite backend and is created if it does not exist.
func New(ctx context.Context, backend, path string) (domain.ResultStore, error) {
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		if path == "" {
			return nil, domain.NewStorageError("sqlite store requires a path", nil)
		}
		s, err := Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, domain.NewConfigError(
			fmt.Sprintf("unknown store backend '%s', must be one of: sqlite, memory", backend), nil)
	}
}

// TempPath returns a fresh, collision-free store file name inside dir. An
// empty dir means the system temporary directory.
func TempPath(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "asmcluster-"+uuid.NewString()+".db")
}

// Remove deletes a SQLite store file along with its journal files. Missing
// files are not an error.
func Remove(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoredPairs returns the unordered keys of every record in the store
func StoredPairs(ctx context.Context, s domain.ResultStore) (map[[2]string]struct{}, error) {
	keys := make(map[[2]string]struct{})
	err := s.Scan(ctx, func(rec domain.DistanceRecord) error {
		keys[domain.PairKey(rec.ItemA, rec.ItemB)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
