// Package lock provides advisory locks that keep notification runs from overlapping
package lock

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
)

// File is a host-local lock backed by flock(2) on a lock file
type File struct {
	path string
	fl   *flock.Flock
}

var _ interfaces.RunLock = &File{}

// NewFile creates the parent directory of path if needed
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create lock directory", goerr.V("path", path))
	}
	return &File{path: path, fl: flock.New(path)}, nil
}

func (l *File) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, goerr.Wrap(err, "failed to acquire file lock", goerr.V("path", l.path))
	}
	return ok, nil
}

func (l *File) Unlock(ctx context.Context) error {
	if err := l.fl.Unlock(); err != nil {
		return goerr.Wrap(err, "failed to release file lock", goerr.V("path", l.path))
	}
	return nil
}
