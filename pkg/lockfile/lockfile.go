package lockfile

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// staleAfter is the age past which a leftover lock is treated as released,
// so a crashed prior run never blocks forever.
const staleAfter = time.Hour

// ErrLocked means another run holds the lock. Not a failure: callers skip
// cleanly.
var ErrLocked = errors.New("another run holds the lock")

// Lock is a held filesystem lock.
type Lock struct {
	path   string
	logger *zap.Logger
}

// Acquire takes the cross-process run lock, stealing locks older than the
// staleness threshold.
func Acquire(logger *zap.Logger, path, runID string) (*Lock, error) {
	if info, err := os.Stat(path); err == nil {
		age := time.Since(info.ModTime())
		if age <= staleAfter {
			return nil, ErrLocked
		}

		logger.Warn("removing stale lock file", zap.String("path", path), zap.Duration("age", age))
		if err := os.Remove(path); err != nil {
			return nil, errors.Wrap(err, "remove stale lock file")
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrLocked
		}
		return nil, errors.Wrap(err, "create lock file")
	}

	_, werr := fmt.Fprintf(f, "%s %d\n", runID, os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		return nil, errors.Errorf("write lock file: %v", werr)
	}

	logger.Info("lock acquired", zap.String("path", path))
	return &Lock{path: path, logger: logger}, nil
}

// Release removes the lock file. Safe to call once per held lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove lock file")
	}
	l.logger.Info("lock released", zap.String("path", l.path))
	return nil
}
