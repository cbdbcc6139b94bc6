// Package lock guards a knowledge base file against concurrent writers with
// an exclusive advisory flock on a sidecar lock file. Acquisition waits a
// bounded amount of time; exceeding it is a distinct timeout failure so a
// run aborts instead of silently proceeding against a busy KB.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// ErrTimeout means the lock could not be acquired within the bounded wait.
var ErrTimeout = errors.New("lock acquisition timeout")

// retryInterval is how often a held lock is re-tried until the deadline.
const retryInterval = 100 * time.Millisecond

// Lock is a held advisory lock on a KB file.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes an exclusive lock on <kbPath>.lock, retrying a non-blocking
// flock until timeout elapses. Returns ErrTimeout (wrapped) when the lock
// stays held by another process for the whole wait.
func Acquire(ctx context.Context, kbPath string, timeout time.Duration) (*Lock, error) {
	lockPath := kbPath + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return &Lock{path: lockPath, file: f}, nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) && !errors.Is(err, syscall.EAGAIN) {
			_ = f.Close()
			return nil, fmt.Errorf("acquire lock %s: %w", lockPath, err)
		}
		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("%s: %w", lockPath, ErrTimeout)
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// Release drops the lock and closes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return fmt.Errorf("release lock %s: %w", l.path, unlockErr)
	}
	return closeErr
}
