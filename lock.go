package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// withRunLock runs fn while holding the operator lock, so two stages never
// work the queue at the same time.
func withRunLock(lockPath string, fn func() error) error {
	if dir := filepath.Dir(lockPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create lock directory: %w", err)
		}
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photoqueue stage is already running (lock held: " + lockPath + ")")
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("Error releasing lock %s: %v", lockPath, err)
		}
	}()

	return fn()
}
