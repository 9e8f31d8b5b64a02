// internal/inputqueue/inputqueue.go

// Package inputqueue reads the optional manual name list that overrides the
// database's admission-date window, and guards it with an advisory lock file
// so two operators cannot process the same list at once.
package inputqueue

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrLocked is returned when another live run holds the queue lock.
var ErrLocked = errors.New("input queue is locked by another run")

// ReadNames parses the name-list file: one name per line, blank lines and
// '#' comments ignored, names upper-cased and de-duplicated in file order.
func ReadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open input file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name := strings.ToUpper(line)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read input file: %w", err)
	}
	return names, nil
}

// AcquireLock creates the lock file exclusively and returns a release
// function. A leftover lock older than staleAge is treated as a crashed run
// and evicted; a fresh one fails with ErrLocked.
func AcquireLock(path string, staleAge time.Duration, logger *zap.Logger) (func(), error) {
	release, err := tryLock(path)
	if err == nil {
		return release, nil
	}
	if !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("could not create lock file: %w", err)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		// Lost a race with a concurrent release; try once more.
		if release, err := tryLock(path); err == nil {
			return release, nil
		}
		return nil, ErrLocked
	}

	age := time.Since(info.ModTime())
	if age < staleAge {
		return nil, fmt.Errorf("%w (held for %s)", ErrLocked, age.Round(time.Second))
	}

	logger.Warn("Evicting stale input queue lock",
		zap.String("path", path), zap.Duration("age", age))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not evict stale lock: %w", err)
	}
	release, err = tryLock(path)
	if err != nil {
		return nil, ErrLocked
	}
	return release, nil
}

func tryLock(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	fmt.Fprintf(f, "%s pid=%d at=%s\n", hostname, os.Getpid(), time.Now().Format(time.RFC3339))
	f.Close()

	return func() { _ = os.Remove(path) }, nil
}
