// Package ledger keeps the plain-text record of source documents that
// ingestion has already handled, one normalized path per line.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ledger is an append-only set of processed document paths backed by a file.
// A single ingestion run owns it; concurrent runs must be serialized by the caller.
type Ledger struct {
	path    string
	mu      sync.Mutex
	entries map[string]struct{}
	order   []string
}

// Normalize converts path separators to forward slashes so that ledger
// entries compare equal across platforms.
func Normalize(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// Load reads the ledger at path. A missing file is an empty ledger.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: make(map[string]struct{})}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.add(Normalize(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return l, nil
}

// Path returns the backing file path
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether path has been recorded
func (l *Ledger) Contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[Normalize(path)]
	return ok
}

// Entries returns the recorded paths in the order they were added
func (l *Ledger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// Len returns the number of recorded paths
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Detached returns an in-memory copy of the ledger. Appends to the copy are
// never written to disk.
func (l *Ledger) Detached() *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := &Ledger{entries: make(map[string]struct{}, len(l.order))}
	for _, p := range l.order {
		c.add(p)
	}
	return c
}

// Append records paths and appends them to the file. Paths already present
// are ignored. The file is created if needed.
func (l *Ledger) Append(paths ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var fresh []string
	for _, p := range paths {
		p = Normalize(p)
		if _, ok := l.entries[p]; ok {
			continue
		}
		fresh = append(fresh, p)
		l.add(p)
	}
	if len(fresh) == 0 || l.path == "" {
		return nil
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range fresh {
		if _, err := w.WriteString(p + "\n"); err != nil {
			return fmt.Errorf("failed to append to ledger: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	return f.Sync()
}

func (l *Ledger) add(p string) {
	if _, ok := l.entries[p]; ok {
		return
	}
	l.entries[p] = struct{}{}
	l.order = append(l.order, p)
}
