package lookup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Locations is the operator's list of known shooting locations, persisted as
// a sorted JSON array.
type Locations struct {
	path  string
	mu    sync.Mutex
	items []string
}

// LoadLocations reads the list at path. A missing file yields an empty list.
func LoadLocations(path string) (*Locations, error) {
	l := &Locations{path: path, items: []string{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read location list %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &l.items); err != nil {
		return nil, fmt.Errorf("failed to parse location list %s: %w", path, err)
	}
	sort.Strings(l.items)
	return l, nil
}

// All returns a copy of the sorted list.
func (l *Locations) All() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// Add inserts a new location and rewrites the file. Blank and already known
// values are ignored; it reports whether the list changed.
func (l *Locations) Add(location string) (bool, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return false, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := sort.SearchStrings(l.items, location)
	if idx < len(l.items) && l.items[idx] == location {
		return false, nil
	}
	l.items = append(l.items, "")
	copy(l.items[idx+1:], l.items[idx:])
	l.items[idx] = location

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return true, fmt.Errorf("failed to create location list directory: %w", err)
	}
	data, err := json.MarshalIndent(l.items, "", "  ")
	if err != nil {
		return true, fmt.Errorf("failed to encode location list: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return true, fmt.Errorf("failed to write location list %s: %w", l.path, err)
	}
	return true, nil
}
