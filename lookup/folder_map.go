// Package lookup holds the operator's reference lists: the folder mapping
// between storage keys and display names, and the list of known locations.
package lookup

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/facette/natsort"
)

// FolderMap is a bidirectional storage-key <-> display-name lookup, loaded once per run.
type FolderMap struct {
	byKey     map[string]string
	byDisplay map[string]string
}

// NewFolderMap builds a mapping from key -> display name.
func NewFolderMap(keyToDisplay map[string]string) *FolderMap {
	fm := &FolderMap{
		byKey:     make(map[string]string, len(keyToDisplay)),
		byDisplay: make(map[string]string, len(keyToDisplay)),
	}
	// iterate keys in sorted order so a duplicated display name always resolves to the same key
	keys := make([]string, 0, len(keyToDisplay))
	for k := range keyToDisplay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		display := keyToDisplay[k]
		fm.byKey[k] = display
		if _, exists := fm.byDisplay[display]; !exists {
			fm.byDisplay[display] = k
		}
	}
	return fm
}

// LoadFolderMap reads a JSON object {"key": "Display Name"} from path.
func LoadFolderMap(path string) (*FolderMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder map %s: %w", path, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse folder map %s: %w", path, err)
	}
	return NewFolderMap(raw), nil
}

// Resolve turns a display value into its storage key. Unmapped values are
// returned unchanged so they act as their own key.
func (fm *FolderMap) Resolve(display string) string {
	display = strings.TrimSpace(display)
	if fm == nil {
		return display
	}
	if key, ok := fm.byDisplay[display]; ok {
		return key
	}
	return display
}

// Display returns the display name for a key, or the key itself when unmapped.
func (fm *FolderMap) Display(key string) string {
	if fm == nil {
		return key
	}
	if display, ok := fm.byKey[key]; ok {
		return display
	}
	return key
}

// DisplayNames lists all display names in natural order.
func (fm *FolderMap) DisplayNames() []string {
	if fm == nil {
		return []string{}
	}
	names := make([]string, 0, len(fm.byDisplay))
	for display := range fm.byDisplay {
		names = append(names, display)
	}
	natsort.Sort(names)
	return names
}
