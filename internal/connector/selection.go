package connector

import (
	"slices"

	"github.com/five82/gridsync/internal/protocol"
)

// Selection is the local shadow of the server's selection: a mode and an
// ordered set of row keys.
type Selection struct {
	mode protocol.SelectionMode
	keys []string
}

// Mode returns the selection mode.
func (s *Selection) Mode() protocol.SelectionMode {
	if s.mode == "" {
		return protocol.SelectionNone
	}
	return s.mode
}

// Keys returns the selected keys in selection order.
func (s *Selection) Keys() []string {
	return slices.Clone(s.keys)
}

// Len returns the number of selected keys.
func (s *Selection) Len() int { return len(s.keys) }

// Contains reports whether key is selected.
func (s *Selection) Contains(key string) bool {
	return slices.Contains(s.keys, key)
}

func (s *Selection) add(key string) bool {
	if s.Contains(key) {
		return false
	}
	s.keys = append(s.keys, key)
	return true
}

func (s *Selection) remove(key string) bool {
	i := slices.Index(s.keys, key)
	if i < 0 {
		return false
	}
	s.keys = slices.Delete(s.keys, i, i+1)
	return true
}

// replace installs keys and returns what was added and removed.
func (s *Selection) replace(keys []string) (added, removed []string) {
	for _, k := range keys {
		if !s.Contains(k) && !slices.Contains(added, k) {
			added = append(added, k)
		}
	}
	for _, k := range s.keys {
		if !slices.Contains(keys, k) {
			removed = append(removed, k)
		}
	}
	s.keys = s.keys[:0]
	for _, k := range keys {
		s.add(k)
	}
	return added, removed
}
