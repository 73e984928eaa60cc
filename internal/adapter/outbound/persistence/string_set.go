package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"eventtracker/internal/port/outbound"
)

// Files holding script guid sets.
const (
	ScriptsWithEventsFileName = "ScriptsWithEvents.json"
	ScriptsToCheckFileName    = "ScriptsToCheck.json"
)

// StringSet is a file-backed set of strings. Values keep insertion order.
type StringSet struct {
	path string

	mu     sync.RWMutex
	order  []string
	values map[string]struct{}
}

var _ outbound.StringSetRepository = (*StringSet)(nil)

// NewStringSet creates a set saved as dir/name.
func NewStringSet(dir, name string) *StringSet {
	return &StringSet{path: filepath.Join(dir, name), values: map[string]struct{}{}}
}

// Load replaces the in-memory values with the saved ones.
func (s *StringSet) Load(_ context.Context) error {
	values, err := readEnvelope[string](s.path)
	if err != nil {
		return fmt.Errorf("load %s: %w", filepath.Base(s.path), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.values = make(map[string]struct{}, len(values))
	for _, v := range values {
		s.add(v)
	}
	return nil
}

// Save writes the values to disk.
func (s *StringSet) Save(ctx context.Context) error {
	if err := writeEnvelope(ctx, s.path, s.Values()); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(s.path), err)
	}
	return nil
}

// Add inserts a value and reports whether it was new.
func (s *StringSet) Add(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(value)
}

func (s *StringSet) add(value string) bool {
	if _, ok := s.values[value]; ok {
		return false
	}
	s.values[value] = struct{}{}
	s.order = append(s.order, value)
	return true
}

// Remove deletes a value and reports whether it was present.
func (s *StringSet) Remove(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[value]; !ok {
		return false
	}
	delete(s.values, value)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == value })
	return true
}

// Contains reports whether the value is present.
func (s *StringSet) Contains(value string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[value]
	return ok
}

// Values returns the values in insertion order.
func (s *StringSet) Values() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Clear removes every value.
func (s *StringSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.values = map[string]struct{}{}
}

// Len returns the number of values.
func (s *StringSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
