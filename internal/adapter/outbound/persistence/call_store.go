package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/valueobject"
	"eventtracker/internal/port/outbound"
)

// CallsFileName is the file holding every recovered binding.
const CallsFileName = "PersistentCalls.json"

// CallStore is the file-backed collection of bindings. The in-memory copy is
// authoritative until Save.
type CallStore struct {
	path string

	mu    sync.RWMutex
	calls []*entity.PersistentCall
}

var _ outbound.CallRepository = (*CallStore)(nil)

// NewCallStore creates a store kept in dir.
func NewCallStore(dir string) *CallStore {
	return &CallStore{path: filepath.Join(dir, CallsFileName)}
}

// Path returns the file the store is saved to.
func (s *CallStore) Path() string { return s.path }

// Load replaces the in-memory calls with the saved ones.
func (s *CallStore) Load(ctx context.Context) error {
	calls, err := readEnvelope[*entity.PersistentCall](s.path)
	if err != nil {
		return fmt.Errorf("load calls: %w", err)
	}
	calls = slices.DeleteFunc(calls, func(c *entity.PersistentCall) bool { return c == nil })

	s.mu.Lock()
	s.calls = calls
	s.mu.Unlock()

	slogger.Debug(ctx, "Loaded persistent calls", slogger.Fields{"path": s.path, "count": len(calls)})
	return nil
}

// Save writes the calls to disk.
func (s *CallStore) Save(ctx context.Context) error {
	s.mu.RLock()
	calls := slices.Clone(s.calls)
	s.mu.RUnlock()

	if err := writeEnvelope(ctx, s.path, calls); err != nil {
		return fmt.Errorf("save calls: %w", err)
	}
	slogger.Debug(ctx, "Saved persistent calls", slogger.Fields{"path": s.path, "count": len(calls)})
	return nil
}

// Add appends a call.
func (s *CallStore) Add(call *entity.PersistentCall) {
	if call == nil {
		return
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

// AddRange appends calls in order.
func (s *CallStore) AddRange(calls []*entity.PersistentCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range calls {
		if c != nil {
			s.calls = append(s.calls, c)
		}
	}
}

// Remove drops the first call equal to call.
func (s *CallStore) Remove(call *entity.PersistentCall) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(call)
	if i < 0 {
		return false
	}
	s.calls = slices.Delete(s.calls, i, i+1)
	return true
}

// Replace swaps the first call equal to old for updated, keeping its position.
func (s *CallStore) Replace(old, updated *entity.PersistentCall) bool {
	if updated == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(old)
	if i < 0 {
		return false
	}
	s.calls[i] = updated
	return true
}

func (s *CallStore) indexOf(call *entity.PersistentCall) int {
	if call == nil {
		return -1
	}
	return slices.IndexFunc(s.calls, call.Equal)
}

// RemoveAllMethodsFrom drops the calls whose target is the given script.
func (s *CallStore) RemoveAllMethodsFrom(scriptGUID string) int {
	if scriptGUID == "" {
		return 0
	}
	return s.removeWhere(func(c *entity.PersistentCall) bool {
		return c.Target().ScriptGUID() == scriptGUID
	})
}

// RemoveAllInAsset drops the calls found in the given asset.
func (s *CallStore) RemoveAllInAsset(assetGUID string) int {
	return s.removeWhere(func(c *entity.PersistentCall) bool {
		return c.Address().AssetGUID() == assetGUID
	})
}

func (s *CallStore) removeWhere(match func(*entity.PersistentCall) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.calls)
	s.calls = slices.DeleteFunc(s.calls, match)
	return before - len(s.calls)
}

// IsScriptUsedInEvents reports whether any call targets the script.
func (s *CallStore) IsScriptUsedInEvents(scriptGUID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.calls, func(c *entity.PersistentCall) bool {
		return c.Target().ScriptGUID() == scriptGUID
	})
}

// CallsForScript returns the calls targeting the script.
func (s *CallStore) CallsForScript(scriptGUID string) []*entity.PersistentCall {
	return s.where(func(c *entity.PersistentCall) bool {
		return c.Target().ScriptGUID() == scriptGUID
	})
}

// Filter returns the calls in the given state.
func (s *CallStore) Filter(state valueobject.CallState) []*entity.PersistentCall {
	return s.where(func(c *entity.PersistentCall) bool {
		return c.State() == state
	})
}

// All returns every call in insertion order.
func (s *CallStore) All() []*entity.PersistentCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.calls)
}

func (s *CallStore) where(match func(*entity.PersistentCall) bool) []*entity.PersistentCall {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*entity.PersistentCall
	for _, c := range s.calls {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of calls.
func (s *CallStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calls)
}
