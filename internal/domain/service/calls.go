package service

import (
	"slices"

	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/valueobject"
)

// AreCallToSameMethod reports whether two calls invoke the same method: same
// mode, same target script and method name, and for event-defined calls the
// same argument types. Event names and lines do not matter.
func AreCallToSameMethod(a, b *entity.PersistentCall) bool {
	if a == nil || b == nil {
		return false
	}
	if a == b {
		return true
	}
	if a.Mode() != b.Mode() ||
		a.Target().ScriptGUID() != b.Target().ScriptGUID() ||
		a.MethodName() != b.MethodName() {
		return false
	}
	if a.Mode() == valueobject.ArgumentModeEventDefined {
		return slices.Equal(a.ArgTypes(), b.ArgTypes())
	}
	return true
}

// CallGroup is a set of calls to the same method.
type CallGroup struct {
	Calls []*entity.PersistentCall
}

// Representative returns the first call of the group.
func (g CallGroup) Representative() *entity.PersistentCall {
	if len(g.Calls) == 0 {
		return nil
	}
	return g.Calls[0]
}

// GroupCalls partitions the calls accepted by filter into groups of calls to
// the same method, in first-seen order. A nil filter accepts every call.
func GroupCalls(calls []*entity.PersistentCall, filter func(*entity.PersistentCall) bool) []CallGroup {
	var groups []CallGroup
	for _, call := range calls {
		if call == nil || (filter != nil && !filter(call)) {
			continue
		}
		idx := slices.IndexFunc(groups, func(g CallGroup) bool {
			return AreCallToSameMethod(g.Calls[0], call)
		})
		if idx < 0 {
			groups = append(groups, CallGroup{Calls: []*entity.PersistentCall{call}})
			continue
		}
		groups[idx].Calls = append(groups[idx].Calls, call)
	}
	return groups
}
