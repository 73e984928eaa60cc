package service

import (
	"context"

	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/typesystem"
	"eventtracker/internal/domain/valueobject"
)

// CandidateOptions tunes repair-candidate enumeration.
type CandidateOptions struct {
	// IncludeEngineMembers keeps methods declared on built-in engine types
	// such as MonoBehaviour.
	IncludeEngineMembers bool
}

// Candidate is a method a binding could be repointed to.
type Candidate struct {
	Method typesystem.MethodDescriptor
	Mode   valueobject.ArgumentMode
}

type candidateShape struct {
	mode            valueobject.ArgumentMode
	params          []string
	allowSubclasses bool
}

var staticShapes = []candidateShape{
	{mode: valueobject.ArgumentModeVoid},
	{mode: valueobject.ArgumentModeFloat, params: []string{typesystem.TypeFloat}},
	{mode: valueobject.ArgumentModeInt, params: []string{typesystem.TypeInt}},
	{mode: valueobject.ArgumentModeString, params: []string{typesystem.TypeString}},
	{mode: valueobject.ArgumentModeBool, params: []string{typesystem.TypeBool}},
	{mode: valueobject.ArgumentModeObject, params: []string{typesystem.TypeUnityObject}, allowSubclasses: true},
}

// StaticCandidates lists the methods of a type callable with a fixed argument:
// none, float, int, string, bool or an engine object.
func (v *CompatibilityValidator) StaticCandidates(targetType string, opts CandidateOptions) []Candidate {
	var out []Candidate
	for _, shape := range staticShapes {
		for _, m := range v.methodMap(targetType, shape.params, shape.allowSubclasses, opts.IncludeEngineMembers) {
			out = append(out, Candidate{Method: m, Mode: shape.mode})
		}
	}
	return out
}

// DynamicCandidates lists the methods of a type that accept the arguments an
// event forwards. An event without arguments has no dynamic candidates.
func (v *CompatibilityValidator) DynamicCandidates(targetType string, eventArgTypes []string, opts CandidateOptions) []Candidate {
	if len(eventArgTypes) == 0 {
		return nil
	}
	var out []Candidate
	for _, m := range v.methodMap(targetType, eventArgTypes, false, opts.IncludeEngineMembers) {
		out = append(out, Candidate{Method: m, Mode: valueobject.ArgumentModeEventDefined})
	}
	return out
}

// CandidatesFor lists replacement methods for a call: static candidates plus
// dynamic ones for the event the call belongs to.
func (v *CompatibilityValidator) CandidatesFor(ctx context.Context, call *entity.PersistentCall, opts CandidateOptions) []Candidate {
	target := call.Target()
	if target.IsUnityType() {
		return nil
	}
	targetType, ok := v.catalog.ClassForScript(target.ScriptGUID())
	if !ok {
		return nil
	}

	out := v.StaticCandidates(targetType, opts)
	if eventArgs, ok := v.EventArgumentTypes(ctx, call.EventScriptGUID(), call.EventName()); ok {
		out = append(out, v.DynamicCandidates(targetType, eventArgs, opts)...)
	}
	return out
}

func (v *CompatibilityValidator) methodMap(targetType string, types []string, allowSubclasses, includeEngine bool) []typesystem.MethodDescriptor {
	registry := v.catalog.Types()

	var out []typesystem.MethodDescriptor
	for _, m := range v.callableMethods(targetType) {
		if m.Static || m.Obsolete || m.Generic || !m.ReturnsVoid() {
			continue
		}
		if m.Special && !isSetter(m) {
			continue
		}
		if len(m.Params) != len(types) {
			continue
		}
		if !includeEngine && registry.IsBuiltIn(m.DeclaringType) {
			continue
		}

		matches := true
		for i, param := range m.Params {
			if registry.IsAssignableFrom(param, types[i]) {
				continue
			}
			if allowSubclasses && registry.IsAssignableFrom(types[i], param) {
				continue
			}
			matches = false
			break
		}
		if matches {
			out = append(out, m)
		}
	}
	return out
}

func isSetter(m typesystem.MethodDescriptor) bool {
	return len(m.Name) > 4 && m.Name[:4] == "set_"
}
