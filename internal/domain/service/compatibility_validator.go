package service

import (
	"context"
	"slices"

	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/domain/entity"
	"eventtracker/internal/domain/typesystem"
	"eventtracker/internal/domain/valueobject"
	"eventtracker/internal/port/outbound"
)

// CompatibilityValidator decides whether persistent calls would still resolve
// and type-check against the current script classes, the way the engine's
// listener dispatcher matches methods.
type CompatibilityValidator struct {
	catalog outbound.ScriptCatalog
}

// NewCompatibilityValidator creates a validator backed by a script catalog.
func NewCompatibilityValidator(catalog outbound.ScriptCatalog) *CompatibilityValidator {
	return &CompatibilityValidator{catalog: catalog}
}

// MethodQuery identifies the method a persistent call wants to invoke.
type MethodQuery struct {
	Target          valueobject.ObjectReference
	MethodName      string
	Mode            valueobject.ArgumentMode
	EventName       string
	EventScriptGUID string
}

// QueryFor builds the method query of an existing call.
func QueryFor(call *entity.PersistentCall) MethodQuery {
	return MethodQuery{
		Target:          call.Target(),
		MethodName:      call.MethodName(),
		Mode:            call.Mode(),
		EventName:       call.EventName(),
		EventScriptGUID: call.EventScriptGUID(),
	}
}

// ValidateCall validates the method of an existing call.
func (v *CompatibilityValidator) ValidateCall(ctx context.Context, call *entity.PersistentCall) bool {
	return v.ValidateMethod(ctx, QueryFor(call))
}

// ValidateMethod reports whether the queried method exists on the target's
// class with a signature the argument mode can invoke. Calls on engine types
// are not checked.
func (v *CompatibilityValidator) ValidateMethod(ctx context.Context, q MethodQuery) bool {
	if q.Target.IsUnityType() {
		return true
	}

	targetType, ok := v.catalog.ClassForScript(q.Target.ScriptGUID())
	if !ok {
		slogger.Warn(ctx, "Target script not found", slogger.Fields{
			"script_guid": q.Target.ScriptGUID(),
			"method":      q.MethodName,
		})
		return false
	}

	switch {
	case q.Mode.IsFixed():
		return v.validateFixed(ctx, targetType, q)
	case q.Mode == valueobject.ArgumentModeObject:
		return v.validateObject(ctx, targetType, q)
	default:
		return v.validateEventDefined(ctx, targetType, q)
	}
}

func (v *CompatibilityValidator) validateFixed(ctx context.Context, targetType string, q MethodQuery) bool {
	var params []string
	if q.Mode != valueobject.ArgumentModeVoid {
		params = []string{typesystem.ModeToType(q.Mode)}
	}

	method, ok := findExact(v.callableMethods(targetType), q.MethodName, params)
	if !ok {
		v.warn(ctx, "Method doesn't exist", targetType, q)
		return false
	}
	if !method.ReturnsVoid() {
		v.warn(ctx, "Method return type is not void", targetType, q)
		return false
	}
	if method.Generic {
		v.warn(ctx, "Method can't be generic", targetType, q)
		return false
	}
	return true
}

func (v *CompatibilityValidator) validateObject(ctx context.Context, targetType string, q MethodQuery) bool {
	types := v.catalog.Types()

	found := false
	for _, m := range v.callableMethods(targetType) {
		if m.Name != q.MethodName || len(m.Params) != 1 || m.Generic {
			continue
		}
		found = true
		if types.IsAssignableFrom(typesystem.TypeUnityObject, m.Params[0]) {
			return true
		}
	}

	if !found {
		v.warn(ctx, "Method doesn't exist", targetType, q)
	} else {
		v.warn(ctx, "Method parameter mismatch", targetType, q)
	}
	return false
}

func (v *CompatibilityValidator) validateEventDefined(ctx context.Context, targetType string, q MethodQuery) bool {
	var methods []typesystem.MethodDescriptor
	for _, m := range v.callableMethods(targetType) {
		if m.Name == q.MethodName && m.ReturnsVoid() {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		v.warn(ctx, "Method doesn't exist", targetType, q)
		return false
	}

	eventArgs, ok := v.EventArgumentTypes(ctx, q.EventScriptGUID, q.EventName)
	if !ok {
		return false
	}

	types := v.catalog.Types()
	for _, m := range methods {
		if m.Generic || len(m.Params) != len(eventArgs) {
			continue
		}
		matches := true
		for i, param := range m.Params {
			if !types.IsAssignableFrom(param, eventArgs[i]) {
				matches = false
				break
			}
		}
		if matches {
			return true
		}
	}

	v.warn(ctx, "Method parameter mismatch", targetType, q)
	return false
}

// EventArgumentTypes resolves an event field, honoring renames, and returns the
// argument types of its Invoke method.
func (v *CompatibilityValidator) EventArgumentTypes(ctx context.Context, eventScriptGUID, eventName string) ([]string, bool) {
	field, ok := v.ResolveEvent(ctx, eventScriptGUID, eventName)
	if !ok {
		return nil, false
	}
	args, ok := v.catalog.Types().EventArgumentTypes(field.Field.Type)
	if !ok {
		slogger.Warn(ctx, "Field is not an event", slogger.Fields{
			"event": eventName,
			"type":  field.Field.Type,
		})
		return nil, false
	}
	return args, true
}

// ResolveEvent finds the serialized field of an event on the script declaring it.
func (v *CompatibilityValidator) ResolveEvent(ctx context.Context, eventScriptGUID, eventName string) (typesystem.ResolvedField, bool) {
	eventClass, ok := v.catalog.ClassForScript(eventScriptGUID)
	if !ok {
		slogger.Warn(ctx, "Event script not found", slogger.Fields{
			"script_guid": eventScriptGUID,
			"event":       eventName,
		})
		return typesystem.ResolvedField{}, false
	}

	field, ok := v.catalog.Types().FindSerializedField(eventClass, eventName)
	if !ok {
		slogger.Warn(ctx, "Can't find event", slogger.Fields{
			"event": eventName,
			"class": eventClass,
		})
		return typesystem.ResolvedField{}, false
	}
	if field.Renamed(eventName) {
		slogger.Warn(ctx, "Event was renamed", slogger.Fields{
			"from":  eventName,
			"to":    field.Path,
			"class": eventClass,
		})
	}
	return field, true
}

// ValidateArgument checks the object argument of a call. Only object mode has
// one: it must resolve, its recorded type must still exist, and when its
// script is known that script must still declare the recorded type. A
// script missing from the catalog does not invalidate the argument.
func (v *CompatibilityValidator) ValidateArgument(ctx context.Context, mode valueobject.ArgumentMode, arg valueobject.ObjectReference) bool {
	if mode != valueobject.ArgumentModeObject {
		return true
	}
	if arg.IsZero() {
		return false
	}
	if arg.IsUnityType() {
		return true
	}

	saved, ok := v.catalog.Types().LookupAssemblyQualified(arg.AssemblyTypeName())
	if !ok {
		slogger.Warn(ctx, "Argument type no longer exists", slogger.Fields{
			"type": arg.AssemblyTypeName(),
		})
		return false
	}
	actual, ok := v.catalog.ClassForScript(arg.ScriptGUID())
	if ok && actual != saved.FullName {
		slogger.Warn(ctx, "Argument type changed", slogger.Fields{
			"saved":  saved.FullName,
			"actual": actual,
		})
		return false
	}
	return true
}

// DeriveState classifies a call. The target check runs first, then the
// method and then the argument; the first failure decides the state.
func (v *CompatibilityValidator) DeriveState(ctx context.Context, targetResolved bool, call *entity.PersistentCall) valueobject.CallState {
	if !targetResolved {
		return valueobject.CallStateInvalidTarget
	}
	if !v.ValidateCall(ctx, call) {
		return valueobject.CallStateInvalidMethod
	}
	if !v.ValidateArgument(ctx, call.Mode(), call.Argument()) {
		return valueobject.CallStateInvalidArgument
	}
	return valueobject.CallStateValid
}

// Revalidate re-derives the state of a stored call. Targets are only
// re-resolved by rescanning the asset, so an invalid target stays invalid.
func (v *CompatibilityValidator) Revalidate(ctx context.Context, call *entity.PersistentCall) valueobject.CallState {
	return v.DeriveState(ctx, call.State() != valueobject.CallStateInvalidTarget, call)
}

// callableMethods returns the public methods and property setters of a type.
func (v *CompatibilityValidator) callableMethods(typeName string) []typesystem.MethodDescriptor {
	types := v.catalog.Types()
	return append(types.Methods(typeName), types.PropertySetters(typeName)...)
}

func findExact(methods []typesystem.MethodDescriptor, name string, params []string) (typesystem.MethodDescriptor, bool) {
	for _, m := range methods {
		if m.Name == name && slices.Equal(m.Params, params) {
			return m, true
		}
	}
	return typesystem.MethodDescriptor{}, false
}

func (v *CompatibilityValidator) warn(ctx context.Context, msg, targetType string, q MethodQuery) {
	slogger.Warn(ctx, msg, slogger.Fields{
		"class":  targetType,
		"method": q.MethodName,
		"mode":   q.Mode.String(),
		"event":  q.EventName,
	})
}
