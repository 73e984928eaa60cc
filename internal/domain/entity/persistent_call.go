package entity

import (
	"encoding/json"
	"fmt"
	"slices"

	"eventtracker/internal/domain/valueobject"
)

// PersistentCall is a listener binding recovered from a serialized asset.
// It is immutable; state changes produce a copy.
type PersistentCall struct {
	address         valueobject.Address
	target          valueobject.ObjectReference
	argument        valueobject.ObjectReference
	methodName      string
	mode            valueobject.ArgumentMode
	argTypes        []string
	eventName       string
	eventScriptGUID string
	methodLine      int
	state           valueobject.CallState
}

// PersistentCallParams holds the fields of a new PersistentCall.
type PersistentCallParams struct {
	Address         valueobject.Address
	Target          valueobject.ObjectReference
	Argument        valueobject.ObjectReference
	MethodName      string
	Mode            valueobject.ArgumentMode
	ArgTypes        []string
	EventName       string
	EventScriptGUID string
	MethodLine      int
	State           valueobject.CallState
}

// NewPersistentCall creates a PersistentCall.
func NewPersistentCall(p PersistentCallParams) *PersistentCall {
	return &PersistentCall{
		address:         p.Address,
		target:          p.Target,
		argument:        p.Argument,
		methodName:      p.MethodName,
		mode:            p.Mode,
		argTypes:        slices.Clone(p.ArgTypes),
		eventName:       p.EventName,
		eventScriptGUID: p.EventScriptGUID,
		methodLine:      p.MethodLine,
		state:           p.State,
	}
}

// Address returns where the call was found.
func (c *PersistentCall) Address() valueobject.Address { return c.address }

// Target returns the object the call is invoked on.
func (c *PersistentCall) Target() valueobject.ObjectReference { return c.target }

// Argument returns the object argument. Only meaningful in object mode.
func (c *PersistentCall) Argument() valueobject.ObjectReference { return c.argument }

// MethodName returns the name of the invoked method.
func (c *PersistentCall) MethodName() string { return c.methodName }

// Mode returns the argument mode.
func (c *PersistentCall) Mode() valueobject.ArgumentMode { return c.mode }

// ArgTypes returns the owning event's argument type names in event-defined mode.
func (c *PersistentCall) ArgTypes() []string { return slices.Clone(c.argTypes) }

// EventName returns the serialized name of the owning event field.
func (c *PersistentCall) EventName() string { return c.eventName }

// EventScriptGUID returns the guid of the script that declares the owning event.
func (c *PersistentCall) EventScriptGUID() string { return c.eventScriptGUID }

// MethodLine returns the zero-based line of the method name in the asset file.
func (c *PersistentCall) MethodLine() int { return c.methodLine }

// State returns the validity classification.
func (c *PersistentCall) State() valueobject.CallState { return c.state }

// Params returns the call's fields, suitable for building a modified copy.
func (c *PersistentCall) Params() PersistentCallParams {
	return PersistentCallParams{
		Address:         c.address,
		Target:          c.target,
		Argument:        c.argument,
		MethodName:      c.methodName,
		Mode:            c.mode,
		ArgTypes:        slices.Clone(c.argTypes),
		EventName:       c.eventName,
		EventScriptGUID: c.eventScriptGUID,
		MethodLine:      c.methodLine,
		State:           c.state,
	}
}

// WithState returns a copy of the call carrying the given state.
func (c *PersistentCall) WithState(state valueobject.CallState) *PersistentCall {
	p := c.Params()
	p.State = state
	return NewPersistentCall(p)
}

// WithMethodName returns a copy of the call invoking another method.
func (c *PersistentCall) WithMethodName(name string) *PersistentCall {
	p := c.Params()
	p.MethodName = name
	return NewPersistentCall(p)
}

// Equal reports whether both calls hold identical fields.
func (c *PersistentCall) Equal(other *PersistentCall) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.address == other.address &&
		c.target == other.target &&
		c.argument == other.argument &&
		c.methodName == other.methodName &&
		c.mode == other.mode &&
		slices.Equal(c.argTypes, other.argTypes) &&
		c.eventName == other.eventName &&
		c.eventScriptGUID == other.eventScriptGUID &&
		c.methodLine == other.methodLine &&
		c.state == other.state
}

// String returns a short description used in logs.
func (c *PersistentCall) String() string {
	return fmt.Sprintf("%s.%s -> %s (%s, %s)", c.eventName, c.address, c.methodName, c.mode, c.state)
}

type addressJSON struct {
	AssetGUID    string `json:"_assetGuid"`
	GameObjectID string `json:"_gameObjectId"`
}

type objectReferenceJSON struct {
	ScriptGUID       string `json:"_scriptGuid"`
	AssemblyTypeName string `json:"_assemblyTypeName"`
	FileID           string `json:"_fileId"`
	AssetGUID        string `json:"_assetGuid"`
	IsLocal          bool   `json:"_isLocal"`
}

type persistentCallJSON struct {
	Address         addressJSON         `json:"_address"`
	TargetInfo      objectReferenceJSON `json:"_targetInfo"`
	ArgumentInfo    objectReferenceJSON `json:"_argumentInfo"`
	MethodName      string              `json:"_methodName"`
	ListenerMode    int                 `json:"_listenerMode"`
	ArgTypes        []string            `json:"_argTypes"`
	EventName       string              `json:"_eventName"`
	EventScriptGUID string              `json:"_eventScriptGuid"`
	MethodLine      int                 `json:"_methodLine"`
	State           int                 `json:"_state"`
}

func referenceToJSON(r valueobject.ObjectReference) objectReferenceJSON {
	return objectReferenceJSON{
		ScriptGUID:       r.ScriptGUID(),
		AssemblyTypeName: r.AssemblyTypeName(),
		FileID:           r.FileID(),
		AssetGUID:        r.AssetGUID(),
		IsLocal:          r.IsLocal(),
	}
}

func referenceFromJSON(r objectReferenceJSON) valueobject.ObjectReference {
	return valueobject.RestoreObjectReference(r.ScriptGUID, r.AssemblyTypeName, r.FileID, r.AssetGUID, r.IsLocal)
}

// MarshalJSON encodes the call using the persisted key names.
func (c *PersistentCall) MarshalJSON() ([]byte, error) {
	argTypes := c.argTypes
	if argTypes == nil {
		argTypes = []string{}
	}
	return json.Marshal(persistentCallJSON{
		Address: addressJSON{
			AssetGUID:    c.address.AssetGUID(),
			GameObjectID: c.address.GameObjectID(),
		},
		TargetInfo:      referenceToJSON(c.target),
		ArgumentInfo:    referenceToJSON(c.argument),
		MethodName:      c.methodName,
		ListenerMode:    int(c.mode),
		ArgTypes:        argTypes,
		EventName:       c.eventName,
		EventScriptGUID: c.eventScriptGUID,
		MethodLine:      c.methodLine,
		State:           int(c.state),
	})
}

// UnmarshalJSON decodes a call written by MarshalJSON.
func (c *PersistentCall) UnmarshalJSON(data []byte) error {
	var raw persistentCallJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	mode, err := valueobject.NewArgumentMode(raw.ListenerMode)
	if err != nil {
		return err
	}
	state, err := valueobject.NewCallState(raw.State)
	if err != nil {
		return err
	}
	argTypes := raw.ArgTypes
	if len(argTypes) == 0 {
		argTypes = nil
	}
	*c = PersistentCall{
		address:         valueobject.NewAddress(raw.Address.AssetGUID, raw.Address.GameObjectID),
		target:          referenceFromJSON(raw.TargetInfo),
		argument:        referenceFromJSON(raw.ArgumentInfo),
		methodName:      raw.MethodName,
		mode:            mode,
		argTypes:        argTypes,
		eventName:       raw.EventName,
		eventScriptGUID: raw.EventScriptGUID,
		methodLine:      raw.MethodLine,
		state:           state,
	}
	return nil
}
