package valueobject

// ObjectReference points at the target of a binding or at its object argument.
//
// A local reference is only meaningful inside the asset it was read from and is
// identified by its file id. A global reference points at another asset by guid.
// The script guid is empty when the referenced object is a built-in engine type.
type ObjectReference struct {
	scriptGUID       string
	assemblyTypeName string
	fileID           string
	assetGUID        string
	isLocal          bool
}

// NewLocalReference creates a reference to an object of the same asset.
func NewLocalReference(fileID, scriptGUID, assemblyTypeName string) ObjectReference {
	return ObjectReference{
		scriptGUID:       scriptGUID,
		assemblyTypeName: assemblyTypeName,
		fileID:           fileID,
		isLocal:          true,
	}
}

// NewGlobalReference creates a reference to another asset.
func NewGlobalReference(assetGUID, scriptGUID, assemblyTypeName string) ObjectReference {
	return ObjectReference{
		scriptGUID:       scriptGUID,
		assemblyTypeName: assemblyTypeName,
		assetGUID:        assetGUID,
	}
}

// RestoreObjectReference rebuilds a reference from its persisted fields.
func RestoreObjectReference(scriptGUID, assemblyTypeName, fileID, assetGUID string, isLocal bool) ObjectReference {
	return ObjectReference{
		scriptGUID:       scriptGUID,
		assemblyTypeName: assemblyTypeName,
		fileID:           fileID,
		assetGUID:        assetGUID,
		isLocal:          isLocal,
	}
}

// ScriptGUID returns the guid of the script attached to the referenced object.
func (r ObjectReference) ScriptGUID() string {
	return r.scriptGUID
}

// AssemblyTypeName returns the serialized "Namespace.Type, Assembly" name, if any.
func (r ObjectReference) AssemblyTypeName() string {
	return r.assemblyTypeName
}

// FileID returns the local file id for local references.
func (r ObjectReference) FileID() string {
	return r.fileID
}

// AssetGUID returns the referenced asset guid for global references.
func (r ObjectReference) AssetGUID() string {
	return r.assetGUID
}

// IsLocal reports whether the reference points inside the same asset.
func (r ObjectReference) IsLocal() bool {
	return r.isLocal
}

// IsGlobal reports whether the reference points at another asset.
func (r ObjectReference) IsGlobal() bool {
	return !r.isLocal && r.assetGUID != ""
}

// IsUnityType reports whether the referenced object has no user script.
func (r ObjectReference) IsUnityType() bool {
	return r.scriptGUID == ""
}

// IsZero reports whether the reference is unset.
func (r ObjectReference) IsZero() bool {
	return r == ObjectReference{}
}

// WithAssemblyTypeName returns a copy carrying the given type name.
func (r ObjectReference) WithAssemblyTypeName(name string) ObjectReference {
	r.assemblyTypeName = name
	return r
}
