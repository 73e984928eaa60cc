package valueobject

import "fmt"

// Address identifies where a binding was found: the owning asset and the
// game object inside it that carries the script component.
type Address struct {
	assetGUID    string
	gameObjectID string
}

// NewAddress creates an Address.
func NewAddress(assetGUID, gameObjectID string) Address {
	return Address{assetGUID: assetGUID, gameObjectID: gameObjectID}
}

// AssetGUID returns the guid of the owning asset.
func (a Address) AssetGUID() string {
	return a.assetGUID
}

// GameObjectID returns the local file id of the owning game object.
func (a Address) GameObjectID() string {
	return a.gameObjectID
}

// String returns a human readable form of the address.
func (a Address) String() string {
	return fmt.Sprintf("%s/%s", a.assetGUID, a.gameObjectID)
}
