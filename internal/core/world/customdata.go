package world

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/handgrab/internal/core/physics"
)

// Keys shared with other grab tooling.
const (
	GrabbableDataKey = "grabbableKey"
	GrabUserDataKey  = "grabKey"
)

// GetCustomData decodes the document stored under key on top of def.
// Missing or malformed documents yield def unchanged.
func GetCustomData[T any](store CustomDataStore, id EntityID, key string, def T) T {
	raw, ok := store.CustomData(id, key)
	if !ok || len(raw) == 0 {
		return def
	}
	out := def
	if err := json.Unmarshal(raw, &out); err != nil {
		return def
	}
	return out
}

// SetCustomData encodes value and stores it under key.
func SetCustomData[T any](store CustomDataStore, id EntityID, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return store.SetCustomData(id, key, raw)
}

// SpatialDescriptor is authored metadata describing how an entity sits in a hand when equipped.
type SpatialDescriptor struct {
	RelativePosition      *physics.Vec3 `json:"relativePosition,omitempty" yaml:"relativePosition,omitempty"`
	RelativeRotation      *physics.Quat `json:"relativeRotation,omitempty" yaml:"relativeRotation,omitempty"`
	LeftRelativePosition  *physics.Vec3 `json:"leftRelativePosition,omitempty" yaml:"leftRelativePosition,omitempty"`
	LeftRelativeRotation  *physics.Quat `json:"leftRelativeRotation,omitempty" yaml:"leftRelativeRotation,omitempty"`
	RightRelativePosition *physics.Vec3 `json:"rightRelativePosition,omitempty" yaml:"rightRelativePosition,omitempty"`
	RightRelativeRotation *physics.Quat `json:"rightRelativeRotation,omitempty" yaml:"rightRelativeRotation,omitempty"`
}

// GrabbableData gates which grab states an entity can enter.
type GrabbableData struct {
	Grabbable            bool               `json:"grabbable" yaml:"grabbable"`
	WantsTrigger         bool               `json:"wantsTrigger,omitempty" yaml:"wantsTrigger,omitempty"`
	InvertSolidWhileHeld bool               `json:"invertSolidWhileHeld,omitempty" yaml:"invertSolidWhileHeld,omitempty"`
	SpatialKey           *SpatialDescriptor `json:"spatialKey,omitempty" yaml:"spatialKey,omitempty"`
}

// DefaultGrabbableData applies when an entity carries no grab metadata.
func DefaultGrabbableData() GrabbableData {
	return GrabbableData{Grabbable: true}
}

// LoadGrabbableData reads the grab metadata of id with defaults applied.
func LoadGrabbableData(store CustomDataStore, id EntityID) GrabbableData {
	return GetCustomData(store, id, GrabbableDataKey, DefaultGrabbableData())
}
