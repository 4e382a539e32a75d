package world

import (
	"encoding/json"

	"github.com/zeusync/handgrab/internal/core/physics"
)

// Query reads world state.
type Query interface {
	// FindRayIntersection returns the closest entity hit by ray.
	FindRayIntersection(ray physics.Ray, precise bool) RayHit
	// FindEntities returns entities whose bounds are within radius of center.
	FindEntities(center physics.Vec3, radius float64) []EntityID
	// EntityProperties returns false when the entity no longer exists.
	EntityProperties(id EntityID) (Properties, bool)
}

// PropertyEditor applies partial property edits.
type PropertyEditor interface {
	EditEntity(id EntityID, edit PropertyEdit) error
}

// CustomDataStore is a per-entity key/value store of JSON documents.
type CustomDataStore interface {
	CustomData(id EntityID, key string) (json.RawMessage, bool)
	SetCustomData(id EntityID, key string, value json.RawMessage) error
	DeleteCustomData(id EntityID, key string) error
}

// Constraints manages physical constraints attached to entities.
type Constraints interface {
	AddConstraint(id EntityID, params ConstraintParams) (ConstraintID, error)
	UpdateConstraint(id EntityID, cid ConstraintID, params ConstraintParams) error
	DeleteConstraint(id EntityID, cid ConstraintID) error
	Constraints(id EntityID) []ConstraintInfo
}

// Behaviors exposes the scripted behavior object attached to an entity, if any.
// The returned value is probed for the capability interfaces in behavior.go.
type Behaviors interface {
	Behavior(id EntityID) any
}

// World is the full collaborator surface used by the grab core.
type World interface {
	Query
	PropertyEditor
	CustomDataStore
	Constraints
	Behaviors
}
