package world

import "github.com/zeusync/handgrab/internal/core/physics"

// EntityID is an opaque reference to a world entity.
type EntityID string

// EntityType is the renderable kind of an entity.
type EntityType string

const (
	TypeUnknown        EntityType = "Unknown"
	TypeBox            EntityType = "Box"
	TypeSphere         EntityType = "Sphere"
	TypeModel          EntityType = "Model"
	TypeLight          EntityType = "Light"
	TypeParticleEffect EntityType = "ParticleEffect"
	TypePolyLine       EntityType = "PolyLine"
	TypeLine           EntityType = "Line"
	TypeZone           EntityType = "Zone"
)

// Properties is the subset of entity state the grab core reads.
type Properties struct {
	ID                  EntityID     `json:"id" yaml:"id"`
	Name                string       `json:"name" yaml:"name"`
	Type                EntityType   `json:"type" yaml:"type"`
	Position            physics.Vec3 `json:"position" yaml:"position"`
	Rotation            physics.Quat `json:"rotation" yaml:"rotation"`
	Velocity            physics.Vec3 `json:"velocity" yaml:"velocity"`
	Gravity             physics.Vec3 `json:"gravity" yaml:"gravity"`
	IgnoreForCollisions bool         `json:"ignoreForCollisions" yaml:"ignoreForCollisions"`
	CollisionsWillMove  bool         `json:"collisionsWillMove" yaml:"collisionsWillMove"`
	Locked              bool         `json:"locked" yaml:"locked"`
	BoundingBox         physics.AABB `json:"boundingBox" yaml:"boundingBox"`
}

// Pose returns the entity position and rotation.
func (p Properties) Pose() physics.Pose {
	return physics.Pose{Position: p.Position, Rotation: p.Rotation}
}

// PropertyEdit is a partial update; nil fields are left untouched.
type PropertyEdit struct {
	Gravity             *physics.Vec3
	Velocity            *physics.Vec3
	IgnoreForCollisions *bool
	CollisionsWillMove  *bool
}

// Empty reports whether the edit changes nothing.
func (e PropertyEdit) Empty() bool {
	return e.Gravity == nil && e.Velocity == nil && e.IgnoreForCollisions == nil && e.CollisionsWillMove == nil
}

// Helper entity names created by grab tooling itself; never grab candidates.
var helperNames = map[string]struct{}{
	"Grab Debug Entity": {},
	"grab pointer":      {},
	"pointer":           {},
}

// IsHelperName reports whether name belongs to a helper entity.
func IsHelperName(name string) bool {
	_, ok := helperNames[name]
	return ok
}

var nonGrabbableTypes = map[EntityType]struct{}{
	TypeUnknown:        {},
	TypeLight:          {},
	TypeParticleEffect: {},
	TypePolyLine:       {},
	TypeLine:           {},
	TypeZone:           {},
}

// IsGrabbableType reports whether entities of type t may be proximity grabbed.
func IsGrabbableType(t EntityType) bool {
	if t == "" {
		return false
	}
	_, excluded := nonGrabbableTypes[t]
	return !excluded
}

// RayHit is the result of a ray intersection query.
type RayHit struct {
	Intersects bool
	Entity     EntityID
	Distance   float64 // along the ray from its origin
	Point      physics.Vec3
	Properties Properties
}
