package memworld

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/handgrab/internal/core/physics"
	"github.com/zeusync/handgrab/internal/core/world"
)

// Entity describes an entity to spawn.
type Entity struct {
	world.Properties `yaml:",inline"`
	Dimensions       physics.Vec3         `yaml:"dimensions"`
	Grabbable        *world.GrabbableData `yaml:"grabbable,omitempty"`
}

// Scene is the YAML document accepted by LoadScene.
type Scene struct {
	Entities []Entity `yaml:"entities"`
}

// DecodeScene parses a scene document.
func DecodeScene(r io.Reader) (Scene, error) {
	var scene Scene
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&scene); err != nil {
		if err == io.EOF {
			return Scene{}, nil
		}
		return Scene{}, fmt.Errorf("decode scene: %w", err)
	}
	return scene, nil
}

// LoadScene spawns every entity of the scene.
func (w *World) LoadScene(scene Scene) error {
	for i, e := range scene.Entities {
		if _, err := w.Spawn(e); err != nil {
			return fmt.Errorf("scene entity %d: %w", i, err)
		}
	}
	return nil
}

// LoadSceneFile decodes and spawns the scene at path.
func (w *World) LoadSceneFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scene: %w", err)
	}
	defer f.Close()

	scene, err := DecodeScene(f)
	if err != nil {
		return err
	}
	return w.LoadScene(scene)
}
