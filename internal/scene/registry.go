package scene

import "fmt"

// Registry holds scenes by unique name in insertion order.
type Registry struct {
	scenes []*Scene
	byName map[string]*Scene
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Scene)}
}

func (r *Registry) Add(sc *Scene) error {
	if sc.Name == "" {
		return ErrEmptyName
	}
	if _, exists := r.byName[sc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScene, sc.Name)
	}
	r.byName[sc.Name] = sc
	r.scenes = append(r.scenes, sc)
	return nil
}

func (r *Registry) Get(name string) (*Scene, bool) {
	sc, ok := r.byName[name]
	return sc, ok
}

// Scenes returns the scenes in the order they were added.
func (r *Registry) Scenes() []*Scene {
	return append([]*Scene(nil), r.scenes...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.scenes))
	for i, sc := range r.scenes {
		names[i] = sc.Name
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.scenes)
}
