package scene

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownShape = errors.New("unknown shape kind")

// ShapeKind is the closed set of primitives a scene can hold.
type ShapeKind int

const (
	Cube ShapeKind = iota
	Sphere
	Cone
)

var shapeNames = [...]string{
	Cube:   "cube",
	Sphere: "sphere",
	Cone:   "cone",
}

// ShapeKinds lists every supported shape.
func ShapeKinds() []ShapeKind {
	return []ShapeKind{Cube, Sphere, Cone}
}

func (k ShapeKind) Valid() bool {
	return k >= Cube && k <= Cone
}

func (k ShapeKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
	return shapeNames[k]
}

// ParseShapeKind maps a shape name to its kind.
func ParseShapeKind(s string) (ShapeKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range shapeNames {
		if n == name {
			return ShapeKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}

func (k ShapeKind) MarshalYAML() (interface{}, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShape, int(k))
	}
	return k.String(), nil
}

func (k *ShapeKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseShapeKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
