package ir

import "fmt"

// Type is the kind of a generic tree node.
type Type int

const (
	ContainerType Type = iota + 1
	MapType
	MapEntryType
	ChoiceType
	LeafSetType
	LeafSetEntryType
	LeafType
)

func (t Type) String() string {
	s, ok := map[Type]string{
		ContainerType:    "Container",
		MapType:          "Map",
		MapEntryType:     "MapEntry",
		ChoiceType:       "Choice",
		LeafSetType:      "LeafSet",
		LeafSetEntryType: "LeafSetEntry",
		LeafType:         "Leaf",
	}[t]
	if ok {
		return s
	}
	return "<unknown type>"
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(d []byte) error {
	tt, ok := map[string]Type{
		"Container":    ContainerType,
		"Map":          MapType,
		"MapEntry":     MapEntryType,
		"Choice":       ChoiceType,
		"LeafSet":      LeafSetType,
		"LeafSetEntry": LeafSetEntryType,
		"Leaf":         LeafType,
	}[string(d)]
	if !ok {
		return fmt.Errorf("unrecognized type %q", d)
	}
	*t = tt
	return nil
}

func Types() []Type {
	return []Type{
		ContainerType,
		MapType,
		MapEntryType,
		ChoiceType,
		LeafSetType,
		LeafSetEntryType,
		LeafType,
	}
}

func (t Type) IsLeaf() bool {
	switch t {
	case LeafType, LeafSetEntryType:
		return true
	default:
		return false
	}
}
