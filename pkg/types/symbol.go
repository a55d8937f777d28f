package types

import (
	"errors"
	"fmt"
)

// SymbolKind represents the kind of apidl construct a symbol names
type SymbolKind string

const (
	KindStruct    SymbolKind = "struct"
	KindField     SymbolKind = "field"
	KindEnum      SymbolKind = "enum"
	KindEnumValue SymbolKind = "enum_value"
	KindAPI       SymbolKind = "api"
	KindAPIList   SymbolKind = "api_list"
	KindType      SymbolKind = "type"
)

// AllKinds lists every valid symbol kind in presentation order
var AllKinds = []SymbolKind{KindStruct, KindField, KindEnum, KindEnumValue, KindAPI, KindAPIList, KindType}

// ParseKind converts a kind name to a SymbolKind
func ParseKind(s string) (SymbolKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown symbol kind %q", s)
}

// IsMember reports whether symbols of this kind are scoped by a parent
// declaration (struct fields and enum values).
func (k SymbolKind) IsMember() bool {
	return k == KindField || k == KindEnumValue
}

// Position represents a location in source code
type Position struct {
	Line   int `json:"line"`   // 1-based
	Column int `json:"column"` // 1-based
	Offset int `json:"offset"` // byte offset
}

// Range is a half-open source span
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location ties a range to the document that owns it
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// Key is the identity used for symbol table lookup.
// Members (fields, enum values) are keyed by (Parent, Name); everything
// else by bare Name with an empty Parent.
type Key struct {
	Parent string
	Name   string
}

// String renders the key as "parent.name" or "name"
func (k Key) String() string {
	if k.Parent == "" {
		return k.Name
	}
	return k.Parent + "." + k.Name
}

// Symbol represents a named apidl declaration
type Symbol struct {
	Name          string
	Kind          SymbolKind
	Location      Location
	Detail        string // Short human-readable signature
	Documentation string // Leading comments and builtin metadata
	Parent        string // Owning struct/enum/apilist, if any
	TypeName      string // Declared type for fields
}

// Key returns the table identity of the symbol
func (s *Symbol) Key() Key {
	if s.Kind.IsMember() {
		return Key{Parent: s.Parent, Name: s.Name}
	}
	return Key{Name: s.Name}
}

// Line returns the 1-based start line of the symbol
func (s *Symbol) Line() int {
	return s.Location.Range.Start.Line
}

// ValidateKind checks if the symbol kind is valid
func (s *Symbol) ValidateKind() error {
	switch s.Kind {
	case KindStruct, KindField, KindEnum, KindEnumValue, KindAPI, KindAPIList, KindType:
		return nil
	default:
		return errors.New("invalid symbol kind")
	}
}

// Validate performs comprehensive validation of the symbol
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return errors.New("symbol name is required")
	}

	if err := s.ValidateKind(); err != nil {
		return err
	}

	// Members must have an owner
	if s.Kind.IsMember() && s.Parent == "" {
		return errors.New("fields and enum values must have a parent")
	}

	if s.Location.URI == "" && s.Kind != KindType {
		return errors.New("symbol location is required")
	}

	r := s.Location.Range
	if s.Kind != KindType && (r.Start.Line <= 0 || r.End.Line <= 0) {
		return errors.New("invalid position: line numbers must be positive")
	}

	if r.Start.Line > r.End.Line {
		return errors.New("invalid position: start line must be before or equal to end line")
	}

	return nil
}
