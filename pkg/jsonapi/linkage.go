package jsonapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ResourceStub identifies a resource by type and id without attributes.
// Stubs appear inside relationship payloads.
type ResourceStub struct {
	Type string         `json:"type"`
	ID   string         `json:"id"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Linkage is the data member of a relationship object.
//
// The zero value represents an absent data member. A present linkage is
// either null (One == nil, IsMany == false), a single stub (One != nil), or an
// array of stubs (IsMany == true, possibly empty).
type Linkage struct {
	Present bool
	IsMany  bool
	One     *ResourceStub
	Many    []ResourceStub
}

// NewToOne returns a linkage pointing at a single resource.
func NewToOne(typ, id string) Linkage {
	return Linkage{Present: true, One: &ResourceStub{Type: typ, ID: id}}
}

// NewToMany returns an array linkage holding the given stubs in order.
func NewToMany(stubs ...ResourceStub) Linkage {
	if stubs == nil {
		stubs = []ResourceStub{}
	}
	return Linkage{Present: true, IsMany: true, Many: stubs}
}

// IsNull reports whether the data member was an explicit null.
func (l Linkage) IsNull() bool {
	return l.Present && !l.IsMany && l.One == nil
}

// Stubs returns the referenced stubs in payload order.
// A single stub yields a one-element slice; absent or null data yields nil.
func (l Linkage) Stubs() []ResourceStub {
	switch {
	case l.IsMany:
		return l.Many
	case l.One != nil:
		return []ResourceStub{*l.One}
	default:
		return nil
	}
}

// UnmarshalJSON decodes null, an object or an array of objects.
func (l *Linkage) UnmarshalJSON(data []byte) error {
	*l = Linkage{Present: true}

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '[':
		var many []ResourceStub
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return fmt.Errorf("decode to-many linkage: %w", err)
		}
		if many == nil {
			many = []ResourceStub{}
		}
		l.IsMany = true
		l.Many = many
		return nil
	case trimmed[0] == '{':
		var one ResourceStub
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return fmt.Errorf("decode to-one linkage: %w", err)
		}
		l.One = &one
		return nil
	default:
		return fmt.Errorf("decode linkage: unexpected JSON %.20q", trimmed)
	}
}

// MarshalJSON encodes the linkage back to null, an object or an array.
// An absent linkage encodes as null; use omitempty-aware containers to drop it.
func (l Linkage) MarshalJSON() ([]byte, error) {
	switch {
	case l.IsMany:
		if l.Many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(l.Many)
	case l.One != nil:
		return json.Marshal(l.One)
	default:
		return []byte("null"), nil
	}
}
