// Package reference defines the core domain types shared by the RIS parser,
// the BibLaTeX normalizer, the record store and the citation scanner.
package reference

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Value is a bibliographic field value: either a single string or an
// ordered list of strings. A Value is a list only when it was built from
// more than one occurrence (or decoded from a sequence).
type Value struct {
	scalar string
	list   []string
	isList bool
}

// String returns a scalar value.
func String(s string) Value {
	return Value{scalar: s}
}

// List returns a list value holding a copy of items.
func List(items ...string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{list: cp, isList: true}
}

// IsList reports whether the value is a sequence.
func (v Value) IsList() bool { return v.isList }

// Scalar returns the scalar content, or the first element of a list.
func (v Value) Scalar() string {
	if !v.isList {
		return v.scalar
	}
	if len(v.list) == 0 {
		return ""
	}
	return v.list[0]
}

// Strings returns the value as a slice; a scalar becomes a one-element slice.
func (v Value) Strings() []string {
	if v.isList {
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp
	}
	return []string{v.scalar}
}

// Append returns a new value with s added. A scalar is promoted to a list
// holding the existing content followed by s.
func (v Value) Append(s string) Value {
	items := v.Strings()
	return List(append(items, s)...)
}

// Equal reports whether two values have the same shape and content.
func (v Value) Equal(o Value) bool {
	if v.isList != o.isList {
		return false
	}
	if !v.isList {
		return v.scalar == o.scalar
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a scalar as a JSON string and a list as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return json.Marshal(v.scalar)
}

// UnmarshalJSON accepts strings, numbers, booleans, null and arrays of those.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = String("")
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = String(n.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = String(strconv.FormatBool(b))
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			var item Value
			if err := item.UnmarshalJSON(r); err != nil {
				return err
			}
			if item.isList {
				return fmt.Errorf("nested list in field value: %s", string(data))
			}
			items = append(items, item.scalar)
		}
		*v = List(items...)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into field value", string(data))
}

// MarshalYAML encodes a scalar as a string node and a list as a sequence.
func (v Value) MarshalYAML() (interface{}, error) {
	if v.isList {
		if v.list == nil {
			return []string{}, nil
		}
		return v.list, nil
	}
	return v.scalar, nil
}

// UnmarshalYAML accepts scalar and sequence-of-scalar nodes. Scalars keep
// their literal text, so `year: 2020` decodes to "2020".
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*v = String("")
			return nil
		}
		*v = String(node.Value)
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: field list items must be scalars", item.Line)
			}
			items = append(items, item.Value)
		}
		*v = List(items...)
		return nil
	default:
		return fmt.Errorf("line %d: field value must be a string or a list of strings", node.Line)
	}
}

// Fields maps BibLaTeX field names to values.
type Fields map[string]Value

// Clone returns a shallow copy of the map. Values are immutable so this
// is a full copy in practice.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in ascending order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the scalar rendering of a field, or "" when absent.
func (f Fields) Get(name string) string {
	v, ok := f[name]
	if !ok {
		return ""
	}
	return v.Scalar()
}

// Rename returns a copy of f with every field whose name appears in mapping
// renamed to the mapped name.
func (f Fields) Rename(mapping map[string]string) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if renamed, ok := mapping[k]; ok && renamed != "" {
			k = renamed
		}
		out[k] = v
	}
	return out
}

// EntryTypeField is the field holding the BibLaTeX entry type.
const EntryTypeField = "entrytype"
