// Package contract describes the required shape of a complete session report artifact.
// It is pure data: the repair, validation and schema packages consult it but it has no
// behavior of its own beyond lookups.
package contract

import "strings"

// Kind is the structural category of a contract field
type Kind int

// Field kinds
const (
	KindString Kind = iota
	KindEnum
	KindNumber
	KindObject
	KindStringList
	KindObjectList
	KindFixedList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	case KindStringList:
		return "string list"
	case KindObjectList:
		return "object list"
	case KindFixedList:
		return "fixed list"
	default:
		return "unknown"
	}
}

// Field describes one field of the artifact or of a nested object
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// KindEnum
	Values      []string
	DefaultEnum string

	// KindNumber (inclusive range)
	Min           float64
	Max           float64
	DefaultNumber float64

	// KindString and KindStringList items: density target in characters (0 = none)
	MinChars int

	// KindStringList, KindObjectList
	MinItems int

	// KindFixedList: exact, order-significant labels stored under LabelField
	Labels     []string
	LabelField string

	// KindObject, KindObjectList, KindFixedList
	Fields []Field
}

// Contract is the full set of top-level fields
type Contract struct {
	Fields []Field
	index  map[string]Field
}

// New builds a contract from top-level fields
func New(fields ...Field) *Contract {
	c := &Contract{Fields: fields, index: make(map[string]Field)}
	for _, f := range fields {
		c.register("", f)
	}
	return c
}

func (c *Contract) register(prefix string, f Field) {
	path := f.Name
	if prefix != "" {
		path = prefix + "." + f.Name
	}
	c.index[path] = f
	for _, sub := range f.Fields {
		c.register(path, sub)
	}
}

// Lookup returns the field at a dotted path. List item sub-fields are addressed through
// the list name, e.g. "p5_action_items.priority".
func (c *Contract) Lookup(path string) (Field, bool) {
	f, ok := c.index[path]
	return f, ok
}

// MustLookup is Lookup for paths that are known to exist at compile time
func (c *Contract) MustLookup(path string) Field {
	f, ok := c.index[path]
	if !ok {
		panic("contract: unknown field " + path)
	}
	return f
}

// RequiredFields returns the names of all required top-level fields, in declaration order
func (c *Contract) RequiredFields() []string {
	var names []string
	for _, f := range c.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// DensityTargets returns every string or string-list path that carries a MinChars target
func (c *Contract) DensityTargets() map[string]int {
	out := make(map[string]int)
	for path, f := range c.index {
		if f.MinChars > 0 {
			out[path] = f.MinChars
		}
	}
	return out
}

// HasValue reports whether v is a legal member of the enum field
func (f Field) HasValue(v string) bool {
	for _, allowed := range f.Values {
		if v == allowed {
			return true
		}
	}
	return false
}

// CoerceEnum maps raw onto a legal enum member. Matching is case-insensitive and treats
// spaces and hyphens as underscores; anything else yields the field's default.
func (f Field) CoerceEnum(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if f.HasValue(key) {
		return key
	}
	return f.DefaultEnum
}

// Clamp limits v to the field's inclusive range
func (f Field) Clamp(v float64) float64 {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

// InRange reports whether v lies within the field's inclusive range
func (f Field) InRange(v float64) bool {
	return v >= f.Min && v <= f.Max
}

func str(name string) Field {
	return Field{Name: name, Kind: KindString, Required: true}
}

func text(name string, minChars int) Field {
	return Field{Name: name, Kind: KindString, Required: true, MinChars: minChars}
}

func enum(name, def string, values ...string) Field {
	return Field{Name: name, Kind: KindEnum, Required: true, Values: values, DefaultEnum: def}
}

func num(name string, lo, hi, def float64) Field {
	return Field{Name: name, Kind: KindNumber, Required: true, Min: lo, Max: hi, DefaultNumber: def}
}

func obj(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObject, Required: true, Fields: fields}
}

func strList(name string, minItems, itemMinChars int) Field {
	return Field{Name: name, Kind: KindStringList, Required: true, MinItems: minItems, MinChars: itemMinChars}
}

func objList(name string, minItems int, fields ...Field) Field {
	return Field{Name: name, Kind: KindObjectList, Required: true, MinItems: minItems, Fields: fields}
}

func fixedList(name string, labels []string, labelField string, fields ...Field) Field {
	return Field{Name: name, Kind: KindFixedList, Required: true, Labels: labels, LabelField: labelField, Fields: fields}
}

func optional(f Field) Field {
	f.Required = false
	return f
}
