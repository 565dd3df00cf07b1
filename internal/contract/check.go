package contract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ViolationKind classifies a contract violation
type ViolationKind string

// Violation kinds
const (
	ViolationMissing     ViolationKind = "missing"
	ViolationType        ViolationKind = "type"
	ViolationCardinality ViolationKind = "cardinality"
	ViolationEnum        ViolationKind = "enum"
	ViolationRange       ViolationKind = "range"
	ViolationLabel       ViolationKind = "label"
	ViolationDensity     ViolationKind = "density"
)

// Violation is one way a document fails the contract
type Violation struct {
	Path    string        `json:"path"`
	Kind    ViolationKind `json:"kind"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s (%s): %s", v.Path, v.Kind, v.Message)
}

// Check audits a decoded JSON document against every rule in the contract: presence,
// type, cardinality, enum membership, numeric range, canonical labels and density.
// An empty result means the document is complete.
func (c *Contract) Check(doc map[string]any) []Violation {
	var out []Violation
	for _, f := range c.Fields {
		v, present := doc[f.Name]
		if !present || v == nil {
			if f.Required {
				out = append(out, Violation{Path: f.Name, Kind: ViolationMissing, Message: "field is absent or null"})
			}
			continue
		}
		out = append(out, checkValue(f.Name, f, v)...)
	}
	return out
}

func checkValue(path string, f Field, v any) []Violation {
	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return []Violation{typeViolation(path, f)}
		}
		if strings.TrimSpace(s) == "" {
			return []Violation{{Path: path, Kind: ViolationMissing, Message: "string is empty"}}
		}
		if f.MinChars > 0 && utf8.RuneCountInString(s) < f.MinChars {
			return []Violation{densityViolation(path, f, s)}
		}
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return []Violation{typeViolation(path, f)}
		}
		if !f.HasValue(s) {
			return []Violation{{Path: path, Kind: ViolationEnum, Message: fmt.Sprintf("%q is not one of %v", s, f.Values)}}
		}
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return []Violation{typeViolation(path, f)}
		}
		if !f.InRange(n) {
			return []Violation{{Path: path, Kind: ViolationRange, Message: fmt.Sprintf("%v is outside [%v, %v]", n, f.Min, f.Max)}}
		}
	case KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			return []Violation{typeViolation(path, f)}
		}
		return checkObject(path, f.Fields, m)
	case KindStringList:
		items, ok := v.([]any)
		if !ok {
			return []Violation{typeViolation(path, f)}
		}
		var out []Violation
		if len(items) < f.MinItems {
			out = append(out, cardinalityViolation(path, f, len(items)))
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			s, ok := item.(string)
			if !ok {
				out = append(out, Violation{Path: itemPath, Kind: ViolationType, Message: "expected string"})
				continue
			}
			if strings.TrimSpace(s) == "" {
				out = append(out, Violation{Path: itemPath, Kind: ViolationMissing, Message: "string is empty"})
				continue
			}
			if f.MinChars > 0 && utf8.RuneCountInString(s) < f.MinChars {
				out = append(out, densityViolation(itemPath, f, s))
			}
		}
		return out
	case KindObjectList, KindFixedList:
		items, ok := v.([]any)
		if !ok {
			return []Violation{typeViolation(path, f)}
		}
		var out []Violation
		if f.Kind == KindFixedList && len(items) != len(f.Labels) {
			out = append(out, Violation{Path: path, Kind: ViolationCardinality, Message: fmt.Sprintf("expected exactly %d items, got %d", len(f.Labels), len(items))})
		} else if len(items) < f.MinItems {
			out = append(out, cardinalityViolation(path, f, len(items)))
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			m, ok := item.(map[string]any)
			if !ok {
				out = append(out, Violation{Path: itemPath, Kind: ViolationType, Message: "expected object"})
				continue
			}
			out = append(out, checkObject(itemPath, f.Fields, m)...)
			if f.Kind == KindFixedList && i < len(f.Labels) {
				if label, _ := m[f.LabelField].(string); label != f.Labels[i] {
					out = append(out, Violation{Path: itemPath + "." + f.LabelField, Kind: ViolationLabel, Message: fmt.Sprintf("expected %q, got %q", f.Labels[i], label)})
				}
			}
		}
		return out
	}
	return nil
}

func checkObject(path string, fields []Field, m map[string]any) []Violation {
	var out []Violation
	for _, sub := range fields {
		subPath := path + "." + sub.Name
		v, present := m[sub.Name]
		if !present || v == nil {
			if sub.Required {
				out = append(out, Violation{Path: subPath, Kind: ViolationMissing, Message: "field is absent or null"})
			}
			continue
		}
		out = append(out, checkValue(subPath, sub, v)...)
	}
	return out
}

func typeViolation(path string, f Field) Violation {
	return Violation{Path: path, Kind: ViolationType, Message: "expected " + f.Kind.String()}
}

func cardinalityViolation(path string, f Field, got int) Violation {
	return Violation{Path: path, Kind: ViolationCardinality, Message: fmt.Sprintf("expected at least %d items, got %d", f.MinItems, got)}
}

func densityViolation(path string, f Field, s string) Violation {
	return Violation{Path: path, Kind: ViolationDensity, Message: fmt.Sprintf("%d chars, target %d", utf8.RuneCountInString(s), f.MinChars)}
}
