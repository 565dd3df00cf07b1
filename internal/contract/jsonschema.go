package contract

import "encoding/json"

// JSONSchema renders the contract as a draft-07 JSON Schema document. Density targets
// are not expressed; they are enforced by repair rather than rejected.
func (c *Contract) JSONSchema() map[string]any {
	schema := objectSchema(c.Fields)
	schema["$schema"] = "http://json-schema.org/draft-07/schema#"
	schema["title"] = "SessionReport"
	return schema
}

// JSONSchemaString is JSONSchema encoded as indented JSON
func (c *Contract) JSONSchemaString() string {
	data, err := json.MarshalIndent(c.JSONSchema(), "", "  ")
	if err != nil {
		// map[string]any built from strings, numbers and slices always encodes
		panic(err)
	}
	return string(data)
}

func objectSchema(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func fieldSchema(f Field) map[string]any {
	switch f.Kind {
	case KindEnum:
		return map[string]any{"type": "string", "enum": f.Values}
	case KindNumber:
		return map[string]any{"type": "number", "minimum": f.Min, "maximum": f.Max}
	case KindObject:
		return objectSchema(f.Fields)
	case KindStringList:
		return map[string]any{
			"type":     "array",
			"minItems": f.MinItems,
			"items":    map[string]any{"type": "string", "minLength": 1},
		}
	case KindObjectList:
		return map[string]any{
			"type":     "array",
			"minItems": f.MinItems,
			"items":    objectSchema(f.Fields),
		}
	case KindFixedList:
		item := objectSchema(f.Fields)
		return map[string]any{
			"type":     "array",
			"minItems": len(f.Labels),
			"maxItems": len(f.Labels),
			"items":    item,
		}
	default:
		return map[string]any{"type": "string", "minLength": 1}
	}
}
