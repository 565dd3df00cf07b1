package validation

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

// Validate returns a *MissingFieldsError when the artifact lacks required fields
func Validate(a *types.ReportArtifact) error {
	missing, err := MissingFields(a)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// MissingFields returns the names of required fields the artifact lacks, in contract
// order. Sub-fields of required objects are reported as "parent.child".
func MissingFields(a *types.ReportArtifact) ([]string, error) {
	if a == nil {
		return contract.Report().RequiredFields(), nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, &Error{Message: "failed to encode artifact", Cause: err}
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Message: "failed to decode artifact", Cause: err}
	}
	return MissingInDocument(contract.Report(), doc), nil
}

// MissingInDocument checks a decoded document against the required fields of c.
// A field counts as missing when it is absent, null or a blank string.
func MissingInDocument(c *contract.Contract, doc map[string]any) []string {
	var missing []string
	for _, f := range c.Fields {
		if !f.Required {
			continue
		}
		v := doc[f.Name]
		if absent(v) {
			missing = append(missing, f.Name)
			continue
		}
		if f.Kind != contract.KindObject {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			missing = append(missing, f.Name)
			continue
		}
		for _, sub := range f.Fields {
			if sub.Required && absent(obj[sub.Name]) {
				missing = append(missing, f.Name+"."+sub.Name)
			}
		}
	}
	return missing
}

func absent(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
