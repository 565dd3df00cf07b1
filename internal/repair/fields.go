package repair

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/jonathan/session-report/internal/contract"
)

// Placeholders for values the generator did not supply and no sibling field can inform
const (
	notAssessed = "Not assessed in this session."
	notRecorded = "Not recorded"
	noQuote     = "No direct quote recorded."
	noResponse  = "No response was recorded during the session."
)

var report = contract.Report()

// text returns raw as a string if it carries content, otherwise fallback. Numbers and
// booleans are rendered; everything else is treated as absent.
func text(raw any, fallback string) string {
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fallback
}

// present reports whether raw would be accepted by text
func present(raw any) bool {
	return text(raw, "") != ""
}

// enumAt coerces raw onto the enum at path. Booleans map onto yes/no where the enum has them.
func enumAt(path string, raw any) string {
	f := report.MustLookup(path)
	switch v := raw.(type) {
	case string:
		return f.CoerceEnum(v)
	case bool:
		if v && f.HasValue("yes") {
			return "yes"
		}
		if !v && f.HasValue("no") {
			return "no"
		}
	}
	return f.DefaultEnum
}

// numberAt clamps raw into the range at path. Numeric strings (optionally with a trailing
// percent sign) are parsed; anything else yields the field default.
func numberAt(path string, raw any) float64 {
	f := report.MustLookup(path)
	n, ok := toFloat(raw)
	if !ok {
		return f.DefaultNumber
	}
	return f.Clamp(n)
}

func toFloat(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(v), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// object returns raw as a JSON object, or an empty one
func object(raw any) map[string]any {
	if m, ok := raw.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// stringList keeps every item of raw that carries content. A lone string counts as a
// one-item list. The result is never nil.
func stringList(raw any) []string {
	out := make([]string, 0)
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s := text(item, ""); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	default:
		if s := text(raw, ""); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// objectItems returns the objects in a list. A bare string item becomes an object with the
// string stored under primary; a lone object counts as a one-item list.
func objectItems(raw any, primary string) []map[string]any {
	out := make([]map[string]any, 0)
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				out = append(out, it)
			case string:
				if strings.TrimSpace(it) != "" {
					out = append(out, map[string]any{primary: it})
				}
			}
		}
	case map[string]any:
		out = append(out, v)
	}
	return out
}

// padStrings appends candidates (skipping ones already present), then fallback(i) values,
// until list holds at least want items. Existing items are never removed.
func padStrings(list []string, want int, candidates []string, fallback func(i int) string) []string {
	seen := make(map[string]bool, len(list))
	for _, s := range list {
		seen[s] = true
	}
	for _, c := range candidates {
		if len(list) >= want {
			return list
		}
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		list = append(list, c)
	}
	for i := len(list); len(list) < want; i++ {
		list = append(list, fallback(i))
	}
	return list
}

func itemID(prefix string, i int) string {
	return prefix + "-" + twoDigits(i+1)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func minItems(path string) int {
	return report.MustLookup(path).MinItems
}
