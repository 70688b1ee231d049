package workflow

import (
	"strconv"
	"strings"
)

// Trigger config keys the editor stores as comma separated text.
var listConfigKeys = map[string]bool{
	"addresses":   true,
	"token_ids":   true,
	"event_names": true,
	"roles":       true,
	"subtypes":    true,
	"event_types": true,
}

var numericConfigKeys = map[string]bool{
	"min_amount": true,
	"min_value":  true,
}

// normalizeTriggerConfig turns editor form values into matcher conditions:
// list fields become string slices, thresholds become numbers and blank
// values are dropped.
func normalizeTriggerConfig(config map[string]any) map[string]any {
	out := make(map[string]any, len(config))

	for key, value := range config {
		if isBlank(value) {
			continue
		}

		switch {
		case listConfigKeys[key]:
			list := toStringList(value)
			if list == nil {
				out[key] = value

				continue
			}

			if len(list) == 0 {
				continue
			}

			out[key] = list
		case numericConfigKeys[key]:
			out[key] = toNumber(value)
		default:
			out[key] = value
		}
	}

	return out
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return false
	}
}

// toStringList returns nil when value is neither a string nor a list of strings.
func toStringList(value any) []string {
	switch v := value.(type) {
	case string:
		list := []string{}

		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}

		return list
	case []string:
		return v
	case []any:
		list := make([]string, 0, len(v))

		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil
			}

			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}

		return list
	default:
		return nil
	}
}

func toNumber(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}

	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}

	return s
}
