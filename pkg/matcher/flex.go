package matcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexFloat64 accepts a JSON number or a numeric string. A value that is
// present but not numeric is remembered as invalid so thresholds fail closed.
type flexFloat64 struct {
	value float64
	set   bool
	valid bool
}

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = flexFloat64{}

		return nil
	}

	f.set = true

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value, f.valid = n, true

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.value, f.valid = n, true
		}
	}

	return nil
}

// atLeast reports whether raw parses as a number not below the threshold.
func (f flexFloat64) atLeast(raw string) bool {
	if !f.valid {
		return false
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}

	return n >= f.value
}

// flexStringSlice accepts a JSON array of strings or numbers, or one
// comma-separated string.
type flexStringSlice []string

func (f *flexStringSlice) UnmarshalJSON(data []byte) error {
	var items []any
	if err := json.Unmarshal(data, &items); err == nil {
		out := make([]string, 0, len(items))

		for _, item := range items {
			switch v := item.(type) {
			case string, float64:
				if s := strings.TrimSpace(toStr(v)); s != "" {
					out = append(out, s)
				}
			default:
				return fmt.Errorf("unsupported list item %v", item)
			}
		}

		*f = out

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
			*f = nil

			return nil
		}

		return fmt.Errorf("expected a list or a comma separated string: %w", err)
	}

	*f = splitList(s)

	return nil
}

func splitList(s string) []string {
	var out []string

	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}

	return false
}
