// Package template renders destination message templates against the data a
// matcher extracted from an event.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/flowhook/pkg/models"
)

// EventKey is the key under which event metadata is exposed to templates.
const EventKey = "event"

var funcs = template.FuncMap{
	"now": func() string {
		return time.Now().UTC().Format(time.RFC3339)
	},
	"rand": func(max int) int {
		if max <= 0 {
			return 0
		}
		num := make([]byte, 1)
		_, err := rand.Read(num)
		if err != nil {
			return 0
		}

		return int(num[0]) % max
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"default": func(fallback, value any) any {
		if value == nil || value == "" {
			return fallback
		}

		return value
	},
}

// EventContext is the data a message template sees: every EventData field at
// the top level ({{.amount}}) plus the event's type, height and timestamp
// under "event" ({{.event.type}}).
func EventContext(evt models.Event, eventData map[string]any) map[string]any {
	data := make(map[string]any, len(eventData)+1)
	maps.Copy(data, eventData)

	data[EventKey] = map[string]any{
		"type":      evt.Type,
		"height":    evt.Height,
		"timestamp": evt.Timestamp.UTC().Format(time.RFC3339),
	}

	return data
}

// RenderText executes templateStr and returns the raw output. Missing keys
// render as empty strings.
func RenderText(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("message").
		Funcs(funcs).
		Option("missingkey=zero").
		Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// Render executes templateStr and coerces the output into JSON, a number or a
// boolean when it looks like one.
func Render(templateStr string, data any) (any, error) {
	result, err := RenderText(templateStr, data)
	if err != nil {
		return nil, err
	}

	// Try to parse as JSON if it looks like JSON
	result = strings.TrimSpace(result)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
