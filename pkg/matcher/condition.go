package matcher

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Operators ordered so that a longer suffix is always tried before any suffix
// it ends with ("not_contains" before "contains", ">=" before ">").
var operatorsByLength = []string{
	"not_contains",
	"starts_with",
	"contains",
	">=",
	"<=",
	"!=",
	"==",
	"gte",
	"lte",
	"neq",
	"gt",
	"lt",
	"eq",
	">",
	"<",
}

// Keys consumed by the typed matchers. They are never read as field conditions.
var triggerConditionKeys = map[string]bool{
	"addresses":        true,
	"direction":        true,
	"token_contract":   true,
	"min_amount":       true,
	"collection":       true,
	"token_ids":        true,
	"contract_address": true,
	"event_names":      true,
	"roles":            true,
	"node_id":          true,
	"from":             true,
	"to":               true,
	"min_value":        true,
	"cron":             true,
	"timezone":         true,
	"subtypes":         true,
}

// Operators returns the supported operators, longest first.
func Operators() []string {
	return append([]string(nil), operatorsByLength...)
}

func IsOperator(op string) bool {
	for _, o := range operatorsByLength {
		if o == op {
			return true
		}
	}

	return false
}

func IsTriggerConditionKey(key string) bool {
	return triggerConditionKeys[key]
}

// ParseConditionKey splits "from_address_==" into ("from_address", "==").
// It returns ("", "") when the key carries no known operator suffix.
func ParseConditionKey(key string) (field, op string) {
	for _, operator := range operatorsByLength {
		suffix := "_" + operator
		if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
			return key[:len(key)-len(suffix)], operator
		}
	}

	return "", ""
}

// EvaluateConditions ANDs every generic condition in conditions against
// eventData. Reserved keys and keys without an operator suffix are ignored;
// a condition on a field missing from eventData fails.
func EvaluateConditions(conditions map[string]any, eventData map[string]any) bool {
	for key, expected := range conditions {
		if IsTriggerConditionKey(key) {
			continue
		}

		field, op := ParseConditionKey(key)
		if op == "" {
			continue
		}

		actual, ok := eventData[field]
		if !ok {
			return false
		}

		if !EvaluateOp(op, toStr(actual), toStr(expected)) {
			return false
		}
	}

	return true
}

// ConditionResult is the outcome of one generic condition.
type ConditionResult struct {
	Key      string `json:"key"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Found    bool   `json:"found"`
	Passed   bool   `json:"passed"`
}

// EvaluateConditionsDetailed evaluates like EvaluateConditions but reports
// every generic condition, sorted by key.
func EvaluateConditionsDetailed(conditions map[string]any, eventData map[string]any) ([]ConditionResult, bool) {
	keys := make([]string, 0, len(conditions))
	for key := range conditions {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	results := make([]ConditionResult, 0, len(keys))
	allPassed := true

	for _, key := range keys {
		if IsTriggerConditionKey(key) {
			continue
		}

		field, op := ParseConditionKey(key)
		if op == "" {
			continue
		}

		res := ConditionResult{
			Key:      key,
			Field:    field,
			Operator: op,
			Expected: toStr(conditions[key]),
		}

		if actual, ok := eventData[field]; ok {
			res.Found = true
			res.Actual = toStr(actual)
			res.Passed = EvaluateOp(op, res.Actual, res.Expected)
		}

		if !res.Passed {
			allPassed = false
		}

		results = append(results, res)
	}

	return results, allPassed
}

// EvaluateOp compares the stringified operands. Equality and substring
// operators ignore case; ordering operators are numeric and false when either
// side does not parse.
func EvaluateOp(op, actual, expected string) bool {
	switch op {
	case "==", "eq":
		return strings.EqualFold(actual, expected)
	case "!=", "neq":
		return !strings.EqualFold(actual, expected)
	case ">", "gt":
		a, b, ok := parseFloats(actual, expected)
		return ok && a > b
	case "<", "lt":
		a, b, ok := parseFloats(actual, expected)
		return ok && a < b
	case ">=", "gte":
		a, b, ok := parseFloats(actual, expected)
		return ok && a >= b
	case "<=", "lte":
		a, b, ok := parseFloats(actual, expected)
		return ok && a <= b
	case "contains":
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case "not_contains":
		return !strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case "starts_with":
		return strings.HasPrefix(strings.ToLower(actual), strings.ToLower(expected))
	default:
		return false
	}
}

func parseFloats(a, b string) (float64, float64, bool) {
	fa, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, false
	}

	fb, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, false
	}

	return fa, fb, true
}

func toStr(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case []string:
		return strings.Join(val, ",")
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = toStr(item)
		}

		return strings.Join(parts, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}
