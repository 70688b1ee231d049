package matcher

import (
	"encoding/json"
	"maps"
	"strings"

	"github.com/dukex/flowhook/pkg/models"
)

type balanceCheckConditions struct {
	Addresses flexStringSlice `json:"addresses"`
}

// BalanceCheckMatcher matches balance snapshots published by the balance
// monitor. It only filters on the snapshot's address.
type BalanceCheckMatcher struct{}

func (m *BalanceCheckMatcher) EventType() string { return models.EventTypeBalanceCheck }

func (m *BalanceCheckMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	payload, ok := data.(models.ScalarPayload)
	if !ok {
		return models.MatchResult{}
	}

	var cond balanceCheckConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if len(cond.Addresses) > 0 && !containsAddress(cond.Addresses, toStr(payload["address"])) {
		return models.MatchResult{}
	}

	return models.MatchResult{Matched: true, EventData: maps.Clone(map[string]any(payload))}
}

// DefaultTimezone applies to schedules that do not name one.
const DefaultTimezone = "UTC"

type scheduleConditions struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

// ScheduleMatcher routes a scheduler tick to the subscriptions declaring the
// same cron expression and timezone.
type ScheduleMatcher struct{}

func (m *ScheduleMatcher) EventType() string { return models.EventTypeSchedule }

func (m *ScheduleMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	payload, ok := data.(models.ScalarPayload)
	if !ok {
		return models.MatchResult{}
	}

	var cond scheduleConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if cond.Cron != "" && strings.TrimSpace(cond.Cron) != strings.TrimSpace(toStr(payload["cron"])) {
		return models.MatchResult{}
	}

	if cond.Cron != "" && ScheduleTimezone(cond.Timezone) != ScheduleTimezone(toStr(payload["timezone"])) {
		return models.MatchResult{}
	}

	return models.MatchResult{Matched: true, EventData: maps.Clone(map[string]any(payload))}
}

// ScheduleTimezone returns tz, or DefaultTimezone when tz is blank.
func ScheduleTimezone(tz string) string {
	if tz = strings.TrimSpace(tz); tz != "" {
		return tz
	}

	return DefaultTimezone
}

// BalanceAddresses returns the normalized addresses a balance.check
// subscription watches. Conditions that do not parse yield none.
func BalanceAddresses(conditions json.RawMessage) []string {
	var cond balanceCheckConditions
	if !decodeConditions(conditions, &cond) {
		return nil
	}

	out := make([]string, 0, len(cond.Addresses))
	for _, addr := range cond.Addresses {
		if n := normalizeAddress(addr); n != "" {
			out = append(out, n)
		}
	}

	return out
}

// ScheduleOf extracts the cron expression and resolved timezone of a schedule
// subscription. ok is false when no cron expression is present.
func ScheduleOf(conditions json.RawMessage) (spec, tz string, ok bool) {
	var cond scheduleConditions
	if !decodeConditions(conditions, &cond) || strings.TrimSpace(cond.Cron) == "" {
		return "", "", false
	}

	return strings.TrimSpace(cond.Cron), ScheduleTimezone(cond.Timezone), true
}
