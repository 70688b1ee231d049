package matcher

import "strings"

// normalizeAddress returns the canonical form: lower-case hex without 0x.
func normalizeAddress(addr string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
}

func sameAddress(a, b string) bool {
	na := normalizeAddress(a)

	return na != "" && na == normalizeAddress(b)
}

func containsAddress(candidates []string, addr string) bool {
	for _, c := range candidates {
		if sameAddress(c, addr) {
			return true
		}
	}

	return false
}

// splitQualified splits a Cadence identifier A.<address>.<Name>. Bare
// addresses come back unqualified.
func splitQualified(id string) (addr, name string, qualified bool) {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, "A.") {
		return id, "", false
	}

	parts := strings.SplitN(id, ".", 3)
	if len(parts) == 2 {
		return parts[1], "", true
	}

	return parts[1], parts[2], true
}

// matchContractIdentity compares a condition value (bare address or
// A.<address>.<Name>) with an event's contract address and name. The event
// address may itself be qualified, in which case its embedded name wins.
func matchContractIdentity(cond, eventAddress, eventName string) bool {
	if sameAddress(cond, eventAddress) {
		return true
	}

	evAddr, evName, evQualified := splitQualified(eventAddress)
	if !evQualified || evName == "" {
		evName = eventName
	}

	condAddr, condName, condQualified := splitQualified(cond)
	if !sameAddress(condAddr, evAddr) {
		return false
	}

	if !condQualified || condName == "" {
		return true
	}

	return strings.EqualFold(condName, evName)
}

type direction string

const (
	directionIn   direction = "in"
	directionOut  direction = "out"
	directionBoth direction = "both"
)

func parseDirection(raw string) direction {
	switch direction(strings.ToLower(strings.TrimSpace(raw))) {
	case directionIn:
		return directionIn
	case directionOut:
		return directionOut
	default:
		return directionBoth
	}
}

// matchDirection reports whether any candidate address sits on the side of the
// transfer selected by dir.
func matchDirection(candidates []string, dir direction, from, to string) bool {
	for _, addr := range candidates {
		switch dir {
		case directionIn:
			if sameAddress(addr, to) {
				return true
			}
		case directionOut:
			if sameAddress(addr, from) {
				return true
			}
		case directionBoth:
			if sameAddress(addr, from) || sameAddress(addr, to) {
				return true
			}
		}
	}

	return false
}
