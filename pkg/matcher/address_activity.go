package matcher

import (
	"encoding/json"
	"strings"

	"github.com/dukex/flowhook/pkg/models"
)

// Transaction signer roles.
const (
	RoleProposer   = "PROPOSER"
	RolePayer      = "PAYER"
	RoleAuthorizer = "AUTHORIZER"
)

type addressActivityConditions struct {
	Addresses flexStringSlice `json:"addresses"`
	Roles     flexStringSlice `json:"roles"`
}

// AddressActivityMatcher matches transactions signed by an address in one of
// the selected roles. No roles means any role.
type AddressActivityMatcher struct{}

func (m *AddressActivityMatcher) EventType() string { return models.EventTypeAddressActivity }

func (m *AddressActivityMatcher) Match(data models.Payload, conditions json.RawMessage) models.MatchResult {
	tx, ok := data.(*models.Transaction)
	if !ok || tx == nil {
		return models.MatchResult{}
	}

	var cond addressActivityConditions
	if !decodeConditions(conditions, &cond) {
		return models.MatchResult{}
	}

	if len(cond.Addresses) > 0 && !matchRoles(tx, cond.Addresses, cond.Roles) {
		return models.MatchResult{}
	}

	return models.MatchResult{
		Matched: true,
		EventData: map[string]any{
			"tx_id":        tx.ID,
			"block_height": tx.BlockHeight,
			"proposer":     tx.ProposerAddress,
			"payer":        tx.PayerAddress,
			"authorizers":  strings.Join(tx.Authorizers, ","),
		},
	}
}

func matchRoles(tx *models.Transaction, addresses, roles []string) bool {
	allRoles := len(roles) == 0
	wants := func(role string) bool { return allRoles || containsFold(roles, role) }

	for _, addr := range addresses {
		if wants(RoleProposer) && sameAddress(addr, tx.ProposerAddress) {
			return true
		}

		if wants(RolePayer) && sameAddress(addr, tx.PayerAddress) {
			return true
		}

		if wants(RoleAuthorizer) && containsAddress(tx.Authorizers, addr) {
			return true
		}
	}

	return false
}
