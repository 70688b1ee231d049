// Package matcher decides whether a chain event satisfies a subscription's
// conditions. Each event type has one ConditionMatcher that understands the
// typed payload and the condition keys for that type.
package matcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dukex/flowhook/pkg/models"
)

var ErrDuplicateMatcher = errors.New("matcher already registered for event type")

// ConditionMatcher filters one event type. Match never fails: a payload of the
// wrong shape or conditions that do not parse yield Matched=false.
type ConditionMatcher interface {
	EventType() string
	Match(data models.Payload, conditions json.RawMessage) models.MatchResult
}

type Registry struct {
	mu       sync.RWMutex
	matchers map[string]ConditionMatcher
}

func NewRegistry() *Registry {
	return &Registry{matchers: make(map[string]ConditionMatcher)}
}

func (r *Registry) Register(m ConditionMatcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eventType := m.EventType()
	if _, exists := r.matchers[eventType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateMatcher, eventType)
	}

	r.matchers[eventType] = m

	return nil
}

// Get returns the matcher for eventType, or nil.
func (r *Registry) Get(eventType string) ConditionMatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.matchers[eventType]
}

// EventTypes returns the registered event types in lexical order.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.matchers))
	for t := range r.matchers {
		types = append(types, t)
	}

	sort.Strings(types)

	return types
}

// RegisterAll registers the built-in matchers.
func RegisterAll(r *Registry) error {
	builtins := []ConditionMatcher{
		&FTTransferMatcher{},
		&LargeTransferMatcher{},
		&NFTTransferMatcher{},
		&AddressActivityMatcher{},
		&ContractEventMatcher{},
		&StakingEventMatcher{},
		&DefiSwapMatcher{},
		&DefiLiquidityMatcher{},
		&AccountKeyChangeMatcher{},
		&EVMTransactionMatcher{},
		&BalanceCheckMatcher{},
		&ScheduleMatcher{},
	}

	for _, m := range builtins {
		if err := r.Register(m); err != nil {
			return err
		}
	}

	return nil
}

// NewDefaultRegistry returns a registry with every built-in matcher.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterAll(r); err != nil {
		panic(err)
	}

	return r
}

// Evaluate runs the typed filter of m and then the generic field conditions
// found in the same blob against the resulting EventData.
func Evaluate(m ConditionMatcher, data models.Payload, conditions json.RawMessage) models.MatchResult {
	result := m.Match(data, conditions)
	if !result.Matched {
		return result
	}

	generic, ok := decodeConditionMap(conditions)
	if !ok || !EvaluateConditions(generic, result.EventData) {
		return models.MatchResult{}
	}

	return result
}

// decodeConditions unmarshals a conditions blob into dst. An empty blob leaves
// dst untouched.
func decodeConditions(conditions json.RawMessage, dst any) bool {
	if len(conditions) == 0 {
		return true
	}

	return json.Unmarshal(conditions, dst) == nil
}

func decodeConditionMap(conditions json.RawMessage) (map[string]any, bool) {
	var m map[string]any
	if !decodeConditions(conditions, &m) {
		return nil, false
	}

	return m, true
}
