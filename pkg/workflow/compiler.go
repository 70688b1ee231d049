package workflow

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/robfig/cron/v3"
)

const (
	ErrMsgNoTriggers = "Workflow has no trigger nodes"
	ErrMsgNoPath     = "No complete trigger → destination path found"
)

// Result holds every compiled path and every problem found. Callers decide
// whether errors block a deployment.
type Result struct {
	Paths  []models.CompiledPath `json:"paths"`
	Errors []string              `json:"errors"`
}

func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

type Compiler struct {
	logger *slog.Logger
}

func NewCompiler(logger *slog.Logger) *Compiler {
	return &Compiler{logger: logger.With("module", "workflow-compiler")}
}

// compilation is the state of one Compile call.
type compilation struct {
	nodes    map[string]*models.Node
	outgoing map[string][]*models.Edge
	reported map[string]bool
	result   *Result
}

func (c *compilation) errorf(format string, args ...any) {
	c.result.Errors = append(c.result.Errors, fmt.Sprintf(format, args...))
}

// errorOnce reports a problem tied to a node a single time, however many
// paths reach it.
func (c *compilation) errorOnce(nodeID, format string, args ...any) {
	if c.reported[nodeID] {
		return
	}

	c.reported[nodeID] = true
	c.errorf(format, args...)
}

// Compile walks every trigger depth first and emits one path per reachable
// destination. It never fails: problems are collected in Result.Errors.
func (c *Compiler) Compile(graph *models.Graph) *Result {
	comp := &compilation{
		nodes:    make(map[string]*models.Node),
		outgoing: make(map[string][]*models.Edge),
		reported: make(map[string]bool),
		result:   &Result{Paths: []models.CompiledPath{}, Errors: []string{}},
	}

	var triggers []*models.Node

	for _, node := range graph.Nodes {
		if node == nil {
			continue
		}

		if _, dup := comp.nodes[node.ID]; dup {
			comp.errorf("Node id %q is used more than once", node.ID)

			continue
		}

		comp.nodes[node.ID] = node
		if node.ResolvedCategory() == models.NodeCategoryTrigger {
			triggers = append(triggers, node)
		}
	}

	if len(triggers) == 0 {
		comp.errorf(ErrMsgNoTriggers)
	}

	comp.indexEdges(graph.Edges)

	for _, node := range graph.Nodes {
		if node != nil && !comp.connected(node.ID) {
			comp.errorf("Node %q (%s) is not connected", node.DisplayName(), node.ID)
		}
	}

	for _, trigger := range triggers {
		c.compileTrigger(comp, trigger)
	}

	if len(comp.result.Paths) == 0 && len(comp.result.Errors) == 0 {
		comp.errorf(ErrMsgNoPath)
	}

	c.logger.Debug("Compiled workflow graph",
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"paths", len(comp.result.Paths),
		"errors", len(comp.result.Errors))

	return comp.result
}

func (c *compilation) indexEdges(edges []*models.Edge) {
	seen := make(map[string]bool)

	for _, edge := range edges {
		if edge == nil {
			continue
		}

		if _, ok := c.nodes[edge.Source]; !ok {
			c.errorf("Edge %s → %s references unknown node %q", edge.Source, edge.Target, edge.Source)

			continue
		}

		if _, ok := c.nodes[edge.Target]; !ok {
			c.errorf("Edge %s → %s references unknown node %q", edge.Source, edge.Target, edge.Target)

			continue
		}

		key := edge.Source + "\x00" + edge.Target + "\x00" + edge.SourceHandle
		if seen[key] {
			continue
		}

		seen[key] = true
		c.outgoing[edge.Source] = append(c.outgoing[edge.Source], edge)
	}
}

func (c *compilation) connected(nodeID string) bool {
	if len(c.outgoing[nodeID]) > 0 {
		return true
	}

	for _, edges := range c.outgoing {
		for _, edge := range edges {
			if edge.Target == nodeID {
				return true
			}
		}
	}

	return false
}

func (c *Compiler) compileTrigger(comp *compilation, trigger *models.Node) {
	eventType, ok := EventTypeForTrigger(trigger.Type)
	if !ok {
		comp.errorf("Trigger %q (%s) has unknown type %s", trigger.DisplayName(), trigger.ID, trigger.Type)

		return
	}

	if IsPendingEventType(eventType) {
		comp.errorf("Trigger %q (%s) type %s is not supported yet", trigger.DisplayName(), trigger.ID, eventType)

		return
	}

	base := normalizeTriggerConfig(trigger.Config)

	if eventType == models.EventTypeSchedule {
		if err := ValidateSchedule(base); err != nil {
			comp.errorf("Trigger %q (%s) %v", trigger.DisplayName(), trigger.ID, err)
		}
	}

	walk := &walker{
		comp:      comp,
		trigger:   trigger,
		eventType: eventType,
		base:      base,
		onPath:    map[string]bool{trigger.ID: true},
	}
	walk.visit(trigger.ID, map[string]any{}, true)
}

type walker struct {
	comp      *compilation
	trigger   *models.Node
	eventType string
	base      map[string]any
	onPath    map[string]bool
}

// visit follows the edges leaving nodeID. onPath is marked and unmarked around
// each descent so diamonds yield one path per route while cycles stop. Below an
// invalid condition the walk goes on to report errors but emits nothing.
func (w *walker) visit(nodeID string, conditions map[string]any, valid bool) {
	for _, edge := range w.comp.outgoing[nodeID] {
		target := w.comp.nodes[edge.Target]
		if w.onPath[target.ID] {
			continue
		}

		next := conditions
		nextValid := valid

		switch target.ResolvedCategory() {
		case models.NodeCategoryTrigger:
			continue
		case models.NodeCategoryCondition:
			key, value, err := conditionEntry(target)
			if err != nil {
				w.comp.errorOnce(target.ID, "Condition %q (%s) %v", target.DisplayName(), target.ID, err)
				nextValid = false
			} else {
				next = maps.Clone(conditions)
				next[key] = value
			}
		case models.NodeCategoryDestination:
			destType, ok := DestinationTypeFor(target.Type)
			if !ok {
				w.comp.errorOnce(target.ID, "Destination %q (%s) has unknown type %s", target.DisplayName(), target.ID, target.Type)

				continue
			}

			if valid {
				w.emit(target, destType, conditions)
			}
		default:
			w.comp.errorOnce(target.ID, "Node %q (%s) has unknown type %s", target.DisplayName(), target.ID, target.Type)

			continue
		}

		w.onPath[target.ID] = true
		w.visit(target.ID, next, nextValid)
		delete(w.onPath, target.ID)
	}
}

func (w *walker) emit(dest *models.Node, destType string, conditions map[string]any) {
	merged := maps.Clone(w.base)
	maps.Copy(merged, conditions)

	config := maps.Clone(dest.Config)
	if config == nil {
		config = map[string]any{}
	}

	w.comp.result.Paths = append(w.comp.result.Paths, models.CompiledPath{
		TriggerNodeID:     w.trigger.ID,
		EventType:         w.eventType,
		Conditions:        merged,
		DestinationNodeID: dest.ID,
		DestinationType:   destType,
		DestinationConfig: config,
	})
}

// conditionEntry turns a {field, operator, value} node into one DSL entry.
func conditionEntry(node *models.Node) (string, any, error) {
	field, _ := node.Config["field"].(string)
	field = strings.TrimSpace(field)

	if field == "" {
		return "", nil, errors.New("needs a field")
	}

	operator, _ := node.Config["operator"].(string)
	operator = strings.TrimSpace(operator)

	if !matcher.IsOperator(operator) {
		return "", nil, fmt.Errorf("has unsupported operator %q", operator)
	}

	return field + "_" + operator, node.Config["value"], nil
}

// ValidateSchedule checks the cron expression and timezone of a schedule trigger config.
func ValidateSchedule(config map[string]any) error {
	spec, _ := config["cron"].(string)
	if strings.TrimSpace(spec) == "" {
		return errors.New("needs a cron expression")
	}

	tz, _ := config["timezone"].(string)
	tz = matcher.ScheduleTimezone(tz)

	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("has invalid timezone %q", tz)
	}

	if _, err := cron.ParseStandard(CronSpec(spec, tz)); err != nil {
		return fmt.Errorf("has invalid cron expression %q: %w", spec, err)
	}

	return nil
}

// CronSpec prefixes a standard cron expression with its timezone.
func CronSpec(spec, tz string) string {
	return "CRON_TZ=" + matcher.ScheduleTimezone(tz) + " " + strings.TrimSpace(spec)
}
