package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
)

// CompileError is returned when a workflow with compile errors is deployed.
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	return "workflow does not compile: " + strings.Join(e.Errors, "; ")
}

// CacheInvalidator is told when the set of subscriptions changed.
type CacheInvalidator interface {
	Invalidate()
}

// Deployment summarizes what a deploy produced.
type Deployment struct {
	WorkflowID    string                 `json:"workflow_id"`
	Paths         []models.CompiledPath  `json:"paths"`
	Endpoints     []*models.Endpoint     `json:"endpoints"`
	Subscriptions []*models.Subscription `json:"subscriptions"`
	DeployedAt    time.Time              `json:"deployed_at"`
}

// Deployer compiles workflows and replaces their materialized subscriptions.
type Deployer struct {
	persistence persistence.Persistence
	compiler    *Compiler
	cache       CacheInvalidator
	logger      *slog.Logger
}

func NewDeployer(p persistence.Persistence, compiler *Compiler, cache CacheInvalidator, logger *slog.Logger) *Deployer {
	return &Deployer{
		persistence: p,
		compiler:    compiler,
		cache:       cache,
		logger:      logger.With("module", "workflow-deployer"),
	}
}

func (d *Deployer) Deploy(ctx context.Context, workflowID string) (*Deployment, error) {
	wf, err := d.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow for deploy: %w", err)
	}

	result := d.compiler.Compile(wf.Graph())
	if result.HasErrors() {
		return nil, &CompileError{Errors: result.Errors}
	}

	now := time.Now().UTC()

	records, err := Materialize(wf.ID, wf.UserID, result.Paths, now)
	if err != nil {
		return nil, err
	}

	previous, err := d.snapshot(ctx, wf.ID)
	if err != nil {
		return nil, err
	}

	if err := d.clear(ctx, wf.ID); err != nil {
		return nil, err
	}

	if err := d.save(ctx, records); err != nil {
		if restoreErr := d.restore(ctx, wf.ID, previous); restoreErr != nil {
			d.logger.Error("Failed to restore previous deployment", "workflow_id", wf.ID, "error", restoreErr)
			err = errors.Join(err, restoreErr)
		}

		d.invalidate()

		return nil, err
	}

	wf.IsActive = true
	wf.DeployedAt = &now
	wf.UpdatedAt = now

	if err := d.persistence.Workflows().Save(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to mark workflow deployed: %w", err)
	}

	d.invalidate()

	d.logger.Info("Deployed workflow",
		"workflow_id", wf.ID,
		"paths", len(result.Paths),
		"endpoints", len(records.Endpoints))

	return &Deployment{
		WorkflowID:    wf.ID,
		Paths:         result.Paths,
		Endpoints:     records.Endpoints,
		Subscriptions: records.Subscriptions,
		DeployedAt:    now,
	}, nil
}

// Undeploy removes the workflow's subscriptions and endpoints and marks it inactive.
func (d *Deployer) Undeploy(ctx context.Context, workflowID string) error {
	wf, err := d.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to get workflow for undeploy: %w", err)
	}

	if err := d.clear(ctx, wf.ID); err != nil {
		return err
	}

	wf.IsActive = false
	wf.DeployedAt = nil
	wf.UpdatedAt = time.Now().UTC()

	if err := d.persistence.Workflows().Save(ctx, wf); err != nil {
		return fmt.Errorf("failed to mark workflow inactive: %w", err)
	}

	d.invalidate()

	return nil
}

func (d *Deployer) save(ctx context.Context, records *Materialized) error {
	for _, endpoint := range records.Endpoints {
		if err := d.persistence.Endpoints().Save(ctx, endpoint); err != nil {
			return fmt.Errorf("failed to save endpoint: %w", err)
		}
	}

	for _, sub := range records.Subscriptions {
		if err := d.persistence.Subscriptions().Save(ctx, sub); err != nil {
			return fmt.Errorf("failed to save subscription: %w", err)
		}
	}

	return nil
}

// snapshot loads the records currently deployed for workflowID so a failed
// redeploy can put them back.
func (d *Deployer) snapshot(ctx context.Context, workflowID string) (*Materialized, error) {
	subs, err := d.persistence.Subscriptions().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list previous subscriptions: %w", err)
	}

	previous := &Materialized{Subscriptions: subs}
	seen := make(map[string]bool, len(subs))

	for _, sub := range subs {
		if seen[sub.EndpointID] {
			continue
		}

		seen[sub.EndpointID] = true

		endpoint, err := d.persistence.Endpoints().GetByID(ctx, sub.EndpointID)
		if err != nil {
			if persistence.IsNotFound(err) {
				continue
			}

			return nil, fmt.Errorf("failed to get previous endpoint: %w", err)
		}

		previous.Endpoints = append(previous.Endpoints, endpoint)
	}

	return previous, nil
}

// restore drops whatever a failed deploy managed to write and saves previous.
func (d *Deployer) restore(ctx context.Context, workflowID string, previous *Materialized) error {
	if err := d.clear(ctx, workflowID); err != nil {
		return err
	}

	return d.save(ctx, previous)
}

func (d *Deployer) clear(ctx context.Context, workflowID string) error {
	if err := d.persistence.Subscriptions().DeleteByWorkflow(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to remove previous subscriptions: %w", err)
	}

	if err := d.persistence.Endpoints().DeleteByWorkflow(ctx, workflowID); err != nil {
		return fmt.Errorf("failed to remove previous endpoints: %w", err)
	}

	return nil
}

func (d *Deployer) invalidate() {
	if d.cache != nil {
		d.cache.Invalidate()
	}
}
