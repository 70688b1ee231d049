// Package web provides the HTTP handlers of the workflow and subscription API.
package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/pathtest"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const defaultDeliveryLimit = 50

type APIHandlers struct {
	repository  *workflow.Repository
	deployer    *workflow.Deployer
	compiler    *workflow.Compiler
	persistence persistence.Persistence
	registry    *matcher.Registry
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	deployer *workflow.Deployer,
	compiler *workflow.Compiler,
	registry *matcher.Registry,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		repository:  workflow.NewRepository(p),
		deployer:    deployer,
		compiler:    compiler,
		persistence: p,
		registry:    registry,
		validator:   validator,
		logger:      logger.With("module", "api"),
	}
}

func (h *APIHandlers) GetEventTypes(c fiber.Ctx) error {
	return c.JSON(EventTypesResponse{
		EventTypes:       h.registry.EventTypes(),
		TriggerNodeTypes: workflow.TriggerNodeTypes(),
	})
}

// CompileCanvas compiles an editor document without saving it.
func (h *APIHandlers) CompileCanvas(c fiber.Ctx) error {
	graph, err := workflow.ParseCanvas(c.Body())
	if err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(h.compiler.Compile(graph))
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repository.FetchAll(c.Context(), c.Query("user_id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.repository.Create(c.Context(), &models.Workflow{
		UserID: req.UserID,
		Name:   req.Name,
		Nodes:  orEmptyNodes(req.Nodes),
		Edges:  orEmptyEdges(req.Edges),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	existing.Name = req.Name
	existing.Nodes = orEmptyNodes(req.Nodes)
	existing.Edges = orEmptyEdges(req.Edges)

	updated, err := h.repository.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

// DeleteWorkflow undeploys the workflow before deleting it.
func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.deployer.Undeploy(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	if err := h.repository.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeployWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	deployment, err := h.deployer.Deploy(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(deployment)
}

func (h *APIHandlers) UndeployWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.deployer.Undeploy(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetSubscriptions lists subscriptions filtered by workflow_id or
// event_type, or every enabled subscription when neither is given.
func (h *APIHandlers) GetSubscriptions(c fiber.Ctx) error {
	var (
		subs []*models.Subscription
		err  error
	)

	repo := h.persistence.Subscriptions()

	switch {
	case c.Query("workflow_id") != "":
		subs, err = repo.ListByWorkflow(c.Context(), c.Query("workflow_id"))
	case c.Query("event_type") != "":
		eventType := c.Query("event_type")
		if !models.IsSupportedEventType(eventType) {
			return badRequest(c, "Unsupported event type: "+eventType)
		}

		subs, err = repo.ListByEventType(c.Context(), eventType)
	default:
		subs, err = repo.ListEnabled(c.Context())
	}

	if err != nil {
		return internalError(c, err)
	}

	if subs == nil {
		subs = []*models.Subscription{}
	}

	return c.JSON(fiber.Map{"subscriptions": subs})
}

func (h *APIHandlers) GetDeliveries(c fiber.Ctx) error {
	limit := defaultDeliveryLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return badRequest(c, "limit must be a positive integer")
		}

		limit = parsed
	}

	logs, err := h.persistence.DeliveryLogs().ListBySubscription(c.Context(), c.Params("id"), limit)
	if err != nil {
		return internalError(c, err)
	}

	if logs == nil {
		logs = []*models.DeliveryLog{}
	}

	return c.JSON(fiber.Map{"deliveries": logs})
}

func (h *APIHandlers) TestPath(c fiber.Ctx) error {
	var req TestPathRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(pathtest.Run(h.registry, req.EventType, req.Conditions, req.Overrides))
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.repository.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowhook API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Flowhook API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"matchers":   len(h.registry.EventTypes()),
		},
		"timestamp": time.Now().UTC(),
	})
}

func orEmptyNodes(nodes []*models.Node) []*models.Node {
	if nodes == nil {
		return []*models.Node{}
	}

	return nodes
}

func orEmptyEdges(edges []*models.Edge) []*models.Edge {
	if edges == nil {
		return []*models.Edge{}
	}

	return edges
}
