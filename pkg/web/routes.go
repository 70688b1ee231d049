package web

import "github.com/gofiber/fiber/v3"

// RegisterRoutes mounts every API route on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/event-types", h.GetEventTypes)
	router.Post("/test-path", h.TestPath)

	w := router.Group("/workflows")
	w.Post("/compile", h.CompileCanvas)
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Put("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/deploy", h.DeployWorkflow)
	w.Post("/:id/undeploy", h.UndeployWorkflow)

	s := router.Group("/subscriptions")
	s.Get("/", h.GetSubscriptions)
	s.Get("/:id/deliveries", h.GetDeliveries)

	router.Get("/health", h.HealthCheck)
}
