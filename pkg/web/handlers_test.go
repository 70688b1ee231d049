package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/flowhook/pkg/matcher"
	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/pathtest"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/persistence/file"
	"github.com/dukex/flowhook/pkg/testutil"
	"github.com/dukex/flowhook/pkg/web"
	"github.com/dukex/flowhook/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCanvas = `{
  "nodes": [
    {"id": "t1", "type": "trigger_ft_transfer", "data": {"label": "Big moves", "config": {"min_amount": "1000"}}},
    {"id": "d1", "type": "dest_slack", "data": {"config": {"webhook_url": "https://hooks.slack.com/services/X"}}}
  ],
  "edges": [{"id": "e1", "source": "t1", "target": "d1"}]
}`

func setupTestApp(t *testing.T) (*fiber.App, persistence.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	compiler := workflow.NewCompiler(slog.Default())
	deployer := workflow.NewDeployer(p, compiler, nil, slog.Default())
	handlers := web.NewAPIHandlers(
		p,
		deployer,
		compiler,
		matcher.NewDefaultRegistry(),
		validator.New(validator.WithRequiredStructEnabled()),
		slog.Default(),
	)

	app := fiber.New()
	handlers.RegisterRoutes(app)

	return app, p
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func createWorkflow(t *testing.T, p persistence.Persistence, overrides ...func(*models.Workflow)) *models.Workflow {
	t.Helper()

	wf, err := workflow.NewRepository(p).Create(context.Background(), testutil.CreateTestWorkflow(overrides...))
	require.NoError(t, err)

	return wf
}

func TestAPIHandlers_GetEventTypes(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/event-types", nil)
	require.Equal(t, http.StatusOK, status)

	var resp web.EventTypesResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Contains(t, resp.EventTypes, models.EventTypeFTTransfer)
	assert.Contains(t, resp.EventTypes, models.EventTypeSchedule)
	assert.NotContains(t, resp.EventTypes, models.EventTypeBlockSealed)
	assert.Contains(t, resp.TriggerNodeTypes, "trigger_ft_transfer")
}

func TestAPIHandlers_CompileCanvas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name:           "compiles a single path",
			body:           testCanvas,
			expectedStatus: http.StatusOK,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var result workflow.Result
				require.NoError(t, json.Unmarshal(body, &result))
				assert.Empty(t, result.Errors)
				require.Len(t, result.Paths, 1)
				assert.Equal(t, models.EventTypeFTTransfer, result.Paths[0].EventType)
				assert.Equal(t, "slack", result.Paths[0].DestinationType)
				assert.InDelta(t, 1000, result.Paths[0].Conditions["min_amount"], 0)
			},
		},
		{
			name:           "reports compile errors with 200",
			body:           `{"nodes": [{"id": "d1", "type": "dest_webhook"}], "edges": []}`,
			expectedStatus: http.StatusOK,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var result workflow.Result
				require.NoError(t, json.Unmarshal(body, &result))
				assert.Contains(t, result.Errors, workflow.ErrMsgNoTriggers)
			},
		},
		{
			name:           "rejects a malformed canvas",
			body:           `{"nodes": [{"type": "dest_webhook"}]}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "rejects invalid JSON",
			body:           `not json`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			status, body := doRequest(t, app, http.MethodPost, "/workflows/compile", tt.body)
			assert.Equal(t, tt.expectedStatus, status)

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedDetail string
	}{
		{
			name: "successful creation",
			requestBody: web.CreateWorkflowRequest{
				UserID: "user-1",
				Name:   "Whale alerts",
				Nodes:  testutil.CreateTestWorkflow().Nodes,
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "validation error - missing name",
			requestBody:    web.CreateWorkflowRequest{UserID: "user-1"},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Name",
		},
		{
			name:           "validation error - name too short",
			requestBody:    web.CreateWorkflowRequest{UserID: "user-1", Name: "Wh"},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Name",
		},
		{
			name:           "validation error - missing user",
			requestBody:    web.CreateWorkflowRequest{Name: "Whale alerts"},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "UserID",
		},
		{
			name: "validation error - node without id",
			requestBody: web.CreateWorkflowRequest{
				UserID: "user-1",
				Name:   "Whale alerts",
				Nodes:  []*models.Node{{Type: "dest_webhook"}},
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "ID",
		},
		{
			name:           "invalid JSON",
			requestBody:    "invalid-json",
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Invalid JSON format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := setupTestApp(t)

			status, body := doRequest(t, app, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, status)

			if status == http.StatusCreated {
				var wf models.Workflow
				require.NoError(t, json.Unmarshal(body, &wf))
				assert.NotEmpty(t, wf.ID)
				assert.Equal(t, "Whale alerts", wf.Name)
				assert.False(t, wf.IsActive)
				assert.Len(t, wf.Nodes, 2)
				assert.Empty(t, wf.Edges)

				return
			}

			var problem map[string]any
			require.NoError(t, json.Unmarshal(body, &problem))
			assert.Equal(t, "validation_error", problem["type"])
			assert.Contains(t, problem["detail"], tt.expectedDetail)
		})
	}
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	wf := createWorkflow(t, p)

	status, body := doRequest(t, app, http.MethodGet, "/workflows/"+wf.ID, nil)
	require.Equal(t, http.StatusOK, status)

	var got models.Workflow
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, wf.ID, got.ID)
	assert.Len(t, got.Nodes, 2)

	status, body = doRequest(t, app, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "workflow_not_found")
}

func TestAPIHandlers_GetWorkflows(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	createWorkflow(t, p)
	createWorkflow(t, p, func(w *models.Workflow) { w.UserID = "user-2" })

	status, body := doRequest(t, app, http.MethodGet, "/workflows?user_id=user-2", nil)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int                `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 1, resp.TotalCount)
	assert.Equal(t, "user-2", resp.Workflows[0].UserID)
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	wf := createWorkflow(t, p)

	status, body := doRequest(t, app, http.MethodPut, "/workflows/"+wf.ID, web.UpdateWorkflowRequest{
		Name:  "Renamed workflow",
		Nodes: wf.Nodes[:1],
	})
	require.Equal(t, http.StatusOK, status)

	var got models.Workflow
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Renamed workflow", got.Name)
	assert.Len(t, got.Nodes, 1)
	assert.Empty(t, got.Edges)
	assert.Equal(t, "user-1", got.UserID)

	status, _ = doRequest(t, app, http.MethodPut, "/workflows/missing", web.UpdateWorkflowRequest{Name: "Renamed workflow"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_DeployWorkflow(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	wf := createWorkflow(t, p)

	status, body := doRequest(t, app, http.MethodPost, "/workflows/"+wf.ID+"/deploy", nil)
	require.Equal(t, http.StatusOK, status)

	var deployment workflow.Deployment
	require.NoError(t, json.Unmarshal(body, &deployment))
	assert.Equal(t, wf.ID, deployment.WorkflowID)
	require.Len(t, deployment.Subscriptions, 1)

	status, body = doRequest(t, app, http.MethodGet, "/subscriptions?event_type=ft.transfer", nil)
	require.Equal(t, http.StatusOK, status)

	var subs struct {
		Subscriptions []*models.Subscription `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(body, &subs))
	require.Len(t, subs.Subscriptions, 1)
	assert.Equal(t, wf.ID, subs.Subscriptions[0].WorkflowID)

	status, _ = doRequest(t, app, http.MethodPost, "/workflows/"+wf.ID+"/undeploy", nil)
	require.Equal(t, http.StatusNoContent, status)

	_, body = doRequest(t, app, http.MethodGet, "/subscriptions?workflow_id="+wf.ID, nil)
	require.NoError(t, json.Unmarshal(body, &subs))
	assert.Empty(t, subs.Subscriptions)
}

func TestAPIHandlers_DeployWorkflow_CompileErrors(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	wf := createWorkflow(t, p, func(w *models.Workflow) { w.Edges = nil })

	status, body := doRequest(t, app, http.MethodPost, "/workflows/"+wf.ID+"/deploy", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var problem struct {
		Type   string   `json:"type"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "compile_error", problem.Type)
	assert.NotEmpty(t, problem.Errors)

	status, _ = doRequest(t, app, http.MethodPost, "/workflows/missing/deploy", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_DeployWorkflow_PendingTrigger(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	wf := createWorkflow(t, p, func(w *models.Workflow) {
		w.Nodes[0].Type = "trigger_block_sealed"
		w.Nodes[0].Config = nil
	})

	status, body := doRequest(t, app, http.MethodPost, "/workflows/"+wf.ID+"/deploy", nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var problem struct {
		Status int      `json:"status"`
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	require.Len(t, problem.Errors, 1)
	assert.Contains(t, problem.Errors[0], "block.sealed is not supported yet")

	subs, err := p.Subscriptions().ListByWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestAPIHandlers_DeleteWorkflow(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	wf := createWorkflow(t, p)

	status, _ := doRequest(t, app, http.MethodPost, "/workflows/"+wf.ID+"/deploy", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+wf.ID, nil)
	require.Equal(t, http.StatusNoContent, status)

	subs, err := p.Subscriptions().ListByWorkflow(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	status, _ = doRequest(t, app, http.MethodGet, "/workflows/"+wf.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = doRequest(t, app, http.MethodDelete, "/workflows/"+wf.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_GetSubscriptions_UnsupportedEventType(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, _ := doRequest(t, app, http.MethodGet, "/subscriptions?event_type=ft.transfers", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doRequest(t, app, http.MethodGet, "/subscriptions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"subscriptions": []}`, string(body))
}

func TestAPIHandlers_GetDeliveries(t *testing.T) {
	t.Parallel()

	app, p := setupTestApp(t)
	ctx := context.Background()

	for _, code := range []int{200, 500, 200} {
		require.NoError(t, p.DeliveryLogs().Insert(ctx, &models.DeliveryLog{
			SubscriptionID: "sub-1",
			EventType:      models.EventTypeFTTransfer,
			Payload:        json.RawMessage(`{}`),
			StatusCode:     code,
		}))
	}

	status, body := doRequest(t, app, http.MethodGet, "/subscriptions/sub-1/deliveries?limit=2", nil)
	require.Equal(t, http.StatusOK, status)

	var resp struct {
		Deliveries []*models.DeliveryLog `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Deliveries, 2)

	status, _ = doRequest(t, app, http.MethodGet, "/subscriptions/sub-1/deliveries?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_TestPath(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodPost, "/test-path", web.TestPathRequest{
		EventType:  models.EventTypeFTTransfer,
		Conditions: json.RawMessage(`{"min_amount": 500, "amount_>=": "1000"}`),
		Overrides:  map[string]any{"amount": "2500.0"},
	})
	require.Equal(t, http.StatusOK, status)

	var result pathtest.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, pathtest.StatusPass, result.TriggerStatus)
	require.Len(t, result.Conditions, 1)
	assert.True(t, result.Conditions[0].Passed)

	status, _ = doRequest(t, app, http.MethodPost, "/test-path", web.TestPathRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app, _ := setupTestApp(t)

	status, body := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}
