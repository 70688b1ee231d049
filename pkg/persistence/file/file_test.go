package file

import (
	"path/filepath"
	"testing"

	"github.com/dukex/flowhook/pkg/models"
	"github.com/dukex/flowhook/pkg/persistence"
	"github.com/dukex/flowhook/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.Persistence {
		return NewPersistence(t.TempDir())
	})
}

func TestPersistence_HealthCheck_MissingRoot(t *testing.T) {
	fp := NewPersistence(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, fp.HealthCheck(t.Context()))
}

func TestPersistence_WorkflowFileLayout(t *testing.T) {
	root := t.TempDir()
	fp := NewPersistence(root)

	require.NoError(t, fp.Workflows().Save(t.Context(), &models.Workflow{ID: "wf-1", UserID: "u", Name: "abc"}))
	assert.FileExists(t, filepath.Join(root, "workflows", "wf-1.json"))
}

func TestPersistence_IDsCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	fp := NewPersistence(root)

	require.NoError(t, fp.Endpoints().Save(t.Context(), &models.Endpoint{ID: "../../evil", EndpointType: "webhook"}))
	assert.FileExists(t, filepath.Join(root, "endpoints", "evil.json"))
}

func TestPersistence_ListEmptyStore(t *testing.T) {
	fp := NewPersistence(t.TempDir())

	workflows, err := fp.Workflows().List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, workflows)

	subs, err := fp.Subscriptions().ListEnabled(t.Context())
	require.NoError(t, err)
	assert.Empty(t, subs)
}
