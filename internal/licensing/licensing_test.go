package licensing

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/camvault/internal/appdb"
	"github.com/jmylchreest/camvault/internal/config"
)

func newTestDB(t *testing.T) *appdb.DB {
	t.Helper()
	db, err := appdb.Open(config.DatabaseConfig{
		Path:            ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		LogLevel:        "silent",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestService_CheckState_DefaultsTrial(t *testing.T) {
	svc := New(newTestDB(t))
	state, err := svc.CheckState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusTrial, state.Status)
	assert.Empty(t, state.Key)
}

func TestService_ActivateAndDeactivate(t *testing.T) {
	svc := New(newTestDB(t))
	ctx := context.Background()

	state, err := svc.Activate(ctx, "KEY-1234")
	require.NoError(t, err)
	assert.Equal(t, StatusLicensed, state.Status)
	assert.Equal(t, "KEY-1234", state.Key)

	state, err = svc.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusLicensed, state.Status)

	require.NoError(t, svc.Deactivate(ctx))
	state, err = svc.CheckState(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusTrial, state.Status)
}

func TestService_Activate_RequiresKey(t *testing.T) {
	svc := New(newTestDB(t))
	_, err := svc.Activate(context.Background(), "")
	assert.Error(t, err)
}

func TestService_IsAllowed_AlwaysTrue(t *testing.T) {
	svc := New(newTestDB(t))
	assert.True(t, svc.IsAllowed(context.Background(), "anything"))
	assert.True(t, svc.IsAllowed(context.Background(), ""))
}

func TestDiagnostics_EnabledToggle(t *testing.T) {
	diag := NewDiagnostics(newTestDB(t), "")
	ctx := context.Background()

	enabled, err := diag.Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, diag.SetEnabled(ctx, true))
	enabled, err = diag.Enabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestDiagnostics_ExportLogs_MissingDirectoryIsNotError(t *testing.T) {
	diag := NewDiagnostics(newTestDB(t), filepath.Join(t.TempDir(), "nope"))
	count, err := diag.ExportLogs(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDiagnostics_ExportLogs_CopiesLogFiles(t *testing.T) {
	logDir := t.TempDir()
	targetDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(logDir, "app.log"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logDir, "notes.txt"), []byte("skip"), 0o644))

	diag := NewDiagnostics(newTestDB(t), logDir)
	count, err := diag.ExportLogs(targetDir)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	data, err := os.ReadFile(filepath.Join(targetDir, "app.log"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(filepath.Join(targetDir, "notes.txt"))
	assert.True(t, os.IsNotExist(err))
}
