package scheduler

import (
	"context"
	"testing"

	"github.com/jmylchreest/camvault/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCancelRegistry_RegisterAndCancel(t *testing.T) {
	reg := NewCancelRegistry()
	jobID := models.NewULID()

	cancelled := false
	_, cancel := context.WithCancel(context.Background())
	release := reg.Register(jobID, func() { cancelled = true; cancel() })

	assert.True(t, reg.IsRunning(jobID))
	assert.True(t, reg.Cancel(jobID))
	assert.True(t, cancelled)

	release()
	assert.False(t, reg.IsRunning(jobID))
}

func TestCancelRegistry_CancelUnknownJobReturnsFalse(t *testing.T) {
	reg := NewCancelRegistry()
	assert.False(t, reg.Cancel(models.NewULID()))
}

func TestCancelRegistry_ReleaseRemovesEntry(t *testing.T) {
	reg := NewCancelRegistry()
	jobID := models.NewULID()

	release := reg.Register(jobID, func() {})
	require := assert.New(t)
	require.True(reg.IsRunning(jobID))

	release()
	require.False(reg.IsRunning(jobID))
	require.False(reg.Cancel(jobID))
}
