package libctx

import (
	"testing"

	"github.com/jmylchreest/camvault/internal/camerror"
	"github.com/jmylchreest/camvault/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHandle_ClosedByDefault(t *testing.T) {
	h := New()
	assert.False(t, h.IsOpen())

	_, err := h.Current()
	assert.True(t, camerror.Is(err, camerror.KindLibraryNotFound))
}

func TestHandle_OpenThenClose(t *testing.T) {
	h := New()
	lib := &models.Library{Name: "test"}

	h.Open(lib)
	assert.True(t, h.IsOpen())

	current, err := h.Current()
	assert.NoError(t, err)
	assert.Same(t, lib, current)

	h.Close()
	assert.False(t, h.IsOpen())
}
