package temporalx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	cfg := LoadConfig()
	assert.False(t, cfg.Enabled())
	assert.Equal(t, "tagledger", cfg.Namespace)
	assert.Equal(t, "tagledger", cfg.TaskQueue)

	t.Setenv("TEMPORAL_ADDRESS", "localhost:7233")
	assert.True(t, LoadConfig().Enabled())
}

func TestClampBackoff(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, ClampBackoff(0, time.Second, 1))
	assert.Equal(t, 400*time.Millisecond, ClampBackoff(100*time.Millisecond, time.Second, 3))
	assert.Equal(t, time.Second, ClampBackoff(100*time.Millisecond, time.Second, 10))
}
