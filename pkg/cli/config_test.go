package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand_RedactsPassword(t *testing.T) {
	isolateEnv(t)
	t.Setenv("RABBITMQ_USER", "collector")
	t.Setenv("RABBITMQ_PASS", "hunter2")

	out, err := execute(t, NewRootCommand(), "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[broker]")
	assert.Contains(t, out, `user = "collector"`)
	assert.Contains(t, out, `queue = "monitor_service_queue"`)
	assert.NotContains(t, out, "hunter2")

	out, err = execute(t, NewRootCommand(), "config", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"Password": "********"`)
	assert.NotContains(t, out, "hunter2")
}
