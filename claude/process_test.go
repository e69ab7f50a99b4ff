package claude

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCLIArgs_Default(t *testing.T) {
	opts := Options{}.withDefaults()
	pm := newProcessManager("claude", opts)

	expected := []string{
		"--model", DefaultModel,
		"--output-format", "stream-json",
		"--print",
	}
	assert.Equal(t, expected, pm.BuildCLIArgs())
}

func TestBuildCLIArgs_WithResume(t *testing.T) {
	opts := Options{Resume: "sess-42"}.withDefaults()
	pm := newProcessManager("claude", opts)
	args := pm.BuildCLIArgs()

	assert.Equal(t, []string{"--resume", "sess-42"}, args[:2])
	assert.Contains(t, args, "--print")
}

func TestBuildCLIArgs_WithModel(t *testing.T) {
	opts := Options{Model: "claude-opus-4"}.withDefaults()
	pm := newProcessManager("claude", opts)
	args := pm.BuildCLIArgs()

	assert.Contains(t, args, "--model")
	assert.Contains(t, args, "claude-opus-4")
	assert.NotContains(t, args, "--resume")
}

// catCLI ignores the CLI flags and reflects stdin to stdout.
func catCLI(t *testing.T) string {
	return fakeCLI(t, "exec cat\n")
}

func TestProcessManager_EchoRoundTrip(t *testing.T) {
	pm := newProcessManager(catCLI(t), Options{}.withDefaults())
	require.NoError(t, pm.Start(context.Background()))
	defer pm.Stop()

	require.NoError(t, pm.WriteLine([]byte(`{"hello":"world"}`)))

	line, err := pm.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"world"}`, string(line))
	assert.True(t, pm.Healthy())
}

func TestProcessManager_StartMissingBinary(t *testing.T) {
	pm := newProcessManager("definitely-not-a-real-binary-xyz", Options{}.withDefaults())
	err := pm.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "claude")
}

func TestProcessManager_StopIsIdempotent(t *testing.T) {
	pm := newProcessManager(catCLI(t), Options{}.withDefaults())
	require.NoError(t, pm.Start(context.Background()))

	require.NoError(t, pm.Stop())
	require.NoError(t, pm.Stop())
	assert.False(t, pm.Healthy())
}

func TestProcessManager_StopWithoutStart(t *testing.T) {
	pm := newProcessManager(catCLI(t), Options{}.withDefaults())
	assert.NoError(t, pm.Stop())
}

func TestProcessManager_WriteAfterStop(t *testing.T) {
	pm := newProcessManager(catCLI(t), Options{}.withDefaults())
	require.NoError(t, pm.Start(context.Background()))
	require.NoError(t, pm.Stop())

	// Give the wait goroutine a moment to observe the exit.
	time.Sleep(50 * time.Millisecond)
	assert.Error(t, pm.WriteLine([]byte("late")))
}
