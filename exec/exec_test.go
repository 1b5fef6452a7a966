package exec

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunner_CapturesOutputAndExitCode(t *testing.T) {
	r := NewLocalRunner()

	res, err := r.Run(context.Background(), Config{
		Command: "sh",
		Args:    []string{"-c", "echo out; echo err >&2"},
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.False(t, res.TimedOut)
	assert.Positive(t, res.Duration)
}

func TestLocalRunner_NonZeroExitIsNotAnError(t *testing.T) {
	r := NewLocalRunner()

	res, err := r.Run(context.Background(), Config{
		Command: "sh",
		Args:    []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestLocalRunner_TimeoutSignaledOnResult(t *testing.T) {
	r := NewLocalRunner()

	res, err := r.Run(context.Background(), Config{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, res.Duration, 2*time.Second)
}

func TestLocalRunner_ParentDeadlineIsCancellationNotTimeout(t *testing.T) {
	r := NewLocalRunner()

	// The caller's own deadline expires while the per-operation timeout
	// still has headroom: that is an interruption, not a timed-out entry.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res, err := r.Run(ctx, Config{
		Command: "sleep",
		Args:    []string{"5"},
		Timeout: 10 * time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.TimedOut)
}

func TestLocalRunner_MissingBinaryIsAnError(t *testing.T) {
	r := NewLocalRunner()
	_, err := r.Run(context.Background(), Config{Command: "no-such-binary-xyz"})
	assert.Error(t, err)
}

func TestLocalRunner_EmptyCommand(t *testing.T) {
	r := NewLocalRunner()
	_, err := r.Run(context.Background(), Config{})
	assert.Error(t, err)
}

func TestSplitCommand(t *testing.T) {
	bin, args, err := SplitCommand("nmap -Pn -T4 example.com")
	require.NoError(t, err)
	assert.Equal(t, "nmap", bin)
	assert.Equal(t, []string{"-Pn", "-T4", "example.com"}, args)

	_, _, err = SplitCommand("   ")
	assert.Error(t, err)
}

func TestBinaryExists(t *testing.T) {
	assert.True(t, BinaryExists("sh"))
	assert.False(t, BinaryExists("no-such-binary-xyz"))

	path, err := BinaryPath("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	_, err = BinaryPath("no-such-binary-xyz")
	assert.Error(t, err)
}

func TestMaterialize_SingleTargetInlined(t *testing.T) {
	line, cleanup, err := Materialize(
		"dalfox url {{target}} --silence",
		"dalfox file {{targets_file}} --silence",
		[]string{"https://example.com/search?q=x"},
		t.TempDir())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "dalfox url https://example.com/search?q=x --silence", line)
}

func TestMaterialize_MultipleTargetsUseScratchFile(t *testing.T) {
	dir := t.TempDir()
	targets := []string{"https://example.com/a", "https://example.com/b"}

	line, cleanup, err := Materialize(
		"dalfox url {{target}} --silence",
		"dalfox file {{targets_file}} --silence",
		targets, dir)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(line, "dalfox file "))
	path := strings.Fields(line)[2]
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a\nhttps://example.com/b\n", string(data))

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "scratch file must be removed")
}

func TestMaterialize_Failures(t *testing.T) {
	_, _, err := Materialize("x {{target}}", "", nil, t.TempDir())
	assert.Error(t, err)

	_, _, err = Materialize("x {{target}}", "", []string{"a", "b"}, t.TempDir())
	assert.Error(t, err, "multiple targets need a file template")

	_, _, err = Materialize("x no-placeholder", "", []string{"a"}, t.TempDir())
	assert.Error(t, err)
}
