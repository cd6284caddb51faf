package tactile

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestDirectExecutor_Success(t *testing.T) {
	requireShell(t)
	e := NewDirectExecutor()
	res, err := e.Execute(context.Background(), Command{
		Binary:      "sh",
		Arguments:   []string{"-c", `printf "out:$FOO"; printf err >&2`},
		Environment: []string{"FOO=bar"},
	})
	require.NoError(t, err)
	assert.True(t, res.Ok())
	assert.Equal(t, "out:bar", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
	assert.Equal(t, "out:bar\nerr", res.Combined)
}

func TestDirectExecutor_NonZeroExit(t *testing.T) {
	requireShell(t)
	res, err := NewDirectExecutor().Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "exit 3"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.False(t, res.Ok())
	assert.Equal(t, 3, res.ExitCode)
}

func TestDirectExecutor_Timeout(t *testing.T) {
	requireShell(t)
	res, err := NewDirectExecutor().Execute(context.Background(), Command{
		Binary:    "sh",
		Arguments: []string{"-c", "exec sleep 5"},
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.Contains(t, res.KillReason, "timeout")
	assert.False(t, res.Ok())
}

func TestDirectExecutor_MissingBinary(t *testing.T) {
	res, err := NewDirectExecutor().Execute(context.Background(), Command{Binary: "definitely-not-a-real-binary-xyz"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	_, err = NewDirectExecutor().Execute(context.Background(), Command{})
	assert.Error(t, err)
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 5}
	n, err := lw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = lw.Write([]byte("defgh"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, _ = lw.Write([]byte("ij"))
	assert.Equal(t, 2, n)

	assert.Equal(t, "abcde", buf.String())
	assert.True(t, lw.truncated)
	assert.Equal(t, int64(5), lw.discarded)
}

func TestCommandString(t *testing.T) {
	c := Command{Binary: "adb", Arguments: []string{"shell", "am", "start", "-a", "my action", ""}}
	assert.Equal(t, `adb shell am start -a 'my action' ''`, c.CommandString())
}
