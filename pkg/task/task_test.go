package task

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/parproc/shmtask/pkg/channel"
)

// TestMain doubles as the child entry point: spawned children re-execute
// this test binary, and Main routes them into their task function before
// any test runs.
func TestMain(m *testing.M) {
	Main()
	os.Exit(m.Run())
}

func init() {
	Register("double", func(arg any) (any, error) {
		x, ok := arg.(float64)
		if !ok {
			return nil, fmt.Errorf("want a number, got %T", arg)
		}
		return x * 2, nil
	})
	Register("fail", func(arg any) (any, error) {
		return nil, errors.New("deliberate failure")
	})
	Register("napper", func(arg any) (any, error) {
		ms, _ := arg.(float64)
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return "rested", nil
	})
	Register("panics", func(arg any) (any, error) {
		panic("unhandled in callable")
	})
	Register("echo", func(arg any) (any, error) {
		return arg, nil
	})
}

// smallBuffers keeps test children cheap: two channels per task means two
// regions per direction pair, and the 2 GiB default reservation is
// unnecessary here.
func smallBuffers() Option {
	return WithChannelOptions(channel.WithBufferSize(1 << 20))
}

func TestResultFidelity(t *testing.T) {
	tk, err := New("double", 21, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Join())

	v, err := tk.Result()
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
	assert.Equal(t, 0, tk.ExitStatus())
}

func TestCallableFailureComesBackDistinct(t *testing.T) {
	tk, err := New("fail", nil, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Join(), "a failing callable must not break the join")

	v, rerr := tk.Result()
	assert.Nil(t, v)
	var remote *RemoteError
	require.ErrorAs(t, rerr, &remote)
	assert.Contains(t, remote.Msg, "deliberate failure")
	assert.Equal(t, exitCallableErr, tk.ExitStatus())
}

func TestCallablePanicIsCaught(t *testing.T) {
	tk, err := New("panics", nil, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Join())

	_, rerr := tk.Result()
	var remote *RemoteError
	require.ErrorAs(t, rerr, &remote)
	assert.Contains(t, remote.Msg, "panic")
}

func TestStatusSequencing(t *testing.T) {
	tk, err := New("napper", 300, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	assert.Equal(t, StatusNotStarted, tk.ExitStatus())
	assert.False(t, tk.IsAlive())

	require.NoError(t, tk.Start())
	assert.Equal(t, StatusRunning, tk.ExitStatus())
	assert.True(t, tk.IsAlive())

	require.NoError(t, tk.Join())
	assert.Equal(t, 0, tk.ExitStatus())
	assert.False(t, tk.IsAlive())

	v, err := tk.Result()
	require.NoError(t, err)
	assert.Equal(t, "rested", v)
}

func TestKilledChildReportsAbnormalExit(t *testing.T) {
	tk, err := New("napper", 10_000, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	require.NoError(t, unix.Kill(tk.Pid(), unix.SIGKILL))
	require.NoError(t, tk.Join())

	assert.Equal(t, StatusSignaled, tk.ExitStatus())
	v, rerr := tk.Result()
	assert.Nil(t, v, "no value can be drained from a killed child")
	assert.NoError(t, rerr)
}

func TestTryJoinNeverBlocksWhileRunning(t *testing.T) {
	tk, err := New("napper", 400, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())

	deadline := time.Now().Add(200 * time.Millisecond)
	polls := 0
	for time.Now().Before(deadline) {
		done, err := tk.TryJoin()
		require.NoError(t, err)
		assert.False(t, done)
		assert.True(t, tk.IsAlive(), "state unchanged until the child actually exits")
		polls++
		time.Sleep(10 * time.Millisecond)
	}
	assert.Greater(t, polls, 5)

	require.NoError(t, tk.Join())
	done, err := tk.TryJoin()
	require.NoError(t, err)
	assert.True(t, done, "try_join after completion is a no-op success")
}

func TestTryJoinPicksUpExit(t *testing.T) {
	tk, err := New("double", 4, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	joined, err := tk.WaitFor(5 * time.Second)
	require.NoError(t, err)
	require.True(t, joined)

	v, rerr := tk.Result()
	require.NoError(t, rerr)
	assert.Equal(t, float64(8), v)
}

func TestJoinBeforeStart(t *testing.T) {
	tk, err := New("double", 1, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	assert.ErrorIs(t, tk.Join(), ErrNotStarted)
	_, err = tk.TryJoin()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestDoubleStart(t *testing.T) {
	tk, err := New("double", 1, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	assert.ErrorIs(t, tk.Start(), ErrAlreadyStarted)
	require.NoError(t, tk.Join())
}

func TestNewUnknownFunction(t *testing.T) {
	_, err := New("no-such-function", nil)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestCloseKillsUnjoinedChild(t *testing.T) {
	tk, err := New("napper", 10_000, smallBuffers())
	require.NoError(t, err)

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Close())

	// Close reaped the killed child and recorded its end.
	assert.False(t, tk.IsAlive())
	assert.Equal(t, StatusSignaled, tk.ExitStatus())
}

func TestResultEchoTypes(t *testing.T) {
	arg := map[string]any{"name": "fish", "count": float64(3)}
	tk, err := New("echo", arg, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	require.NoError(t, tk.Start())
	require.NoError(t, tk.Join())

	v, rerr := tk.Result()
	require.NoError(t, rerr)
	assert.Equal(t, arg, v)
}

func TestStatWhileRunning(t *testing.T) {
	tk, err := New("napper", 500, smallBuffers())
	require.NoError(t, err)
	defer func() { _ = tk.Close() }()

	_, err = tk.Stat()
	assert.ErrorIs(t, err, ErrNotAlive)

	require.NoError(t, tk.Start())
	st, err := tk.Stat()
	require.NoError(t, err)
	assert.NotNil(t, st)

	require.NoError(t, tk.Join())
	_, err = tk.Stat()
	assert.ErrorIs(t, err, ErrNotAlive)
}
