package task

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/parproc/shmtask/internal/logging"
	"github.com/parproc/shmtask/pkg/channel"
)

// Exit status sentinels reported by ExitStatus. Real child exit codes are
// never negative, so the sentinels cannot collide with them.
const (
	// StatusNotStarted: Start was never called.
	StatusNotStarted = -1
	// StatusRunning: started, termination not yet confirmed by a join.
	StatusRunning = -2
	// StatusSignaled: the child terminated abnormally, e.g. by signal.
	StatusSignaled = -3
)

// Option configures a task at construction.
type Option func(*taskOptions)

type taskOptions struct {
	chOpts []channel.Option
}

// WithChannelOptions forwards options to both underlying channel pairs,
// e.g. channel.WithBufferSize to shrink the per-direction reservation.
func WithChannelOptions(opts ...channel.Option) Option {
	return func(o *taskOptions) { o.chOpts = append(o.chOpts, opts...) }
}

// Task runs one registered function in a child process. The zero value is
// not usable; construct with New. A task is driven by a single logical
// caller.
type Task struct {
	mu sync.Mutex

	name string
	arg  any

	started bool
	joined  bool
	pid     int
	exit    int

	result    any
	remoteErr error

	// Parent-side endpoints of the duplex link.
	callCh   *channel.Channel
	resultCh *channel.Channel
	// Child-bound endpoints; handed to the child at spawn, closed in the
	// parent right after.
	callRemote   *channel.Channel
	resultRemote *channel.Channel

	log *zap.Logger
}

// New builds a task that will run the registered function name with arg.
// Both channel pairs, and with them all shared memory and sockets, are
// allocated eagerly, before any process duplication, so the spawned child
// can inherit them.
func New(name string, arg any, opts ...Option) (*Task, error) {
	if _, ok := lookup(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	var o taskOptions
	for _, opt := range opts {
		opt(&o)
	}

	callLocal, callRemote, err := channel.NewPair(o.chOpts...)
	if err != nil {
		return nil, fmt.Errorf("task: create call channel: %w", err)
	}
	resultLocal, resultRemote, err := channel.NewPair(o.chOpts...)
	if err != nil {
		_ = callLocal.Close()
		_ = callRemote.Close()
		return nil, fmt.Errorf("task: create result channel: %w", err)
	}

	return &Task{
		name:         name,
		arg:          arg,
		exit:         StatusNotStarted,
		callCh:       callLocal,
		resultCh:     resultLocal,
		callRemote:   callRemote,
		resultRemote: resultRemote,
		log:          logging.Named("task").With(zap.String("func", name)),
	}, nil
}

// Start spawns the child and ships it the call. Registration with the
// channel reference counter and process creation happen inside this one
// call, so callers cannot sequence them incorrectly.
//
// Start does not block on the child's execution; it returns once the call
// is on its way.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	// Register the forthcoming child as a holder of both child-bound
	// endpoints before it exists.
	if err := t.callRemote.Fork(); err != nil {
		return err
	}
	if err := t.resultRemote.Fork(); err != nil {
		_ = t.callRemote.ForkAbort()
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		t.forkAbort()
		return fmt.Errorf("task: resolve executable: %w", err)
	}

	callSock, callMem := t.callRemote.Files()
	resSock, resMem := t.resultRemote.Files()

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), childEnv+"="+t.name)
	cmd.ExtraFiles = []*os.File{callSock, callMem, resSock, resMem}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.forkAbort()
		return fmt.Errorf("task: spawn: %w", err)
	}

	t.callRemote.ForkComplete()
	t.resultRemote.ForkComplete()

	// The child holds its own copies now; the parent's handles on the
	// child-bound endpoints are done.
	_ = t.callRemote.Close()
	_ = t.resultRemote.Close()
	t.callRemote, t.resultRemote = nil, nil

	t.pid = cmd.Process.Pid
	t.started = true
	t.exit = StatusRunning
	t.log.Debug("child spawned", zap.Int("pid", t.pid))

	if err := t.callCh.SendObject(call{Name: t.name, Arg: t.arg}); err != nil {
		// The child exists; its exit will be picked up by Join. Report
		// the send failure, which usually means the child died at birth.
		return fmt.Errorf("task: send call: %w", err)
	}
	return nil
}

func (t *Task) forkAbort() {
	_ = t.callRemote.ForkAbort()
	_ = t.resultRemote.ForkAbort()
}

// Join blocks until the child terminates, records its exit status, and
// drains the result envelope. It is idempotent once the child has been
// reaped. Fails with ErrNotStarted if Start was never called.
func (t *Task) Join() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return ErrNotStarted
	}
	if t.joined {
		return nil
	}

	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(t.pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("task: wait4 pid %d: %w", t.pid, err)
		}
		break
	}
	t.finish(ws)
	return nil
}

// TryJoin polls for child termination without blocking. While the child is
// still running it reports false and changes no state; once the child has
// exited it performs the same post-wait steps as Join and reports true.
func (t *Task) TryJoin() (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return false, ErrNotStarted
	}
	if t.joined {
		return true, nil
	}

	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(t.pid, &ws, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("task: wait4 pid %d: %w", t.pid, err)
		}
		if pid == 0 {
			return false, nil
		}
		break
	}
	t.finish(ws)
	return true, nil
}

// finish records the reaped status and drains the result. Caller holds mu.
func (t *Task) finish(ws unix.WaitStatus) {
	t.joined = true

	switch {
	case ws.Exited():
		t.exit = ws.ExitStatus()
	case ws.Signaled():
		t.exit = StatusSignaled
		t.log.Warn("child terminated by signal", zap.Int("pid", t.pid), zap.String("signal", ws.Signal().String()))
	default:
		t.exit = StatusSignaled
	}

	// Exit codes 0 and 1 guarantee an envelope is waiting; anything else
	// means the child could not send one and draining would block.
	if t.exit == exitOK || t.exit == exitCallableErr {
		var env envelope
		if err := t.resultCh.ReceiveObject(&env); err != nil {
			t.remoteErr = fmt.Errorf("task: drain result: %w", err)
			return
		}
		if env.Err != "" {
			t.remoteErr = &RemoteError{Msg: env.Err}
			return
		}
		t.result = env.Value
	}
}

// IsAlive reports whether the task has been started and its termination has
// not yet been confirmed by Join or TryJoin.
func (t *Task) IsAlive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && !t.joined
}

// ExitStatus returns StatusNotStarted before Start, StatusRunning while
// termination is unconfirmed, StatusSignaled for an abnormal death, and
// otherwise the child's real exit code.
func (t *Task) ExitStatus() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return StatusNotStarted
	}
	if !t.joined {
		return StatusRunning
	}
	return t.exit
}

// Result returns the value drained by Join or TryJoin. The error side
// carries the child's callable failure, distinguishable from any normal
// result. Meaningful only after a join has confirmed termination.
func (t *Task) Result() (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.remoteErr
}

// Pid returns the child process id, or 0 before Start.
func (t *Task) Pid() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pid
}

// Close releases the task's channels. An unjoined live child is a resource
// leak, so Close polices it: the child is killed and reaped first. Joined
// or never-started tasks close cleanly.
func (t *Task) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started && !t.joined {
		t.log.Warn("closing unjoined task, killing child", zap.Int("pid", t.pid))
		_ = unix.Kill(t.pid, unix.SIGKILL)
		var ws unix.WaitStatus
		for {
			_, err := unix.Wait4(t.pid, &ws, 0, nil)
			if err == unix.EINTR {
				continue
			}
			break
		}
		t.finish(ws)
	}

	err := t.closeChannel(&t.callCh)
	if cerr := t.closeChannel(&t.resultCh); err == nil {
		err = cerr
	}
	if t.callRemote != nil {
		_ = t.closeChannel(&t.callRemote)
		_ = t.closeChannel(&t.resultRemote)
	}
	return err
}

func (t *Task) closeChannel(ch **channel.Channel) error {
	if *ch == nil {
		return nil
	}
	err := (*ch).Close()
	*ch = nil
	return err
}
