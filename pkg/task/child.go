package task

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/parproc/shmtask/internal/logging"
	"github.com/parproc/shmtask/pkg/channel"
)

// childEnv marks a process as a spawned task child. Its value is the task
// name, which is informational only; the authoritative call arrives over
// the channel.
const childEnv = "SHMTASK_CHILD"

// Inherited descriptor slots, fixed by the ExtraFiles order in Start.
const (
	fdCallSock = 3 + iota // parent -> child: call
	fdCallMem
	fdResultSock // child -> parent: result envelope
	fdResultMem
)

// Child exit codes. Codes 0 and 1 promise that a result envelope was sent
// before exiting; higher codes mean the parent should not expect one.
const (
	exitOK          = 0
	exitCallableErr = 1
	exitNoResult    = 2
)

// call is the message shipped to the child right after spawn.
type call struct {
	Name string `json:"name"`
	Arg  any    `json:"arg"`
}

// envelope is the tagged result: a success value or a failure description,
// serialized uniformly so both travel the same transport.
type envelope struct {
	Value any    `json:"value"`
	Err   string `json:"err,omitempty"`
}

// Main is the child-side entry point. Host binaries call it at the top of
// main (or TestMain); in a spawned child it attaches the inherited
// channels, runs the requested function, ships the result envelope, and
// exits without returning. In any other process it returns immediately.
func Main() {
	if os.Getenv(childEnv) == "" {
		return
	}
	os.Exit(runChild())
}

func runChild() int {
	log := logging.Named("task.child")

	in, err := channel.Attach(
		os.NewFile(fdCallSock, "task-call-sock"),
		os.NewFile(fdCallMem, "task-call-mem"),
	)
	if err != nil {
		log.Error("attach call channel", zap.Error(err))
		return exitNoResult
	}
	defer func() { _ = in.Close() }()

	out, err := channel.Attach(
		os.NewFile(fdResultSock, "task-result-sock"),
		os.NewFile(fdResultMem, "task-result-mem"),
	)
	if err != nil {
		log.Error("attach result channel", zap.Error(err))
		return exitNoResult
	}
	defer func() { _ = out.Close() }()

	var c call
	if err := in.ReceiveObject(&c); err != nil {
		log.Error("receive call", zap.Error(err))
		return exitNoResult
	}

	fn, ok := lookup(c.Name)
	if !ok {
		// The parent checked its own registry, so a miss here means the
		// child binary registers a different set of functions.
		return reply(out, log, envelope{Err: fmt.Sprintf("function %q not registered in child", c.Name)}, exitCallableErr)
	}

	value, err := runCallable(fn, c.Arg)
	if err != nil {
		return reply(out, log, envelope{Err: err.Error()}, exitCallableErr)
	}
	return reply(out, log, envelope{Value: value}, exitOK)
}

// runCallable invokes fn, converting a panic into an ordinary failure so
// the parent still gets an envelope instead of a silent abnormal exit.
func runCallable(fn Func, arg any) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(arg)
}

func reply(out *channel.Channel, log *zap.Logger, env envelope, code int) int {
	if err := out.SendObject(env); err != nil {
		log.Error("send result envelope", zap.Error(err))
		return exitNoResult
	}
	return code
}
