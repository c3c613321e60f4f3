// Package shmtask is the public surface of the module: process-level
// parallelism built on shared-memory channels.
//
// The two layers can be used together or separately. pkg/channel is the
// point-to-point IPC primitive (shared-memory payloads, socket control
// path, cross-process reference counting); pkg/task runs registered
// functions in child processes over a pair of those channels. This package
// re-exports the common entry points so most programs only import one path.
//
//	func init() { shmtask.Register("work", work) }
//
//	func main() {
//		shmtask.Main() // child processes never return from here
//
//		t, _ := shmtask.NewTask("work", 42)
//		_ = t.Start()
//		_ = t.Join()
//		v, err := t.Result()
//		...
//	}
package shmtask

import (
	"github.com/parproc/shmtask/pkg/channel"
	"github.com/parproc/shmtask/pkg/shm"
	"github.com/parproc/shmtask/pkg/task"
)

// Re-exported types.
type (
	// Channel is one endpoint of an inter-process link.
	Channel = channel.Channel
	// Codec translates objects to bytes for object-level sends.
	Codec = channel.Codec
	// Buffer is an exclusively-owned byte range returned by receives.
	Buffer = shm.Buffer
	// Task runs one registered function in a child process.
	Task = task.Task
	// Pool runs tasks with bounded parallelism.
	Pool = task.Pool
	// Func is a registrable task body.
	Func = task.Func
)

// NewChannelPair creates a connected pair of channel endpoints backed by
// one shared memory region.
func NewChannelPair(opts ...channel.Option) (*Channel, *Channel, error) {
	return channel.NewPair(opts...)
}

// Register makes fn spawnable under name. Call from init so parent and
// child agree on the registry.
func Register(name string, fn Func) {
	task.Register(name, fn)
}

// Main is the child-side entry point; call it at the top of main. In a
// spawned child it runs the requested function and exits; elsewhere it
// returns immediately.
func Main() {
	task.Main()
}

// NewTask builds a task that will run the registered function name with
// arg in a child process.
func NewTask(name string, arg any, opts ...task.Option) (*Task, error) {
	return task.New(name, arg, opts...)
}

// NewPool creates a pool that keeps at most size child processes running.
func NewPool(size int) (*Pool, error) {
	return task.NewPool(size)
}
