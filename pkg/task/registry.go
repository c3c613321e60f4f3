package task

import (
	"fmt"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Func is a task body. The argument arrives through the channel codec, so
// an untyped arg carries codec semantics (JSON numbers decode as float64
// with the default codec). The returned value travels back the same way.
type Func func(arg any) (any, error)

var registry = cmap.New[Func]()

// Register makes fn spawnable under name. Parent and child run the same
// binary, so registration in an init function (or early in main, before
// Main) makes the function resolvable on both sides of the spawn.
//
// Panics on an empty name, a nil function, or a duplicate registration;
// these are programmer errors.
func Register(name string, fn Func) {
	if name == "" {
		panic("task: register with empty name")
	}
	if fn == nil {
		panic(fmt.Sprintf("task: register %q with nil function", name))
	}
	if !registry.SetIfAbsent(name, fn) {
		panic(fmt.Sprintf("task: %q registered twice", name))
	}
}

func lookup(name string) (Func, bool) {
	return registry.Get(name)
}
