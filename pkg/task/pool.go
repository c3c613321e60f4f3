package task

import (
	"errors"
	"fmt"
	"sync"

	queuepkg "github.com/Workiva/go-datastructures/queue"
	"github.com/panjf2000/ants/v2"
)

// Pool runs process tasks with bounded parallelism. Each submitted call
// still gets its own child process; the pool only caps how many children
// run at once, typically at the machine's core count.
type Pool struct {
	workers *ants.Pool
}

// NewPool creates a pool that keeps at most size children running.
func NewPool(size int) (*Pool, error) {
	w, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("task: create pool: %w", err)
	}
	return &Pool{workers: w}, nil
}

// Release shuts the pool down. In-flight tasks finish first.
func (p *Pool) Release() {
	p.workers.Release()
}

type completion struct {
	index int
	value any
	err   error
}

// Map runs the registered function name once per argument, at most the
// pool's size children at a time, and returns the results in argument
// order. Individual task failures are collected into the returned error;
// the corresponding result slots stay nil.
func (p *Pool) Map(name string, args []any, opts ...Option) ([]any, error) {
	if _, ok := lookup(name); !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	done := queuepkg.New(int64(len(args)))
	var wg sync.WaitGroup
	for i, arg := range args {
		i, arg := i, arg
		wg.Add(1)
		if err := p.workers.Submit(func() {
			defer wg.Done()
			value, err := runOnce(name, arg, opts...)
			_ = done.Put(completion{index: i, value: value, err: err})
		}); err != nil {
			wg.Done()
			_ = done.Put(completion{index: i, err: fmt.Errorf("task: submit: %w", err)})
		}
	}
	wg.Wait()

	results := make([]any, len(args))
	var errs []error
	for range args {
		items, err := done.Get(1)
		if err != nil || len(items) == 0 {
			break
		}
		c := items[0].(completion)
		if c.err != nil {
			errs = append(errs, fmt.Errorf("arg %d: %w", c.index, c.err))
			continue
		}
		results[c.index] = c.value
	}
	return results, errors.Join(errs...)
}

// runOnce drives one task through its full lifecycle.
func runOnce(name string, arg any, opts ...Option) (any, error) {
	t, err := New(name, arg, opts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = t.Close() }()

	if err := t.Start(); err != nil {
		return nil, err
	}
	if err := t.Join(); err != nil {
		return nil, err
	}
	if code := t.ExitStatus(); code == StatusSignaled {
		return nil, fmt.Errorf("task: child died abnormally")
	}
	return t.Result()
}
