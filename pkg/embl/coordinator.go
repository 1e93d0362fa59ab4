package embl

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jhh130910/EMBLmyGFF3/pkg/workpool"
)

// Task is one independent unit of rendering work
type Task struct {
	Name   string
	Render func() ([]string, error)
}

// Coordinator runs a fixed list of tasks, inline or on a pool, and stores
// each result in the slot matching the task's position. Slots are written
// once by their own task and read only after every task has finished.
type Coordinator struct {
	slots     [][]string
	total     int64
	completed atomic.Int64
	failure   atomic.Pointer[RenderTaskError]
	done      chan struct{}
	logger    *slog.Logger
}

// RunTasks starts tasks and returns immediately when pool is non-nil. With
// a nil pool every task runs synchronously before RunTasks returns.
func RunTasks(tasks []Task, pool *workpool.Pool, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		slots:  make([][]string, len(tasks)),
		total:  int64(len(tasks)),
		done:   make(chan struct{}),
		logger: logger,
	}
	if len(tasks) == 0 {
		close(c.done)
		return c
	}

	// Run inline without a pool, otherwise hand each task to a worker
	for i, t := range tasks {
		if pool == nil {
			c.run(i, t)
			continue
		}
		if err := pool.Submit(func() { c.run(i, t) }); err != nil {
			// Pool closed, count the task as failed
			c.finish(i, t.Name, nil, err)
		}
	}
	return c
}

// run executes one task and records its outcome. A panic is converted into
// the task's error.
func (c *Coordinator) run(i int, t Task) {
	var (
		lines []string
		err   error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		lines, err = t.Render()
	}()
	c.finish(i, t.Name, lines, err)
}

func (c *Coordinator) finish(i int, name string, lines []string, err error) {
	c.slots[i] = lines

	// First error wins
	if err != nil {
		te := &RenderTaskError{Task: name, Index: i, Err: err}
		if !c.failure.CompareAndSwap(nil, te) {
			c.logger.Warn("discarding later render failure", "task", name, "index", i, "error", err)
		} else {
			c.logger.Debug("render task failed", "task", name, "index", i, "error", err)
		}
	}
	if c.completed.Add(1) == c.total {
		close(c.done)
	}
}

// Progress returns the completed fraction in [0, 1]. It never blocks.
// A coordinator without tasks reports 1.
func (c *Coordinator) Progress() float64 {
	if c.total == 0 {
		return 1.0
	}
	return float64(c.completed.Load()) / float64(c.total)
}

// Done is closed once every task has finished, successfully or not
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Err returns the first task failure, or nil. A progress of 1 does not
// imply success.
func (c *Coordinator) Err() error {
	if te := c.failure.Load(); te != nil {
		return te
	}
	return nil
}

// Wait blocks until all tasks finish or ctx ends. Tasks still running when
// ctx ends are abandoned, not stopped.
func (c *Coordinator) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results waits for every task and returns the slots in task order. On
// failure it returns the first error and no slots.
func (c *Coordinator) Results(ctx context.Context) ([][]string, error) {
	if err := c.Wait(ctx); err != nil {
		return nil, err
	}
	return c.slots, nil
}

// Partial returns slot i once all tasks have finished. Slots of failed
// tasks are nil. It is meant for diagnostics after a failure.
func (c *Coordinator) Partial(i int) ([]string, bool) {
	select {
	case <-c.done:
	default:
		return nil, false
	}
	if i < 0 || i >= len(c.slots) {
		return nil, false
	}
	return c.slots[i], true
}

// Len returns the number of tasks
func (c *Coordinator) Len() int {
	return len(c.slots)
}
