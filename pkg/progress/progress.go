// Package progress carries an optional progress reporter through a context.
//
// Fetch code reports progress unconditionally. Whether anything is drawn
// depends only on the reporter the caller put into the context: a terminal
// gets a Bar, pipes and tests get Nop.
package progress

import "context"

// Task is a handle for one unit of tracked work.
type Task int

// NoTask is returned when no reporter is active. Advancing it does nothing.
const NoTask Task = -1

// Reporter tracks progress of concurrent work.
type Reporter interface {
	// AddTask registers work of total units of which completed are done.
	AddTask(description string, total, completed int) Task

	// Advance marks n more units of task as done.
	Advance(task Task, n int)

	// Close tears down all tasks.
	Close()
}

// Nop is the reporter used when none is in the context.
var Nop Reporter = nop{}

type nop struct{}

func (nop) AddTask(string, int, int) Task { return NoTask }
func (nop) Advance(Task, int)             {}
func (nop) Close()                        {}

type ctxKey struct{}

// WithReporter returns a context carrying r.
func WithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// From returns the reporter in ctx, or Nop.
func From(ctx context.Context) Reporter {
	if r, ok := ctx.Value(ctxKey{}).(Reporter); ok && r != nil {
		return r
	}
	return Nop
}

// AddTask registers a task with the reporter in ctx.
func AddTask(ctx context.Context, description string, total, completed int) Task {
	return From(ctx).AddTask(description, total, completed)
}

// Advance advances task on the reporter in ctx.
func Advance(ctx context.Context, task Task, n int) {
	if task == NoTask {
		return
	}
	From(ctx).Advance(task, n)
}
