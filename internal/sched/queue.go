// Package sched provides the deferred task queue used to split message
// handling into two phases: RPC-carried data first, dependent state second.
package sched

// Queue holds tasks deferred until the current event has been handled. It is
// owned by the event loop and is not safe for concurrent use.
type Queue struct {
	tasks []func()
}

// Defer schedules fn to run on the next Flush.
func (q *Queue) Defer(fn func()) {
	q.tasks = append(q.tasks, fn)
}

// Len returns the number of waiting tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Flush runs waiting tasks in FIFO order, including tasks deferred by the
// tasks it runs. It returns the number of tasks run.
func (q *Queue) Flush() int {
	ran := 0
	for len(q.tasks) > 0 {
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		fn()
		ran++
	}
	q.tasks = nil
	return ran
}
