package stream

import "context"

// Task is the handle of a spawned watchdog loop.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed when the loop has fully exited, including session
// teardown.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
