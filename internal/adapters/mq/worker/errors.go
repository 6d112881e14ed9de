package worker

import "errors"

// ErrTaskPanicked wraps a panic raised while handling a task.
var ErrTaskPanicked = errors.New("task panicked")
