package loop

import "errors"

// ErrQueueClosed is reported for commands submitted after Queue.Shutdown.
var ErrQueueClosed = errors.New("command queue closed")
