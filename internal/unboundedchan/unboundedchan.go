// Package unboundedchan provides a FIFO queue entered and drained via
// channels, whose sends never block for long no matter how slow the reader.
package unboundedchan

// Queue is an unbounded FIFO queue. Beware! You almost certainly want T to
// be a small value type; use pointers for large objects.
type Queue[T any] struct {
	in  chan T
	out chan T
}

// New creates a Queue and starts the goroutine that moves its items.
func New[T any]() *Queue[T] {
	q := &Queue[T]{in: make(chan T), out: make(chan T)}
	go q.run()
	return q
}

func (q *Queue[T]) run() {
	var pending []T
	in := q.in
	for in != nil || len(pending) > 0 {
		// out stays nil (never ready) while there is nothing to send.
		var out chan T
		var next T
		if len(pending) > 0 {
			out = q.out
			next = pending[0]
		}
		select {
		case v, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending = append(pending, v)
		case out <- next:
			var zero T
			pending[0] = zero
			pending = pending[1:]
		}
	}
	close(q.out)
}

// In returns the channel for entering items. Close it when done; the items
// already queued are still delivered, then Out is closed.
func (q *Queue[T]) In() chan<- T {
	return q.in
}

// Out returns the channel for receiving items in the order they were entered.
func (q *Queue[T]) Out() <-chan T {
	return q.out
}
