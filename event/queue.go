package event

// Queue is a FIFO of messages. It is not safe for concurrent use; a
// backtest run owns its queues.
type Queue[T any] struct {
	items []T
	head  int
}

func (q *Queue[T]) Push(v T) {
	q.items = append(q.items, v)
}

// Pop removes the oldest message. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	if q.head >= len(q.items) {
		return v, false
	}
	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return v, true
}

func (q *Queue[T]) Len() int { return len(q.items) - q.head }

// OrderSink receives orders emitted by the portfolio.
type OrderSink interface {
	Push(Order)
}

// OrderSinkFunc adapts a function to an OrderSink.
type OrderSinkFunc func(Order)

func (f OrderSinkFunc) Push(o Order) { f(o) }
