package sched

// event is one scheduled point or span. Nodes are allocated by producers and
// linked through next while they sit in the inbox.
type event[H any] struct {
	at      int64
	start   int64
	end     int64
	seq     uint64
	span    bool
	started bool
	h       H
	next    *event[H]
}

// eventQueue orders events by time, then by scheduling order.
type eventQueue[H any] []*event[H]

func (q eventQueue[H]) Len() int { return len(q) }

func (q eventQueue[H]) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue[H]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue[H]) Push(x any) { *q = append(*q, x.(*event[H])) }

func (q *eventQueue[H]) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}
