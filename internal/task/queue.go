package task

// priorityQueue holds queued tasks in one FIFO band per priority.
// It is not safe for concurrent use; the Manager guards it.
type priorityQueue struct {
	bands map[Priority][]*Task
	size  int
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{bands: make(map[Priority][]*Task, len(schedulingOrder))}
}

func (q *priorityQueue) Len() int {
	return q.size
}

func (q *priorityQueue) push(t *Task) {
	q.bands[t.priority] = append(q.bands[t.priority], t)
	q.size++
}

// takeReady removes tasks from the head of the queue, high band first and
// FIFO within a band, for as long as fits returns true. It stops at the first
// task that does not fit so nothing queued behind it can take the capacity it
// is waiting for.
func (q *priorityQueue) takeReady(fits func(*Task) bool) []*Task {
	var taken []*Task
	for _, p := range schedulingOrder {
		band := q.bands[p]
		n := 0
		for n < len(band) && fits(band[n]) {
			taken = append(taken, band[n])
			band[n] = nil
			n++
		}
		q.bands[p] = band[n:]
		q.size -= n
		if n < len(band) {
			break
		}
	}
	return taken
}

// drain removes and returns every queued task in scheduling order.
func (q *priorityQueue) drain() []*Task {
	return q.takeReady(func(*Task) bool { return true })
}
