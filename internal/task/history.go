package task

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// history retains terminal task records so outcomes can be polled after the
// task has left the live structures.
type history struct {
	records *expirable.LRU[string, TaskInfo]
}

func newHistory(size int, ttl time.Duration) *history {
	return &history{records: expirable.NewLRU[string, TaskInfo](size, nil, ttl)}
}

func (h *history) add(info TaskInfo) {
	h.records.Add(info.ID, info)
}

func (h *history) get(id string) (TaskInfo, bool) {
	return h.records.Get(id)
}

func (h *history) len() int {
	return h.records.Len()
}
