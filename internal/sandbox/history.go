package sandbox

import "sync"

const DefaultHistoryLimit = 10

// History keeps the most recent runs, newest first.
type History struct {
	mu      sync.RWMutex
	limit   int
	records []RunRecord
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

func (h *History) Limit() int {
	return h.limit
}

// Push prepends rec and drops whatever falls past the limit.
func (h *History) Push(rec RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := make([]RunRecord, 0, min(len(h.records)+1, h.limit))
	records = append(records, rec.clone())
	for _, r := range h.records {
		if len(records) == h.limit {
			break
		}
		records = append(records, r)
	}
	h.records = records
}

// Snapshot returns a deep copy of the history, newest first.
func (h *History) Snapshot() []RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RunRecord, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.clone())
	}
	return out
}

func (h *History) Get(id string) (RunRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.records {
		if r.ID == id {
			return r.clone(), true
		}
	}
	return RunRecord{}, false
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
