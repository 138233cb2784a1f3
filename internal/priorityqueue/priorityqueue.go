// Package priorityqueue implements the comparator-ordered view over
// TaskTable entries described in spec §4.3: higher priority first, then
// earlier NextRunTime, ties broken by AgentID for deterministic tests.
//
// container/heap is the idiomatic fit here — grounded on the priority-task
// queues in the retrieved scheduler implementations (e.g. the
// Krigsexe-AI-Context-Engineering orchestrator's container/heap-backed
// ScheduledTask queue) — no pack repo reached for a third-party priority
// queue library, so the standard heap interface is the right tool rather
// than a dependency gap.
package priorityqueue

import (
	"container/heap"
	"time"

	"github.com/nova-labs/agentsched/internal/domain"
)

// Less implements the spec §4.3 comparator.
func Less(a, b domain.ScheduledTask) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.NextRunTime.Equal(b.NextRunTime) {
		return a.NextRunTime.Before(b.NextRunTime)
	}
	return a.AgentID < b.AgentID
}

type innerHeap []domain.ScheduledTask

func (h innerHeap) Len() int            { return len(h) }
func (h innerHeap) Less(i, j int) bool  { return Less(h[i], h[j]) }
func (h innerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *innerHeap) Push(x any)         { *h = append(*h, x.(domain.ScheduledTask)) }
func (h *innerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a one-shot, build-then-drain priority queue: callers construct
// it from an eligibility-filtered candidate snapshot once per tick and pop
// candidates in comparator order until the worker pool's available slots
// are exhausted.
type Queue struct {
	h innerHeap
}

// Build constructs a Queue from already-eligible candidates.
func Build(candidates []domain.ScheduledTask) *Queue {
	h := make(innerHeap, len(candidates))
	copy(h, candidates)
	heap.Init(&h)
	return &Queue{h: h}
}

func (q *Queue) Len() int { return q.h.Len() }

// Pop removes and returns the highest-priority, earliest-due task.
func (q *Queue) Pop() (domain.ScheduledTask, bool) {
	if q.h.Len() == 0 {
		return domain.ScheduledTask{}, false
	}
	return heap.Pop(&q.h).(domain.ScheduledTask), true
}

// Top returns the highest-priority task without removing it.
func (q *Queue) Top() (domain.ScheduledTask, bool) {
	if q.h.Len() == 0 {
		return domain.ScheduledTask{}, false
	}
	return q.h[0], true
}

// Eligible filters a task snapshot per spec §4.3's eligibility predicate.
func Eligible(tasks []domain.ScheduledTask, now time.Time, running map[string]struct{}) []domain.ScheduledTask {
	out := make([]domain.ScheduledTask, 0, len(tasks))
	for _, t := range tasks {
		if t.Eligible(now, running) {
			out = append(out, t)
		}
	}
	return out
}
