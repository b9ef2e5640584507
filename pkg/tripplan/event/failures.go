package event

import "sync"

// FailureLog is a bounded in-memory record of delivery failures. When full,
// the oldest failure is discarded.
type FailureLog struct {
	mu      sync.RWMutex
	entries []Failure
	maxSize int
	total   int64
}

// NewFailureLog creates a log retaining at most maxSize failures.
func NewFailureLog(maxSize int) *FailureLog {
	if maxSize <= 0 {
		maxSize = DefaultBusConfig.FailureLogSize
	}
	return &FailureLog{maxSize: maxSize}
}

// Add records a failure.
func (l *FailureLog) Add(f Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.maxSize {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, f)
	l.total++
}

// List returns retained failures, oldest first.
func (l *FailureLog) List() []Failure {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Failure, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained failures.
func (l *FailureLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Total returns the number of failures ever recorded, including discarded
// ones.
func (l *FailureLog) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// CountByType returns retained failures grouped by event type.
func (l *FailureLog) CountByType() map[Type]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[Type]int)
	for _, f := range l.entries {
		counts[f.EventType]++
	}
	return counts
}

// Clear removes all retained failures.
func (l *FailureLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
