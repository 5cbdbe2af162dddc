package engine

import "sync"

// taskLocks serializes mutations per task id so two actors editing the
// same task cannot lose each other's writes. Entries are reference
// counted and dropped once the last holder releases.
type taskLocks struct {
	mu    sync.Mutex
	locks map[string]*taskLock
}

type taskLock struct {
	mu   sync.Mutex
	refs int
}

func newTaskLocks() *taskLocks {
	return &taskLocks{locks: make(map[string]*taskLock)}
}

func (l *taskLocks) lock(id string) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &taskLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *taskLocks) unlock(id string) {
	l.mu.Lock()
	entry := l.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
