package boardservice

import "sync"

// boardLocks hands out one mutex per board id. Entries are dropped once no
// goroutine holds or waits on them.
type boardLocks struct {
	mu    sync.Mutex
	locks map[int64]*boardLock
}

type boardLock struct {
	mu   sync.Mutex
	refs int
}

func newBoardLocks() *boardLocks {
	return &boardLocks{locks: make(map[int64]*boardLock)}
}

// lock blocks until the caller owns board id and returns the release func.
func (l *boardLocks) lock(id int64) func() {
	l.mu.Lock()
	bl, ok := l.locks[id]
	if !ok {
		bl = &boardLock{}
		l.locks[id] = bl
	}
	bl.refs++
	l.mu.Unlock()

	bl.mu.Lock()
	return func() {
		bl.mu.Unlock()
		l.mu.Lock()
		bl.refs--
		if bl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *boardLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
