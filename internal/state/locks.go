package state

import "sync"

// ClientLocks serializes work per client id. A CartStore is rebuilt for every
// request, so load, mutate and save must run under the client's lock or
// concurrent requests from one client overwrite each other.
type ClientLocks struct {
	mu    sync.Mutex
	locks map[string]*clientLock
}

type clientLock struct {
	mu   sync.Mutex
	refs int
}

// NewClientLocks creates an empty lock table
func NewClientLocks() *ClientLocks {
	return &ClientLocks{locks: make(map[string]*clientLock)}
}

// Lock blocks until the client's lock is held and returns its release func.
// Entries are dropped once no request holds or waits on them.
func (l *ClientLocks) Lock(clientID string) func() {
	l.mu.Lock()
	cl, ok := l.locks[clientID]
	if !ok {
		cl = &clientLock{}
		l.locks[clientID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			cl.mu.Unlock()

			l.mu.Lock()
			cl.refs--
			if cl.refs == 0 {
				delete(l.locks, clientID)
			}
			l.mu.Unlock()
		})
	}
}

func (l *ClientLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
