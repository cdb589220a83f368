package service

import "sync"

// conversationLocks serializes turn processing per conversation so
// concurrent turns cannot interleave their history reads and message
// writes. Keys are conversation ids, or the user id while a turn is
// still creating its conversation.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*lockEntry)}
}

func (l *conversationLocks) Lock(key string) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *conversationLocks) Unlock(key string) {
	l.mu.Lock()
	entry := l.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
