package dispatcher

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type slot struct {
	sem     *semaphore.Weighted
	holders int
}

// contactLocks hands out one serial slot per contact key. Slots are dropped once nobody
// holds or waits for them.
type contactLocks struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func newContactLocks() *contactLocks {
	return &contactLocks{slots: make(map[string]*slot)}
}

func (l *contactLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		l.slots[key] = s
	}

	s.holders++
	l.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		l.leave(key, s)

		return nil, err
	}

	return func() {
		s.sem.Release(1)
		l.leave(key, s)
	}, nil
}

func (l *contactLocks) leave(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.holders--
	if s.holders == 0 {
		delete(l.slots, key)
	}
}

func (l *contactLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.slots)
}
