// Package locker provides keyed mutual exclusion for read-check-write
// sequences such as booking an appointment.
package locker

import (
	"context"
	"fmt"
	"sync"
)

// Locker serialises work on a key. The returned release func must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// DoctorKey is the lock key guarding one doctor's agenda and appointments.
func DoctorKey(doctorID int) string {
	return fmt.Sprintf("turnos:medico:%d", doctorID)
}

// CollectionKey guards the reload-check-save cycle of a whole persisted
// collection. Take it after any DoctorKey, never before.
func CollectionKey(name string) string {
	return "turnos:snapshot:" + name
}

// Local is an in-process Locker. Waiting honours ctx cancellation.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("acquire %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(key, s)
		})
	}, nil
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Local) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
