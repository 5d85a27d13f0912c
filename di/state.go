package di

import "sync"

// Observable is implemented by services whose state can change after
// construction. A Scope subscribes to every Observable it constructs.
type Observable interface {
	// Subscribe registers fn to run after each state change and returns a
	// function that removes it.
	Subscribe(fn func()) (cancel func())
}

// State is a state slot for services, meant to be embedded:
//
//	type CounterService struct {
//	    *di.State[CounterState]
//	    logger Logger
//	}
//
// The value is only ever replaced wholesale by Set; listeners run after the
// new value is stored, so they always observe it.
type State[T any] struct {
	mu        sync.Mutex
	value     T
	listeners []listener
	nextID    uint64
}

type listener struct {
	id uint64
	fn func()
}

// NewState returns a State holding initial.
func NewState[T any](initial T) *State[T] {
	return &State[T]{value: initial}
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value with update(prev) and notifies listeners once.
// It returns the stored value.
func (s *State[T]) Set(update func(prev T) T) T {
	s.mu.Lock()
	s.value = update(s.value)
	next := s.value
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.mu.Unlock()

	for _, l := range ls {
		l.fn()
	}
	return next
}

// Subscribe implements Observable.
func (s *State[T]) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}
