package co

import "sync"

// Signal is a broadcastable one-shot-per-generation wakeup.
//
// Waiters created before a Broadcast observe it; waiters created after
// a Broadcast must wait for the next one. The zero value is ready to
// use.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// Waiter observes a single generation of a Signal.
type Waiter struct {
	c chan struct{}
}

// C returns the channel that closes when the observed generation is
// broadcast.
func (w Waiter) C() <-chan struct{} {
	return w.c
}

func (s *Signal) current() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// NewWaiter returns a Waiter for the signal's current generation.
func (s *Signal) NewWaiter() Waiter {
	return Waiter{c: s.current()}
}

// Broadcast wakes every Waiter created since the previous Broadcast
// (or since construction) and starts a new generation.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	close(s.ch)
	s.ch = make(chan struct{})
}
