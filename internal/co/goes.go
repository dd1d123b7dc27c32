// Package co provides small cooperative-goroutine helpers used by the
// gateway's background refresh tasks (Key Directory reload, Bloom
// filter rebuild), adapted from the teacher repo's co package.
package co

import "sync"

// Goes manages a group of goroutines, similar to sync.WaitGroup but
// exposing a channel that closes once every goroutine has returned, so
// callers can select on shutdown alongside other channels.
type Goes struct {
	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// Go starts f in a new goroutine tracked by the group.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every goroutine started by Go has returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel that's closed once every goroutine started by
// Go has returned.
func (g *Goes) Done() <-chan struct{} {
	g.once.Do(func() {
		g.done = make(chan struct{})
		go func() {
			g.wg.Wait()
			close(g.done)
		}()
	})
	return g.done
}
