package chat

import (
	"context"
	"sync"
)

// ClientGroup tracks every running client, registered or not, so shutdown can
// close them and wait for each disconnect path to finish.
type ClientGroup struct {
	mu      sync.Mutex
	active  map[*Client]struct{}
	closing bool

	wg sync.WaitGroup
}

// NewClientGroup constructs an empty ClientGroup.
func NewClientGroup() *ClientGroup {
	return &ClientGroup{active: make(map[*Client]struct{})}
}

// Serve runs the client's pumps and returns once its read loop, including the
// disconnect path, has finished. A client arriving after Shutdown is closed at once.
func (g *ClientGroup) Serve(c *Client) {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		c.Close()
		c.WritePump()
		return
	}
	g.active[c] = struct{}{}
	g.wg.Add(1)
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.active, c)
		g.mu.Unlock()
		g.wg.Done()
	}()

	go c.WritePump()
	c.ReadPump()
}

// Len returns the number of running clients.
func (g *ClientGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.active)
}

// Shutdown closes every running client and waits until all of them have left
// or ctx is done.
func (g *ClientGroup) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closing = true
	for c := range g.active {
		c.Close()
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
