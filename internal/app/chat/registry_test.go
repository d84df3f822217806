package chat

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_DistinctNamesAllRegister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	names := []string{"mallory", "alice", "trent", "bob"}
	for _, name := range names {
		req.True(registry.Register(name, &fakeConn{}))
	}

	req.Equal(4, registry.Len())
	req.Equal([]string{"alice", "bob", "mallory", "trent"}, registry.SnapshotNames())
}

func TestRegistry_DuplicateNameDoesNotMutate(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := &fakeConn{}
	second := &fakeConn{}

	req.True(registry.Register("alice", first))
	req.False(registry.Register("alice", second))

	conn, ok := registry.Get("alice")
	req.True(ok)
	req.Same(first, conn)
	req.Equal(1, registry.Len())
}

func TestRegistry_ConcurrentRegistrationOfOneName(t *testing.T) {
	registry := NewRegistry()

	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if registry.Register("alice", &fakeConn{}) {
				wins.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, []string{"alice"}, registry.SnapshotNames())
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("alice", &fakeConn{})

	registry.Remove("alice")
	registry.Remove("alice")
	registry.Remove("nobody")

	_, ok := registry.Get("alice")
	req.False(ok)
	req.Empty(registry.SnapshotNames())
	req.True(registry.Register("alice", &fakeConn{}))
}

func TestRegistry_RemoveIfIgnoresStaleConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	stale := &fakeConn{}
	current := &fakeConn{}

	registry.Register("alice", stale)
	req.True(registry.RemoveIf("alice", stale))
	registry.Register("alice", current)

	req.False(registry.RemoveIf("alice", stale))
	conn, ok := registry.Get("alice")
	req.True(ok)
	req.Same(current, conn)
}

func TestRegistry_ForEachExcludesAndVisitsInOrder(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"carol", "alice", "bob"} {
		registry.Register(name, &fakeConn{})
	}

	var visited []string
	failed := registry.ForEach(func(name string, _ Conn) error {
		visited = append(visited, name)
		return nil
	}, "bob")

	require.Zero(t, failed)
	require.Equal(t, []string{"alice", "carol"}, visited)
}

func TestRegistry_ForEachContinuesAfterFailures(t *testing.T) {
	registry := NewRegistry()
	broken := &fakeConn{sendErr: ErrSendQueueFull}
	healthy := &fakeConn{}
	closed := &fakeConn{closed: true}

	registry.Register("alice", broken)
	registry.Register("bob", healthy)
	registry.Register("carol", closed)
	registry.Register("dave", &fakeConn{})

	failed := registry.ForEach(func(_ string, conn Conn) error {
		return conn.Send([]byte(`{"type":"message","text":"hi"}`))
	}, "dave")

	require.Equal(t, 2, failed)
	require.Len(t, healthy.received(t), 1)
}

func TestRegistry_ForEachMayMutateRegistry(t *testing.T) {
	registry := NewRegistry()
	for i := range 5 {
		registry.Register(fmt.Sprintf("user%d", i), &fakeConn{})
	}

	failed := registry.ForEach(func(name string, _ Conn) error {
		registry.Remove(name)
		return errors.New("gone")
	}, "")

	require.Equal(t, 5, failed)
	require.Zero(t, registry.Len())
}
