package websocket

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestConnection(registry ConnectionRegistry) *Connection {
	return NewConnection(newFakeTransport(), registry, Options{}, zap.NewNop())
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	conn := newTestConnection(registry)

	registry.Register(7, conn)
	registry.Register(7, conn)

	assert.Equal(t, []*Connection{conn}, registry.ConnectionsFor(7))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_UnregisterRemovesAndIsNoopWhenAbsent(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	conn := newTestConnection(registry)

	registry.Unregister(conn)
	registry.Register(7, conn)
	registry.Unregister(conn)
	registry.Unregister(conn)

	assert.Empty(t, registry.ConnectionsFor(7))
	assert.Equal(t, 0, registry.UserCount())
}

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	tab, phone := newTestConnection(registry), newTestConnection(registry)

	registry.Register(42, tab)
	registry.Register(42, phone)

	assert.ElementsMatch(t, []*Connection{tab, phone}, registry.ConnectionsFor(42))
	assert.Equal(t, 1, registry.UserCount())
}

func TestRegistry_ReRegisterMovesConnection(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	conn := newTestConnection(registry)

	registry.Register(1, conn)
	registry.Register(2, conn)

	assert.Empty(t, registry.ConnectionsFor(1))
	assert.Equal(t, []*Connection{conn}, registry.ConnectionsFor(2))
}

func TestRegistry_RejectsClosedAndAnonymous(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	closed := newTestConnection(registry)
	closed.Close()

	registry.Register(5, closed)
	registry.Register(0, newTestConnection(registry))

	assert.Empty(t, registry.ConnectionsFor(5))
	assert.Equal(t, 0, registry.Count())
}

func TestRegistry_SnapshotIsDetached(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	conn := newTestConnection(registry)
	registry.Register(3, conn)

	snapshot := registry.ConnectionsFor(3)
	registry.Unregister(conn)

	assert.Len(t, snapshot, 1)
	assert.Empty(t, registry.ConnectionsFor(3))
}

func TestRegistry_Concurrent(t *testing.T) {
	registry := NewRegistry(zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			conn := newTestConnection(registry)
			registry.Register(userID, conn)
			_ = registry.ConnectionsFor(userID)
			registry.Unregister(conn)
		}(uint64(i%5 + 1))
	}
	wg.Wait()

	assert.Equal(t, 0, registry.Count())
}
