package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/stockpile/connection"
)

func newManager(width connection.Width, opts connection.Options) (*connection.Manager, *Backend) {
	backend := NewBackend(nil, zap.NewNop())
	return connection.NewManager(backend, connection.Config{Width: width, Options: opts}, zap.NewNop()), backend
}

func TestBackend_PassesSettingsThrough(t *testing.T) {
	m, _ := newManager(connection.Wide, connection.Options{"url": "test://xyz/"})

	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test://xyz/", conn.(*Conn).Options()["url"])
}

func TestConn_DataOperations(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend(nil, nil)
	conn, err := backend.CreatePrimary(ctx, nil)
	require.NoError(t, err)

	_, err = conn.Get(ctx, "answer")
	assert.ErrorIs(t, err, connection.ErrNil)

	require.NoError(t, conn.Set(ctx, "answer", "42"))
	v, err := conn.Get(ctx, "answer")
	require.NoError(t, err)
	assert.Equal(t, "42", v)

	require.NoError(t, conn.HSet(ctx, "last_run_time", "job", "2024-01-01T00:00:00Z"))
	v, err = conn.HGet(ctx, "last_run_time", "job")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", v)

	_, err = conn.HGet(ctx, "last_run_time", "missing")
	assert.ErrorIs(t, err, connection.ErrNil)

	_, err = conn.HGet(ctx, "answer", "field")
	assert.ErrorIs(t, err, connection.ErrWrongType)
	assert.ErrorIs(t, conn.HSet(ctx, "answer", "field", "x"), connection.ErrWrongType)

	_, err = conn.Get(ctx, "last_run_time")
	assert.ErrorIs(t, err, connection.ErrWrongType)

	assert.Equal(t, 2, backend.Store().Len())
}

func TestConn_SharedStoreAcrossConnections(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(connection.Wide, nil)

	primary, err := m.Connect(ctx)
	require.NoError(t, err)
	rollout, err := m.ConnectionFor(ctx, "rollout", nil)
	require.NoError(t, err)

	require.NoError(t, primary.Set(ctx, "k", "v"))
	v, err := rollout.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestConn_DisconnectedRejectsOperations(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(connection.Wide, nil)

	conn, err := m.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Disconnect(ctx))

	assert.False(t, conn.Connected())
	assert.ErrorIs(t, conn.Ping(ctx), connection.ErrNotConnected)
	assert.ErrorIs(t, conn.Set(ctx, "k", "v"), connection.ErrNotConnected)
	_, err = conn.Get(ctx, "k")
	assert.ErrorIs(t, err, connection.ErrNotConnected)

	_, err = m.Reconnect(ctx)
	require.NoError(t, err)
	assert.True(t, conn.Connected())
	assert.NoError(t, conn.Ping(ctx))
}

func TestBackend_RejectsForeignConnections(t *testing.T) {
	ctx := context.Background()
	a := NewBackend(nil, nil)
	b := NewBackend(nil, nil)

	conn, err := a.CreatePrimary(ctx, nil)
	require.NoError(t, err)

	assert.Error(t, b.Reconnect(ctx, conn))
	assert.Error(t, b.Disconnect(ctx, conn))
	assert.NoError(t, a.Disconnect(ctx, conn))
	assert.NoError(t, a.Disconnect(ctx, conn))
}

// 宽连接端到端场景
func TestManager_WideEndToEnd(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(connection.Wide, nil)

	_, err := m.Connect(ctx, connection.Name("hoge"), connection.ClientSpec{"quux": {}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hoge", "quux"}, m.Clients())

	first, err := m.ConnectionFor(ctx, "hoge", nil)
	require.NoError(t, err)
	second, err := m.ConnectionFor(ctx, "hoge", nil)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, m.Disconnect(ctx, connection.Name("hoge")))

	quux, ok := m.Lookup("quux")
	require.True(t, ok)
	assert.False(t, first.Connected())
	assert.True(t, quux.Connected())
	// primary 永远最后断开，这里同样被断开
	assert.False(t, m.Connection().Connected())
}

func TestManager_NarrowDisconnectReachesAliases(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(connection.Narrow, nil)

	_, err := m.Connect(ctx, connection.Names("hoge", "quux")...)
	require.NoError(t, err)
	hoge, _ := m.Lookup("hoge")
	quux, _ := m.Lookup("quux")

	require.NoError(t, m.Disconnect(ctx))
	assert.False(t, hoge.Connected())
	assert.False(t, quux.Connected())

	_, err = m.Reconnect(ctx, connection.Name("hoge"))
	require.NoError(t, err)
	assert.True(t, hoge.Connected())
	assert.True(t, quux.Connected())
	assert.True(t, m.Connection().Connected())
}
