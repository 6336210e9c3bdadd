package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func newTestManager(t *testing.T, width Width) (*Manager, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	return NewManager(backend, Config{Width: width}, zap.NewNop()), backend
}

func TestNewManager_DefaultWidthFromEnv(t *testing.T) {
	t.Setenv(WidthEnvKey, "")
	assert.Equal(t, Wide, NewManager(nil, Config{}, nil).Width())

	t.Setenv(WidthEnvKey, "narrow")
	assert.Equal(t, Narrow, NewManager(nil, Config{}, nil).Width())
	assert.True(t, NewManager(nil, Config{}, nil).Narrow())

	t.Setenv(WidthEnvKey, "something-else")
	assert.Equal(t, Wide, NewManager(nil, Config{}, nil).Width())
}

func TestNewManager_ExplicitWidthOverridesEnv(t *testing.T) {
	t.Setenv(WidthEnvKey, "narrow")
	assert.Equal(t, Wide, NewManager(nil, Config{Width: Wide}, nil).Width())

	t.Setenv(WidthEnvKey, "")
	assert.Equal(t, Narrow, NewManager(nil, Config{Width: Narrow}, nil).Width())
}

func TestNewManager_NarrowOptionIsConsumed(t *testing.T) {
	t.Setenv(WidthEnvKey, "")
	backend := newFakeBackend()
	m := NewManager(backend, Config{Options: Options{OptionNarrow: true, "url": "test://xyz/"}}, nil)

	assert.True(t, m.Narrow())

	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	opts := conn.(*fakeConn).opts
	assert.Equal(t, "test://xyz/", opts["url"])
	assert.NotContains(t, opts, OptionNarrow)
}

func TestManager_NoClientsByDefault(t *testing.T) {
	m, _ := newTestManager(t, Wide)

	assert.Empty(t, m.Clients())
	assert.Nil(t, m.Connection())
}

func TestManager_LazyPrimary(t *testing.T) {
	m, backend := newTestManager(t, Wide)
	assert.Nil(t, m.Connection())
	assert.Empty(t, backend.Calls())

	conn, err := m.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Same(t, conn, m.Connection())
	assert.Equal(t, 1, backend.createPrimaryCalls)

	_, err = m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.createPrimaryCalls)
}

func TestManager_ConnectionForCreatesPrimary(t *testing.T) {
	for _, width := range []Width{Wide, Narrow} {
		t.Run(width.String(), func(t *testing.T) {
			m, backend := newTestManager(t, width)

			conn, err := m.ConnectionFor(context.Background(), "global", nil)
			require.NoError(t, err)
			require.NotNil(t, m.Connection())
			assert.Equal(t, 1, backend.createPrimaryCalls)

			if width == Narrow {
				assert.Same(t, m.Connection(), conn)
			} else {
				assert.NotSame(t, m.Connection(), conn)
			}
		})
	}
}

func TestManager_ConnectionForAllIsNil(t *testing.T) {
	m, backend := newTestManager(t, Wide)

	conn, err := m.ConnectionFor(context.Background(), All, nil)
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Empty(t, m.Clients())
	assert.Empty(t, backend.Calls())
}

func TestManager_ConnectionForEmptyName(t *testing.T) {
	m, _ := newTestManager(t, Wide)

	_, err := m.ConnectionFor(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestManager_ConnectRejectsWildcard(t *testing.T) {
	m, backend := newTestManager(t, Wide)

	_, err := m.Connect(context.Background(), Name(All))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = m.Connect(context.Background(), Name("hoge"), ClientSpec{All: nil})
	assert.ErrorIs(t, err, ErrConfiguration)

	assert.Nil(t, m.Connection())
	assert.Empty(t, backend.Calls())
}

func TestManager_WideConnectsDifferentClients(t *testing.T) {
	m, _ := newTestManager(t, Wide)
	ctx := context.Background()

	_, err := m.Connect(ctx, Name("hoge"), ClientSpec{"quux": {}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hoge", "quux"}, m.Clients())

	hoge, err := m.ConnectionFor(ctx, "hoge", nil)
	require.NoError(t, err)
	quux, err := m.ConnectionFor(ctx, "quux", nil)
	require.NoError(t, err)

	assert.NotSame(t, m.Connection(), hoge)
	assert.NotSame(t, m.Connection(), quux)
	assert.NotSame(t, hoge, quux)
}

func TestManager_NarrowReturnsIdenticalClients(t *testing.T) {
	m, backend := newTestManager(t, Narrow)
	ctx := context.Background()

	_, err := m.Connect(ctx, Names("hoge", "quux")...)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hoge", "quux"}, m.Clients())

	hoge, err := m.ConnectionFor(ctx, "hoge", nil)
	require.NoError(t, err)
	quux, err := m.ConnectionFor(ctx, "quux", nil)
	require.NoError(t, err)

	assert.Same(t, m.Connection(), hoge)
	assert.Same(t, m.Connection(), quux)
	assert.Empty(t, backend.createNamedCalls)
}

func TestManager_WideMergesOptionsOverDefaults(t *testing.T) {
	backend := newFakeBackend()
	m := NewManager(backend, Config{Width: Wide, Options: Options{"url": "test://xyz/", "db": 1}}, nil)

	conn, err := m.ConnectionFor(context.Background(), "rollout", Options{"db": 2, "namespace": "rollout"})
	require.NoError(t, err)

	assert.Equal(t, Options{"url": "test://xyz/", "db": 2, "namespace": "rollout"}, conn.(*fakeConn).opts)
	assert.Equal(t, Options{"url": "test://xyz/", "db": 1}, m.Connection().(*fakeConn).opts)
}

func TestManager_IdempotentCreation(t *testing.T) {
	m, backend := newTestManager(t, Wide)
	ctx := context.Background()

	first, err := m.ConnectionFor(ctx, "hoge", nil)
	require.NoError(t, err)
	second, err := m.ConnectionFor(ctx, "hoge", Options{"ignored": true})
	require.NoError(t, err)
	_, err = m.Connect(ctx, Name("hoge"))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, backend.createNamedCalls["hoge"])
	assert.Equal(t, []string{"hoge"}, m.Clients())
}

func TestManager_Lookup(t *testing.T) {
	m, backend := newTestManager(t, Wide)

	_, ok := m.Lookup("hoge")
	assert.False(t, ok)
	assert.Empty(t, backend.Calls())

	created, err := m.ConnectionFor(context.Background(), "hoge", nil)
	require.NoError(t, err)

	found, ok := m.Lookup("hoge")
	assert.True(t, ok)
	assert.Same(t, created, found)
}

// =============================================================================
// 🔁 Reconnect / Disconnect
// =============================================================================

func TestManager_ReconnectBeforeConnectIsNoop(t *testing.T) {
	m, backend := newTestManager(t, Wide)

	conn, err := m.Reconnect(context.Background(), Name(All))
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.Empty(t, backend.Calls())
	assert.Nil(t, m.Connection())
}

func TestManager_DisconnectBeforeConnectIsNoop(t *testing.T) {
	m, backend := newTestManager(t, Wide)

	require.NoError(t, m.Disconnect(context.Background(), Name(All)))
	assert.Empty(t, backend.Calls())
}

func TestManager_WideDisconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("primary only", func(t *testing.T) {
		m, _ := newTestManager(t, Wide)
		_, err := m.Connect(ctx, Name("hoge"))
		require.NoError(t, err)
		hoge, _ := m.Lookup("hoge")

		require.NoError(t, m.Disconnect(ctx))
		assert.True(t, hoge.Connected())
		assert.False(t, m.Connection().Connected())
	})

	t.Run("named and primary, named first", func(t *testing.T) {
		m, backend := newTestManager(t, Wide)
		_, err := m.Connect(ctx, Name("hoge"))
		require.NoError(t, err)
		hoge, _ := m.Lookup("hoge")
		backend.Reset()

		require.NoError(t, m.Disconnect(ctx, Name("hoge")))
		assert.False(t, hoge.Connected())
		assert.False(t, m.Connection().Connected())
		assert.Equal(t, []string{
			"disconnect:" + hoge.ID(),
			"disconnect:" + m.Connection().ID(),
		}, backend.Calls())
	})

	t.Run("unknown names are ignored", func(t *testing.T) {
		m, backend := newTestManager(t, Wide)
		_, err := m.Connect(ctx, Name("hoge"))
		require.NoError(t, err)
		backend.Reset()

		require.NoError(t, m.Disconnect(ctx, Name("never-connected")))
		assert.Equal(t, []string{"disconnect:" + m.Connection().ID()}, backend.Calls())
		assert.Equal(t, []string{"hoge"}, m.Clients())
	})
}

func TestManager_WildcardDisconnect(t *testing.T) {
	m, backend := newTestManager(t, Wide)
	ctx := context.Background()

	_, err := m.Connect(ctx, Names("hoge", "quux")...)
	require.NoError(t, err)
	hoge, _ := m.Lookup("hoge")
	quux, _ := m.Lookup("quux")
	backend.Reset()

	require.NoError(t, m.Disconnect(ctx, Name(All)))

	assert.False(t, hoge.Connected())
	assert.False(t, quux.Connected())
	assert.False(t, m.Connection().Connected())
	assert.Equal(t, []string{
		"disconnect:" + hoge.ID(),
		"disconnect:" + quux.ID(),
		"disconnect:" + m.Connection().ID(),
	}, backend.Calls())

	// 断开后槽位仍然保留
	assert.Equal(t, []string{"hoge", "quux"}, m.Clients())
}

func TestManager_NarrowDisconnectPropagates(t *testing.T) {
	ctx := context.Background()

	for _, specs := range [][]ClientSpec{nil, Names("hoge"), {Name(All)}} {
		m, backend := newTestManager(t, Narrow)
		_, err := m.Connect(ctx, Names("hoge", "quux")...)
		require.NoError(t, err)
		hoge, _ := m.Lookup("hoge")
		quux, _ := m.Lookup("quux")
		backend.Reset()

		require.NoError(t, m.Disconnect(ctx, specs...))
		assert.False(t, hoge.Connected())
		assert.False(t, quux.Connected())
		assert.False(t, m.Connection().Connected())
		assert.Len(t, backend.Calls(), 1)
	}
}

func TestManager_WideReconnect(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Manager, *fakeBackend, Conn) {
		m, backend := newTestManager(t, Wide)
		_, err := m.Connect(ctx, Name("hoge"))
		require.NoError(t, err)
		require.NoError(t, m.Disconnect(ctx, Name(All)))
		hoge, _ := m.Lookup("hoge")
		require.False(t, hoge.Connected())
		require.False(t, m.Connection().Connected())
		backend.Reset()
		return m, backend, hoge
	}

	t.Run("primary only", func(t *testing.T) {
		m, _, hoge := setup(t)

		conn, err := m.Reconnect(ctx)
		require.NoError(t, err)
		assert.Same(t, m.Connection(), conn)
		assert.False(t, hoge.Connected())
		assert.True(t, m.Connection().Connected())
	})

	t.Run("named and primary, primary first", func(t *testing.T) {
		m, backend, hoge := setup(t)

		_, err := m.Reconnect(ctx, Name("hoge"))
		require.NoError(t, err)
		assert.True(t, hoge.Connected())
		assert.True(t, m.Connection().Connected())
		assert.Equal(t, []string{
			"reconnect:" + m.Connection().ID(),
			"reconnect:" + hoge.ID(),
		}, backend.Calls())
	})

	t.Run("never creates connections", func(t *testing.T) {
		m, backend, _ := setup(t)

		_, err := m.Reconnect(ctx, Name("unknown"))
		require.NoError(t, err)
		assert.Equal(t, []string{"hoge"}, m.Clients())
		assert.Empty(t, backend.createNamedCalls["unknown"])
	})
}

func TestManager_NarrowReconnectPropagates(t *testing.T) {
	ctx := context.Background()

	for _, specs := range [][]ClientSpec{nil, Names("hoge")} {
		m, backend := newTestManager(t, Narrow)
		_, err := m.Connect(ctx, Name("hoge"))
		require.NoError(t, err)
		require.NoError(t, m.Disconnect(ctx))
		hoge, _ := m.Lookup("hoge")
		require.False(t, hoge.Connected())
		backend.Reset()

		_, err = m.Reconnect(ctx, specs...)
		require.NoError(t, err)
		assert.True(t, hoge.Connected())
		assert.True(t, m.Connection().Connected())
		assert.Len(t, backend.Calls(), 1)
	}
}

// =============================================================================
// ❌ 错误传播
// =============================================================================

func TestManager_BackendErrorsPropagateUnchanged(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("create primary", func(t *testing.T) {
		m, backend := newTestManager(t, Wide)
		backend.createErr[""] = boom

		_, err := m.Connect(ctx)
		assert.Same(t, boom, err)
		assert.Nil(t, m.Connection())
	})

	t.Run("create named", func(t *testing.T) {
		m, backend := newTestManager(t, Wide)
		backend.createErr["hoge"] = boom

		_, err := m.ConnectionFor(ctx, "hoge", nil)
		assert.Same(t, boom, err)
		assert.Empty(t, m.Clients())

		delete(backend.createErr, "hoge")
		conn, err := m.ConnectionFor(ctx, "hoge", nil)
		require.NoError(t, err)
		assert.NotNil(t, conn)
	})

	t.Run("partial reconnect stays applied", func(t *testing.T) {
		m, backend := newTestManager(t, Wide)
		_, err := m.Connect(ctx, Names("a", "b")...)
		require.NoError(t, err)
		require.NoError(t, m.Disconnect(ctx, Name(All)))

		a, _ := m.Lookup("a")
		b, _ := m.Lookup("b")
		backend.reconnectErr[b.ID()] = boom

		_, err = m.Reconnect(ctx, Name(All))
		assert.Same(t, boom, err)
		assert.True(t, m.Connection().Connected())
		assert.True(t, a.Connected())
		assert.False(t, b.Connected())
	})

	t.Run("named disconnect failure keeps primary connected", func(t *testing.T) {
		m, backend := newTestManager(t, Wide)
		_, err := m.Connect(ctx, Name("a"))
		require.NoError(t, err)
		a, _ := m.Lookup("a")
		backend.disconnectErr[a.ID()] = boom

		assert.Same(t, boom, m.Disconnect(ctx, Name("a")))
		assert.True(t, m.Connection().Connected())
	})
}

func TestManager_UnimplementedBackend(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, Config{Width: Wide}, nil)

	_, err := m.Connect(ctx)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = m.ConnectionFor(ctx, "foo", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

// partialBackend 只实现了创建，重连与断开未实现
type partialBackend struct {
	UnimplementedBackend
	inner *fakeBackend
}

func (b partialBackend) CreatePrimary(ctx context.Context, opts Options) (Conn, error) {
	return b.inner.CreatePrimary(ctx, opts)
}

func TestManager_PartiallyImplementedBackend(t *testing.T) {
	ctx := context.Background()
	m := NewManager(partialBackend{inner: newFakeBackend()}, Config{Width: Wide}, nil)

	_, err := m.Connect(ctx)
	require.NoError(t, err)

	_, err = m.Reconnect(ctx)
	assert.ErrorIs(t, err, ErrNotImplemented)

	assert.ErrorIs(t, m.Disconnect(ctx), ErrNotImplemented)

	_, err = m.ConnectionFor(ctx, "foo", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestManager_ConcurrentConnectionFor(t *testing.T) {
	m, backend := newTestManager(t, Wide)
	ctx := context.Background()

	done := make(chan Conn)
	for i := 0; i < 20; i++ {
		go func() {
			conn, err := m.ConnectionFor(ctx, "shared", nil)
			assert.NoError(t, err)
			done <- conn
		}()
	}

	var first Conn
	for i := 0; i < 20; i++ {
		conn := <-done
		if first == nil {
			first = conn
		}
		assert.Same(t, first, conn)
	}
	assert.Equal(t, 1, backend.createNamedCalls["shared"])
	assert.Equal(t, 1, backend.createPrimaryCalls)
}
