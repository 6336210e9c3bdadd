package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/stockpile/connection"
)

func TestMockBackend_RecordsCalls(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend()

	primary, err := m.CreatePrimary(ctx, nil)
	require.NoError(t, err)
	named, err := m.CreateNamed(ctx, "rollout", nil)
	require.NoError(t, err)

	require.NoError(t, m.Disconnect(ctx, named))
	require.NoError(t, m.Reconnect(ctx, named))

	calls := m.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, MockBackendCall{Method: MethodCreatePrimary, ConnID: primary.ID()}, calls[0])
	assert.Equal(t, "rollout", calls[2].Client)
	assert.Equal(t, MethodReconnect, calls[3].Method)
	assert.Equal(t, 1, m.CallCount(MethodDisconnect))

	m.Reset()
	assert.Empty(t, m.Calls())
}

func TestMockBackend_InjectedErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	m := NewMockBackend().
		WithCreateError("stats", boom).
		WithReconnectError("rollout", boom)

	conn, err := m.CreateNamed(ctx, "stats", nil)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, boom)

	rollout, err := m.CreateNamed(ctx, "rollout", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Reconnect(ctx, rollout), boom)

	m.ClearErrors()
	assert.NoError(t, m.Reconnect(ctx, rollout))
	_, err = m.CreateNamed(ctx, "stats", nil)
	assert.NoError(t, err)
}

func TestMockBackend_WithManager(t *testing.T) {
	ctx := context.Background()
	m := NewMockBackend().WithBackend(connection.UnimplementedBackend{})
	manager := connection.NewManager(m, connection.Config{Width: connection.Wide}, nil)

	_, err := manager.Connect(ctx)
	assert.ErrorIs(t, err, connection.ErrNotImplemented)
	assert.Equal(t, 1, m.CallCount(MethodCreatePrimary))
}
