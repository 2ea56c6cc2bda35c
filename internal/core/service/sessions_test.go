package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_CreateAndReopen(t *testing.T) {
	kv := newMockKV()
	sessions := NewSessions(kv, SessionsOptions{})

	sess, err := sessions.Create(ctxTest)
	require.NoError(t, err)
	_, err = uuid.Parse(sess.ID)
	require.NoError(t, err)

	require.NoError(t, sess.Cart.Add(ctxTest, line("10", noSize, 2, "1")))

	again, err := sessions.Open(ctxTest, sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, again)
	assert.Equal(t, 1, sessions.Len())
	assert.NotEmpty(t, kv.raw("cart:"+sess.ID))
}

func TestSessions_CartsAreIsolated(t *testing.T) {
	sessions := NewSessions(newMockKV(), SessionsOptions{})
	a, err := sessions.Create(ctxTest)
	require.NoError(t, err)
	b, err := sessions.Create(ctxTest)
	require.NoError(t, err)

	require.NoError(t, a.Cart.SetCap(ctxTest, key10, 1))
	require.NoError(t, a.Cart.Add(ctxTest, line("10", noSize, 3, "1")))
	require.NoError(t, b.Cart.Add(ctxTest, line("10", noSize, 3, "1")))

	assert.Equal(t, 1, a.Cart.Quantity(key10))
	assert.Equal(t, 3, b.Cart.Quantity(key10))
}

func TestSessions_ReloadsAfterClose(t *testing.T) {
	kv := newMockKV()
	sessions := NewSessions(kv, SessionsOptions{})
	sess, err := sessions.Create(ctxTest)
	require.NoError(t, err)
	require.NoError(t, sess.Cart.SetCap(ctxTest, key7M, 2))
	require.NoError(t, sess.Cart.Add(ctxTest, line("7", "M", 2, "1")))

	sessions.Close()
	assert.Zero(t, sessions.Len())

	reopened, err := sessions.Open(ctxTest, sess.ID)
	require.NoError(t, err)
	assert.NotSame(t, sess, reopened)
	assert.Equal(t, 2, reopened.Cart.Quantity(key7M))
	limit, ok := reopened.Cart.GetCap(key7M)
	assert.True(t, ok)
	assert.Equal(t, 2, limit)
}

func TestSessions_RejectsInvalidID(t *testing.T) {
	sessions := NewSessions(newMockKV(), SessionsOptions{})

	_, err := sessions.Open(ctxTest, "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidCartID)
}

func TestSessions_NormalizesID(t *testing.T) {
	sessions := NewSessions(newMockKV(), SessionsOptions{})
	id := uuid.New()

	a, err := sessions.Open(ctxTest, id.String())
	require.NoError(t, err)
	b, err := sessions.Open(ctxTest, "urn:uuid:"+id.String())
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestSessions_EvictsLeastRecentlyUsed(t *testing.T) {
	sessions := NewSessions(newMockKV(), SessionsOptions{MaxResident: 2})
	defer sessions.Close()

	first, err := sessions.Create(ctxTest)
	require.NoError(t, err)
	require.NoError(t, first.Cart.Add(ctxTest, line("10", noSize, 2, "1")))

	for i := 0; i < 5; i++ {
		_, err := sessions.Open(ctxTest, uuid.NewString())
		require.NoError(t, err)
		assert.LessOrEqual(t, sessions.Len(), 2)
	}

	select {
	case <-first.Done():
	default:
		t.Fatal("expected the oldest session to be evicted")
	}
	assert.Zero(t, first.Cart.Subtotal().Subscribers(), "checkout stops following an evicted cart")

	reopened, err := sessions.Open(ctxTest, first.ID)
	require.NoError(t, err)
	assert.NotSame(t, first, reopened)
	assert.Equal(t, 2, reopened.Cart.Quantity(key10))
}

func TestSessions_OpenKeepsRecentSessionResident(t *testing.T) {
	sessions := NewSessions(newMockKV(), SessionsOptions{MaxResident: 2})
	defer sessions.Close()

	a, err := sessions.Create(ctxTest)
	require.NoError(t, err)
	_, err = sessions.Create(ctxTest)
	require.NoError(t, err)

	_, err = sessions.Open(ctxTest, a.ID)
	require.NoError(t, err)
	_, err = sessions.Create(ctxTest)
	require.NoError(t, err)

	again, err := sessions.Open(ctxTest, a.ID)
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestSessions_EvictsIdleSessions(t *testing.T) {
	sessions := NewSessions(newMockKV(), SessionsOptions{IdleTimeout: 50 * time.Millisecond})
	defer sessions.Close()

	sess, err := sessions.Create(ctxTest)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		select {
		case <-sess.Done():
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return sessions.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	reopened, err := sessions.Open(ctxTest, sess.ID)
	require.NoError(t, err)
	assert.NotSame(t, sess, reopened)
}
