package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, s *Subscriber) string {
	t.Helper()
	select {
	case msg := <-s.Messages():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func assertSilent(t *testing.T, s *Subscriber) {
	t.Helper()
	select {
	case msg := <-s.Messages():
		t.Fatalf("unexpected message %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	h := NewHub(nil, nil)
	defer h.Close()

	assert.True(t, h.Publish(MessageReload))
	assert.Zero(t, h.Len())
}

func TestHub_EachSubscriberGetsOneMessage(t *testing.T) {
	h := NewHub(nil, nil)
	defer h.Close()

	a, err := h.Subscribe()
	require.NoError(t, err)
	b, err := h.Subscribe()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	require.True(t, h.Publish(MessageReload))

	assert.Equal(t, MessageReload, receive(t, a))
	assert.Equal(t, MessageReload, receive(t, b))
	assertSilent(t, a)
	assertSilent(t, b)
}

func TestHub_StuckSubscriberIsDroppedWithoutBlockingOthers(t *testing.T) {
	rec := &countingRecorder{}
	h := NewHub(rec, nil)
	defer h.Close()

	stuck, err := h.Subscribe()
	require.NoError(t, err)
	live, err := h.Subscribe()
	require.NoError(t, err)

	for i := 0; i <= outboxSize; i++ {
		require.True(t, h.Publish(MessageReload))
		assert.Equal(t, MessageReload, receive(t, live))
	}

	select {
	case <-stuck.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stuck subscriber was not dropped")
	}
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 1, rec.droppedCount("backpressure"))
}

func TestHub_RemoveClosesDone(t *testing.T) {
	h := NewHub(nil, nil)
	defer h.Close()

	s, err := h.Subscribe()
	require.NoError(t, err)
	h.Remove(s.ID())
	h.Remove(s.ID())

	_, open := <-s.Done()
	assert.False(t, open)
	assert.Zero(t, h.Len())
}

func TestHub_CloseDropsSubscribersAndRejectsNewOnes(t *testing.T) {
	h := NewHub(nil, nil)
	s, err := h.Subscribe()
	require.NoError(t, err)

	h.Close()
	h.Close()

	_, open := <-s.Done()
	assert.False(t, open)
	assert.False(t, h.Publish(MessageReload))
	_, err = h.Subscribe()
	assert.ErrorIs(t, err, ErrHubClosed)
}
