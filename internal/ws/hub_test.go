package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	msgs    [][]byte
	closed  bool
	failing bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) snapshot() ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.msgs...), c.closed
}

func TestHub_RoutesToRecipientOnly(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	alice, bob := uuid.New(), uuid.New()
	aliceConn, bobConn := &fakeConn{}, &fakeConn{}
	h.Register <- &Client{UserID: alice, Conn: aliceConn}
	h.Register <- &Client{UserID: bob, Conn: bobConn}

	h.Notify(alice, Event{Type: "notification", Data: map[string]string{"title": "New task"}})

	require.Eventually(t, func() bool {
		msgs, _ := aliceConn.snapshot()
		return len(msgs) == 1
	}, time.Second, 5*time.Millisecond)

	msgs, _ := aliceConn.snapshot()
	var ev Event
	require.NoError(t, json.Unmarshal(msgs[0], &ev))
	assert.Equal(t, "notification", ev.Type)

	bobMsgs, _ := bobConn.snapshot()
	assert.Empty(t, bobMsgs)
}

func TestHub_DropsFailingSocket(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	user := uuid.New()
	conn := &fakeConn{failing: true}
	h.Register <- &Client{UserID: user, Conn: conn}
	h.Notify(user, Event{Type: "ping"})

	require.Eventually(t, func() bool {
		_, closed := conn.snapshot()
		return closed
	}, time.Second, 5*time.Millisecond)
}

func TestHub_StopClosesSockets(t *testing.T) {
	h := NewHub()
	go h.Run()

	conn := &fakeConn{}
	h.Register <- &Client{UserID: uuid.New(), Conn: conn}
	h.Stop()

	_, closed := conn.snapshot()
	assert.True(t, closed)
}

func TestHub_JoinLeaveAfterStop(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := &Client{UserID: uuid.New(), Conn: &fakeConn{}}
	require.True(t, h.Join(c))
	h.Stop()

	done := make(chan struct{})
	go func() {
		h.Leave(c)
		assert.False(t, h.Join(&Client{UserID: uuid.New(), Conn: &fakeConn{}}))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Leave blocked after Stop")
	}
	_, closed := c.Conn.(*fakeConn).snapshot()
	assert.True(t, closed)
}
