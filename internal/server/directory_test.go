package server

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/lobby/internal/logging"
)

func drain(o *Outbox) [][]byte {
	var out [][]byte
	for {
		select {
		case p := <-o.C():
			out = append(out, p)
		default:
			return out
		}
	}
}

func TestDirectoryBroadcastReachesEverySession(t *testing.T) {
	d := NewDirectory(4, logging.Discard())
	a := d.Register(uuid.New(), "a")
	b := d.Register(uuid.New(), "b")

	assert.Equal(t, 2, d.Broadcast([]byte("one")))
	assert.Equal(t, 2, d.Broadcast([]byte("two")))

	want := [][]byte{[]byte("one"), []byte("two")}
	assert.Equal(t, want, drain(a))
	assert.Equal(t, want, drain(b))
}

func TestDirectoryBroadcastWithNoSessions(t *testing.T) {
	d := NewDirectory(4, logging.Discard())
	assert.Zero(t, d.Broadcast([]byte("x")))
}

func TestDirectoryDropsOldestWhenFull(t *testing.T) {
	d := NewDirectory(2, logging.Discard())
	slow := d.Register(uuid.New(), "slow")

	for _, p := range []string{"1", "2", "3", "4"} {
		d.Broadcast([]byte(p))
	}

	assert.Equal(t, uint64(2), slow.Dropped())
	assert.Equal(t, [][]byte{[]byte("3"), []byte("4")}, drain(slow), "the newest payloads survive")
}

func TestDirectorySlowSessionDoesNotAffectOthers(t *testing.T) {
	d := NewDirectory(1, logging.Discard())
	slow := d.Register(uuid.New(), "slow")
	fast := d.Register(uuid.New(), "fast")

	d.Broadcast([]byte("1"))
	require.Equal(t, [][]byte{[]byte("1")}, drain(fast))
	d.Broadcast([]byte("2"))
	require.Equal(t, [][]byte{[]byte("2")}, drain(fast))

	assert.Zero(t, fast.Dropped())
	assert.Equal(t, uint64(1), slow.Dropped())
	assert.Equal(t, [][]byte{[]byte("2")}, drain(slow))
}

func TestDirectoryUnregister(t *testing.T) {
	d := NewDirectory(4, logging.Discard())
	id := uuid.New()
	o := d.Register(id, "a")
	other := d.Register(uuid.New(), "b")

	d.Unregister(id)
	assert.True(t, o.Closed())
	select {
	case <-o.Done():
	default:
		t.Fatal("Done must be closed after unregister")
	}
	assert.Equal(t, 1, d.Len())

	d.Unregister(id)
	d.Unregister(uuid.New())
	assert.Equal(t, 1, d.Len(), "unregister is idempotent")

	assert.Equal(t, 1, d.Broadcast([]byte("x")))
	assert.Empty(t, drain(o), "unregistered outbox receives nothing")
	assert.Len(t, drain(other), 1)
	assert.False(t, other.Closed())
}

func TestDirectoryRegisterReplacesExisting(t *testing.T) {
	d := NewDirectory(4, logging.Discard())
	id := uuid.New()
	first := d.Register(id, "a")
	second := d.Register(id, "a")

	assert.True(t, first.Closed())
	assert.False(t, second.Closed())
	assert.Equal(t, 1, d.Len())
}

func TestDirectorySend(t *testing.T) {
	d := NewDirectory(4, logging.Discard())
	id := uuid.New()
	target := d.Register(id, "a")
	bystander := d.Register(uuid.New(), "b")

	assert.True(t, d.Send(id, []byte("only you")))
	assert.False(t, d.Send(uuid.New(), []byte("nobody")))

	assert.Equal(t, [][]byte{[]byte("only you")}, drain(target))
	assert.Empty(t, drain(bystander))
}

func TestDirectoryConcurrentBroadcastsKeepOneOrder(t *testing.T) {
	const broadcasts = 200
	d := NewDirectory(broadcasts, logging.Discard())
	a := d.Register(uuid.New(), "a")
	b := d.Register(uuid.New(), "b")

	var wg sync.WaitGroup
	for i := 0; i < broadcasts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d.Broadcast([]byte{byte(i), byte(i >> 8)})
		}(i)
	}
	wg.Wait()

	gotA, gotB := drain(a), drain(b)
	require.Len(t, gotA, broadcasts)
	assert.Equal(t, gotA, gotB, "every session observes broadcasts in the same order")
}
