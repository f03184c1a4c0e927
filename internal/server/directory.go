// Package server tracks live sessions and fans roster payloads out to them
// through the Directory type.
package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Outbox is a session's bounded outbound queue. The Directory is the only
// producer; the session's write duty is the only consumer.
type Outbox struct {
	id        uuid.UUID
	addr      string
	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func newOutbox(id uuid.UUID, addr string, size int) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{
		id:    id,
		addr:  addr,
		queue: make(chan []byte, size),
		done:  make(chan struct{}),
	}
}

// C returns the channel the write duty drains.
func (o *Outbox) C() <-chan []byte {
	return o.queue
}

// Done is closed once the outbox is unregistered or replaced. The write duty
// stops when it fires.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Closed reports whether the outbox has been unregistered.
func (o *Outbox) Closed() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}

// Dropped returns how many payloads were discarded because the queue was full.
func (o *Outbox) Dropped() uint64 {
	return o.dropped.Load()
}

// Len returns the number of queued payloads.
func (o *Outbox) Len() int {
	return len(o.queue)
}

func (o *Outbox) close() {
	o.closeOnce.Do(func() { close(o.done) })
}

// offer enqueues payload without blocking. When the queue is full the oldest
// payload is discarded to make room, so a slow reader still ends up with the
// newest roster. It reports whether an older payload was dropped.
func (o *Outbox) offer(payload []byte) bool {
	select {
	case o.queue <- payload:
		return false
	default:
	}

	select {
	case <-o.queue:
		o.dropped.Add(1)
	default:
	}

	select {
	case o.queue <- payload:
	default:
		// Only reachable with a concurrent producer, which the Directory
		// lock rules out.
		o.dropped.Add(1)
	}
	return true
}

type directoryEntry struct {
	id     uuid.UUID
	addr   string
	outbox *Outbox
}

// Directory maintains the set of live sessions in attach order. Every
// operation holds one mutex, so broadcasts are enqueued to all recipients in
// the same order.
type Directory struct {
	mu         sync.Mutex
	entries    []directoryEntry
	bufferSize int
	logger     *slog.Logger
}

// NewDirectory creates an empty Directory whose outboxes hold bufferSize
// payloads each.
func NewDirectory(bufferSize int, logger *slog.Logger) *Directory {
	return &Directory{
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Register stores a new outbox for id and returns it. A previous outbox for
// the same id is closed and replaced.
func (d *Directory) Register(id uuid.UUID, addr string) *Outbox {
	outbox := newOutbox(id, addr, d.bufferSize)

	d.mu.Lock()
	defer d.mu.Unlock()

	if i := d.indexLocked(id); i >= 0 {
		d.entries[i].outbox.close()
		d.entries = append(d.entries[:i], d.entries[i+1:]...)
	}
	d.entries = append(d.entries, directoryEntry{id: id, addr: addr, outbox: outbox})
	d.logger.Info("Session registered", "session_id", id, "addr", addr, "sessions", len(d.entries))
	return outbox
}

// Unregister removes and closes the outbox for id. It is a no-op for ids
// that were never registered.
func (d *Directory) Unregister(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return
	}
	entry := d.entries[i]
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	entry.outbox.close()
	d.logger.Info("Session unregistered", "session_id", id, "addr", entry.addr, "sessions", len(d.entries))
}

// Broadcast enqueues payload on every registered outbox and returns the
// number of recipients. It never blocks on a slow recipient.
func (d *Directory) Broadcast(payload []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.entries {
		if entry.outbox.offer(payload) {
			d.logger.Warn("Outbound queue full; dropped oldest payload",
				"session_id", entry.id, "addr", entry.addr, "dropped", entry.outbox.Dropped())
		}
	}
	d.logger.Debug("Broadcast roster", "recipients", len(d.entries), "bytes", len(payload))
	return len(d.entries)
}

// Send enqueues payload on a single session's outbox. It reports false when
// id is not registered.
func (d *Directory) Send(id uuid.UUID, payload []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.indexLocked(id)
	if i < 0 {
		return false
	}
	d.entries[i].outbox.offer(payload)
	return true
}

// Len returns the number of registered sessions.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.entries)
}

func (d *Directory) indexLocked(id uuid.UUID) int {
	for i := range d.entries {
		if d.entries[i].id == id {
			return i
		}
	}
	return -1
}
