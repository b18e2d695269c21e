package store

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity bounds how many messages a session keeps in memory.
const DefaultCapacity = 1000

// Message is one chat line. Sender is the short display form of the peer's
// public key and stays empty for outgoing messages.
type Message struct {
	Sender    string
	Content   string
	Timestamp int64
	Outgoing  bool
}

// Flag is a redraw-dirty signal. It is set from the network callbacks and
// from the render loop, and consumed once per tick. A lost update costs at
// most one extra or skipped redraw.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set() { f.v.Store(true) }

// Consume reports whether the flag was set and clears it.
func (f *Flag) Consume() bool { return f.v.Swap(false) }

// Store holds messages ordered by timestamp, ties broken by insertion order.
// It is mutated from the relay subscription goroutine and the render loop;
// one mutex guards all access and no I/O ever happens under it.
type Store struct {
	mu       sync.Mutex
	msgs     []Message
	capacity int
	seq      uint64
	dirty    *Flag
}

func New(capacity int, dirty *Flag) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if dirty == nil {
		dirty = &Flag{}
	}
	return &Store{capacity: capacity, dirty: dirty}
}

// Insert places m after the last message whose timestamp is <= m.Timestamp,
// scanning from the newest end, then evicts from the front while over
// capacity.
func (s *Store) Insert(m Message) {
	s.mu.Lock()
	i := len(s.msgs)
	for i > 0 && s.msgs[i-1].Timestamp > m.Timestamp {
		i--
	}
	s.msgs = append(s.msgs, Message{})
	copy(s.msgs[i+1:], s.msgs[i:])
	s.msgs[i] = m

	if over := len(s.msgs) - s.capacity; over > 0 {
		s.msgs = append(s.msgs[:0], s.msgs[over:]...)
	}
	s.seq++
	s.mu.Unlock()

	s.dirty.Set()
}

// Snapshot copies out up to maxRows messages ending scrollOffset back from
// the newest, oldest first. The copies are rendered without holding the lock.
func (s *Store) Snapshot(maxRows, scrollOffset int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxRows <= 0 || len(s.msgs) == 0 {
		return nil
	}
	end := len(s.msgs) - scrollOffset
	if end > len(s.msgs) {
		end = len(s.msgs)
	}
	if end <= 0 {
		return nil
	}
	start := end - maxRows
	if start < 0 {
		start = 0
	}
	out := make([]Message, end-start)
	copy(out, s.msgs[start:end])
	return out
}

// Clear discards all messages.
func (s *Store) Clear() {
	s.mu.Lock()
	s.msgs = nil
	s.seq++
	s.mu.Unlock()

	s.dirty.Set()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Seq increments on every mutation; the render loop uses it to notice new
// messages and snap the viewport back to the bottom.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

func (s *Store) Dirty() *Flag { return s.dirty }
