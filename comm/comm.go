package comm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Sentinel errors returned by group construction.
var (
	// ErrBadSize indicates a non-positive group size.
	ErrBadSize = errors.New("comm: group size must be > 0")

	// ErrBadRanks indicates an invalid rank subset passed to NewSubgroup:
	// empty, out of range, unsorted or containing duplicates.
	ErrBadRanks = errors.New("comm: invalid rank subset")
)

// Payload constrains the element types that can travel through a
// communicator. The set matches what the numerical layers above need:
// real and complex matrix data plus small integer control words.
type Payload interface {
	~float64 | ~complex128 | ~int
}

// message is a single in-flight point-to-point transfer. data holds a
// slice owned by the message (copied from the sender), so the receiver
// may copy out of it at any later time.
type message struct {
	src   int
	tag   int
	data  any
	recvd chan struct{} // non-nil for synchronous sends
}

// group is the shared state behind all *Comm handles of one communicator.
type group struct {
	id      uint64
	members []*Comm

	mu   sync.Mutex
	subs map[string]*group // subgroup cache, keyed by canonical rank list
}

var groupIDs atomic.Uint64

// Comm is one rank's handle onto a communicator group. A Comm is owned
// by a single goroutine; the internal mailbox is nevertheless locked so
// that Irecv may complete concurrently with the owning goroutine.
type Comm struct {
	rank int
	g    *group

	mu    sync.Mutex
	cond  *sync.Cond
	queue []message
}

// NewGroup creates a connected communicator of the given size and
// returns one handle per rank. Handles are meant to be distributed to
// size cooperating goroutines.
func NewGroup(size int) ([]*Comm, error) {
	if size <= 0 {
		return nil, fmt.Errorf("NewGroup(%d): %w", size, ErrBadSize)
	}
	g := &group{
		id:      groupIDs.Add(1),
		members: make([]*Comm, size),
		subs:    make(map[string]*group),
	}
	for r := range g.members {
		c := &Comm{rank: r, g: g}
		c.cond = sync.NewCond(&c.mu)
		g.members[r] = c
	}
	return g.members, nil
}

var (
	serialOnce sync.Once
	serialComm *Comm
)

// Serial returns the process-wide single-rank communicator. All
// collectives on it are no-ops and it never blocks.
func Serial() *Comm {
	serialOnce.Do(func() {
		cs, _ := NewGroup(1)
		serialComm = cs[0]
	})
	return serialComm
}

// Rank returns this handle's rank in [0, Size).
func (c *Comm) Rank() int { return c.rank }

// Size returns the number of ranks in the group.
func (c *Comm) Size() int { return len(c.g.members) }

// GroupID returns a process-unique identifier shared by all handles of
// the same group. It is the keying identity for caches such as the
// process-grid registry.
func (c *Comm) GroupID() uint64 { return c.g.id }

// peer returns the handle of another rank, panicking on a rank outside
// [0, Size). An out-of-range rank is a programmer error, as in the BLAS
// convention for bad shapes.
func (c *Comm) peer(rank int) *Comm {
	if rank < 0 || rank >= len(c.g.members) {
		panic(fmt.Sprintf("comm: rank %d outside group of size %d", rank, len(c.g.members)))
	}
	return c.g.members[rank]
}

// deliver appends a message to this rank's mailbox and wakes any waiting
// receiver. It never blocks: mailboxes are unbounded, matching the
// buffered standard-mode send semantics documented on Send.
func (c *Comm) deliver(m message) {
	c.mu.Lock()
	c.queue = append(c.queue, m)
	c.cond.Broadcast()
	c.mu.Unlock()
}

// take blocks until a message matching (src, tag) is present, removes it
// from the mailbox and returns it. Messages from the same source with
// different tags stay queued in arrival order.
func (c *Comm) take(src, tag int) message {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		for i, m := range c.queue {
			if m.src == src && m.tag == tag {
				c.queue = append(c.queue[:i], c.queue[i+1:]...)
				return m
			}
		}
		c.cond.Wait()
	}
}

// NewSubgroup creates a communicator over a subset of this group's
// ranks. ranks must be strictly increasing and within range. The call is
// collective over the subset members; every member receives a handle
// onto the same subgroup. Ranks outside the subset receive (nil, nil).
func (c *Comm) NewSubgroup(ranks []int) (*Comm, error) {
	if len(ranks) == 0 {
		return nil, ErrBadRanks
	}
	key := ""
	mypos := -1
	for i, r := range ranks {
		if r < 0 || r >= c.Size() || (i > 0 && r <= ranks[i-1]) {
			return nil, fmt.Errorf("NewSubgroup(%v): %w", ranks, ErrBadRanks)
		}
		if r == c.rank {
			mypos = i
		}
		key += fmt.Sprintf("%d,", r)
	}
	if mypos < 0 {
		return nil, nil
	}

	c.g.mu.Lock()
	sub, ok := c.g.subs[key]
	if !ok {
		sub = &group{
			id:      groupIDs.Add(1),
			members: make([]*Comm, len(ranks)),
			subs:    make(map[string]*group),
		}
		for i := range sub.members {
			sc := &Comm{rank: i, g: sub}
			sc.cond = sync.NewCond(&sc.mu)
			sub.members[i] = sc
		}
		c.g.subs[key] = sub
	}
	c.g.mu.Unlock()
	return sub.members[mypos], nil
}

// Send performs a standard-mode send: buf is copied into the message, so
// the caller may reuse it as soon as the call returns. Delivery is
// buffered; Send never blocks.
func Send[T Payload](c *Comm, buf []T, dest, tag int) {
	data := make([]T, len(buf))
	copy(data, buf)
	c.peer(dest).deliver(message{src: c.rank, tag: tag, data: data})
}

// Ssend performs a synchronous send: it returns only after the matching
// Recv has consumed the message. Use it where the receiver posts its
// receives late and unbounded buffering would hide a protocol error.
func Ssend[T Payload](c *Comm, buf []T, dest, tag int) {
	data := make([]T, len(buf))
	copy(data, buf)
	done := make(chan struct{})
	c.peer(dest).deliver(message{src: c.rank, tag: tag, data: data, recvd: done})
	<-done
}

// Recv blocks until a message with matching (src, tag) arrives and
// copies it into buf. The message length must equal len(buf) and the
// element types must agree; a mismatch is a protocol bug and panics.
func Recv[T Payload](c *Comm, buf []T, src, tag int) {
	m := c.take(src, tag)
	data, ok := m.data.([]T)
	if !ok || len(data) != len(buf) {
		panic(fmt.Sprintf("comm: receive buffer mismatch from rank %d tag %d: have %T(%d), want %T(%d)",
			src, tag, m.data, payloadLen(m.data), buf, len(buf)))
	}
	copy(buf, data)
	if m.recvd != nil {
		close(m.recvd)
	}
}

func payloadLen(data any) int {
	switch d := data.(type) {
	case []float64:
		return len(d)
	case []complex128:
		return len(d)
	case []int:
		return len(d)
	}
	return -1
}
