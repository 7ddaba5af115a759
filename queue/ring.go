// Package queue implements the bounded packet receive ring the Supervisor
// drains each cycle. It is the sole back-pressure surface exposed to the
// transport: a full ring causes Enqueue to drop and count the packet
// rather than block.
package queue

import (
	"sync"

	"github.com/fenwick-embedded/dfucore/protocol"
)

// Capacity is the fixed number of slots in the ring, per the spec's 16-slot
// packet queue.
const Capacity = 16

// Ring is a fixed-capacity ring buffer of protocol.Packet. It is safe for
// concurrent use by one producer (Enqueue, e.g. called from a transport
// callback) and one consumer (Dequeue, called from the Supervisor's
// cooperative loop) per the single-producer/single-consumer contract in
// the spec; a mutex stands in for the fence/atomic discipline a bare-metal
// implementation would need, since this core targets a hosted Go runtime.
type Ring struct {
	mu     sync.Mutex
	slots  [Capacity]protocol.Packet
	valid  [Capacity]bool
	head   int
	tail   int
	count  int
	onDrop func()
}

// New constructs an empty Ring. onDrop, if non-nil, is invoked synchronously
// each time Enqueue rejects a packet because the ring is full; the
// Supervisor uses it to update packets_dropped and check the emergency
// escalation threshold.
func New(onDrop func()) *Ring {
	return &Ring{onDrop: onDrop}
}

// Enqueue copies b into the slot at head and advances the ring. It returns
// false without mutating ring state when the ring is already full, after
// invoking onDrop.
func (r *Ring) Enqueue(b []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == Capacity {
		if r.onDrop != nil {
			r.onDrop()
		}
		return false
	}

	r.slots[r.head] = protocol.NewPacket(b)
	r.valid[r.head] = true
	r.head = (r.head + 1) % Capacity
	r.count++
	return true
}

// Dequeue returns the packet at tail and advances the ring, or false if
// the ring is empty or the slot at tail is not valid.
func (r *Ring) Dequeue() (protocol.Packet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 || !r.valid[r.tail] {
		return protocol.Packet{}, false
	}

	p := r.slots[r.tail]
	r.valid[r.tail] = false
	r.tail = (r.tail + 1) % Capacity
	r.count--
	return p, true
}

// Len reports the number of packets currently buffered.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
