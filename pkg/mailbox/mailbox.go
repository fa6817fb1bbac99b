// Package mailbox provides the single-slot command mailbox between the
// remote command links and the scheduler.
//
// Writers overwrite any command that has not been taken yet. The command
// byte and the presence flag share one atomic word, so a Take never observes
// the flag of one write with the byte of another.
package mailbox

import "sync/atomic"

const present = 1 << 8

// Mailbox holds at most one pending command byte. The zero value is empty
// and ready to use.
type Mailbox struct {
	slot atomic.Uint32
}

// Put stores b, replacing any pending command.
func (m *Mailbox) Put(b byte) {
	m.slot.Store(present | uint32(b))
}

// Take removes and returns the pending command.
func (m *Mailbox) Take() (byte, bool) {
	v := m.slot.Swap(0)
	if v&present == 0 {
		return 0, false
	}
	return byte(v), true
}

// Pending reports whether a command is waiting.
func (m *Mailbox) Pending() bool {
	return m.slot.Load()&present != 0
}

// Clear discards any pending command.
func (m *Mailbox) Clear() {
	m.slot.Store(0)
}
