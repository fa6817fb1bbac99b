package robot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gwillem/robodog/pkg/waiter"
)

func TestBusGate(t *testing.T) {
	now := time.Unix(0, 0)
	g := newBusGate(DefaultBusHold)
	g.now = func() time.Time { return now }

	assert.True(t, g.allow())

	g.trip()
	assert.False(t, g.allow())

	now = now.Add(DefaultBusHold - time.Millisecond)
	assert.False(t, g.allow())

	now = now.Add(time.Millisecond)
	assert.True(t, g.allow())
}

func TestWriteTimeoutBelowQuantum(t *testing.T) {
	assert.Less(t, DefaultWriteTimeout, waiter.DefaultQuantum)
}
