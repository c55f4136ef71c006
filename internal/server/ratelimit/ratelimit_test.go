package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(3, time.Minute)

	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
}

func TestClientsAreIndependent(t *testing.T) {
	l := New(1, time.Minute)

	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"))
}

func TestRefill(t *testing.T) {
	// 100 tokens per second so the refill is observable without sleeping long.
	l := New(100, time.Second)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("c"))
	}
	assert.False(t, l.Allow("c"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, l.Allow("c"))
}
