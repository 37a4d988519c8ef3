package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenReject(t *testing.T) {
	l := NewSendLimiter(0.001, 3, time.Hour)
	defer l.Close()

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("alice")
		assert.True(t, ok, "request %d", i)
	}
	ok, wait := l.Allow("alice")
	assert.False(t, ok)
	assert.Positive(t, wait)

	ok, _ = l.Allow("bob")
	assert.True(t, ok, "keys are independent")
}

func TestRejectedRequestDoesNotConsumeToken(t *testing.T) {
	l := NewSendLimiter(20, 1, time.Hour)
	defer l.Close()

	ok, _ := l.Allow("alice")
	assert.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow("alice")
		assert.False(t, ok)
	}
	time.Sleep(80 * time.Millisecond)
	ok, _ = l.Allow("alice")
	assert.True(t, ok)
}

func TestEvictIdle(t *testing.T) {
	l := NewSendLimiter(1, 1, time.Minute)
	defer l.Close()

	l.Allow("alice")
	l.evictIdle(time.Now())
	assert.Equal(t, 1, l.size())
	l.evictIdle(time.Now().Add(2 * time.Minute))
	assert.Zero(t, l.size())
}
