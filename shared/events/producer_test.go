package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilProducerIsSafe(t *testing.T) {
	var p *Producer

	assert.NotPanics(t, func() {
		p.Publish(TypeSalaryGenerated, "tenants/house", "actor-1", nil)
	})
	assert.NoError(t, p.Close())
}

func TestPublishDuringShutdownDoesNotPanic(t *testing.T) {
	p, err := NewProducer("localhost:9092")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	// A publish racing the shutdown queues or drops; the channel stays open.
	assert.NotPanics(t, func() {
		p.Publish(TypeProjectDeleted, "tenants/house", "actor-1", map[string]interface{}{
			"project_id": "p1",
		})
	})
}

func TestPublishDropsWhenQueueFull(t *testing.T) {
	p, err := NewProducer("localhost:9092")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	// With the workers stopped the buffer fills up; overflow is dropped
	// without blocking the caller.
	assert.NotPanics(t, func() {
		for i := 0; i < 2000; i++ {
			p.Publish(TypeSalaryHeld, "tenants/house", "actor-1", nil)
		}
	})
}
