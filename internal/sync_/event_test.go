package sync_

import (
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestEvent(t *testing.T) {
	assert := assert_.New(t)
	var e Event

	assert.False(e.IsSet())
	select {
	case <-e.Wait():
		assert.Fail("Wait should block before Set")
	default:
	}

	assert.True(e.Set(), "first Set changes state")
	assert.True(e.IsSet())
	select {
	case <-e.Wait():
	default:
		assert.Fail("Wait should be ready after Set")
	}

	// Once set, the latch stays set
	assert.False(e.Set(), "repeat Set is a no-op")
	assert.True(e.IsSet())
}

func TestEvent_WaitBeforeSet(t *testing.T) {
	assert := assert_.New(t)
	var e Event

	done := make(chan struct{})
	go func() {
		<-e.Wait()
		close(done)
	}()
	e.Set()
	<-done
	assert.True(e.IsSet())
}
