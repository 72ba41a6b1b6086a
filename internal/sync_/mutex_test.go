package sync_

import (
	"errors"
	"sync"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestRWMutexed(t *testing.T) {
	assert := assert_.New(t)

	m := NewRWMutexed(map[string]int{"a": 1})
	assert.Equal(map[string]int{"a": 1}, m.Get())

	assert.Nil(m.Locked(func(v map[string]int) error {
		v["b"] = 2
		return nil
	}))
	var got int
	assert.Nil(m.RLocked(func(v map[string]int) error {
		got = v["b"]
		return nil
	}))
	assert.Equal(2, got)

	err := errors.New("propagated")
	assert.Equal(err, m.Locked(func(map[string]int) error { return err }))

	old := m.Swap(nil)
	assert.Equal(2, old["b"])
	assert.Nil(m.Get())
}

func TestRWMutexed_Concurrent(t *testing.T) {
	assert := assert_.New(t)

	m := NewRWMutexed(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Locked(func(int) error {
				m.value++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(100, m.Get())
}
