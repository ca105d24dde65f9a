package syncutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutex_SameKeySerialises(t *testing.T) {
	var m ShardedMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("data/batch_predictions.csv")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestShardedMutex_ShardIsStable(t *testing.T) {
	var m ShardedMutex
	assert.Same(t, m.shard("S001"), m.shard("S001"))
}
