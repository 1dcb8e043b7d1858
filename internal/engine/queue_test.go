package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeEvent(closeTime uint32) event {
	return event{typ: eventClose, close: &closeRequest{closeTime: closeTime}}
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()
	for i := uint32(1); i <= 3; i++ {
		require.True(t, q.Enqueue(closeEvent(i)))
	}
	assert.Equal(t, 3, q.Len())

	for i := uint32(1); i <= 3; i++ {
		e, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, eventClose, e.typ)
		assert.Equal(t, i, e.close.closeTime)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_WaitSignals(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(closeEvent(1))
	q.Enqueue(closeEvent(2))

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no signal after enqueue")
	}
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(closeEvent(1)), "enqueue after close should return false")
	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait did not fire after close")
	}
}

func TestEventQueue_ConcurrentProducers(t *testing.T) {
	q := newEventQueue()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Enqueue(closeEvent(uint32(i)))
			}
		}()
	}
	wg.Wait()

	n := 0
	for {
		if _, ok := q.TryDequeue(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, producers*perProducer, n)
}
