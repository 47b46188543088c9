package eventsink

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/orderbook/libs/log"
)

func startPublisher(t *testing.T, sink Sink) *Publisher {
	t.Helper()
	p := NewPublisher(sink, 4, time.Second, log.TestingLogger(), WithRetryInterval(time.Millisecond))
	require.NoError(t, p.Start())
	return p
}

func TestPublisherDeliversInOrder(t *testing.T) {
	defer leaktest.Check(t)()

	sink := &recordingSink{}
	p := startPublisher(t, sink)
	for h := int64(1); h <= 10; h++ {
		require.NoError(t, p.Publish(testBlock(h)))
	}
	require.Eventually(t, func() bool { return len(sink.heights()) == 10 }, time.Second, time.Millisecond)
	require.NoError(t, p.Stop())

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sink.heights())
	assert.True(t, sink.closed)
}

func TestPublisherRetriesFailedWrites(t *testing.T) {
	defer leaktest.Check(t)()

	sink := &recordingSink{failures: 3}
	p := startPublisher(t, sink)
	require.NoError(t, p.Publish(testBlock(1)))
	require.NoError(t, p.Publish(testBlock(2)))

	require.Eventually(t, func() bool { return len(sink.heights()) == 2 }, time.Second, time.Millisecond)
	require.NoError(t, p.Stop())
	assert.Equal(t, []int64{1, 2}, sink.heights())
}

func TestPublisherStopsWhileSinkIsDown(t *testing.T) {
	defer leaktest.Check(t)()

	sink := &recordingSink{failures: -1}
	p := startPublisher(t, sink)
	require.NoError(t, p.Publish(testBlock(1)))
	require.NoError(t, p.Stop())

	assert.Empty(t, sink.heights())
	assert.True(t, sink.closed)
	assert.ErrorIs(t, p.Publish(testBlock(2)), ErrPublisherStopped)
}

func TestPublisherKeepsBlocksAcceptedDuringStop(t *testing.T) {
	defer leaktest.Check(t)()

	for i := 0; i < 20; i++ {
		sink := &recordingSink{}
		p := startPublisher(t, sink)

		var (
			wg       sync.WaitGroup
			mtx      sync.Mutex
			accepted []int64
		)
		for h := int64(1); h <= 8; h++ {
			wg.Add(1)
			go func(h int64) {
				defer wg.Done()
				if p.Publish(testBlock(h)) == nil {
					mtx.Lock()
					accepted = append(accepted, h)
					mtx.Unlock()
				}
			}(h)
		}
		require.NoError(t, p.Stop())
		wg.Wait()

		assert.ElementsMatch(t, accepted, sink.heights(), "an accepted block was lost")
		assert.True(t, sink.closed)
	}
}

func TestPublishUnblocksOnStop(t *testing.T) {
	defer leaktest.Check(t)()

	sink := &recordingSink{failures: -1}
	p := NewPublisher(sink, 1, time.Second, log.TestingLogger(), WithRetryInterval(time.Millisecond))
	require.NoError(t, p.Start())

	// the loop holds block 1, block 2 fills the queue
	require.NoError(t, p.Publish(testBlock(1)))
	require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, p.Publish(testBlock(2)))

	errc := make(chan error, 1)
	go func() { errc <- p.Publish(testBlock(3)) }()
	require.NoError(t, p.Stop())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrPublisherStopped)
	case <-time.After(time.Second):
		t.Fatal("Publish is still blocked after Stop")
	}
}
