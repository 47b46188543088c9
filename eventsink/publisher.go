package eventsink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tendermint/tendermint/libs/service"

	"github.com/tendermint/orderbook/libs/log"
)

// ErrPublisherStopped is returned by Publish once the publisher is stopped.
var ErrPublisherStopped = errors.New("event publisher is stopped")

const defaultRetryInterval = time.Second

// Publisher hands committed blocks to a Sink on its own goroutine, in
// commit order. A failed write is retried until it succeeds or the
// publisher stops, so a sink never sees a gap.
type Publisher struct {
	service.BaseService

	sink          Sink
	queue         chan BlockEvents
	writeTimeout  time.Duration
	retryInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// stopping wakes publishers blocked on a full queue. closed is set
	// under mtx once no publisher can enqueue any more.
	stopping chan struct{}
	mtx      sync.RWMutex
	closed   bool
	// unwritten is the block the loop gave up on when stopped.
	unwritten *BlockEvents
}

// PublisherOption sets an optional parameter on the Publisher.
type PublisherOption func(*Publisher)

// WithRetryInterval sets the pause between attempts to write a block.
func WithRetryInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.retryInterval = d }
}

// NewPublisher returns a publisher buffering up to bufferSize blocks.
func NewPublisher(sink Sink, bufferSize int, writeTimeout time.Duration, logger log.Logger, options ...PublisherOption) *Publisher {
	p := &Publisher{
		sink:          sink,
		queue:         make(chan BlockEvents, bufferSize),
		writeTimeout:  writeTimeout,
		retryInterval: defaultRetryInterval,
		done:          make(chan struct{}),
		stopping:      make(chan struct{}),
	}
	p.BaseService = *service.NewBaseService(logger, "EventPublisher", p)
	for _, option := range options {
		option(p)
	}
	return p
}

// OnStart implements service.Service.
func (p *Publisher) OnStart() error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	go p.loop()
	return nil
}

// OnStop implements service.Service. Blocks still queued are written once
// more before the sink is closed.
func (p *Publisher) OnStop() {
	close(p.stopping)
	// wait for in-flight enqueues so the drain below sees every accepted block
	p.mtx.Lock()
	p.closed = true
	p.mtx.Unlock()

	p.cancel()
	<-p.done

	if p.unwritten != nil {
		p.writeOnce(*p.unwritten)
	}
	for {
		select {
		case block := <-p.queue:
			p.writeOnce(block)
		default:
			if err := p.sink.Close(); err != nil {
				p.Logger.Error("failed to close event sink", "err", err)
			}
			return
		}
	}
}

// Publish queues the events of a committed block. It blocks while the
// queue is full. A block accepted with a nil error is written before the
// sink is closed, even if Stop runs concurrently.
func (p *Publisher) Publish(block BlockEvents) error {
	if !p.IsRunning() {
		return ErrPublisherStopped
	}
	p.mtx.RLock()
	defer p.mtx.RUnlock()
	if p.closed {
		return ErrPublisherStopped
	}
	select {
	case p.queue <- block:
		return nil
	case <-p.stopping:
		return ErrPublisherStopped
	}
}

func (p *Publisher) loop() {
	defer close(p.done)
	for {
		select {
		case block := <-p.queue:
			if !p.write(block) {
				p.unwritten = &block
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Publisher) writeOnce(block BlockEvents) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.sink.Write(ctx, block); err != nil {
		p.Logger.Error("dropping events of block", "height", block.Height, "err", err)
	}
}

// write retries until the block is written. It reports false if the
// publisher stopped first.
func (p *Publisher) write(block BlockEvents) bool {
	for {
		ctx, cancel := context.WithTimeout(p.ctx, p.writeTimeout)
		err := p.sink.Write(ctx, block)
		cancel()
		if err == nil {
			p.Logger.Debug("published block events", "height", block.Height, "events", len(block.Events))
			return true
		}
		p.Logger.Error("failed to publish block events", "height", block.Height, "err", err)

		select {
		case <-time.After(p.retryInterval):
		case <-p.ctx.Done():
			return false
		}
	}
}
