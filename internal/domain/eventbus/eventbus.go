package eventbus

import (
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"

	"jabbusiness-client-go/internal/platform/logging"
)

const defaultQueueSize = 256

// Bus delivers in-process notifications. Publish runs subscribers on the
// caller's goroutine; PublishAsync hands the event to a worker pool and
// never blocks, dropping the event when the queue is full.
type Bus struct {
	bus       evbus.Bus
	logger    *logging.Logger
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	dropped   atomic.Int64
}

type asyncEvent struct {
	topic string
	args  []any
}

// New creates a bus with workerNum async workers. Call Start before
// PublishAsync and Close when done.
func New(workerNum int, logger *logging.Logger) *Bus {
	if workerNum <= 0 {
		workerNum = 2
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{
		bus:       evbus.New(),
		logger:    logger,
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, defaultQueueSize),
		stopChan:  make(chan struct{}),
	}
}

// Start launches the async workers. Calling it twice is harmless.
func (b *Bus) Start() {
	b.startOnce.Do(func() {
		for i := 0; i < b.workerNum; i++ {
			b.wg.Add(1)
			go b.worker()
		}
	})
}

// Close drains queued events, stops the workers and waits for async
// subscribers.
func (b *Bus) Close() {
	b.stopOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		for {
			select {
			case ev := <-b.workChan:
				b.deliver(ev)
			default:
				b.bus.WaitAsync()
				return
			}
		}
	})
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.stopChan:
			return
		case ev := <-b.workChan:
			b.deliver(ev)
		}
	}
}

func (b *Bus) deliver(ev asyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorTag(logging.TagBus, "subscriber for %s panicked: %v", ev.topic, r)
		}
	}()
	b.bus.Publish(ev.topic, ev.args...)
}

// Publish delivers synchronously.
func (b *Bus) Publish(topic string, args ...any) {
	b.deliver(asyncEvent{topic: topic, args: args})
}

// PublishAsync queues the event for the worker pool.
func (b *Bus) PublishAsync(topic string, args ...any) {
	select {
	case <-b.stopChan:
		return
	default:
	}
	select {
	case b.workChan <- asyncEvent{topic: topic, args: args}:
	default:
		b.dropped.Add(1)
		b.logger.WarnTag(logging.TagBus, "event queue full, dropped %s", topic)
	}
}

// Subscribe registers fn for topic. fn must accept the published args.
func (b *Bus) Subscribe(topic string, fn any) error {
	return b.bus.Subscribe(topic, fn)
}

// SubscribeAsync runs fn on its own goroutine for every event, serialized
// per subscriber.
func (b *Bus) SubscribeAsync(topic string, fn any) error {
	return b.bus.SubscribeAsync(topic, fn, true)
}

func (b *Bus) Unsubscribe(topic string, fn any) error {
	return b.bus.Unsubscribe(topic, fn)
}

func (b *Bus) HasCallback(topic string) bool {
	return b.bus.HasCallback(topic)
}

// WaitAsync blocks until async subscribers have finished.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

// Dropped reports how many async events were discarded.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
