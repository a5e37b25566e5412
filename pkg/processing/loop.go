package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	customlog "github.com/open-teleop/rover/pkg/log"
)

// ErrLoopStopped is returned for events offered to a loop that is not running.
var ErrLoopStopped = errors.New("event loop not running")

// EventKind identifies what happened on a control surface
type EventKind uint8

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventMessage
	EventRequest
	EventHalt
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	case EventRequest:
		return "request"
	case EventHalt:
		return "halt"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one unit of work for the loop
type Event struct {
	Kind      EventKind
	ConnID    string
	Payload   []byte
	Timestamp int64

	done chan error
}

// NewEvent creates an event stamped with the current time
func NewEvent(kind EventKind, connID string, payload []byte) *Event {
	return &Event{
		Kind:      kind,
		ConnID:    connID,
		Payload:   payload,
		Timestamp: time.Now().UnixNano(),
	}
}

// ProcessResult is the outcome of handling one event
type ProcessResult struct {
	Event    *Event
	Error    error
	Duration time.Duration
}

// EventHandler applies an event. It always runs on the loop goroutine.
type EventHandler func(ev *Event) error

// ResultHandler observes every handled event, still on the loop goroutine
type ResultHandler func(result *ProcessResult)

// EventLoop applies events strictly one at a time, in arrival order, on a
// single goroutine. Everything the handler touches is therefore owned by that
// goroutine and needs no locking.
type EventLoop struct {
	name          string
	logger        customlog.Logger
	queue         chan *Event
	quit          chan struct{}
	stopped       chan struct{}
	running       bool
	wg            sync.WaitGroup
	mu            sync.Mutex
	// held shared by Enqueue across its send so Stop cannot close quit
	// between the running check and the queue write
	sendMu        sync.RWMutex
	handler       EventHandler
	resultHandler ResultHandler
	queueSize     int
	metrics       *LoopMetrics
}

// LoopMetrics tracks metrics for an event loop
type LoopMetrics struct {
	ProcessedCount    int64
	ErrorCount        int64
	QueuedCount       int64
	PanicCount        int64
	LastProcessedTime int64
	ProcessingTimeAvg int64 // in microseconds
	ProcessingTimeMax int64 // in microseconds
	mu                sync.Mutex
}

// NewEventLoop creates a new event loop
func NewEventLoop(name string, queueSize int, logger customlog.Logger) *EventLoop {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &EventLoop{
		name:      name,
		queueSize: queueSize,
		logger:    logger,
		queue:     make(chan *Event, queueSize),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		metrics:   &LoopMetrics{},
	}
}

// SetHandler sets the event handler
func (l *EventLoop) SetHandler(handler EventHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = handler
}

// SetResultHandler sets the result handler function
func (l *EventLoop) SetResultHandler(handler ResultHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resultHandler = handler
}

// Enqueue queues ev, blocking while the queue is full. Events are never
// discarded for lack of space; the caller's context bounds the wait.
func (l *EventLoop) Enqueue(ctx context.Context, ev *Event) error {
	l.sendMu.RLock()
	defer l.sendMu.RUnlock()

	l.mu.Lock()
	running := l.running
	l.mu.Unlock()

	if !running {
		l.logger.Warnf("%s loop not running, rejecting %s event", l.name, ev.Kind)
		return ErrLoopStopped
	}

	select {
	case l.queue <- ev:
		l.metrics.mu.Lock()
		l.metrics.QueuedCount++
		l.metrics.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process queues ev and waits until the handler has applied it, returning the
// handler's error.
func (l *EventLoop) Process(ctx context.Context, ev *Event) error {
	ev.done = make(chan error, 1)
	if err := l.Enqueue(ctx, ev); err != nil {
		return err
	}

	select {
	case err := <-ev.done:
		return err
	case <-l.stopped:
		// The worker may have finished ev just before exiting
		select {
		case err := <-ev.done:
			return err
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start starts the loop goroutine
func (l *EventLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}

	l.running = true
	l.logger.Infof("Starting %s event loop (queue=%d)", l.name, l.queueSize)

	l.wg.Add(1)
	go l.run()
}

// Stop stops accepting events, drains what is already queued and waits for
// the loop goroutine to exit.
func (l *EventLoop) Stop() {
	// Waits for in-flight sends; the worker keeps draining meanwhile
	l.sendMu.Lock()
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		l.sendMu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()
	l.sendMu.Unlock()

	l.logger.Infof("Stopping %s event loop", l.name)
	close(l.quit)

	l.wg.Wait()
	close(l.stopped)
	l.logger.Infof("%s event loop stopped", l.name)

	l.logMetrics()
}

func (l *EventLoop) run() {
	defer l.wg.Done()

	l.logger.Debugf("%s event loop started", l.name)

	for {
		select {
		case ev := <-l.queue:
			l.handle(ev)
		case <-l.quit:
			for {
				select {
				case ev := <-l.queue:
					l.handle(ev)
				default:
					l.logger.Debugf("%s event loop drained", l.name)
					return
				}
			}
		}
	}
}

func (l *EventLoop) handle(ev *Event) {
	l.mu.Lock()
	handler := l.handler
	resultHandler := l.resultHandler
	l.mu.Unlock()

	var err error
	startTime := time.Now()

	if handler == nil {
		err = fmt.Errorf("no handler set for %s loop", l.name)
	} else {
		err = l.safeHandle(handler, ev)
	}

	processingTime := time.Since(startTime)
	l.recordMetrics(processingTime.Microseconds(), err)

	if ev.done != nil {
		ev.done <- err
	}

	if resultHandler != nil {
		resultHandler(&ProcessResult{Event: ev, Error: err, Duration: processingTime})
	}
}

// safeHandle keeps the loop alive if the handler panics
func (l *EventLoop) safeHandle(handler EventHandler, ev *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.metrics.mu.Lock()
			l.metrics.PanicCount++
			l.metrics.mu.Unlock()
			err = fmt.Errorf("panic handling %s event: %v", ev.Kind, r)
		}
	}()
	return handler(ev)
}

func (l *EventLoop) recordMetrics(processingTime int64, err error) {
	l.metrics.mu.Lock()
	defer l.metrics.mu.Unlock()

	l.metrics.ProcessedCount++
	l.metrics.LastProcessedTime = time.Now().UnixNano()

	if l.metrics.ProcessingTimeAvg == 0 {
		l.metrics.ProcessingTimeAvg = processingTime
	} else {
		// Simple moving average
		l.metrics.ProcessingTimeAvg = (l.metrics.ProcessingTimeAvg + processingTime) / 2
	}
	if processingTime > l.metrics.ProcessingTimeMax {
		l.metrics.ProcessingTimeMax = processingTime
	}
	if err != nil {
		l.metrics.ErrorCount++
	}
}

// GetMetrics returns a copy of the current metrics
func (l *EventLoop) GetMetrics() LoopMetrics {
	l.metrics.mu.Lock()
	defer l.metrics.mu.Unlock()

	return LoopMetrics{
		ProcessedCount:    l.metrics.ProcessedCount,
		ErrorCount:        l.metrics.ErrorCount,
		QueuedCount:       l.metrics.QueuedCount,
		PanicCount:        l.metrics.PanicCount,
		LastProcessedTime: l.metrics.LastProcessedTime,
		ProcessingTimeAvg: l.metrics.ProcessingTimeAvg,
		ProcessingTimeMax: l.metrics.ProcessingTimeMax,
	}
}

func (l *EventLoop) logMetrics() {
	metrics := l.GetMetrics()

	l.logger.Infof("%s loop metrics: processed=%d, errors=%d, panics=%d, avg_time=%dµs, max_time=%dµs",
		l.name, metrics.ProcessedCount, metrics.ErrorCount, metrics.PanicCount,
		metrics.ProcessingTimeAvg, metrics.ProcessingTimeMax)
}

// GetName returns the loop name
func (l *EventLoop) GetName() string {
	return l.name
}

// GetQueueLength returns the current length of the event queue
func (l *EventLoop) GetQueueLength() int {
	return len(l.queue)
}

// GetQueueCapacity returns the capacity of the event queue
func (l *EventLoop) GetQueueCapacity() int {
	return l.queueSize
}
