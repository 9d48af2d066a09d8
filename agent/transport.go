package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"tossbot/domain/interfaces"
)

// MemoryTransport is the in-process reference Transport implementation:
// it records every outbound message and fans it out to subscribers,
// standing in for the out-of-scope secure-messaging transport in tests
// and local runs.
type MemoryTransport struct {
	mu        sync.Mutex
	sent      []sentMessage
	listeners []func(conversationID string, msg interfaces.OutboundMessage)
}

type sentMessage struct {
	ConversationID string
	Message        interfaces.OutboundMessage
}

// NewMemoryTransport constructs an empty MemoryTransport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

func (t *MemoryTransport) Send(ctx context.Context, conversationID string, msg interfaces.OutboundMessage) error {
	t.mu.Lock()
	t.sent = append(t.sent, sentMessage{ConversationID: conversationID, Message: msg})
	listeners := append([]func(string, interfaces.OutboundMessage){}, t.listeners...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(conversationID, msg)
	}
	return nil
}

// Sent returns every message sent so far, for test assertions.
func (t *MemoryTransport) Sent() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentMessage{}, t.sent...)
}

// OnSend registers a listener invoked synchronously after every Send.
func (t *MemoryTransport) OnSend(fn func(conversationID string, msg interfaces.OutboundMessage)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// StubTransport is a reference outbound Transport for deployments. It has
// no network client: sendOnce only logs the message. Send wraps it in a
// reconnect-style exponential backoff and counts consecutive failed sends;
// once stubTransportRecreateThreshold accumulate it logs a warning, resets
// the count and records the time in lastRecreate. Nothing is rebuilt.
type StubTransport struct {
	endpoint string

	mu              sync.Mutex
	consecutiveFail int
	lastRecreate    time.Time
}

const stubTransportRecreateThreshold = 6

// NewStubTransport constructs a StubTransport posting to endpoint.
func NewStubTransport(endpoint string) *StubTransport {
	return &StubTransport{endpoint: endpoint}
}

func (t *StubTransport) Send(ctx context.Context, conversationID string, msg interfaces.OutboundMessage) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.Multiplier = 1.5
	b.MaxInterval = 60 * time.Second
	b.RandomizationFactor = 0.3

	operation := func() error {
		return t.sendOnce(ctx, conversationID, msg)
	}

	err := backoff.Retry(operation, backoff.WithContext(b, ctx))
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.consecutiveFail++
		if t.consecutiveFail >= stubTransportRecreateThreshold {
			log.WithField("endpoint", t.endpoint).Warn("transport exhausted reconnect budget, recreating client")
			t.consecutiveFail = 0
			t.lastRecreate = timeNow()
		}
		return fmt.Errorf("send to %s: %w", conversationID, err)
	}
	t.consecutiveFail = 0
	return nil
}

// sendOnce is the out-of-scope transport's actual wire call; this
// reference implementation has nothing to dial and always succeeds, since
// the secure-messaging transport itself is explicitly out of scope.
func (t *StubTransport) sendOnce(ctx context.Context, conversationID string, msg interfaces.OutboundMessage) error {
	log.WithFields(log.Fields{
		"conversationId": conversationID,
		"contentType":    msg.ContentType,
	}).Debug("stub transport send")
	return nil
}

// inboundWorkerPoolSize bounds how many inbound messages StubTransport's
// Stream loop processes concurrently, per the concurrency model's "each
// inbound message is processed on its own subtask" rule over a bounded
// pool rather than an unbounded goroutine-per-message fan-out.
const inboundWorkerPoolSize = 8

// Stream runs the transport's message-streaming worker: it owns the
// inbound connection (out of scope here, so it never actually produces
// messages on its own) and dispatches whatever arrives on inbound to
// handler, one subtask per message, bounded by inboundWorkerPoolSize. It
// blocks until ctx is cancelled or inbound is closed.
func (t *StubTransport) Stream(ctx context.Context, inbound <-chan interfaces.InboundMessage, handler func(context.Context, interfaces.InboundMessage)) {
	sem := make(chan struct{}, inboundWorkerPoolSize)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case msg, ok := <-inbound:
			if !ok {
				wg.Wait()
				return
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(m interfaces.InboundMessage) {
				defer wg.Done()
				defer func() { <-sem }()
				handler(ctx, m)
			}(msg)
		}
	}
}

// timeNow is a seam so tests could substitute a fixed clock; production
// code always uses the wall clock.
var timeNow = time.Now
