package events

import "tossbot/domain/interfaces"

// MemoryPublisher is the in-memory synchronous EventPublisher: it fans a
// published event out to its registered subscribers immediately, on the
// publishing goroutine. cmd/tossbot wires it as the in-process publisher,
// alone or beside NATS. AgentFront does not subscribe to it; it registers
// its handler through the engine's OnTossEvent.
type MemoryPublisher struct {
	subscribers []func(interfaces.TossEvent)
}

// NewMemoryPublisher constructs an empty in-memory publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Subscribe registers a handler invoked synchronously on every Publish.
func (p *MemoryPublisher) Subscribe(handler func(interfaces.TossEvent)) {
	p.subscribers = append(p.subscribers, handler)
}

func (p *MemoryPublisher) Publish(event interfaces.TossEvent) error {
	for _, sub := range p.subscribers {
		sub(event)
	}
	return nil
}
