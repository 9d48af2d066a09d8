package events

import (
	"context"

	log "github.com/sirupsen/logrus"

	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
)

// NATSSubscriber consumes TossStateChanged events published by other
// tossbot instances, for a process that wants to react to toss state
// without owning the engine that produced it (e.g. a read-only dashboard
// or notification relay).
type NATSSubscriber struct {
	client *natsClient
}

// NewNATSSubscriber connects to the given NATS servers.
func NewNATSSubscriber(ctx context.Context, servers string) (*NATSSubscriber, error) {
	client := newNATSClient(servers)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return &NATSSubscriber{client: client}, nil
}

// Subscribe registers handler for every decoded TossStateChanged event.
func (s *NATSSubscriber) Subscribe(handler func(interfaces.TossEventType, *entities.Toss)) error {
	return s.client.Subscribe(Subject, func(data []byte) error {
		eventType, toss, err := Decode(data)
		if err != nil {
			log.WithError(err).Error("failed to decode toss event envelope")
			return err
		}
		handler(eventType, toss)
		return nil
	})
}

func (s *NATSSubscriber) Close() error {
	return s.client.Close()
}
