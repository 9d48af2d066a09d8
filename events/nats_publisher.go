package events

import (
	"context"

	"tossbot/domain/interfaces"
)

// NATSPublisher is the multi-process EventPublisher backed by JetStream,
// for deployments running more than one tossbot instance against a
// shared store.
type NATSPublisher struct {
	client *natsClient
}

// NewNATSPublisher connects to the given NATS servers and returns a
// publisher ready to use.
func NewNATSPublisher(ctx context.Context, servers string) (*NATSPublisher, error) {
	client := newNATSClient(servers)
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return &NATSPublisher{client: client}, nil
}

func (p *NATSPublisher) Publish(event interfaces.TossEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	return p.client.Publish(context.Background(), Subject, data)
}

func (p *NATSPublisher) Close() error {
	return p.client.Close()
}
