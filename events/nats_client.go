package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// natsClient wraps a NATS JetStream connection the same way the teacher's
// NATSClient does: reconnect handlers wired at connect time, a single
// stream holding the domain's one subject, manual-ack durable
// subscriptions.
type natsClient struct {
	servers string
	nc      *nats.Conn
	js      nats.JetStreamContext

	mu            sync.RWMutex
	subscriptions map[string]*nats.Subscription
}

// newNATSClient constructs an unconnected client.
func newNATSClient(servers string) *natsClient {
	return &natsClient{
		servers:       servers,
		subscriptions: make(map[string]*nats.Subscription),
	}
}

// Connect establishes the NATS connection and JetStream context, and
// ensures the tosses stream exists.
func (c *natsClient) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("tossbot"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("nats disconnected with error")
			} else {
				log.Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.WithError(err).Error("nats async error")
		}),
	}

	nc, err := nats.Connect(c.servers, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create jetstream context: %w", err)
	}

	c.nc = nc
	c.js = js

	if err := c.ensureStream("tosses", []string{Subject}); err != nil {
		nc.Close()
		return err
	}

	log.WithField("servers", c.servers).Info("connected to nats with jetstream")
	return nil
}

func (c *natsClient) ensureStream(name string, subjects []string) error {
	if _, err := c.js.StreamInfo(name); err == nil {
		return nil
	}
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  subjects,
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		MaxMsgs:   1_000_000,
		Storage:   nats.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}
	return nil
}

func (c *natsClient) Subscribe(subject string, handler func([]byte) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.js == nil {
		return fmt.Errorf("not connected to nats jetstream")
	}

	sub, err := c.js.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			log.WithError(err).Error("failed to process message")
			if nakErr := msg.Nak(); nakErr != nil {
				log.WithError(nakErr).Error("failed to nak message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.WithError(ackErr).Error("failed to ack message")
		}
	},
		nats.Durable("tossbot-consumer"),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(3),
		nats.AckWait(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.subscriptions[subject] = sub
	return nil
}

func (c *natsClient) Publish(ctx context.Context, subject string, data []byte) error {
	if c.js == nil {
		return fmt.Errorf("not connected to nats jetstream")
	}
	if _, err := c.js.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

func (c *natsClient) IsConnected() bool {
	return c.nc != nil && c.nc.IsConnected()
}

func (c *natsClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subscriptions {
		_ = sub.Unsubscribe()
	}
	c.subscriptions = make(map[string]*nats.Subscription)
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
