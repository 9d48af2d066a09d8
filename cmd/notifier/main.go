// Command notifier is a secondary, read-only consumer of the toss event
// bus: it never touches the store or the engine, it only subscribes to
// NATS and logs state changes, standing in for a notification relay or
// dashboard process that runs alongside the main tossbot instance.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	logrus "github.com/sirupsen/logrus"

	"tossbot/config"
	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/events"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("notifier: received shutdown signal, shutting down...")
		cancel()
	}()

	cfg := config.Get()
	sub, err := events.NewNATSSubscriber(ctx, cfg.NATSServers)
	if err != nil {
		log.Fatal("notifier: failed to connect to nats: ", err)
	}
	defer sub.Close()

	if err := sub.Subscribe(logTossEvent); err != nil {
		log.Fatal("notifier: failed to subscribe: ", err)
	}

	log.Println("notifier: listening for toss state changes...")
	<-ctx.Done()
	log.Println("notifier: shut down")
}

func logTossEvent(eventType interfaces.TossEventType, toss *entities.Toss) {
	logrus.WithFields(logrus.Fields{
		"eventType": eventType,
		"tossId":    toss.ID,
		"status":    toss.Status,
	}).Info("toss state changed")
}
