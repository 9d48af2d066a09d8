package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tossbot/agent"
	"tossbot/chainwatcher"
	"tossbot/config"
	"tossbot/database"
	"tossbot/domain/entities"
	"tossbot/domain/interfaces"
	"tossbot/domain/services"
	"tossbot/events"
	"tossbot/store"
	"tossbot/wallet"

	"github.com/ethereum/go-ethereum/common"
)

// run initializes every dependency per the configured backend selection and
// blocks until ctx is cancelled, following the teacher's cmd.Run(ctx) shape:
// sequential logged initialization, a single <-ctx.Done() block, then
// best-effort cleanup with a timeout.
func run(ctx context.Context) error {
	log.Println("starting toss agent...")
	cfg := config.Get()

	var (
		st  interfaces.Store
		err error
	)
	switch cfg.StoreBackend {
	case "postgres":
		log.Println("connecting to database...")
		db, dbErr := database.NewConnection(ctx, cfg.DatabaseURL)
		if dbErr != nil {
			return fmt.Errorf("failed to connect to database: %w", dbErr)
		}
		defer db.Close()
		if migrateErr := database.RunMigrationsWithURL(cfg.DatabaseURL); migrateErr != nil {
			return fmt.Errorf("failed to run migrations: %w", migrateErr)
		}
		st = store.NewPostgresStore(db)
	default:
		log.Printf("using json store under %s\n", cfg.DataDir)
		st, err = store.NewJSONStore(cfg.DataDir, cfg.NetworkName)
		if err != nil {
			return fmt.Errorf("failed to initialize json store: %w", err)
		}
	}

	log.Println("initializing wallet provider...")
	var wallets interfaces.WalletProvider
	if cfg.WalletProviderBaseURL != "" {
		wallets = wallet.NewHTTPWallet(cfg.WalletProviderBaseURL, cfg.WalletProviderAPIKey)
	} else {
		wallets = wallet.NewInMemWallet()
	}

	log.Println("connecting to chain rpc...")
	watcher, err := chainwatcher.NewChainWatcher(ctx, cfg.ChainRPCURL, common.HexToAddress(cfg.StablecoinAddress))
	if err != nil {
		return fmt.Errorf("failed to connect chain watcher: %w", err)
	}
	if err := reconstructWatchedWallets(ctx, st, watcher); err != nil {
		return fmt.Errorf("failed to reconstruct monitored wallets: %w", err)
	}
	watcher.Start(time.Duration(cfg.WatcherPollInterval) * time.Second)
	defer watcher.Stop()

	log.Println("initializing event bus...")
	memPub := events.NewMemoryPublisher()
	var eventPublisher interfaces.EventPublisher = memPub
	if cfg.NATSServers != "" {
		natsPub, natsErr := events.NewNATSPublisher(ctx, cfg.NATSServers)
		if natsErr != nil {
			log.Printf("nats publisher unavailable, falling back to in-process only: %v\n", natsErr)
		} else {
			defer natsPub.Close()
			eventPublisher = fanoutPublisher{memPub, natsPub}
		}
	}

	if cfg.CheckpointBackend == "redis" {
		log.Printf("using redis checkpoint store at %s\n", cfg.RedisAddr)
		watcher.SetCheckpointStore(chainwatcher.NewRedisCheckpointStore(cfg.RedisAddr))
	}

	verifier := chainwatcher.NewTxVerifier(watcher.Client())
	codec := services.NewAmountCodec()
	correlation := services.NewCorrelationLayer(st, codec, verifier)
	engine := services.NewTossEngine(st, wallets, watcher, eventPublisher)
	watcher.OnTransaction(func(event interfaces.TransactionEvent, _ entities.MonitoredWallet) {
		result := correlation.Correlate(ctx, event, nil)
		if result.Unresolved {
			return
		}
		if _, err := engine.AddParticipant(ctx, result.TossID, result.SenderID, result.Option, true); err != nil {
			log.Printf("watched transfer %s not applied: %v\n", event.Hash, err)
		}
	})

	log.Println("initializing transport...")
	transport := agent.NewStubTransport(cfg.WalletProviderBaseURL)
	parser := agent.NewHeuristicParser()
	front := agent.NewAgentFront(transport, engine, correlation, wallets, watcher, parser)

	inbound := make(chan interfaces.InboundMessage)
	defer close(inbound)
	go transport.Stream(ctx, inbound, front.HandleInbound)

	log.Printf("toss agent running in %s mode...\n", cfg.Environment)
	<-ctx.Done()

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-shutdownCtx.Done():
		log.Println("shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("shutdown completed")
	}

	return nil
}

// reconstructWatchedWallets restores the invariant "a wallet is in the
// ChainWatcher set iff its toss is non-terminal" across restarts: every
// non-terminal toss found in the store gets its escrow wallet re-added to
// the watcher before polling begins, so an in-flight toss never silently
// stops being watched just because the process restarted.
func reconstructWatchedWallets(ctx context.Context, st interfaces.Store, watcher interfaces.ChainWatcher) error {
	tosses, err := st.ListTosses(ctx)
	if err != nil {
		return err
	}
	restored := 0
	for _, toss := range tosses {
		if toss.IsTerminal() {
			continue
		}
		watcher.AddWallet(toss.WalletAddress, toss.ID)
		restored++
	}
	log.Printf("restored %d monitored wallet(s) from non-terminal tosses\n", restored)
	return nil
}

// fanoutPublisher publishes to every wrapped EventPublisher, going on past
// an individual publisher's error and returning the first error seen; the
// engine logs that error and never fails the operation on it.
type fanoutPublisher []interfaces.EventPublisher

func (f fanoutPublisher) Publish(event interfaces.TossEvent) error {
	var firstErr error
	for _, p := range f {
		if err := p.Publish(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
