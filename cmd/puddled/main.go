package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/smolpuddle/puddle/params"
	"github.com/smolpuddle/puddle/pkg/api"
	"github.com/smolpuddle/puddle/pkg/chain"
	"github.com/smolpuddle/puddle/pkg/metrics"
	"github.com/smolpuddle/puddle/pkg/orderbook"
	"github.com/smolpuddle/puddle/pkg/p2p"
	"github.com/smolpuddle/puddle/pkg/storage"
	"github.com/smolpuddle/puddle/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (console, plus a file unless LOG_FILE is set empty)
	logger, err := newLogger(cfg.Node)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile, "level", cfg.Node.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(metrics.DefaultConfig())

	// ---- Storage ----
	store, err := storage.NewPebbleStore(cfg.StorePath())
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.StorePath(), "err", err)
	}
	defer store.Close()

	journal, err := storage.NewFileJournal(cfg.JournalPath())
	if err != nil {
		sugar.Fatalw("journal_open_failed", "path", cfg.JournalPath(), "err", err)
	}
	defer journal.Close()

	// ---- Chain (optional) ----
	// Without an RPC endpoint the node still serves orders, it just cannot
	// tell when one has been filled or canceled.
	var status orderbook.StatusSource
	if cfg.Chain.RPCURL != "" {
		client, err := chain.Dial(cfg.Chain.RPCURL)
		if err != nil {
			sugar.Fatalw("rpc_dial_failed", "url", cfg.Chain.RPCURL, "err", err)
		}
		defer client.Close()
		caller := chain.NewCaller(client, cfg.Chain.Contract, cfg.Chain.ID, nil)
		status = caller
		sugar.Infow("chain_configured", "rpc", cfg.Chain.RPCURL, "chain_id", cfg.Chain.ID, "contract", caller.Contract().Hex())
	} else {
		sugar.Info("chain_disabled - status refresh unavailable")
	}

	// ---- Orderbook ----
	book, err := orderbook.New(orderbook.Config{
		Store:   store,
		Journal: journal,
		Status:  status,
		Clock:   util.RealClock{},
		Logger:  sugar,
		Metrics: m,
	})
	if err != nil {
		sugar.Fatalw("orderbook_init_failed", "err", err)
	}
	sugar.Infow("orderbook_loaded", "orders", book.Len())

	// ---- P2P (optional) ----
	if cfg.P2P.Listen != "" {
		lpn, err := p2p.NewLibp2pNet(ctx, p2p.Libp2pConfig{
			ListenAddr: cfg.P2P.Listen,
			Bootstrap:  cfg.P2P.Bootstrap,
			Book:       book,
			Logger:     sugar,
			Metrics:    m,
		})
		if err != nil {
			sugar.Fatalw("libp2p_init_failed", "err", err)
		}
		defer lpn.Close()
		sugar.Infow("p2p_addrs", "addrs", lpn.Addrs())
	}

	go book.RunPruner(ctx, cfg.Node.PruneInterval)

	// ---- API Server ----
	apiServer := api.NewServer(api.Config{
		Book:           book,
		Contract:       cfg.Chain.Contract,
		ChainID:        cfg.Chain.ID,
		AllowedOrigins: cfg.Node.CORSOrigins,
		Logger:         sugar,
		Metrics:        m,
	})

	if err := apiServer.Start(ctx, cfg.Node.APIAddr); err != nil {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Info("shutdown_complete")
}

func newLogger(node params.Node) (*zap.Logger, error) {
	level := util.ParseLevel(node.LogLevel)
	if node.LogFile == "" {
		return util.NewLogger(level)
	}
	return util.NewLoggerWithFile(node.LogFile, level)
}
