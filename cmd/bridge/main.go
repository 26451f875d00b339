package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Cleancoindev2/ptokens-core/internal/alert"
	"github.com/Cleancoindev2/ptokens-core/internal/btcscript"
	"github.com/Cleancoindev2/ptokens-core/internal/cache"
	"github.com/Cleancoindev2/ptokens-core/internal/canon"
	"github.com/Cleancoindev2/ptokens-core/internal/config"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/extractor"
	"github.com/Cleancoindev2/ptokens-core/internal/pipeline"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
	"github.com/Cleancoindev2/ptokens-core/internal/store/bolt"
	"github.com/Cleancoindev2/ptokens-core/internal/store/memory"
	"github.com/Cleancoindev2/ptokens-core/internal/store/postgres"
	redisstore "github.com/Cleancoindev2/ptokens-core/internal/store/redis"
	"github.com/Cleancoindev2/ptokens-core/internal/tracing"
)

const serviceName = "ptokens-bridge"

func main() {
	if err := run(); err != nil {
		slog.Error("bridge exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, serviceName, cfg.Tracing.OTLPEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	stores, cleanup, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	btcNetwork := model.Network(cfg.Bridge.BTCNetwork)
	if err := bootstrap(ctx, stores.chain, cfg, logger); err != nil {
		return fmt.Errorf("bootstrap chain store: %w", err)
	}

	redisClient, err := redisstore.New(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	alerter := newAlerter(cfg.Alert, logger)

	params, err := btcscript.ParamsForNetwork(btcNetwork)
	if err != nil {
		return err
	}

	// BTC side: deposit recognition plus canonicality.
	btcExtractor := extractor.New(model.ChainBTC, btcNetwork, logger)
	btcAdvancer := canon.NewAdvancer(model.ChainBTC, btcNetwork, stores.chain, logger)
	btcPublisher := redisstore.NewEventPublisher(redisClient, model.ChainBTC, btcNetwork, logger)
	btcRunner := pipeline.NewRunner(model.ChainBTC, btcNetwork,
		pipeline.DepositStages(stores.chain, btcAdvancer, stores.deposits, stores.utxos, btcExtractor, params, btcPublisher),
		alerter, logger)
	btcSyncer := pipeline.NewSyncer(model.ChainBTC, btcNetwork,
		redisstore.NewSubmissionQueue(redisClient, model.ChainBTC, btcNetwork),
		btcRunner, syncerConfig(cfg), alerter, logger)

	// ETH side: canonicality only.
	ethAdvancer := canon.NewAdvancer(model.ChainETH, model.NetworkMainnet, stores.chain, logger)
	ethPublisher := redisstore.NewEventPublisher(redisClient, model.ChainETH, model.NetworkMainnet, logger)
	ethRunner := pipeline.NewRunner(model.ChainETH, model.NetworkMainnet,
		pipeline.AccountChainStages(stores.chain, ethAdvancer, ethPublisher),
		alerter, logger)
	ethSyncer := pipeline.NewSyncer(model.ChainETH, model.NetworkMainnet,
		redisstore.NewSubmissionQueue(redisClient, model.ChainETH, model.NetworkMainnet),
		ethRunner, syncerConfig(cfg), alerter, logger)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return ignoreCanceled(btcSyncer.Run(ctx)) })
	group.Go(func() error { return ignoreCanceled(ethSyncer.Run(ctx)) })
	group.Go(func() error { return serveHTTP(ctx, cfg.Server.Port, logger) })

	logger.Info("bridge started",
		"store_backend", cfg.Store.Backend,
		"btc_network", btcNetwork,
		"btc_confirmation_depth", cfg.Bridge.BTCConfirmationDepth,
		"eth_confirmation_depth", cfg.Bridge.ETHConfirmationDepth,
	)

	return group.Wait()
}

type storeSet struct {
	chain    store.ChainStore
	deposits store.DepositIndexRepository
	utxos    store.UtxoRepository
}

// openStores builds the persistence layer for the configured backend.
// The bolt and memory backends keep deposit and UTXO accounting
// in-process; only postgres persists the full set.
func openStores(cfg *config.Config, logger *slog.Logger) (*storeSet, func(), error) {
	blockCache := cache.NewBlockCache(cfg.Store.BlockCacheSize)

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(postgres.Config{
			URL:             cfg.Store.DB.URL,
			MaxOpenConns:    cfg.Store.DB.MaxOpenConns,
			MaxIdleConns:    cfg.Store.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.DB.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.RunMigrations(cfg.Store.DB.MigrationsDir); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		return &storeSet{
			chain:    store.NewCachedChainStore(postgres.NewChainStore(db), blockCache),
			deposits: postgres.NewDepositIndexRepo(db),
			utxos:    postgres.NewUtxoRepo(db),
		}, func() { db.Close() }, nil

	case config.BackendBolt:
		bs, err := bolt.Open(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("bolt backend keeps deposit and UTXO accounting in memory")
		return &storeSet{
			chain:    store.NewCachedChainStore(bs, blockCache),
			deposits: memory.NewDepositIndexRepo(),
			utxos:    memory.NewUtxoRepo(),
		}, func() { bs.Close() }, nil

	case config.BackendMemory:
		return &storeSet{
			chain:    memory.NewStore(),
			deposits: memory.NewDepositIndexRepo(),
			utxos:    memory.NewUtxoRepo(),
		}, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// bootstrap seeds per-chain confirmation depths that are not in the
// store yet, and initializes a missing canon pointer from the current
// chain when it is already deep enough.
func bootstrap(ctx context.Context, cs store.ChainStore, cfg *config.Config, logger *slog.Logger) error {
	depths := map[model.Chain]uint64{
		model.ChainBTC: cfg.Bridge.BTCConfirmationDepth,
		model.ChainETH: cfg.Bridge.ETHConfirmationDepth,
	}

	for chain, depth := range depths {
		_, err := cs.GetConfig(ctx, chain, store.ConfigConfirmationDepth)
		if errors.Is(err, store.ErrNotFound) {
			if err := cs.SetConfig(ctx, chain, store.ConfigConfirmationDepth, depth); err != nil {
				return err
			}
			logger.Info("confirmation depth seeded", "chain", chain, "depth", depth)
		} else if err != nil {
			return err
		}

		if err := seedCanon(ctx, cs, chain, logger); err != nil {
			return err
		}
	}
	return nil
}

func seedCanon(ctx context.Context, cs store.ChainStore, chain model.Chain, logger *slog.Logger) error {
	_, err := cs.GetPointer(ctx, chain, store.PointerCanon)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	depth, err := cs.GetConfig(ctx, chain, store.ConfigConfirmationDepth)
	if err != nil {
		return err
	}
	latest, err := cs.GetPointer(ctx, chain, store.PointerLatest)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("canon not seeded, chain store is empty", "chain", chain)
		return nil
	}
	if err != nil {
		return err
	}

	ancestor, err := canon.NthAncestor(ctx, cs, chain, latest, depth)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("canon not seeded, chain not deep enough yet", "chain", chain)
		return nil
	}
	if err != nil {
		return err
	}

	if err := cs.SetPointer(ctx, chain, store.PointerCanon, ancestor.Hash); err != nil {
		return err
	}
	logger.Info("canon seeded", "chain", chain, "hash", ancestor.Hash, "height", ancestor.Height)
	return nil
}

func newAlerter(cfg config.AlertConfig, logger *slog.Logger) alert.Alerter {
	var channels []alert.Alerter
	if cfg.SlackWebhookURL != "" {
		channels = append(channels, alert.NewSlackAlerter(cfg.SlackWebhookURL))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, alert.NewWebhookAlerter(cfg.WebhookURL))
	}
	if len(channels) == 0 {
		return &alert.NoopAlerter{}
	}
	return alert.NewMulti(cfg.Cooldown, logger, channels...)
}

func syncerConfig(cfg *config.Config) pipeline.SyncerConfig {
	return pipeline.SyncerConfig{
		BatchSize: int64(cfg.Bridge.SyncBatchSize),
		ReadWait:  cfg.Bridge.SyncReadWait,
	}
}

func serveHTTP(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("http server listening", "port", port)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func ignoreCanceled(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
