package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Cleancoindev2/ptokens-core/internal/alert"
	"github.com/Cleancoindev2/ptokens-core/internal/circuitbreaker"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
	"github.com/Cleancoindev2/ptokens-core/internal/pipeline/retry"
	redisstore "github.com/Cleancoindev2/ptokens-core/internal/store/redis"
)

// SubmissionSource is the inbound stream boundary the syncer consumes.
type SubmissionSource interface {
	Checkpoint(ctx context.Context) (string, error)
	Read(ctx context.Context, lastID string, count int64, wait time.Duration) ([]redisstore.Entry, error)
	Commit(ctx context.Context, id string) error
}

// SyncerConfig tunes one chain's submission consumption loop.
type SyncerConfig struct {
	BatchSize int64
	ReadWait  time.Duration
}

func (c SyncerConfig) withDefaults() SyncerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.ReadWait <= 0 {
		c.ReadWait = 5 * time.Second
	}
	return c
}

// Syncer runs one chain's pipeline once per consumed submission,
// checkpointing the stream ID only after the run committed. A submission
// whose payload does not decode is dropped and checkpointed past; a
// failing pipeline run stops the syncer, leaving the checkpoint on the
// failed submission so a restart re-attempts it.
type Syncer struct {
	chain   model.Chain
	network model.Network
	source  SubmissionSource
	runner  *Runner
	cfg     SyncerConfig
	breaker *circuitbreaker.Breaker
	alerter alert.Alerter
	logger  *slog.Logger
}

func NewSyncer(chain model.Chain, network model.Network, source SubmissionSource, runner *Runner, cfg SyncerConfig, alerter alert.Alerter, logger *slog.Logger) *Syncer {
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "syncer", "chain", chain, "network", network)

	s := &Syncer{
		chain:   chain,
		network: network,
		source:  source,
		runner:  runner,
		cfg:     cfg.withDefaults(),
		alerter: alerter,
		logger:  logger,
	}
	s.breaker = circuitbreaker.New(
		circuitbreaker.WithThreshold(5),
		circuitbreaker.WithCoolOff(15*time.Second),
		circuitbreaker.WithOnOpen(func() {
			logger.Warn("submission stream breaker opened")
		}),
	)
	return s
}

// Run consumes submissions until the context ends or a pipeline run
// fails fatally.
func (s *Syncer) Run(ctx context.Context) error {
	lastID, err := s.checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("load submission checkpoint: %w", err)
	}
	s.logger.Info("syncer started", "checkpoint", lastID)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := s.breaker.Allow(); err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		entries, err := s.source.Read(ctx, lastID, s.cfg.BatchSize, s.cfg.ReadWait)
		s.breaker.Record(err)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Warn("submission read failed", "error", err)
			continue
		}

		for _, entry := range entries {
			if err := s.process(ctx, entry); err != nil {
				return err
			}
			lastID = entry.ID
		}
	}
}

func (s *Syncer) process(ctx context.Context, entry redisstore.Entry) error {
	chainLabel, networkLabel := s.chain.String(), s.network.String()
	metrics.SyncerSubmissionsTotal.WithLabelValues(chainLabel, networkLabel).Inc()

	st, err := DecodeSubmission(entry.Payload, s.chain, s.network)
	if err != nil {
		// A malformed payload never becomes valid on retry; drop it and
		// move the checkpoint past it.
		metrics.SyncerDecodeErrors.WithLabelValues(chainLabel, networkLabel).Inc()
		s.logger.Error("dropping undecodable submission", "stream_id", entry.ID, "error", err)
		return s.commit(ctx, entry.ID)
	}

	if err := s.runner.Run(ctx, st); err != nil {
		return fmt.Errorf("submission %s: %w", entry.ID, err)
	}

	s.logger.Debug("submission processed",
		"stream_id", entry.ID,
		"block_hash", st.Block.Hash,
		"block_height", st.Block.Height,
		"utxos", len(st.Utxos),
		"canon_advanced", st.Canon.Advanced,
	)
	return s.commit(ctx, entry.ID)
}

func (s *Syncer) checkpoint(ctx context.Context) (string, error) {
	var id string
	err := retry.Do(ctx, retry.Backoff{MaxAttempts: 5}, func(ctx context.Context) error {
		var err error
		id, err = s.source.Checkpoint(ctx)
		return err
	})
	return id, err
}

func (s *Syncer) commit(ctx context.Context, id string) error {
	err := retry.Do(ctx, retry.Backoff{MaxAttempts: 5}, func(ctx context.Context) error {
		return s.source.Commit(ctx, id)
	})
	if err != nil {
		if alertErr := s.alerter.Send(ctx, alert.Alert{
			Type:    alert.TypeStoreIO,
			Chain:   s.chain.String(),
			Network: s.network.String(),
			Title:   "submission checkpoint not committed",
			Message: err.Error(),
			Fields:  map[string]string{"stream_id": id},
		}); alertErr != nil {
			s.logger.Warn("checkpoint alert not delivered", "error", alertErr)
		}
		return fmt.Errorf("commit checkpoint %s: %w", id, err)
	}
	return nil
}
