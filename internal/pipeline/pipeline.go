// Package pipeline composes the settlement engines into an ordered list
// of stages threaded over one mutable state value per run, with early
// exit on the first failure. Persisted state is never left partially
// advanced: a failing stage aborts the run and surfaces the error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/wire"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Cleancoindev2/ptokens-core/internal/alert"
	"github.com/Cleancoindev2/ptokens-core/internal/canon"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
	"github.com/Cleancoindev2/ptokens-core/internal/tracing"
)

// State is the context one pipeline run threads through its stages. Each
// stage reads the fields earlier stages populated and writes its own;
// nothing outlives the run.
type State struct {
	Chain   model.Chain
	Network model.Network

	// Ingested block, set by the caller from the submission.
	Block *model.BlockRecord

	// Raw deposit-candidate transactions accompanying the block.
	Txs []*wire.MsgTx

	// Populated by stages, in order.
	DepositIndex model.DepositIndex
	DepositTxs   []*wire.MsgTx
	Utxos        []model.UtxoRecord
	Canon        canon.Result
}

// Stage is one step of the run: a name for observability and the
// operation itself. Run mutates the state or fails the whole pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// Runner executes a fixed stage list for one chain.
type Runner struct {
	chain   model.Chain
	network model.Network
	stages  []Stage
	alerter alert.Alerter
	logger  *slog.Logger
}

func NewRunner(chain model.Chain, network model.Network, stages []Stage, alerter alert.Alerter, logger *slog.Logger) *Runner {
	if alerter == nil {
		alerter = &alert.NoopAlerter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		chain:   chain,
		network: network,
		stages:  stages,
		alerter: alerter,
		logger:  logger.With("component", "pipeline", "chain", chain, "network", network),
	}
}

// Run executes the stages in order, stopping at the first failure.
func (r *Runner) Run(ctx context.Context, st *State) error {
	chainLabel, networkLabel := r.chain.String(), r.network.String()

	tracer := tracing.Tracer("pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("chain", chainLabel),
		attribute.String("network", networkLabel),
	)
	defer span.End()

	for _, stage := range r.stages {
		stageCtx, stageSpan := tracer.Start(ctx, "pipeline.stage."+stage.Name)
		start := time.Now()
		err := stage.Run(stageCtx, st)
		metrics.PipelineStageLatency.WithLabelValues(chainLabel, networkLabel, stage.Name).Observe(time.Since(start).Seconds())
		stageSpan.End()

		if err != nil {
			metrics.PipelineStageErrors.WithLabelValues(chainLabel, networkLabel, stage.Name).Inc()
			metrics.PipelineRunsTotal.WithLabelValues(chainLabel, networkLabel, "failure").Inc()
			r.logger.Error("pipeline stage failed", "stage", stage.Name, "error", err)

			if alertErr := r.alerter.Send(ctx, alert.Alert{
				Type:    alert.TypePipelineFailure,
				Chain:   chainLabel,
				Network: networkLabel,
				Title:   "pipeline run aborted",
				Message: err.Error(),
				Fields:  map[string]string{"stage": stage.Name},
			}); alertErr != nil {
				r.logger.Warn("pipeline failure alert not delivered", "error", alertErr)
			}
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}

	metrics.PipelineRunsTotal.WithLabelValues(chainLabel, networkLabel, "success").Inc()
	return nil
}
