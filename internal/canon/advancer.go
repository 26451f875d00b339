package canon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
	"github.com/Cleancoindev2/ptokens-core/internal/store"
)

// No-op reasons reported in Result and on the canon noop counter.
const (
	ReasonAdvanced = "advanced"
	ReasonNoLatest = "no_latest"
	ReasonNotDeep  = "not_deep_enough"
	ReasonNoCanon  = "no_canon"
	ReasonNotNewer = "candidate_not_newer"
)

// Result reports what one MaybeAdvance call did. The store mutation is
// the operative side effect; callers use Result for observability only.
type Result struct {
	Advanced    bool
	CanonHash   string
	CanonHeight uint64
	Reason      string
}

// Advancer slides the canon pointer of one chain forward once its
// candidate block has confirmation-depth blocks built on top of it.
type Advancer struct {
	chain   model.Chain
	network model.Network
	store   store.ChainStore
	logger  *slog.Logger
}

func NewAdvancer(chain model.Chain, network model.Network, cs store.ChainStore, logger *slog.Logger) *Advancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advancer{
		chain:   chain,
		network: network,
		store:   cs,
		logger:  logger.With("component", "canon", "chain", chain, "network", network),
	}
}

// MaybeAdvance re-evaluates the canon pointer against the current latest
// block and confirmation depth, rewriting it iff the depth-gated ancestor
// of latest is strictly higher than the current canon block.
//
// It is stateless and idempotent: with an unchanged latest pointer, at
// most the first call advances and every later call is a no-op. Chain
// state that is not available yet (no latest pointer, a gap on the
// ancestor path, no canon pointer) resolves to a successful no-op. A
// missing confirmation depth is a deployment error and is fatal, and so
// is any store failure that is not a plain NotFound.
func (a *Advancer) MaybeAdvance(ctx context.Context) (Result, error) {
	depth, err := a.store.GetConfig(ctx, a.chain, store.ConfigConfirmationDepth)
	if errors.Is(err, store.ErrNotFound) {
		return Result{}, fmt.Errorf("confirmation depth for chain %s: %w", a.chain, store.ErrConfigMissing)
	}
	if err != nil {
		return Result{}, fmt.Errorf("read confirmation depth: %w", err)
	}

	latestHash, err := a.store.GetPointer(ctx, a.chain, store.PointerLatest)
	if errors.Is(err, store.ErrNotFound) {
		return a.noop(ReasonNoLatest), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read latest pointer: %w", err)
	}

	candidate, err := NthAncestor(ctx, a.store, a.chain, latestHash, depth)
	if errors.Is(err, store.ErrNotFound) {
		return a.noop(ReasonNotDeep), nil
	}
	if err != nil {
		return Result{}, err
	}

	canonHash, err := a.store.GetPointer(ctx, a.chain, store.PointerCanon)
	if errors.Is(err, store.ErrNotFound) {
		// Canon is seeded at bootstrap, not here.
		return a.noop(ReasonNoCanon), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("read canon pointer: %w", err)
	}

	canonBlock, err := a.store.GetBlock(ctx, a.chain, canonHash)
	if err != nil {
		// The canon pointer must always name a stored block, so even
		// NotFound is a store-integrity failure here.
		return Result{}, fmt.Errorf("read canon block %s: %w", canonHash, err)
	}

	if canonBlock.Height >= candidate.Height {
		return a.noop(ReasonNotNewer), nil
	}

	if err := a.store.SetPointer(ctx, a.chain, store.PointerCanon, candidate.Hash); err != nil {
		return Result{}, fmt.Errorf("advance canon pointer: %w", err)
	}

	metrics.CanonAdvancesTotal.WithLabelValues(a.chain.String(), a.network.String()).Inc()
	metrics.CanonHeight.WithLabelValues(a.chain.String(), a.network.String()).Set(float64(candidate.Height))
	a.logger.Info("canon advanced",
		"from_height", canonBlock.Height,
		"to_height", candidate.Height,
		"canon_hash", candidate.Hash,
	)

	return Result{
		Advanced:    true,
		CanonHash:   candidate.Hash,
		CanonHeight: candidate.Height,
		Reason:      ReasonAdvanced,
	}, nil
}

func (a *Advancer) noop(reason string) Result {
	metrics.CanonNoopsTotal.WithLabelValues(a.chain.String(), a.network.String(), reason).Inc()
	a.logger.Debug("canon advancement not applicable", "reason", reason)
	return Result{Reason: reason}
}
