// Package extractor implements deposit-matching UTXO extraction: given a
// batch of transactions and the deposit address book, it decides which
// outputs are genuine deposits and materializes them as accounted,
// spendable UTXO records.
package extractor

import (
	"errors"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/Cleancoindev2/ptokens-core/internal/btcscript"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
	"github.com/Cleancoindev2/ptokens-core/internal/metrics"
)

// ErrNilParams is returned when Extract is called without chain
// parameters. This is the only failure mode: everything else resolves to
// per-output skips.
var ErrNilParams = errors.New("chain parameters are required")

type Extractor struct {
	chain   model.Chain
	network model.Network
	logger  *slog.Logger
}

func New(chain model.Chain, network model.Network, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		chain:   chain,
		network: network,
		logger:  logger.With("component", "extractor", "chain", chain, "network", network),
	}
}

// Extract scans txs in input order, outputs in index order, and returns
// one UtxoRecord per P2SH output paying an address present in index. It is
// a pure function of its inputs: repeated calls return the same ordered
// sequence, and the result carries no duplicate outpoints for any valid
// (pre-deduplicated) input.
//
// Outputs that are not P2SH, outputs whose script cannot be converted to
// an address under params, and outputs paying unwatched addresses are all
// skipped silently; none of these is an error condition.
func (e *Extractor) Extract(txs []*wire.MsgTx, index model.DepositIndex, params *chaincfg.Params) ([]model.UtxoRecord, error) {
	if params == nil {
		return nil, ErrNilParams
	}

	start := time.Now()
	chainLabel, networkLabel := e.chain.String(), e.network.String()

	var records []model.UtxoRecord
	for _, tx := range txs {
		txHash := tx.TxHash()
		txid := txHash.String()

		for i, out := range tx.TxOut {
			metrics.ExtractorOutputsScanned.WithLabelValues(chainLabel, networkLabel).Inc()

			if !btcscript.IsPayToScriptHash(out.PkScript) {
				continue
			}

			addr, ok := btcscript.DeriveAddress(out.PkScript, params)
			if !ok {
				metrics.ExtractorDerivationSkips.WithLabelValues(chainLabel, networkLabel).Inc()
				e.logger.Debug("output script not address-encodable, skipping",
					"txid", txid, "output_index", i)
				continue
			}

			info, watched := index[addr]
			if !watched {
				metrics.ExtractorUnwatchedSkips.WithLabelValues(chainLabel, networkLabel).Inc()
				continue
			}

			depositInfo := info
			records = append(records, model.UtxoRecord{
				Value:           uint64(out.Value),
				Outpoint:        model.Outpoint{TxID: txid, Index: uint32(i)},
				SpendDescriptor: EncodeSpendDescriptor(txHash, uint32(i), uint64(out.Value)),
				DepositInfo:     &depositInfo,
			})
		}
	}

	metrics.ExtractorUtxosExtracted.WithLabelValues(chainLabel, networkLabel).Add(float64(len(records)))
	metrics.ExtractorBatchLatency.WithLabelValues(chainLabel, networkLabel).Observe(time.Since(start).Seconds())

	e.logger.Debug("extraction completed",
		"transactions", len(txs),
		"utxos", len(records),
	)

	return records, nil
}
