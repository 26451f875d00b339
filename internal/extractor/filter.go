package extractor

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/Cleancoindev2/ptokens-core/internal/btcscript"
	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// FilterDepositTxs returns, in input order, the transactions carrying at
// least one P2SH output paying an address present in index. The pipeline
// runs it ahead of Extract to keep the extraction batch small; Extract
// itself still tolerates unfiltered input.
func (e *Extractor) FilterDepositTxs(txs []*wire.MsgTx, index model.DepositIndex, params *chaincfg.Params) ([]*wire.MsgTx, error) {
	if params == nil {
		return nil, ErrNilParams
	}

	var kept []*wire.MsgTx
	for _, tx := range txs {
		if txPaysWatchedAddress(tx, index, params) {
			kept = append(kept, tx)
		}
	}

	e.logger.Debug("deposit transaction filter applied",
		"transactions", len(txs),
		"kept", len(kept),
	)
	return kept, nil
}

func txPaysWatchedAddress(tx *wire.MsgTx, index model.DepositIndex, params *chaincfg.Params) bool {
	for _, out := range tx.TxOut {
		addr, ok := btcscript.DeriveAddress(out.PkScript, params)
		if !ok {
			continue
		}
		if _, watched := index[addr]; watched {
			return true
		}
	}
	return false
}
