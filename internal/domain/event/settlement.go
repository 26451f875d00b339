// Package event defines the payloads published on the outbound settlement
// stream for out-of-core collaborators (the signing stage, monitoring).
package event

import (
	"time"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// UtxosExtracted announces deposit UTXOs recognized in one ingested block.
type UtxosExtracted struct {
	Chain     model.Chain        `json:"chain"`
	Network   model.Network      `json:"network"`
	BlockHash string             `json:"block_hash"`
	Utxos     []model.UtxoRecord `json:"utxos"`
	At        time.Time          `json:"at"`
}

// CanonAdvanced announces that the canonical reference block moved forward.
type CanonAdvanced struct {
	Chain       model.Chain   `json:"chain"`
	Network     model.Network `json:"network"`
	CanonHash   string        `json:"canon_hash"`
	CanonHeight uint64        `json:"canon_height"`
	At          time.Time     `json:"at"`
}
