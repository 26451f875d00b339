package model

import "fmt"

// Outpoint identifies a specific output of a specific transaction. It is a
// UTXO's identity: no two records produced by one extraction share one.
type Outpoint struct {
	TxID  string `json:"txid"`
	Index uint32 `json:"index"`
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// UtxoRecord is a spendable deposit output recognized by the extractor.
// SpendDescriptor carries enough source data to build a spending input
// later. SpendSignature is always nil at creation; the out-of-core signing
// stage fills it in.
type UtxoRecord struct {
	Value           uint64       `json:"value"`
	Outpoint        Outpoint     `json:"outpoint"`
	SpendDescriptor []byte       `json:"spend_descriptor"`
	DepositInfo     *DepositInfo `json:"deposit_info,omitempty"`
	SpendSignature  []byte       `json:"spend_signature,omitempty"`
}
