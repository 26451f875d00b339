package model

import "github.com/google/uuid"

// DepositInfo describes one expected deposit: the peg request it belongs
// to, the watched UTXO-chain address it must arrive on, and the
// account-chain address credited when it settles.
type DepositInfo struct {
	ID               uuid.UUID `json:"id"`
	Nonce            uint64    `json:"nonce"`
	DepositAddress   string    `json:"deposit_address"`
	RecipientAddress string    `json:"recipient_address"`
}

// DepositIndex maps a watched address to its deposit metadata. It is built
// once per pipeline run and read-only for the duration of one extraction
// call.
type DepositIndex map[string]DepositInfo
