package model

import "encoding/json"

// BlockRecord is one stored block of a tracked chain, together with the
// ancillary material (receipts etc.) captured at ingestion time. The
// payload is opaque to the settlement engines. Records are immutable once
// stored.
type BlockRecord struct {
	Hash       string          `json:"hash"`
	ParentHash string          `json:"parent_hash"`
	Height     uint64          `json:"height"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
