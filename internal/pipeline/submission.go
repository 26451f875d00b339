package pipeline

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

// Submission is the JSON payload the ingestion collaborator publishes on
// the submission stream: one block plus the serialized transactions that
// survived its P2SH pre-filter. TxsHex entries are hex-encoded wire
// transactions; account-chain submissions carry none.
type Submission struct {
	Block  model.BlockRecord `json:"block"`
	TxsHex []string          `json:"txs_hex,omitempty"`
}

// DecodeSubmission parses a raw stream payload into a ready-to-run
// pipeline state. A payload that does not decode is rejected whole; a
// submission is never partially applied.
func DecodeSubmission(raw []byte, chain model.Chain, network model.Network) (*State, error) {
	var sub Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}
	if sub.Block.Hash == "" {
		return nil, fmt.Errorf("decode submission: block hash is empty")
	}

	txs := make([]*wire.MsgTx, 0, len(sub.TxsHex))
	for i, txHex := range sub.TxsHex {
		rawTx, err := hex.DecodeString(txHex)
		if err != nil {
			return nil, fmt.Errorf("decode submission tx %d: %w", i, err)
		}
		tx := wire.NewMsgTx(wire.TxVersion)
		if err := tx.Deserialize(bytes.NewReader(rawTx)); err != nil {
			return nil, fmt.Errorf("deserialize submission tx %d: %w", i, err)
		}
		txs = append(txs, tx)
	}

	return &State{
		Chain:   chain,
		Network: network,
		Block:   &sub.Block,
		Txs:     txs,
	}, nil
}

// EncodeSubmission is the inverse of DecodeSubmission, used by ingestion
// tooling and tests.
func EncodeSubmission(block model.BlockRecord, txs []*wire.MsgTx) ([]byte, error) {
	sub := Submission{Block: block}
	for i, tx := range txs {
		var buf bytes.Buffer
		if err := tx.Serialize(&buf); err != nil {
			return nil, fmt.Errorf("serialize tx %d: %w", i, err)
		}
		sub.TxsHex = append(sub.TxsHex, hex.EncodeToString(buf.Bytes()))
	}
	return json.Marshal(sub)
}
