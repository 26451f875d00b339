package extractor

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// SpendDescriptorLen is the fixed wire size of an encoded spend
// descriptor: previous txid (32) || output index (4, LE) || value (8, LE).
const SpendDescriptorLen = chainhash.HashSize + 4 + 8

// SpendDescriptor is the decoded form of UtxoRecord.SpendDescriptor: the
// minimum source data the signing stage needs to build a spending input.
type SpendDescriptor struct {
	PrevTx chainhash.Hash
	Vout   uint32
	Value  uint64
}

// EncodeSpendDescriptor serializes the outpoint and claimed value of a
// matched output. The txid is written in internal (little-endian) wire
// order, the same order it appears in a serialized transaction input.
func EncodeSpendDescriptor(prevTx chainhash.Hash, vout uint32, value uint64) []byte {
	buf := make([]byte, 0, SpendDescriptorLen)
	buf = append(buf, prevTx[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, vout)
	buf = binary.LittleEndian.AppendUint64(buf, value)
	return buf
}

// DecodeSpendDescriptor parses a descriptor produced by
// EncodeSpendDescriptor. Exported for the downstream signer.
func DecodeSpendDescriptor(raw []byte) (SpendDescriptor, error) {
	if len(raw) != SpendDescriptorLen {
		return SpendDescriptor{}, fmt.Errorf("spend descriptor must be %d bytes, got %d", SpendDescriptorLen, len(raw))
	}

	var d SpendDescriptor
	copy(d.PrevTx[:], raw[:chainhash.HashSize])
	d.Vout = binary.LittleEndian.Uint32(raw[chainhash.HashSize : chainhash.HashSize+4])
	d.Value = binary.LittleEndian.Uint64(raw[chainhash.HashSize+4:])
	return d, nil
}
