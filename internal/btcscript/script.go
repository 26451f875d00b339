// Package btcscript classifies deposit output scripts and derives chain
// addresses from them. Only the pay-to-script-hash form is a deposit
// candidate; everything else is rejected here so the extractor never has
// to reason about script internals.
package btcscript

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Cleancoindev2/ptokens-core/internal/domain/model"
)

const (
	opHash160 = 0xa9
	opData20  = 0x14
	opEqual   = 0x87

	scriptHashLen = 20
	p2shScriptLen = 23
)

// IsPayToScriptHash reports whether script is the canonical BIP16 form
// OP_HASH160 <20-byte hash> OP_EQUAL.
func IsPayToScriptHash(script []byte) bool {
	return len(script) == p2shScriptLen &&
		script[0] == opHash160 &&
		script[1] == opData20 &&
		script[22] == opEqual
}

// ScriptHash returns the 20-byte hash a P2SH script commits to, or
// ok=false when the script is not P2SH.
func ScriptHash(script []byte) ([]byte, bool) {
	if !IsPayToScriptHash(script) {
		return nil, false
	}
	hash := make([]byte, scriptHashLen)
	copy(hash, script[2:22])
	return hash, true
}

// DeriveAddress converts a P2SH output script into its chain address under
// params. ok=false means the script is not address-encodable for that
// network; this is a per-output skip for callers, never an error.
func DeriveAddress(script []byte, params *chaincfg.Params) (string, bool) {
	hash, ok := ScriptHash(script)
	if !ok {
		return "", false
	}
	addr, err := btcutil.NewAddressScriptHashFromHash(hash, params)
	if err != nil {
		return "", false
	}
	return addr.EncodeAddress(), true
}

// PayToScriptHashScript builds the output script paying to the given
// 20-byte script hash.
func PayToScriptHashScript(hash []byte) ([]byte, error) {
	if len(hash) != scriptHashLen {
		return nil, fmt.Errorf("script hash must be %d bytes, got %d", scriptHashLen, len(hash))
	}
	script := make([]byte, 0, p2shScriptLen)
	script = append(script, opHash160, opData20)
	script = append(script, hash...)
	script = append(script, opEqual)
	return script, nil
}

// ParamsForNetwork maps a bridge network onto btcd chain parameters.
func ParamsForNetwork(network model.Network) (*chaincfg.Params, error) {
	switch network {
	case model.NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case model.NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case model.NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
