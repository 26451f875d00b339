package model

// Chain identifies one of the two ledgers the bridge tracks: the UTXO
// chain deposits arrive on and the account chain they are pegged to.
type Chain string

const (
	ChainBTC Chain = "btc"
	ChainETH Chain = "eth"
)

func (c Chain) String() string {
	return string(c)
}

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

func (n Network) String() string {
	return string(n)
}
