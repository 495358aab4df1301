// Package chain describes the EVM networks a drop can be deployed on.
package chain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownNetwork is returned for network names or chain ids that are not supported.
var ErrUnknownNetwork = errors.New("unknown network")

// Network identifies a supported chain by its short name.
type Network string

// Supported networks.
const (
	Mainnet              Network = "mainnet"
	Goerli               Network = "goerli"
	Sepolia              Network = "sepolia"
	Polygon              Network = "polygon"
	Mumbai               Network = "mumbai"
	Optimism             Network = "optimism"
	Arbitrum             Network = "arbitrum"
	Avalanche            Network = "avalanche"
	AvalancheFujiTestnet Network = "avalanche-fuji"
	Fantom               Network = "fantom"
	FantomTestnet        Network = "fantom-testnet"
	BinanceSmartChain    Network = "bsc"
	BinanceSmartTestnet  Network = "bsc-testnet"
	Localhost            Network = "localhost"
	Hardhat              Network = "hardhat"
)

// Currency describes a chain's native gas token.
type Currency struct {
	Name     string
	Symbol   string
	Decimals int
}

// Info holds the static description of a network.
type Info struct {
	Network  Network
	Name     string
	ChainID  int64
	Currency Currency
	RPC      string // default public endpoint
	Testnet  bool
}

var (
	ether  = Currency{Name: "Ether", Symbol: "ETH", Decimals: 18}
	matic  = Currency{Name: "Matic", Symbol: "MATIC", Decimals: 18}
	avax   = Currency{Name: "Avalanche", Symbol: "AVAX", Decimals: 18}
	fantom = Currency{Name: "Fantom", Symbol: "FTM", Decimals: 18}
	bnb    = Currency{Name: "Binance Chain Native Token", Symbol: "BNB", Decimals: 18}
)

var registry = map[Network]Info{
	Mainnet:              {Network: Mainnet, Name: "Ethereum Mainnet", ChainID: 1, Currency: ether, RPC: "https://eth.llamarpc.com"},
	Goerli:               {Network: Goerli, Name: "Goerli", ChainID: 5, Currency: Currency{Name: "Goerli Ether", Symbol: "ETH", Decimals: 18}, RPC: "https://rpc.ankr.com/eth_goerli", Testnet: true},
	Sepolia:              {Network: Sepolia, Name: "Sepolia", ChainID: 11155111, Currency: Currency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18}, RPC: "https://rpc.sepolia.org", Testnet: true},
	Polygon:              {Network: Polygon, Name: "Polygon Mainnet", ChainID: 137, Currency: matic, RPC: "https://polygon-rpc.com"},
	Mumbai:               {Network: Mumbai, Name: "Mumbai", ChainID: 80001, Currency: matic, RPC: "https://rpc-mumbai.maticvigil.com", Testnet: true},
	Optimism:             {Network: Optimism, Name: "OP Mainnet", ChainID: 10, Currency: ether, RPC: "https://mainnet.optimism.io"},
	Arbitrum:             {Network: Arbitrum, Name: "Arbitrum One", ChainID: 42161, Currency: ether, RPC: "https://arb1.arbitrum.io/rpc"},
	Avalanche:            {Network: Avalanche, Name: "Avalanche C-Chain", ChainID: 43114, Currency: avax, RPC: "https://api.avax.network/ext/bc/C/rpc"},
	AvalancheFujiTestnet: {Network: AvalancheFujiTestnet, Name: "Avalanche Fuji Testnet", ChainID: 43113, Currency: avax, RPC: "https://api.avax-test.network/ext/bc/C/rpc", Testnet: true},
	Fantom:               {Network: Fantom, Name: "Fantom Opera", ChainID: 250, Currency: fantom, RPC: "https://rpc.ftm.tools"},
	FantomTestnet:        {Network: FantomTestnet, Name: "Fantom Testnet", ChainID: 4002, Currency: fantom, RPC: "https://rpc.testnet.fantom.network", Testnet: true},
	BinanceSmartChain:    {Network: BinanceSmartChain, Name: "BNB Smart Chain", ChainID: 56, Currency: bnb, RPC: "https://bsc-dataseed.binance.org"},
	BinanceSmartTestnet:  {Network: BinanceSmartTestnet, Name: "BNB Smart Chain Testnet", ChainID: 97, Currency: bnb, RPC: "https://data-seed-prebsc-1-s1.binance.org:8545", Testnet: true},
	Localhost:            {Network: Localhost, Name: "Localhost", ChainID: 1337, Currency: ether, RPC: "http://localhost:8545", Testnet: true},
	Hardhat:              {Network: Hardhat, Name: "Hardhat", ChainID: 31337, Currency: ether, RPC: "http://localhost:8545", Testnet: true},
}

// ParseNetwork resolves a network by name (case-insensitive) or by decimal chain id.
func ParseNetwork(s string) (Info, error) {
	key := Network(strings.ToLower(strings.TrimSpace(s)))
	if info, ok := registry[key]; ok {
		return info, nil
	}

	if id, err := strconv.ParseInt(string(key), 10, 64); err == nil {
		return ByChainID(id)
	}

	return Info{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, s)
}

// ByChainID resolves a network by numeric chain id.
func ByChainID(id int64) (Info, error) {
	for _, info := range registry {
		if info.ChainID == id {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: chain id %d", ErrUnknownNetwork, id)
}

// Networks returns all supported networks ordered by chain id.
func Networks() []Info {
	list := make([]Info, 0, len(registry))
	for _, info := range registry {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ChainID < list[j].ChainID })
	return list
}
