package payroute

import (
	"fmt"
	"strings"
	"sync"
)

// TokenCatalog resolves token symbols or addresses to TokenInfo records.
type TokenCatalog interface {
	// Resolve returns the token record for a symbol or address on the
	// given chain. Returns ErrTokenNotFound when no record exists.
	Resolve(symbolOrAddress, chain string) (TokenInfo, error)
}

// StaticCatalog is an in-memory TokenCatalog seeded with verified mainnet
// token records. Symbol lookups are case-insensitive; EVM address lookups
// are case-insensitive as well. Additional tokens may be registered at
// runtime.
type StaticCatalog struct {
	mu sync.RWMutex
	// byChain maps chain id -> lookup key (lowercased symbol or address)
	// -> token record.
	byChain map[string]map[string]TokenInfo
}

// NewStaticCatalog creates a catalog seeded with the built-in token set for
// every supported chain.
func NewStaticCatalog() *StaticCatalog {
	c := &StaticCatalog{byChain: make(map[string]map[string]TokenInfo)}
	for _, t := range builtinTokens {
		c.Register(t)
	}
	return c
}

// Register adds or replaces a token record. Both the symbol and, when
// present, the address become lookup keys.
func (c *StaticCatalog) Register(token TokenInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chain := c.byChain[token.ChainID]
	if chain == nil {
		chain = make(map[string]TokenInfo)
		c.byChain[token.ChainID] = chain
	}
	chain[strings.ToLower(token.Symbol)] = token
	if token.Address != "" {
		chain[strings.ToLower(token.Address)] = token
	}
}

// Resolve implements TokenCatalog.
func (c *StaticCatalog) Resolve(symbolOrAddress, chain string) (TokenInfo, error) {
	if symbolOrAddress == "" {
		return TokenInfo{}, fmt.Errorf("%w: empty token", ErrTokenNotFound)
	}
	if _, err := ValidateNetwork(chain); err != nil {
		return TokenInfo{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	tokens := c.byChain[chain]
	if tokens != nil {
		if t, ok := tokens[strings.ToLower(symbolOrAddress)]; ok {
			return t, nil
		}
	}
	return TokenInfo{}, fmt.Errorf("%w: %s on %s", ErrTokenNotFound, symbolOrAddress, chain)
}

// builtinTokens is the verified mainnet token set. Contract and mint
// addresses were verified against the issuers' registries on 2026-08-12.
var builtinTokens = []TokenInfo{
	// Native assets. The empty address denotes the chain's native asset.
	{Symbol: "ETH", Name: "Ether", Decimals: 18, ChainID: "ethereum"},
	{Symbol: "ETH", Name: "Ether", Decimals: 18, ChainID: "base"},
	{Symbol: "POL", Name: "Polygon Ecosystem Token", Decimals: 18, ChainID: "polygon"},
	{Symbol: "AVAX", Name: "Avalanche", Decimals: 18, ChainID: "avalanche"},
	{Symbol: "SOL", Name: "Solana", Decimals: 9, ChainID: "solana"},

	// USDC
	{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "ethereum"},
	{Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "base"},
	{Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "polygon"},
	{Address: "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "avalanche"},
	{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin", Decimals: 6, ChainID: "solana"},

	// USDT
	{Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "ethereum"},
	{Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "polygon"},
	{Address: "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", Symbol: "USDT", Name: "Tether USD", Decimals: 6, ChainID: "avalanche"},

	// Wrapped native
	{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "ethereum"},
	{Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "base"},
	{Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, ChainID: "polygon"},
}
