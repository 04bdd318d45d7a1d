// Package payroute implements a cross-chain payment routing engine: it
// enumerates candidate funding sources for a payment request, composes
// multi-step conversions (swap, bridge, transfer) across heterogeneous
// chains, ranks them, and executes a chosen route with partial-failure
// reporting. Quote sources, balance reads, and transaction broadcast are
// external collaborators injected through the gateway interfaces.
package payroute

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// NetworkType represents the blockchain virtual machine type.
type NetworkType int

const (
	// NetworkTypeUnknown represents an unrecognized network.
	NetworkTypeUnknown NetworkType = iota
	// NetworkTypeEVM represents Ethereum Virtual Machine chains.
	NetworkTypeEVM
	// NetworkTypeSVM represents Solana Virtual Machine chains.
	NetworkTypeSVM
)

// ChainConfig carries per-network routing configuration.
type ChainConfig struct {
	// NetworkID is the network identifier used throughout the engine
	// (e.g., "ethereum", "base", "solana").
	NetworkID string

	// Type is the chain's virtual machine family.
	Type NetworkType

	// EVMChainID is the numeric chain id for EVM networks, zero otherwise.
	// It exists for provider adapters only; routing compares NetworkID.
	EVMChainID uint64

	// NativeSymbol is the chain's native asset symbol.
	NativeSymbol string

	// Intermediates lists the bridging-liquid token symbols swap edges may
	// pivot through. A small fixed allow-list bounds the branching factor
	// of the route graph.
	Intermediates []string
}

// Mainnet chain configurations known to the engine.
var (
	// Ethereum is the configuration for Ethereum mainnet.
	Ethereum = ChainConfig{
		NetworkID:     "ethereum",
		Type:          NetworkTypeEVM,
		EVMChainID:    1,
		NativeSymbol:  "ETH",
		Intermediates: []string{"USDC", "USDT", "WETH"},
	}

	// Base is the configuration for Base mainnet.
	Base = ChainConfig{
		NetworkID:     "base",
		Type:          NetworkTypeEVM,
		EVMChainID:    8453,
		NativeSymbol:  "ETH",
		Intermediates: []string{"USDC", "WETH"},
	}

	// Polygon is the configuration for Polygon PoS mainnet.
	Polygon = ChainConfig{
		NetworkID:     "polygon",
		Type:          NetworkTypeEVM,
		EVMChainID:    137,
		NativeSymbol:  "POL",
		Intermediates: []string{"USDC", "USDT", "WETH"},
	}

	// Avalanche is the configuration for Avalanche C-Chain mainnet.
	Avalanche = ChainConfig{
		NetworkID:     "avalanche",
		Type:          NetworkTypeEVM,
		EVMChainID:    43114,
		NativeSymbol:  "AVAX",
		Intermediates: []string{"USDC", "USDT"},
	}

	// Solana is the configuration for Solana mainnet-beta.
	Solana = ChainConfig{
		NetworkID:     "solana",
		Type:          NetworkTypeSVM,
		NativeSymbol:  "SOL",
		Intermediates: []string{"USDC", "SOL"},
	}
)

// SupportedChains lists every chain configuration known to the engine.
var SupportedChains = []ChainConfig{Ethereum, Base, Polygon, Avalanche, Solana}

var chainsByID = func() map[string]ChainConfig {
	m := make(map[string]ChainConfig, len(SupportedChains))
	for _, c := range SupportedChains {
		m[c.NetworkID] = c
	}
	return m
}()

// ChainByID returns the configuration for a network identifier.
func ChainByID(networkID string) (ChainConfig, bool) {
	c, ok := chainsByID[networkID]
	return c, ok
}

// ValidateNetwork validates a network identifier and returns its type.
func ValidateNetwork(networkID string) (NetworkType, error) {
	if networkID == "" {
		return NetworkTypeUnknown, fmt.Errorf("%w: empty network id", ErrInvalidNetwork)
	}
	c, ok := chainsByID[networkID]
	if !ok {
		return NetworkTypeUnknown, fmt.Errorf("%w: %s", ErrInvalidNetwork, networkID)
	}
	return c.Type, nil
}

// ValidateAddress validates an address against the network's format rules.
// EVM addresses must be 0x-prefixed 20-byte hex; Solana addresses must be
// valid base58-encoded public keys.
func ValidateAddress(address, networkID string) error {
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	networkType, err := ValidateNetwork(networkID)
	if err != nil {
		return err
	}

	switch networkType {
	case NetworkTypeEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%w: %q is not a valid EVM address", ErrInvalidAddress, address)
		}
	case NetworkTypeSVM:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("%w: %q is not a valid Solana address", ErrInvalidAddress, address)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidNetwork, networkID)
	}
	return nil
}
