package payroute

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenInfo identifies a token on a specific chain.
//
// ChainID is the network identifier string (e.g., "ethereum", "base",
// "solana"). Two TokenInfo values with the same Address and ChainID describe
// the same asset; addresses on EVM chains compare case-insensitively.
type TokenInfo struct {
	// Address is the token contract address (EVM) or mint address (Solana).
	// Empty for a chain's native asset.
	Address string `json:"address"`

	// Symbol is the token symbol (e.g., "USDC", "SOL").
	Symbol string `json:"symbol"`

	// Name is an optional human-readable token name.
	Name string `json:"name,omitempty"`

	// Decimals is the number of decimal places for the token.
	Decimals uint8 `json:"decimals"`

	// ChainID is the network identifier. It is compared by equality only,
	// never coerced to a number.
	ChainID string `json:"chainId"`
}

// SameAsset reports whether two TokenInfo values describe the same asset.
func (t TokenInfo) SameAsset(other TokenInfo) bool {
	return t.ChainID == other.ChainID && strings.EqualFold(t.Address, other.Address)
}

// AcceptTarget is one acceptable destination for a payment: the receiver will
// absorb the given token on the given chain.
type AcceptTarget struct {
	// Blockchain is the destination network identifier.
	Blockchain string `json:"blockchain"`

	// Token is the destination token symbol or address.
	Token string `json:"token"`

	// Receiver is the destination address on Blockchain.
	Receiver string `json:"receiver"`
}

// PaymentRequest describes a payment to route: candidate funding addresses,
// the primary destination, and alternate acceptable destination tuples.
type PaymentRequest struct {
	// From lists candidate funding addresses. Invalid or duplicate entries
	// are filtered during validation, not treated as errors.
	From []string `json:"from"`

	// To is the primary receiver address.
	To string `json:"to"`

	// Amount is the payment amount as a human-readable decimal string.
	Amount string `json:"amount"`

	// Token is the requested token symbol or address.
	Token string `json:"token"`

	// Accept lists alternate destination (chain, token, receiver) tuples.
	// Targets are OR-combined: satisfying any one completes the payment.
	Accept []AcceptTarget `json:"accept"`
}

// StepType is the closed set of route step kinds.
type StepType string

const (
	// StepApprove grants a spender allowance for an ERC-20 token.
	StepApprove StepType = "approve"
	// StepSwap exchanges one token for another on a single chain.
	StepSwap StepType = "swap"
	// StepBridge moves value between chains.
	StepBridge StepType = "bridge"
	// StepTransfer moves value directly to the receiver.
	StepTransfer StepType = "transfer"
)

// RouteStep is one ordered operation within a route. Any approve step for a
// token precedes the step that spends it; a bridge step always separates the
// last source-chain step from the first destination-chain step.
type RouteStep struct {
	Type        StepType       `json:"type"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// ExchangeRoute describes the swap metadata backing a swap step.
// MinimumOutput is ExpectedOutput reduced by the slippage tolerance; it is
// the floor enforced on-chain.
type ExchangeRoute struct {
	Exchange       string   `json:"exchange"`
	Path           []string `json:"path"`
	ExpectedOutput string   `json:"expectedOutput"`
	MinimumOutput  string   `json:"minimumOutput"`
	PriceImpact    string   `json:"priceImpact"`
}

// PaymentRoute is a complete, ordered conversion of a source holding into an
// accepted destination asset. Routes are created in memory by the finder,
// are immutable once returned, and are consumed at most once by the executor.
//
// Optional fields are absent from JSON when not applicable, never null.
type PaymentRoute struct {
	// Blockchain is the source network identifier.
	Blockchain string `json:"blockchain"`

	// FromAddress is the funding address on Blockchain.
	FromAddress string `json:"fromAddress"`

	// FromToken is the source token address or symbol.
	FromToken string `json:"fromToken"`

	// FromAmount is the amount spent, as a decimal string.
	FromAmount string `json:"fromAmount"`

	// FromDecimals is the source token's decimal count.
	FromDecimals uint8 `json:"fromDecimals"`

	// ToToken is the destination token address or symbol.
	ToToken string `json:"toToken"`

	// ToAmount is the estimated amount delivered, as a decimal string.
	ToAmount string `json:"toAmount"`

	// ToDecimals is the destination token's decimal count.
	ToDecimals uint8 `json:"toDecimals"`

	// ToAddress is the receiver on the destination chain.
	ToAddress string `json:"toAddress"`

	// ExchangeRoutes is unordered metadata for the swap steps present.
	ExchangeRoutes []ExchangeRoute `json:"exchangeRoutes,omitempty"`

	// Steps is the route's operations in execution order.
	Steps []RouteStep `json:"steps"`

	// EstimatedGas is the total gas estimate, when available.
	EstimatedGas string `json:"estimatedGas,omitempty"`

	// EstimatedFee is the total fee estimate in source-token units, when
	// available.
	EstimatedFee string `json:"estimatedFee,omitempty"`

	// ApprovalRequired indicates the route begins with an approve step.
	ApprovalRequired bool `json:"approvalRequired,omitempty"`
}

// AmountToAtomic converts a decimal amount string to atomic units.
// For example, "1.5" with 6 decimals becomes 1500000.
func AmountToAtomic(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if d.IsNegative() {
		return nil, ErrInvalidAmount
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.IsInteger() {
		return nil, ErrInvalidAmount
	}
	return shifted.BigInt(), nil
}

// AtomicToAmount converts atomic units back to a decimal string.
// For example, 1500000 with 6 decimals becomes "1.5".
func AtomicToAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}
