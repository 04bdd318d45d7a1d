package payroute

import (
	"context"
	"math/big"
	"time"
)

// BalanceGateway reads spendable balances. A network failure means the
// balance is unknown; the finder skips that source rather than failing the
// whole search.
type BalanceGateway interface {
	// GetBalance returns the spendable balance of token held by address,
	// in atomic units.
	GetBalance(ctx context.Context, address string, token TokenInfo) (*big.Int, error)
}

// SwapQuote is a priced same-chain exchange of one token for another.
type SwapQuote struct {
	// Exchange identifies the venue that produced the quote.
	Exchange string

	// Path is the token address path the exchange will route through.
	Path []string

	// ExpectedOutput is the quoted output in atomic units.
	ExpectedOutput *big.Int

	// MinimumOutput is the aggregator's quoted floor. The engine replaces
	// it with ExpectedOutput reduced by the configured slippage tolerance
	// before the quote enters a route; the replaced value is the floor
	// enforced on-chain.
	MinimumOutput *big.Int

	// PriceImpactBps is the quoted price impact in basis points.
	PriceImpactBps uint16

	// FetchedAt is when the quote was obtained, used for staleness checks.
	FetchedAt time.Time
}

// BridgeQuote is a priced movement of a token between two chains.
type BridgeQuote struct {
	// Bridge identifies the bridge that produced the quote.
	Bridge string

	// Fee is the bridge fee in atomic units of the bridged token.
	Fee *big.Int

	// EstimatedSeconds is the expected time to destination finality.
	EstimatedSeconds int

	// Finalized reports whether the bridge committed to this quote. An
	// estimate-only quote carries a risk penalty in scoring.
	Finalized bool

	// FetchedAt is when the quote was obtained.
	FetchedAt time.Time
}

// BridgeTransferStatus is the lifecycle state reported for an in-flight
// bridge transfer.
type BridgeTransferStatus string

const (
	BridgeStatusPending   BridgeTransferStatus = "pending"
	BridgeStatusConfirmed BridgeTransferStatus = "confirmed"
	BridgeStatusFailed    BridgeTransferStatus = "failed"
)

// BridgeStatus is a point-in-time report on an in-flight bridge transfer.
type BridgeStatus struct {
	Status           BridgeTransferStatus
	Confirmations    int
	EstimatedSeconds int
}

// QuoteGateway prices swap and bridge edges. Implementations face external
// services; every call must respect the context deadline.
type QuoteGateway interface {
	// GetSwapQuote prices exchanging amount of from into to on chain.
	GetSwapQuote(ctx context.Context, chain string, from, to TokenInfo, amount *big.Int) (*SwapQuote, error)

	// GetBridgeQuote prices moving amount of token from fromChain to
	// toChain.
	GetBridgeQuote(ctx context.Context, fromChain, toChain string, token TokenInfo, amount *big.Int) (*BridgeQuote, error)

	// GetBridgeStatus reports the state of an in-flight bridge transfer.
	GetBridgeStatus(ctx context.Context, txHash string) (*BridgeStatus, error)
}

// ProviderAdapter submits transactions and estimates gas for one or more
// chains. Signing and nonce management belong to the provider; the engine
// hands it fully signed payloads.
type ProviderAdapter interface {
	// SendTransaction broadcasts a signed payload and returns the
	// transaction hash.
	SendTransaction(ctx context.Context, chain string, signedPayload []byte) (string, error)

	// EstimateGas estimates gas for the encoded transaction.
	EstimateGas(ctx context.Context, chain string, tx []byte) (uint64, error)

	// WaitForConfirmation blocks until txHash reaches the chain's
	// confirmation threshold or ctx expires.
	WaitForConfirmation(ctx context.Context, chain string, txHash string) error
}
