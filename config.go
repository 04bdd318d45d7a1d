package payroute

import (
	"fmt"
	"time"
)

// Config holds the engine's routing and execution policy. The hop bounds are
// a design contract: bridge and swap liquidity degrades sharply beyond a
// couple of hops, and an unbounded search over a cyclic token graph never
// terminates. Values are copied on use; the With* builders return modified
// copies and never mutate the receiver.
type Config struct {
	// MaxSwapHops bounds the number of swap edges per candidate path.
	MaxSwapHops int

	// MaxBridgeHops bounds the number of bridge edges per candidate path.
	MaxBridgeHops int

	// MaxConcurrentSources caps in-flight per-source discovery work.
	MaxConcurrentSources int

	// DiscoveryTimeout bounds a whole FindAllRoutes call. Sources that
	// have not resolved when it elapses are abandoned.
	DiscoveryTimeout time.Duration

	// GatewayTimeout bounds each individual quote or balance call.
	GatewayTimeout time.Duration

	// QuoteMaxAge is how old a swap quote may be at submission before the
	// executor re-quotes it.
	QuoteMaxAge time.Duration

	// BridgePollInterval is the delay between bridge status polls.
	BridgePollInterval time.Duration

	// BridgeTimeout bounds how long the executor waits for one bridge
	// transfer to reach a terminal state.
	BridgeTimeout time.Duration

	// SlippageBps is the slippage tolerance applied to swap quotes, in
	// basis points.
	SlippageBps uint16

	// PriceImpactRiskBps is the price impact above which a path incurs
	// the scorer's risk penalty, in basis points.
	PriceImpactRiskBps uint16

	// TimeWeight scales a path's estimated seconds into its cost.
	TimeWeight float64

	// RiskPenalty is the flat cost added for estimate-only bridge quotes
	// or excessive price impact.
	RiskPenalty float64

	// MaxSubmitAttempts bounds retries of transient submission failures,
	// including the initial attempt.
	MaxSubmitAttempts int
}

// DefaultConfig provides the engine's standard policy.
var DefaultConfig = Config{
	MaxSwapHops:          2,
	MaxBridgeHops:        2,
	MaxConcurrentSources: 4,
	DiscoveryTimeout:     20 * time.Second,
	GatewayTimeout:       5 * time.Second,
	QuoteMaxAge:          30 * time.Second,
	BridgePollInterval:   5 * time.Second,
	BridgeTimeout:        15 * time.Minute,
	SlippageBps:          100,
	PriceImpactRiskBps:   300,
	TimeWeight:           0.001,
	RiskPenalty:          0.5,
	MaxSubmitAttempts:    3,
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.MaxSwapHops < 0 || c.MaxBridgeHops < 0 {
		return fmt.Errorf("hop bounds must be non-negative")
	}
	if c.MaxSwapHops == 0 && c.MaxBridgeHops == 0 {
		return fmt.Errorf("at least one swap or bridge hop must be allowed")
	}
	if c.MaxConcurrentSources <= 0 {
		return fmt.Errorf("MaxConcurrentSources must be positive")
	}
	if c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("DiscoveryTimeout must be positive")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("GatewayTimeout must be positive")
	}
	if c.GatewayTimeout > c.DiscoveryTimeout {
		return fmt.Errorf("GatewayTimeout must not exceed DiscoveryTimeout")
	}
	if c.QuoteMaxAge <= 0 {
		return fmt.Errorf("QuoteMaxAge must be positive")
	}
	if c.BridgePollInterval <= 0 || c.BridgeTimeout <= 0 {
		return fmt.Errorf("bridge polling intervals must be positive")
	}
	if c.BridgePollInterval > c.BridgeTimeout {
		return fmt.Errorf("BridgePollInterval must not exceed BridgeTimeout")
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("SlippageBps must be below 10000")
	}
	if c.TimeWeight < 0 || c.RiskPenalty < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.MaxSubmitAttempts <= 0 {
		return fmt.Errorf("MaxSubmitAttempts must be positive")
	}
	return nil
}

// WithHopBounds returns a copy with the given swap and bridge hop bounds.
func (c Config) WithHopBounds(swapHops, bridgeHops int) Config {
	c.MaxSwapHops = swapHops
	c.MaxBridgeHops = bridgeHops
	return c
}

// WithDiscoveryTimeout returns a copy with the given discovery timeout.
func (c Config) WithDiscoveryTimeout(d time.Duration) Config {
	c.DiscoveryTimeout = d
	return c
}

// WithGatewayTimeout returns a copy with the given per-call timeout.
func (c Config) WithGatewayTimeout(d time.Duration) Config {
	c.GatewayTimeout = d
	return c
}

// WithSlippageBps returns a copy with the given slippage tolerance.
func (c Config) WithSlippageBps(bps uint16) Config {
	c.SlippageBps = bps
	return c
}

// WithMaxConcurrentSources returns a copy with the given concurrency cap.
func (c Config) WithMaxConcurrentSources(n int) Config {
	c.MaxConcurrentSources = n
	return c
}
