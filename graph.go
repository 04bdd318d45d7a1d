package payroute

import (
	"context"
	"math/big"
	"strings"

	"github.com/lanternpay/payroute-go/logger"
)

// candidateSource is one funding holding considered by the graph builder:
// an address holding the request token on one chain, with enough balance to
// cover the spend.
type candidateSource struct {
	Address string
	Chain   ChainConfig
	Token   TokenInfo
	// Spend is the amount to convert, in atomic units of Token.
	Spend *big.Int
	// Balance is the full spendable balance, in atomic units of Token.
	Balance *big.Int
}

// pathEdge is one hop of a candidate path, annotated with the quote that
// priced it. Exactly one of Swap and Bridge is set for those edge kinds; the
// terminal transfer edge carries neither.
type pathEdge struct {
	Kind      StepType
	FromChain string
	ToChain   string
	FromToken TokenInfo
	ToToken   TokenInfo
	// AmountIn and AmountOut are the expected atomic amounts entering and
	// leaving the edge.
	AmountIn  *big.Int
	AmountOut *big.Int
	Swap      *SwapQuote
	Bridge    *BridgeQuote
}

// candidatePath is a full source-to-target edge sequence awaiting scoring.
type candidatePath struct {
	Source candidateSource
	Target ResolvedTarget
	Edges  []pathEdge
}

// buildStats counts gateway outcomes during one source's graph expansion,
// letting the finder distinguish "no liquidity" from "every gateway down".
type buildStats struct {
	QuoteCalls    int
	QuoteFailures int
}

// routeGraphBuilder expands one candidate source into the bounded set of
// paths that reach an accept target. Nodes are (chain, token) pairs; a node
// already on the current path is never revisited, which excludes cycles.
type routeGraphBuilder struct {
	catalog TokenCatalog
	quotes  QuoteGateway
	cfg     Config
	log     logger.Logger
}

// searchState tracks one DFS position.
type searchState struct {
	chain   ChainConfig
	token   TokenInfo
	amount  *big.Int
	swaps   int
	bridges int
}

// Build returns every candidate path from source to any target within the
// hop bounds. An unreachable target set yields an empty slice, not an error.
func (b *routeGraphBuilder) Build(ctx context.Context, source candidateSource, targets []ResolvedTarget) ([]candidatePath, buildStats) {
	var (
		paths   []candidatePath
		stats   buildStats
		visited = map[string]bool{nodeKey(source.Chain.NetworkID, source.Token): true}
	)

	start := searchState{
		chain:  source.Chain,
		token:  source.Token,
		amount: new(big.Int).Set(source.Spend),
	}
	b.expand(ctx, source, targets, start, visited, nil, &paths, &stats)
	return paths, stats
}

func (b *routeGraphBuilder) expand(
	ctx context.Context,
	source candidateSource,
	targets []ResolvedTarget,
	state searchState,
	visited map[string]bool,
	edges []pathEdge,
	paths *[]candidatePath,
	stats *buildStats,
) {
	if ctx.Err() != nil {
		return
	}

	// A node matching an accept target terminates the path with a direct
	// transfer. The zero-hop case (source already matches) always lands
	// here first.
	if target, ok := matchTarget(state, targets); ok {
		terminal := pathEdge{
			Kind:      StepTransfer,
			FromChain: state.chain.NetworkID,
			ToChain:   state.chain.NetworkID,
			FromToken: state.token,
			ToToken:   state.token,
			AmountIn:  new(big.Int).Set(state.amount),
			AmountOut: new(big.Int).Set(state.amount),
		}
		*paths = append(*paths, candidatePath{
			Source: source,
			Target: target,
			Edges:  append(appendEdges(edges), terminal),
		})
		return
	}

	if state.swaps < b.cfg.MaxSwapHops {
		b.expandSwaps(ctx, source, targets, state, visited, edges, paths, stats)
	}
	if state.bridges < b.cfg.MaxBridgeHops {
		b.expandBridges(ctx, source, targets, state, visited, edges, paths, stats)
	}
}

// expandSwaps tries a swap edge to every pivot token on the current chain:
// the accept targets' tokens plus the chain's intermediate allow-list.
func (b *routeGraphBuilder) expandSwaps(
	ctx context.Context,
	source candidateSource,
	targets []ResolvedTarget,
	state searchState,
	visited map[string]bool,
	edges []pathEdge,
	paths *[]candidatePath,
	stats *buildStats,
) {
	for _, out := range b.swapCandidates(state, targets) {
		key := nodeKey(state.chain.NetworkID, out)
		if visited[key] {
			continue
		}

		stats.QuoteCalls++
		quote, err := b.swapQuote(ctx, state.chain.NetworkID, state.token, out, state.amount)
		if err != nil {
			stats.QuoteFailures++
			b.log.Debug("swap edge dropped", map[string]any{
				"chain": state.chain.NetworkID,
				"from":  state.token.Symbol,
				"to":    out.Symbol,
				"error": err.Error(),
			})
			continue
		}
		if quote.ExpectedOutput == nil || quote.ExpectedOutput.Sign() <= 0 {
			continue
		}

		// The floor a route enforces comes from the configured tolerance,
		// not from whatever default the aggregator quoted with.
		bounded := *quote
		bounded.MinimumOutput = slippageFloor(quote.ExpectedOutput, b.cfg.SlippageBps)
		quote = &bounded

		edge := pathEdge{
			Kind:      StepSwap,
			FromChain: state.chain.NetworkID,
			ToChain:   state.chain.NetworkID,
			FromToken: state.token,
			ToToken:   out,
			AmountIn:  new(big.Int).Set(state.amount),
			AmountOut: new(big.Int).Set(quote.ExpectedOutput),
			Swap:      quote,
		}
		next := searchState{
			chain:   state.chain,
			token:   out,
			amount:  quote.ExpectedOutput,
			swaps:   state.swaps + 1,
			bridges: state.bridges,
		}
		visited[key] = true
		b.expand(ctx, source, targets, next, visited, append(appendEdges(edges), edge), paths, stats)
		delete(visited, key)
	}
}

// expandBridges tries a bridge edge carrying the current token to every
// distinct target chain on which the token resolves.
func (b *routeGraphBuilder) expandBridges(
	ctx context.Context,
	source candidateSource,
	targets []ResolvedTarget,
	state searchState,
	visited map[string]bool,
	edges []pathEdge,
	paths *[]candidatePath,
	stats *buildStats,
) {
	for _, destChain := range targetChains(targets, state.chain.NetworkID) {
		destToken, err := b.catalog.Resolve(state.token.Symbol, destChain.NetworkID)
		if err != nil {
			continue
		}
		key := nodeKey(destChain.NetworkID, destToken)
		if visited[key] {
			continue
		}

		stats.QuoteCalls++
		quote, err := b.bridgeQuote(ctx, state.chain.NetworkID, destChain.NetworkID, state.token, state.amount)
		if err != nil {
			stats.QuoteFailures++
			b.log.Debug("bridge edge dropped", map[string]any{
				"from":  state.chain.NetworkID,
				"to":    destChain.NetworkID,
				"token": state.token.Symbol,
				"error": err.Error(),
			})
			continue
		}

		out := new(big.Int).Set(state.amount)
		if quote.Fee != nil {
			out.Sub(out, quote.Fee)
		}
		if out.Sign() <= 0 {
			continue
		}

		edge := pathEdge{
			Kind:      StepBridge,
			FromChain: state.chain.NetworkID,
			ToChain:   destChain.NetworkID,
			FromToken: state.token,
			ToToken:   destToken,
			AmountIn:  new(big.Int).Set(state.amount),
			AmountOut: out,
			Bridge:    quote,
		}
		next := searchState{
			chain:   destChain,
			token:   destToken,
			amount:  out,
			swaps:   state.swaps,
			bridges: state.bridges + 1,
		}
		visited[key] = true
		b.expand(ctx, source, targets, next, visited, append(appendEdges(edges), edge), paths, stats)
		delete(visited, key)
	}
}

// swapCandidates returns the pivot tokens a swap edge may reach from state:
// target tokens on the current chain, then the chain's intermediates.
func (b *routeGraphBuilder) swapCandidates(state searchState, targets []ResolvedTarget) []TokenInfo {
	var out []TokenInfo
	seen := make(map[string]bool)

	add := func(t TokenInfo) {
		if t.SameAsset(state.token) {
			return
		}
		key := nodeKey(t.ChainID, t)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, t)
	}

	for _, target := range targets {
		if target.Chain.NetworkID == state.chain.NetworkID {
			add(target.Token)
			continue
		}
		// A target token on another chain is still a useful pivot here
		// when it exists on this chain: swap first, bridge after.
		if t, err := b.catalog.Resolve(target.Token.Symbol, state.chain.NetworkID); err == nil {
			add(t)
		}
	}
	for _, symbol := range state.chain.Intermediates {
		if t, err := b.catalog.Resolve(symbol, state.chain.NetworkID); err == nil {
			add(t)
		}
	}
	return out
}

func (b *routeGraphBuilder) swapQuote(ctx context.Context, chain string, from, to TokenInfo, amount *big.Int) (*SwapQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.GatewayTimeout)
	defer cancel()
	return b.quotes.GetSwapQuote(ctx, chain, from, to, amount)
}

func (b *routeGraphBuilder) bridgeQuote(ctx context.Context, fromChain, toChain string, token TokenInfo, amount *big.Int) (*BridgeQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.GatewayTimeout)
	defer cancel()
	return b.quotes.GetBridgeQuote(ctx, fromChain, toChain, token, amount)
}

// matchTarget reports whether the current node satisfies any accept target.
func matchTarget(state searchState, targets []ResolvedTarget) (ResolvedTarget, bool) {
	for _, target := range targets {
		if target.Chain.NetworkID == state.chain.NetworkID && target.Token.SameAsset(state.token) {
			return target, true
		}
	}
	return ResolvedTarget{}, false
}

// targetChains returns the distinct target chains other than current.
func targetChains(targets []ResolvedTarget, current string) []ChainConfig {
	var chains []ChainConfig
	seen := map[string]bool{current: true}
	for _, target := range targets {
		if seen[target.Chain.NetworkID] {
			continue
		}
		seen[target.Chain.NetworkID] = true
		chains = append(chains, target.Chain)
	}
	return chains
}

// slippageFloor reduces amount by tolBps basis points, rounding down.
func slippageFloor(amount *big.Int, tolBps uint16) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(10000-int64(tolBps)))
	return out.Quo(out, big.NewInt(10000))
}

// appendEdges copies the edge prefix so sibling branches never share
// backing arrays.
func appendEdges(edges []pathEdge) []pathEdge {
	out := make([]pathEdge, len(edges), len(edges)+1)
	copy(out, edges)
	return out
}

func nodeKey(chain string, token TokenInfo) string {
	id := token.Address
	if id == "" {
		id = token.Symbol
	}
	return chain + "/" + strings.ToLower(id)
}
