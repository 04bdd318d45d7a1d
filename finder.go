package payroute

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lanternpay/payroute-go/logger"
	"github.com/lanternpay/payroute-go/metrics"
)

// RouteFinder discovers payment routes. Discovery is read-only: no gateway
// call made here mutates chain state.
type RouteFinder struct {
	catalog  TokenCatalog
	quotes   QuoteGateway
	balances BalanceGateway
	cfg      Config
	log      logger.Logger
	metrics  metrics.Recorder
}

// NewRouteFinder builds a finder over the given collaborators.
func NewRouteFinder(catalog TokenCatalog, quotes QuoteGateway, balances BalanceGateway, opts ...Option) (*RouteFinder, error) {
	if catalog == nil || quotes == nil || balances == nil {
		return nil, fmt.Errorf("payroute: finder requires catalog, quote and balance gateways")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("payroute: invalid config: %w", err)
	}
	return &RouteFinder{
		catalog:  catalog,
		quotes:   quotes,
		balances: balances,
		cfg:      o.cfg,
		log:      o.log,
		metrics:  o.metrics,
	}, nil
}

// sourceProbe is one (address, chain) combination to test for funding: the
// request token resolved on a chain whose address format the address
// matches.
type sourceProbe struct {
	Address string
	Chain   ChainConfig
	Token   TokenInfo
	Spend   *big.Int
}

// probeResult is one probe's discovery output.
type probeResult struct {
	scored       []scoredRoute
	gatewayCalls int
	gatewayFails int
}

// FindAllRoutes validates the request, expands and scores routes from every
// candidate source concurrently, and returns them sorted best-first.
//
// Infeasible-but-well-formed requests yield an empty slice and a nil error;
// so does a nil request or one whose from-list validates down to nothing.
// ErrInvalidRequest is returned only when the request cannot be interpreted
// at all, and ErrGatewayUnavailable only when every external gateway call
// failed, which distinguishes "no liquidity" from "system misconfigured".
func (f *RouteFinder) FindAllRoutes(ctx context.Context, req *PaymentRequest) ([]PaymentRoute, error) {
	if req == nil {
		return []PaymentRoute{}, nil
	}
	started := time.Now()

	vreq, err := ValidateRequest(f.catalog, req)
	if err != nil {
		return nil, err
	}
	if len(vreq.From) == 0 {
		return []PaymentRoute{}, nil
	}

	probes := f.buildProbes(vreq)
	if len(probes) == 0 {
		return []PaymentRoute{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.DiscoveryTimeout)
	defer cancel()

	// Each probe's work is independent; results land in the probe's own
	// slot and are merged only after all workers finish. Worker errors
	// never abort the group: a failed probe simply contributes nothing.
	results := make([]probeResult, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrentSources)
	for i, probe := range probes {
		g.Go(func() error {
			results[i] = f.discoverFromProbe(gctx, probe, vreq.Targets, i)
			return nil
		})
	}
	_ = g.Wait()

	var (
		scored []scoredRoute
		calls  int
		fails  int
	)
	for _, r := range results {
		scored = append(scored, r.scored...)
		calls += r.gatewayCalls
		fails += r.gatewayFails
	}

	if len(scored) == 0 && calls > 0 && fails == calls {
		return nil, NewRouteError(ErrCodeGatewayUnavailable,
			"every gateway call failed during discovery", ErrGatewayUnavailable).
			WithDetail("calls", fmt.Sprintf("%d", calls))
	}

	sortScored(scored)
	routes := make([]PaymentRoute, len(scored))
	for i, s := range scored {
		routes[i] = s.route
	}

	f.metrics.ObserveLatency("discovery", time.Since(started), map[string]string{})
	f.log.Info("route discovery finished", map[string]any{
		"sources": len(probes),
		"routes":  len(routes),
		"elapsed": time.Since(started).String(),
	})
	return routes, nil
}

// FindBestRoute returns the cheapest route for the request, or nil when none
// exists. A nil or empty request is "no route", not a fault.
func (f *RouteFinder) FindBestRoute(ctx context.Context, req *PaymentRequest) (*PaymentRoute, error) {
	routes, err := f.FindAllRoutes(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(routes) == 0 {
		return nil, nil
	}
	best := routes[0]
	return &best, nil
}

// buildProbes expands the validated from-list into (address, chain, token)
// probes. Chains whose address format the address fails, and chains where
// the request token does not resolve, produce no probe.
func (f *RouteFinder) buildProbes(vreq *ValidatedRequest) []sourceProbe {
	var probes []sourceProbe
	for _, addr := range vreq.From {
		for _, chain := range CompatibleChains(addr) {
			token, err := f.catalog.Resolve(vreq.Token, chain.NetworkID)
			if err != nil {
				continue
			}
			spend := vreq.Amount.Shift(int32(token.Decimals))
			if !spend.IsInteger() || !spend.IsPositive() {
				continue
			}
			probes = append(probes, sourceProbe{
				Address: addr,
				Chain:   chain,
				Token:   token,
				Spend:   spend.BigInt(),
			})
		}
	}
	return probes
}

// discoverFromProbe checks the probe's balance, expands its route graph, and
// scores every resulting path. All failures are local to the probe.
func (f *RouteFinder) discoverFromProbe(ctx context.Context, probe sourceProbe, targets []ResolvedTarget, probeIndex int) probeResult {
	result := probeResult{gatewayCalls: 1}

	balanceCtx, cancel := context.WithTimeout(ctx, f.cfg.GatewayTimeout)
	balance, err := f.balances.GetBalance(balanceCtx, probe.Address, probe.Token)
	cancel()
	if err != nil {
		result.gatewayFails++
		f.log.Debug("balance unknown, skipping source", map[string]any{
			"address": probe.Address,
			"chain":   probe.Chain.NetworkID,
			"error":   err.Error(),
		})
		return result
	}
	if balance == nil || balance.Cmp(probe.Spend) < 0 {
		return result
	}

	source := candidateSource{
		Address: probe.Address,
		Chain:   probe.Chain,
		Token:   probe.Token,
		Spend:   probe.Spend,
		Balance: balance,
	}
	builder := &routeGraphBuilder{catalog: f.catalog, quotes: f.quotes, cfg: f.cfg, log: f.log}
	paths, stats := builder.Build(ctx, source, targets)
	result.gatewayCalls += stats.QuoteCalls
	result.gatewayFails += stats.QuoteFailures

	scorer := &routeScorer{cfg: f.cfg}
	for i, path := range paths {
		// Discovery order is (probe, path) position, kept stable across
		// runs so ranking ties resolve identically.
		result.scored = append(result.scored, scorer.Score(path, probeIndex*maxPathsPerProbe+i))
	}
	f.metrics.IncCounter("routes_found", map[string]string{"chain": probe.Chain.NetworkID})
	return result
}

// maxPathsPerProbe spaces discovery-order indexes between probes. The hop
// bounds keep any single probe's path count far below this.
const maxPathsPerProbe = 1 << 16
