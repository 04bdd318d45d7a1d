package payroute

import (
	"fmt"
	"math/big"
	"sort"
)

// nominalStepSeconds is the time contribution assumed for same-chain steps;
// bridge edges carry their quoted estimate instead.
const nominalStepSeconds = 15

// scoredRoute pairs a finished PaymentRoute with its ranking inputs. The
// cost scalar never leaves the engine; callers see only the resulting order.
type scoredRoute struct {
	route   PaymentRoute
	cost    float64
	steps   int
	bridges int
	// order is the path's discovery index, the final deterministic
	// tie-break.
	order int
}

// routeScorer prices candidate paths into PaymentRoutes and ranks them.
type routeScorer struct {
	cfg Config
}

// Score converts a candidate path into a scored PaymentRoute. The cost is
// normalizedFee + TimeWeight*estimatedSeconds + riskPenalty, where the fee
// term is the path's cumulative relative value loss and risk is charged for
// estimate-only bridge quotes and excessive price impact.
func (s *routeScorer) Score(path candidatePath, order int) scoredRoute {
	var (
		feeRatio    float64
		seconds     int
		risky       bool
		bridgeCount int
	)

	route := PaymentRoute{
		Blockchain:   path.Source.Chain.NetworkID,
		FromAddress:  path.Source.Address,
		FromToken:    tokenRef(path.Source.Token),
		FromAmount:   AtomicToAmount(path.Source.Spend, path.Source.Token.Decimals),
		FromDecimals: path.Source.Token.Decimals,
		ToToken:      tokenRef(path.Target.Token),
		ToDecimals:   path.Target.Token.Decimals,
		ToAddress:    path.Target.Receiver,
	}

	bridgeFees := new(big.Int)
	bridgeFeesInSourceToken := true

	for _, edge := range path.Edges {
		switch edge.Kind {
		case StepSwap:
			if needsApproval(edge) {
				route.Steps = append(route.Steps, approveStep(edge, edge.Swap.Exchange))
			}
			route.Steps = append(route.Steps, swapStep(edge))
			route.ExchangeRoutes = append(route.ExchangeRoutes, ExchangeRoute{
				Exchange:       edge.Swap.Exchange,
				Path:           edge.Swap.Path,
				ExpectedOutput: AtomicToAmount(edge.Swap.ExpectedOutput, edge.ToToken.Decimals),
				MinimumOutput:  AtomicToAmount(edge.Swap.MinimumOutput, edge.ToToken.Decimals),
				PriceImpact:    fmt.Sprintf("%.4f", float64(edge.Swap.PriceImpactBps)/10000),
			})

			feeRatio += float64(edge.Swap.PriceImpactBps) / 10000
			seconds += nominalStepSeconds
			if edge.Swap.PriceImpactBps > s.cfg.PriceImpactRiskBps {
				risky = true
			}

		case StepBridge:
			if needsApproval(edge) {
				route.Steps = append(route.Steps, approveStep(edge, edge.Bridge.Bridge))
			}
			route.Steps = append(route.Steps, bridgeStep(edge))

			bridgeCount++
			feeRatio += ratio(edge.Bridge.Fee, edge.AmountIn)
			seconds += edge.Bridge.EstimatedSeconds
			if !edge.Bridge.Finalized {
				risky = true
			}
			if edge.FromToken.SameAsset(path.Source.Token) && edge.Bridge.Fee != nil {
				bridgeFees.Add(bridgeFees, edge.Bridge.Fee)
			} else {
				bridgeFeesInSourceToken = false
			}

		case StepTransfer:
			route.Steps = append(route.Steps, transferStep(edge, path.Target.Receiver))
			route.ToAmount = AtomicToAmount(edge.AmountOut, path.Target.Token.Decimals)
			seconds += nominalStepSeconds
		}
	}

	if bridgeFees.Sign() > 0 && bridgeFeesInSourceToken {
		route.EstimatedFee = AtomicToAmount(bridgeFees, path.Source.Token.Decimals)
	}
	if len(route.Steps) > 0 && route.Steps[0].Type == StepApprove {
		route.ApprovalRequired = true
	}

	cost := feeRatio + s.cfg.TimeWeight*float64(seconds)
	if risky {
		cost += s.cfg.RiskPenalty
	}

	return scoredRoute{
		route:   route,
		cost:    cost,
		steps:   len(route.Steps),
		bridges: bridgeCount,
		order:   order,
	}
}

// sortScored orders routes ascending by cost, breaking ties by fewer steps,
// then fewer bridges, then discovery order. The full chain keeps ranking
// deterministic for identical gateway state.
func sortScored(routes []scoredRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].cost != routes[j].cost {
			return routes[i].cost < routes[j].cost
		}
		if routes[i].steps != routes[j].steps {
			return routes[i].steps < routes[j].steps
		}
		if routes[i].bridges != routes[j].bridges {
			return routes[i].bridges < routes[j].bridges
		}
		return routes[i].order < routes[j].order
	})
}

// needsApproval reports whether the edge spends an ERC-20 on an EVM chain,
// which requires an allowance before the spending step.
func needsApproval(edge pathEdge) bool {
	chain, ok := ChainByID(edge.FromChain)
	return ok && chain.Type == NetworkTypeEVM && edge.FromToken.Address != ""
}

func approveStep(edge pathEdge, spender string) RouteStep {
	return RouteStep{
		Type:        StepApprove,
		Description: fmt.Sprintf("approve %s for %s on %s", edge.FromToken.Symbol, spender, edge.FromChain),
		Data: map[string]any{
			"chain":   edge.FromChain,
			"token":   edge.FromToken.Address,
			"spender": spender,
			"amount":  edge.AmountIn.String(),
		},
	}
}

func swapStep(edge pathEdge) RouteStep {
	return RouteStep{
		Type: StepSwap,
		Description: fmt.Sprintf("swap %s %s for %s on %s via %s",
			AtomicToAmount(edge.AmountIn, edge.FromToken.Decimals),
			edge.FromToken.Symbol, edge.ToToken.Symbol, edge.FromChain, edge.Swap.Exchange),
		Data: map[string]any{
			"chain":         edge.FromChain,
			"exchange":      edge.Swap.Exchange,
			"fromToken":     tokenRef(edge.FromToken),
			"toToken":       tokenRef(edge.ToToken),
			"amountIn":      edge.AmountIn.String(),
			"minimumOutput": edge.Swap.MinimumOutput.String(),
			"quotedAt":      edge.Swap.FetchedAt.Unix(),
		},
	}
}

func bridgeStep(edge pathEdge) RouteStep {
	return RouteStep{
		Type: StepBridge,
		Description: fmt.Sprintf("bridge %s %s from %s to %s via %s",
			AtomicToAmount(edge.AmountIn, edge.FromToken.Decimals),
			edge.FromToken.Symbol, edge.FromChain, edge.ToChain, edge.Bridge.Bridge),
		Data: map[string]any{
			"fromChain": edge.FromChain,
			"toChain":   edge.ToChain,
			"bridge":    edge.Bridge.Bridge,
			"token":     tokenRef(edge.FromToken),
			"amountIn":  edge.AmountIn.String(),
			"fee":       feeString(edge.Bridge.Fee),
		},
	}
}

func transferStep(edge pathEdge, receiver string) RouteStep {
	return RouteStep{
		Type: StepTransfer,
		Description: fmt.Sprintf("transfer %s %s to %s on %s",
			AtomicToAmount(edge.AmountOut, edge.ToToken.Decimals),
			edge.ToToken.Symbol, receiver, edge.ToChain),
		Data: map[string]any{
			"chain":    edge.ToChain,
			"token":    tokenRef(edge.ToToken),
			"amount":   edge.AmountOut.String(),
			"receiver": receiver,
		},
	}
}

// tokenRef is the route-facing identifier for a token: its address when it
// has one, otherwise its symbol (native assets).
func tokenRef(t TokenInfo) string {
	if t.Address != "" {
		return t.Address
	}
	return t.Symbol
}

func feeString(fee *big.Int) string {
	if fee == nil {
		return "0"
	}
	return fee.String()
}

// ratio returns part/whole as a float, zero when either is unusable. The
// float is only ever a ranking input, never a value computation.
func ratio(part, whole *big.Int) float64 {
	if part == nil || whole == nil || whole.Sign() == 0 {
		return 0
	}
	p, _ := new(big.Float).SetInt(part).Float64()
	w, _ := new(big.Float).SetInt(whole).Float64()
	if w == 0 {
		return 0
	}
	return p / w
}
