package payroute

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidatedRequest is a PaymentRequest after the single central validation
// pass: addresses deduplicated and format-checked, the amount parsed, and
// every accept target resolved through the catalog. Nothing downstream of
// this type re-checks request fields.
type ValidatedRequest struct {
	// From holds the surviving candidate funding addresses, in request
	// order, with duplicates and malformed entries removed.
	From []string

	// To is the default receiver address.
	To string

	// Token is the requested token symbol or address, as given.
	Token string

	// Amount is the parsed payment amount.
	Amount decimal.Decimal

	// Targets holds the resolved accept targets. OR-combined: any one
	// satisfies the payment.
	Targets []ResolvedTarget
}

// ResolvedTarget is an accept target with its chain and token resolved.
type ResolvedTarget struct {
	Chain    ChainConfig
	Token    TokenInfo
	Receiver string
}

// ValidateRequest runs the central validation pass. Malformed from-addresses
// and unresolvable accept entries are filtered, not fatal; the request is
// rejected with ErrInvalidRequest only when it cannot be interpreted at all:
// an unparseable amount, or no accept target left standing.
//
// When the request carries no explicit accept targets, one is synthesized
// from (To, Token) on every chain where both resolve.
func ValidateRequest(catalog TokenCatalog, req *PaymentRequest) (*ValidatedRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidRequest, req.Amount)
	}

	v := &ValidatedRequest{
		To:     req.To,
		Token:  req.Token,
		Amount: amount,
	}

	accept := req.Accept
	if len(accept) == 0 {
		accept = implicitTargets(req)
	}
	for _, a := range accept {
		chain, ok := ChainByID(a.Blockchain)
		if !ok {
			continue
		}
		receiver := a.Receiver
		if receiver == "" {
			receiver = req.To
		}
		if ValidateAddress(receiver, chain.NetworkID) != nil {
			continue
		}
		token, err := catalog.Resolve(a.Token, chain.NetworkID)
		if err != nil {
			continue
		}
		v.Targets = append(v.Targets, ResolvedTarget{Chain: chain, Token: token, Receiver: receiver})
	}
	if len(v.Targets) == 0 {
		return nil, fmt.Errorf("%w: no resolvable accept target", ErrInvalidRequest)
	}

	seen := make(map[string]bool, len(req.From))
	for _, addr := range req.From {
		addr = strings.TrimSpace(addr)
		if addr == "" || seen[dedupKey(addr)] {
			continue
		}
		if !addressValidAnywhere(addr) {
			continue
		}
		seen[dedupKey(addr)] = true
		v.From = append(v.From, addr)
	}

	return v, nil
}

// dedupKey folds hex addresses to one case: EVM checksum casing varies for
// the same account. Base58 addresses keep their case, it is significant.
func dedupKey(addr string) string {
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return strings.ToLower(addr)
	}
	return addr
}

// implicitTargets synthesizes accept targets from the request's top-level
// destination on every supported chain.
func implicitTargets(req *PaymentRequest) []AcceptTarget {
	targets := make([]AcceptTarget, 0, len(SupportedChains))
	for _, chain := range SupportedChains {
		targets = append(targets, AcceptTarget{
			Blockchain: chain.NetworkID,
			Token:      req.Token,
			Receiver:   req.To,
		})
	}
	return targets
}

// addressValidAnywhere reports whether addr is well-formed for at least one
// supported chain. Which chains a source address actually funds is decided
// later, against live balances.
func addressValidAnywhere(addr string) bool {
	for _, chain := range SupportedChains {
		if ValidateAddress(addr, chain.NetworkID) == nil {
			return true
		}
	}
	return false
}

// CompatibleChains returns the supported chains whose address format addr
// satisfies.
func CompatibleChains(addr string) []ChainConfig {
	var chains []ChainConfig
	for _, chain := range SupportedChains {
		if ValidateAddress(addr, chain.NetworkID) == nil {
			chains = append(chains, chain)
		}
	}
	return chains
}
