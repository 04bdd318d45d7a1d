// Package quotes implements the engine's QuoteGateway over an external HTTP
// quote-aggregator API. The aggregator owns the actual DEX matching and
// bridge relay logic; this client only prices edges.
package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"time"

	payroute "github.com/lanternpay/payroute-go"
)

var _ payroute.QuoteGateway = (*Client)(nil)

// Client is an HTTP client for a quote-aggregator service.
type Client struct {
	// BaseURL is the aggregator's endpoint root.
	BaseURL string

	// HTTP is the underlying client. When nil, http.DefaultClient is
	// used; per-call deadlines come from the caller's context either way.
	HTTP *http.Client

	// Clock stamps quotes as they arrive; nil means time.Now.
	Clock func() time.Time
}

// swapQuoteRequest is the POST /v1/quote/swap payload.
type swapQuoteRequest struct {
	Chain     string `json:"chain"`
	FromToken string `json:"fromToken"`
	ToToken   string `json:"toToken"`
	Amount    string `json:"amount"`
}

// swapQuoteResponse mirrors the aggregator's swap quote shape.
type swapQuoteResponse struct {
	Exchange       string   `json:"exchange"`
	Path           []string `json:"path"`
	ExpectedOutput string   `json:"expectedOutput"`
	MinimumOutput  string   `json:"minimumOutput"`
	PriceImpactBps uint16   `json:"priceImpactBps"`
}

// bridgeQuoteRequest is the POST /v1/quote/bridge payload.
type bridgeQuoteRequest struct {
	FromChain string `json:"fromChain"`
	ToChain   string `json:"toChain"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
}

// bridgeQuoteResponse mirrors the aggregator's bridge quote shape.
type bridgeQuoteResponse struct {
	Bridge           string `json:"bridge"`
	Fee              string `json:"fee"`
	EstimatedSeconds int    `json:"estimatedSeconds"`
	Finalized        bool   `json:"finalized"`
}

// bridgeStatusResponse mirrors GET /v1/bridge/status.
type bridgeStatusResponse struct {
	Status           string `json:"status"`
	Confirmations    int    `json:"confirmations"`
	EstimatedSeconds int    `json:"estimatedSeconds"`
}

// GetSwapQuote implements payroute.QuoteGateway.
func (c *Client) GetSwapQuote(ctx context.Context, chain string, from, to payroute.TokenInfo, amount *big.Int) (*payroute.SwapQuote, error) {
	req := swapQuoteRequest{
		Chain:     chain,
		FromToken: tokenRef(from),
		ToToken:   tokenRef(to),
		Amount:    amount.String(),
	}
	var resp swapQuoteResponse
	if err := c.post(ctx, "/v1/quote/swap", req, &resp); err != nil {
		return nil, err
	}

	expected, ok := new(big.Int).SetString(resp.ExpectedOutput, 10)
	if !ok {
		return nil, fmt.Errorf("aggregator returned unparseable output %q", resp.ExpectedOutput)
	}
	minimum, ok := new(big.Int).SetString(resp.MinimumOutput, 10)
	if !ok {
		return nil, fmt.Errorf("aggregator returned unparseable minimum %q", resp.MinimumOutput)
	}

	return &payroute.SwapQuote{
		Exchange:       resp.Exchange,
		Path:           resp.Path,
		ExpectedOutput: expected,
		MinimumOutput:  minimum,
		PriceImpactBps: resp.PriceImpactBps,
		FetchedAt:      c.now(),
	}, nil
}

// GetBridgeQuote implements payroute.QuoteGateway.
func (c *Client) GetBridgeQuote(ctx context.Context, fromChain, toChain string, token payroute.TokenInfo, amount *big.Int) (*payroute.BridgeQuote, error) {
	req := bridgeQuoteRequest{
		FromChain: fromChain,
		ToChain:   toChain,
		Token:     tokenRef(token),
		Amount:    amount.String(),
	}
	var resp bridgeQuoteResponse
	if err := c.post(ctx, "/v1/quote/bridge", req, &resp); err != nil {
		return nil, err
	}

	fee, ok := new(big.Int).SetString(resp.Fee, 10)
	if !ok {
		return nil, fmt.Errorf("aggregator returned unparseable fee %q", resp.Fee)
	}

	return &payroute.BridgeQuote{
		Bridge:           resp.Bridge,
		Fee:              fee,
		EstimatedSeconds: resp.EstimatedSeconds,
		Finalized:        resp.Finalized,
		FetchedAt:        c.now(),
	}, nil
}

// GetBridgeStatus implements payroute.QuoteGateway.
func (c *Client) GetBridgeStatus(ctx context.Context, txHash string) (*payroute.BridgeStatus, error) {
	endpoint := c.BaseURL + "/v1/bridge/status?tx=" + url.QueryEscape(txHash)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payroute.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", payroute.ErrGatewayUnavailable, resp.StatusCode)
	}

	var body bridgeStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &payroute.BridgeStatus{
		Status:           payroute.BridgeTransferStatus(body.Status),
		Confirmations:    body.Confirmations,
		EstimatedSeconds: body.EstimatedSeconds,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", payroute.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", payroute.ErrGatewayUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func tokenRef(t payroute.TokenInfo) string {
	if t.Address != "" {
		return t.Address
	}
	return t.Symbol
}
