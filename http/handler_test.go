package http

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	payroute "github.com/lanternpay/payroute-go"
)

const (
	senderAddr   = "0x1111111111111111111111111111111111111111"
	receiverAddr = "0x3333333333333333333333333333333333333333"
)

// fundedGateways serves a fixed USDC balance on ethereum and no quotes, so a
// direct ethereum transfer is the only discoverable route.
type fundedGateways struct{}

func (fundedGateways) GetBalance(_ context.Context, address string, token payroute.TokenInfo) (*big.Int, error) {
	if address == senderAddr && token.ChainID == "ethereum" && token.Symbol == "USDC" {
		return big.NewInt(1_000_000_000), nil
	}
	return big.NewInt(0), nil
}

func (fundedGateways) GetSwapQuote(context.Context, string, payroute.TokenInfo, payroute.TokenInfo, *big.Int) (*payroute.SwapQuote, error) {
	return nil, payroute.ErrGatewayUnavailable
}

func (fundedGateways) GetBridgeQuote(context.Context, string, string, payroute.TokenInfo, *big.Int) (*payroute.BridgeQuote, error) {
	return nil, payroute.ErrGatewayUnavailable
}

func (fundedGateways) GetBridgeStatus(context.Context, string) (*payroute.BridgeStatus, error) {
	return nil, payroute.ErrGatewayUnavailable
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gw := fundedGateways{}
	finder, err := payroute.NewRouteFinder(payroute.NewStaticCatalog(), gw, gw)
	if err != nil {
		t.Fatalf("NewRouteFinder failed: %v", err)
	}
	server := httptest.NewServer(NewHandler(finder, nil).Router())
	t.Cleanup(server.Close)
	return server
}

func TestHandleFindRoutes(t *testing.T) {
	server := newTestServer(t)

	body := `{
		"from": ["` + senderAddr + `"],
		"to": "` + receiverAddr + `",
		"amount": "100",
		"token": "USDC",
		"accept": [{"blockchain": "ethereum", "token": "USDC", "receiver": "` + receiverAddr + `"}]
	}`
	resp, err := http.Post(server.URL+"/v1/routes", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var routes RoutesResponse
	if err := json.NewDecoder(resp.Body).Decode(&routes); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(routes.Routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(routes.Routes))
	}
	route := routes.Routes[0]
	if route.Blockchain != "ethereum" || route.ToAmount != "100" {
		t.Errorf("route = %+v, want ethereum transfer of 100", route)
	}
	if len(route.Steps) != 1 || route.Steps[0].Type != payroute.StepTransfer {
		t.Errorf("steps = %+v, want a single transfer", route.Steps)
	}
}

func TestHandleFindBestRoute(t *testing.T) {
	server := newTestServer(t)

	body := `{
		"from": ["` + senderAddr + `"],
		"to": "` + receiverAddr + `",
		"amount": "100",
		"token": "USDC",
		"accept": [{"blockchain": "ethereum", "token": "USDC", "receiver": "` + receiverAddr + `"}]
	}`
	resp, err := http.Post(server.URL+"/v1/routes/best", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var best BestRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&best); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if best.Route == nil || best.Route.Blockchain != "ethereum" {
		t.Errorf("best route = %+v, want ethereum transfer", best.Route)
	}
}

func TestHandleFindBestRouteNoRoute(t *testing.T) {
	server := newTestServer(t)

	// Well-formed but unfundable: the sender has no polygon balance.
	body := `{
		"from": ["` + senderAddr + `"],
		"to": "` + receiverAddr + `",
		"amount": "100",
		"token": "USDC",
		"accept": [{"blockchain": "polygon", "token": "USDC", "receiver": "` + receiverAddr + `"}]
	}`
	resp, err := http.Post(server.URL+"/v1/routes/best", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, present := raw["route"]; present {
		t.Errorf("route key should be absent when no route exists, got %s", raw["route"])
	}
}

func TestHandleFindRoutesValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"malformed json", `{not json`, http.StatusBadRequest},
		{"missing to", `{"amount": "100", "token": "USDC"}`, http.StatusBadRequest},
		{"missing amount", `{"to": "` + receiverAddr + `", "token": "USDC"}`, http.StatusBadRequest},
		{"missing token", `{"to": "` + receiverAddr + `", "amount": "100"}`, http.StatusBadRequest},
		{
			name:       "uninterpretable amount",
			body:       `{"from": ["` + senderAddr + `"], "to": "` + receiverAddr + `", "amount": "lots", "token": "USDC"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unresolvable token",
			body:       `{"from": ["` + senderAddr + `"], "to": "` + receiverAddr + `", "amount": "100", "token": "SHIB"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/v1/routes", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var body errorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Error == "" {
				t.Error("error body is empty")
			}
		})
	}
}

func TestHandleFindRoutesGatewayDown(t *testing.T) {
	gw := downGateways{}
	finder, err := payroute.NewRouteFinder(payroute.NewStaticCatalog(), gw, gw)
	if err != nil {
		t.Fatalf("NewRouteFinder failed: %v", err)
	}
	server := httptest.NewServer(NewHandler(finder, nil).Router())
	defer server.Close()

	body := `{
		"from": ["` + senderAddr + `"],
		"to": "` + receiverAddr + `",
		"amount": "100",
		"token": "USDC",
		"accept": [{"blockchain": "ethereum", "token": "USDC", "receiver": "` + receiverAddr + `"}]
	}`
	resp, err := http.Post(server.URL+"/v1/routes", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

// downGateways fails every external call.
type downGateways struct{}

func (downGateways) GetBalance(context.Context, string, payroute.TokenInfo) (*big.Int, error) {
	return nil, payroute.ErrGatewayUnavailable
}

func (downGateways) GetSwapQuote(context.Context, string, payroute.TokenInfo, payroute.TokenInfo, *big.Int) (*payroute.SwapQuote, error) {
	return nil, payroute.ErrGatewayUnavailable
}

func (downGateways) GetBridgeQuote(context.Context, string, string, payroute.TokenInfo, *big.Int) (*payroute.BridgeQuote, error) {
	return nil, payroute.ErrGatewayUnavailable
}

func (downGateways) GetBridgeStatus(context.Context, string) (*payroute.BridgeStatus, error) {
	return nil, payroute.ErrGatewayUnavailable
}
