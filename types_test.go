package payroute

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"
)

func TestAmountToAtomic(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"whole amount", "100", 6, "100000000", false},
		{"fractional amount", "1.5", 6, "1500000", false},
		{"full precision", "0.000001", 6, "1", false},
		{"eighteen decimals", "2.5", 18, "2500000000000000000", false},
		{"zero", "0", 6, "0", false},
		{"leading whitespace", " 42 ", 6, "42000000", false},
		{"too much precision", "0.0000001", 6, "", true},
		{"negative", "-1", 6, "", true},
		{"empty", "", 6, "", true},
		{"garbage", "abc", 6, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountToAtomic(tt.amount, tt.decimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("AmountToAtomic(%q, %d) error = %v, wantErr %v", tt.amount, tt.decimals, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.String() != tt.want {
				t.Errorf("AmountToAtomic(%q, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestAtomicToAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    *big.Int
		decimals uint8
		want     string
	}{
		{"whole", big.NewInt(100000000), 6, "100"},
		{"fractional", big.NewInt(1500000), 6, "1.5"},
		{"smallest unit", big.NewInt(1), 6, "0.000001"},
		{"nil", nil, 6, "0"},
		{"zero", big.NewInt(0), 6, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AtomicToAmount(tt.value, tt.decimals); got != tt.want {
				t.Errorf("AtomicToAmount(%v, %d) = %s, want %s", tt.value, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	atomic, err := AmountToAtomic("123.456789", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := AtomicToAmount(atomic, 6); got != "123.456789" {
		t.Errorf("round trip = %s, want 123.456789", got)
	}
}

func TestTokenInfoSameAsset(t *testing.T) {
	usdc := TokenInfo{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Symbol: "USDC", Decimals: 6, ChainID: "ethereum"}

	tests := []struct {
		name  string
		other TokenInfo
		want  bool
	}{
		{"identical", usdc, true},
		{"case-insensitive address", TokenInfo{Address: strings.ToLower(usdc.Address), ChainID: "ethereum"}, true},
		{"different chain", TokenInfo{Address: usdc.Address, ChainID: "polygon"}, false},
		{"different address", TokenInfo{Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", ChainID: "ethereum"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usdc.SameAsset(tt.other); got != tt.want {
				t.Errorf("SameAsset() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Optional PaymentRoute fields must be absent from JSON, not null: callers
// assert on key presence.
func TestPaymentRouteOptionalFieldsAbsent(t *testing.T) {
	route := PaymentRoute{
		Blockchain:   "ethereum",
		FromAddress:  "0xA",
		FromToken:    "USDC",
		FromAmount:   "100",
		FromDecimals: 6,
		ToToken:      "USDC",
		ToAmount:     "100",
		ToDecimals:   6,
		ToAddress:    "0xB",
		Steps: []RouteStep{
			{Type: StepTransfer, Description: "transfer"},
		},
	}

	data, err := json.Marshal(route)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{"estimatedGas", "estimatedFee", "approvalRequired", "exchangeRoutes"} {
		if _, present := raw[key]; present {
			t.Errorf("expected key %q to be absent, got %s", key, raw[key])
		}
	}
	for _, key := range []string{"blockchain", "fromAddress", "fromAmount", "steps", "toAmount"} {
		if _, present := raw[key]; !present {
			t.Errorf("expected key %q to be present", key)
		}
	}

	// Step data is likewise omitted when empty.
	var decoded PaymentRoute
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	stepJSON, _ := json.Marshal(decoded.Steps[0])
	if strings.Contains(string(stepJSON), "data") {
		t.Errorf("expected empty step data to be omitted, got %s", stepJSON)
	}
}

func TestPaymentRouteOptionalFieldsPresent(t *testing.T) {
	route := PaymentRoute{
		Blockchain:       "ethereum",
		EstimatedFee:     "1.2",
		ApprovalRequired: true,
		Steps:            []RouteStep{{Type: StepApprove, Description: "approve"}},
	}

	data, err := json.Marshal(route)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, present := raw["estimatedFee"]; !present {
		t.Error("expected estimatedFee to be present")
	}
	if _, present := raw["approvalRequired"]; !present {
		t.Error("expected approvalRequired to be present")
	}
}
