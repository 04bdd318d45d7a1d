package payroute

import (
	"errors"
	"testing"
)

func TestStaticCatalogResolve(t *testing.T) {
	catalog := NewStaticCatalog()

	tests := []struct {
		name        string
		token       string
		chain       string
		wantSymbol  string
		wantAddress string
		wantErr     error
	}{
		{
			name:        "symbol",
			token:       "USDC",
			chain:       "ethereum",
			wantSymbol:  "USDC",
			wantAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		},
		{
			name:        "lowercase symbol",
			token:       "usdc",
			chain:       "base",
			wantSymbol:  "USDC",
			wantAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		{
			name:        "by address",
			token:       "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			chain:       "ethereum",
			wantSymbol:  "USDT",
			wantAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		},
		{
			name:        "by lowercased address",
			token:       "0xdac17f958d2ee523a2206206994597c13d831ec7",
			chain:       "ethereum",
			wantSymbol:  "USDT",
			wantAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		},
		{
			name:        "solana mint",
			token:       "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			chain:       "solana",
			wantSymbol:  "USDC",
			wantAddress: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		},
		{
			name:       "native asset has empty address",
			token:      "ETH",
			chain:      "ethereum",
			wantSymbol: "ETH",
		},
		{
			name:    "token absent on chain",
			token:   "USDT",
			chain:   "base",
			wantErr: ErrTokenNotFound,
		},
		{
			name:    "unknown token",
			token:   "SHIB",
			chain:   "ethereum",
			wantErr: ErrTokenNotFound,
		},
		{
			name:    "empty token",
			token:   "",
			chain:   "ethereum",
			wantErr: ErrTokenNotFound,
		},
		{
			name:    "unknown chain",
			token:   "USDC",
			chain:   "cosmos",
			wantErr: ErrInvalidNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := catalog.Resolve(tt.token, tt.chain)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q, %q) error = %v, want %v", tt.token, tt.chain, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q, %q) error = %v", tt.token, tt.chain, err)
			}
			if got.Symbol != tt.wantSymbol {
				t.Errorf("Symbol = %q, want %q", got.Symbol, tt.wantSymbol)
			}
			if got.Address != tt.wantAddress {
				t.Errorf("Address = %q, want %q", got.Address, tt.wantAddress)
			}
			if got.ChainID != tt.chain {
				t.Errorf("ChainID = %q, want %q", got.ChainID, tt.chain)
			}
		})
	}
}

func TestStaticCatalogRegister(t *testing.T) {
	catalog := NewStaticCatalog()
	custom := TokenInfo{
		Address:  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		Symbol:   "DAI",
		Name:     "Dai Stablecoin",
		Decimals: 18,
		ChainID:  "ethereum",
	}
	catalog.Register(custom)

	bySymbol, err := catalog.Resolve("dai", "ethereum")
	if err != nil {
		t.Fatalf("Resolve by symbol failed: %v", err)
	}
	byAddress, err := catalog.Resolve(custom.Address, "ethereum")
	if err != nil {
		t.Fatalf("Resolve by address failed: %v", err)
	}
	if bySymbol != byAddress {
		t.Errorf("symbol and address lookups diverge: %+v vs %+v", bySymbol, byAddress)
	}

	// Re-registering replaces the record.
	custom.Name = "Dai"
	catalog.Register(custom)
	updated, err := catalog.Resolve("DAI", "ethereum")
	if err != nil {
		t.Fatalf("Resolve after update failed: %v", err)
	}
	if updated.Name != "Dai" {
		t.Errorf("Name = %q, want Dai", updated.Name)
	}
}
