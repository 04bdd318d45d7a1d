// Package svm implements the engine's provider adapter and balance gateway
// for Solana over JSON-RPC.
package svm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	payroute "github.com/lanternpay/payroute-go"
)

var (
	_ payroute.ProviderAdapter = (*Client)(nil)
	_ payroute.BalanceGateway  = (*Client)(nil)
)

// lamportsPerSignature is Solana's flat per-signature fee, reported by
// EstimateGas in place of a gas unit count.
const lamportsPerSignature = 5000

// statusPollInterval is the delay between signature status polls.
const statusPollInterval = 2 * time.Second

// Client serves the Solana network over a single RPC endpoint.
type Client struct {
	network string
	rpc     *rpc.Client
}

// NewClient creates a client for the given Solana network identifier.
func NewClient(network, rpcURL string) (*Client, error) {
	chain, ok := payroute.ChainByID(network)
	if !ok || chain.Type != payroute.NetworkTypeSVM {
		return nil, fmt.Errorf("%w: %s is not a Solana network", payroute.ErrInvalidNetwork, network)
	}
	return &Client{network: network, rpc: rpc.New(rpcURL)}, nil
}

// GetBalance implements payroute.BalanceGateway. SOL reads the account's
// lamports; SPL tokens read the associated token account balance.
func (c *Client) GetBalance(ctx context.Context, address string, token payroute.TokenInfo) (*big.Int, error) {
	if token.ChainID != c.network {
		return nil, fmt.Errorf("%w: %s", payroute.ErrInvalidNetwork, token.ChainID)
	}
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", payroute.ErrInvalidAddress, address)
	}

	if token.Address == "" {
		out, err := c.rpc.GetBalance(ctx, owner, rpc.CommitmentFinalized)
		if err != nil {
			return nil, fmt.Errorf("lamport balance read failed: %w", err)
		}
		return new(big.Int).SetUint64(out.Value), nil
	}

	mint, err := solana.PublicKeyFromBase58(token.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: mint %s", payroute.ErrInvalidAddress, token.Address)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("deriving token account: %w", err)
	}

	out, err := c.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentFinalized)
	if err != nil {
		// A missing token account simply means a zero holding.
		if strings.Contains(err.Error(), "could not find account") {
			return big.NewInt(0), nil
		}
		return nil, fmt.Errorf("token balance read failed: %w", err)
	}
	amount, ok := new(big.Int).SetString(out.Value.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("unparseable token amount %q", out.Value.Amount)
	}
	return amount, nil
}

// SendTransaction implements payroute.ProviderAdapter. The payload is a
// fully signed serialized transaction.
func (c *Client) SendTransaction(ctx context.Context, network string, signedPayload []byte) (string, error) {
	if network != c.network {
		return "", fmt.Errorf("%w: %s", payroute.ErrNoProvider, network)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(signedPayload))
	if err != nil {
		return "", fmt.Errorf("%w: undecodable payload: %v", payroute.ErrStepFailed, err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		if isTransientSendError(err) {
			return "", fmt.Errorf("%w: %v", payroute.ErrTransientSubmission, err)
		}
		return "", fmt.Errorf("%w: %v", payroute.ErrStepFailed, err)
	}
	return sig.String(), nil
}

// EstimateGas implements payroute.ProviderAdapter. Solana charges a flat
// per-signature fee rather than metered gas.
func (c *Client) EstimateGas(ctx context.Context, network string, tx []byte) (uint64, error) {
	if network != c.network {
		return 0, fmt.Errorf("%w: %s", payroute.ErrNoProvider, network)
	}
	return lamportsPerSignature, nil
}

// WaitForConfirmation implements payroute.ProviderAdapter. It polls the
// signature status until finalized or ctx expires.
func (c *Client) WaitForConfirmation(ctx context.Context, network, txHash string) error {
	if network != c.network {
		return fmt.Errorf("%w: %s", payroute.ErrNoProvider, network)
	}
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return fmt.Errorf("%w: bad signature %s", payroute.ErrInvalidAddress, txHash)
	}

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()
	for {
		out, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: transaction %s failed on chain", payroute.ErrStepFailed, txHash)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isTransientSendError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"blockhash not found",
		"node is behind",
		"connection refused",
		"timeout",
		"rate limit",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
