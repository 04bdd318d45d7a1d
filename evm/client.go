// Package evm implements the engine's provider adapter and balance gateway
// for EVM chains over JSON-RPC.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	payroute "github.com/lanternpay/payroute-go"
)

var (
	_ payroute.ProviderAdapter = (*Client)(nil)
	_ payroute.BalanceGateway  = (*Client)(nil)
)

// balanceOfSelector is the 4-byte selector of ERC-20 balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

// receiptPollInterval is the delay between confirmation polls.
const receiptPollInterval = 2 * time.Second

// Client serves one or more EVM networks, each over its own RPC endpoint.
type Client struct {
	mu      sync.RWMutex
	clients map[string]*ethclient.Client
}

// NewClient creates an empty client; networks are added with AddNetwork.
func NewClient() *Client {
	return &Client{clients: make(map[string]*ethclient.Client)}
}

// AddNetwork dials rpcURL and serves the given network from it.
func (c *Client) AddNetwork(network, rpcURL string) error {
	chain, ok := payroute.ChainByID(network)
	if !ok || chain.Type != payroute.NetworkTypeEVM {
		return fmt.Errorf("%w: %s is not an EVM network", payroute.ErrInvalidNetwork, network)
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s RPC: %w", network, err)
	}
	c.mu.Lock()
	c.clients[network] = client
	c.mu.Unlock()
	return nil
}

// Close releases every RPC connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, client := range c.clients {
		client.Close()
	}
	c.clients = make(map[string]*ethclient.Client)
}

func (c *Client) client(network string) (*ethclient.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	client, ok := c.clients[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", payroute.ErrNoProvider, network)
	}
	return client, nil
}

// GetBalance implements payroute.BalanceGateway. The native asset reads the
// account balance; ERC-20 tokens read balanceOf via eth_call.
func (c *Client) GetBalance(ctx context.Context, address string, token payroute.TokenInfo) (*big.Int, error) {
	client, err := c.client(token.ChainID)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %s", payroute.ErrInvalidAddress, address)
	}
	holder := common.HexToAddress(address)

	if token.Address == "" {
		balance, err := client.BalanceAt(ctx, holder, nil)
		if err != nil {
			return nil, fmt.Errorf("balance read failed on %s: %w", token.ChainID, err)
		}
		return balance, nil
	}

	if !common.IsHexAddress(token.Address) {
		return nil, fmt.Errorf("%w: token %s", payroute.ErrInvalidAddress, token.Address)
	}
	contract := common.HexToAddress(token.Address)
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(holder.Bytes(), 32)...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call failed on %s: %w", token.ChainID, err)
	}
	return new(big.Int).SetBytes(out), nil
}

// SendTransaction implements payroute.ProviderAdapter. The payload is an
// RLP/typed-encoded signed transaction.
func (c *Client) SendTransaction(ctx context.Context, network string, signedPayload []byte) (string, error) {
	client, err := c.client(network)
	if err != nil {
		return "", err
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(signedPayload); err != nil {
		return "", fmt.Errorf("%w: undecodable payload: %v", payroute.ErrStepFailed, err)
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		if isTransientSendError(err) {
			return "", fmt.Errorf("%w: %v", payroute.ErrTransientSubmission, err)
		}
		return "", fmt.Errorf("%w: %v", payroute.ErrStepFailed, err)
	}
	return tx.Hash().Hex(), nil
}

// EstimateGas implements payroute.ProviderAdapter.
func (c *Client) EstimateGas(ctx context.Context, network string, txBytes []byte) (uint64, error) {
	client, err := c.client(network)
	if err != nil {
		return 0, err
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(txBytes); err != nil {
		return 0, fmt.Errorf("undecodable payload: %w", err)
	}

	return client.EstimateGas(ctx, ethereum.CallMsg{
		To:    tx.To(),
		Value: tx.Value(),
		Data:  tx.Data(),
	})
}

// WaitForConfirmation implements payroute.ProviderAdapter. It polls for the
// transaction receipt until it lands or ctx expires; a reverted receipt is
// a deterministic step failure.
func (c *Client) WaitForConfirmation(ctx context.Context, network, txHash string) error {
	client, err := c.client(network)
	if err != nil {
		return err
	}
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()
	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: transaction %s reverted", payroute.ErrStepFailed, txHash)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// isTransientSendError matches the submission failures worth retrying:
// nonce races, underpriced gas, and transient node conditions. Anything
// else is deterministic.
func isTransientSendError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"nonce too low",
		"replacement transaction underpriced",
		"transaction underpriced",
		"already known",
		"connection refused",
		"timeout",
		"temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
