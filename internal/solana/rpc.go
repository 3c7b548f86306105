// Package solana provides the minimal Solana JSON-RPC surface the bot needs:
// balance queries and transaction status lookups, plus address validation.
package solana

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const lamportsPerSol = 1_000_000_000

// Commitment is the chain-reported confirmation level of a transaction.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
	// CommitmentUnknown means the signature was not found by the RPC node.
	CommitmentUnknown Commitment = ""
)

// RPC is the read interface to the blockchain node.
type RPC interface {
	Balance(ctx context.Context, account string) (float64, error)
	SignatureStatus(ctx context.Context, signature string) (Commitment, error)
}

// Client is a JSON-RPC client for a Solana node.
type Client struct {
	client *resty.Client
	logger *zap.Logger
}

var _ RPC = (*Client)(nil)

// NewClient creates an RPC client against the node at rpcURL.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		client: resty.New().SetBaseURL(rpcURL),
		logger: logger.Named("solana-rpc"),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var result rpcResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		SetResult(&result).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("rpc call %s failed: %w", method, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("rpc call %s returned status %s", method, resp.Status())
	}
	if result.Error != nil {
		return nil, fmt.Errorf("rpc call %s failed: %s (code %d)", method, result.Error.Message, result.Error.Code)
	}
	return result.Result, nil
}

// Balance returns the SOL balance of an account.
func (c *Client) Balance(ctx context.Context, account string) (float64, error) {
	raw, err := c.call(ctx, "getBalance", []any{account})
	if err != nil {
		return 0, err
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("failed to parse balance response: %w", err)
	}
	return float64(result.Value) / lamportsPerSol, nil
}

// SignatureStatus returns the commitment level of a submitted transaction,
// or CommitmentUnknown when the node has not seen the signature yet.
func (c *Client) SignatureStatus(ctx context.Context, signature string) (Commitment, error) {
	raw, err := c.call(ctx, "getSignatureStatuses", []any{
		[]string{signature},
		map[string]bool{"searchTransactionHistory": true},
	})
	if err != nil {
		return CommitmentUnknown, err
	}

	var result struct {
		Value []*struct {
			ConfirmationStatus Commitment `json:"confirmationStatus"`
			Err                any        `json:"err"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return CommitmentUnknown, fmt.Errorf("failed to parse signature status response: %w", err)
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return CommitmentUnknown, nil
	}
	if result.Value[0].Err != nil {
		return CommitmentUnknown, fmt.Errorf("transaction %s failed on chain", signature)
	}
	return result.Value[0].ConfirmationStatus, nil
}

// SendTransaction submits a signed, base64-encoded transaction payload and
// returns its signature.
func (c *Client) SendTransaction(ctx context.Context, payload string) (string, error) {
	raw, err := c.call(ctx, "sendTransaction", []any{
		payload,
		map[string]string{"encoding": "base64"},
	})
	if err != nil {
		return "", err
	}

	var signature string
	if err := json.Unmarshal(raw, &signature); err != nil {
		return "", fmt.Errorf("failed to parse send transaction response: %w", err)
	}
	return signature, nil
}
