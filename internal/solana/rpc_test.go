package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rpcServer(t *testing.T, result string) (*httptest.Server, *rpcRequest) {
	t.Helper()
	captured := new(rpcRequest)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestClient_Balance(t *testing.T) {
	server, captured := rpcServer(t, `{"context":{"slot":100},"value":2500000000}`)

	client := NewClient(server.URL, zap.NewNop())
	balance, err := client.Balance(context.Background(), "Account111")

	require.NoError(t, err)
	assert.Equal(t, 2.5, balance)
	assert.Equal(t, "getBalance", captured.Method)
	assert.Equal(t, "Account111", captured.Params[0])
}

func TestClient_BalanceRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"Invalid param"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.Balance(context.Background(), "bad")

	assert.ErrorContains(t, err, "Invalid param")
}

func TestClient_SignatureStatus(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   Commitment
	}{
		{"finalized", `{"value":[{"confirmationStatus":"finalized","err":null}]}`, CommitmentFinalized},
		{"confirmed", `{"value":[{"confirmationStatus":"confirmed","err":null}]}`, CommitmentConfirmed},
		{"processed", `{"value":[{"confirmationStatus":"processed","err":null}]}`, CommitmentProcessed},
		{"not found", `{"value":[null]}`, CommitmentUnknown},
		{"empty", `{"value":[]}`, CommitmentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, captured := rpcServer(t, tt.result)
			client := NewClient(server.URL, zap.NewNop())

			status, err := client.SignatureStatus(context.Background(), "sig123")

			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, "getSignatureStatuses", captured.Method)
		})
	}
}

func TestClient_SignatureStatusOnChainFailure(t *testing.T) {
	server, _ := rpcServer(t, `{"value":[{"confirmationStatus":"finalized","err":{"InstructionError":[0,"Custom"]}}]}`)

	client := NewClient(server.URL, zap.NewNop())
	_, err := client.SignatureStatus(context.Background(), "sig123")

	assert.ErrorContains(t, err, "failed on chain")
}

func TestClient_SendTransaction(t *testing.T) {
	server, captured := rpcServer(t, `"sig-submitted"`)

	client := NewClient(server.URL, zap.NewNop())
	signature, err := client.SendTransaction(context.Background(), "c2lnbmVkLXR4")

	require.NoError(t, err)
	assert.Equal(t, "sig-submitted", signature)
	assert.Equal(t, "sendTransaction", captured.Method)
	assert.Equal(t, "c2lnbmVkLXR4", captured.Params[0])
}

func TestIsValidAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{"native mint", SolMint, true},
		{"typical mint", "EPjFWdd5AufqALUs2vW0ouAZnuuzqvTZcztBbuw61zPX", true},
		{"too short", "abc123", false},
		{"too long", "EPjFWdd5AufqALUs2vW0ouAZnuuzqvTZcztBbuw61zPXEPjFWdd5", false},
		{"zero is not base58", "0PjFWdd5AufqALUs2vW0ouAZnuuzqvTZcztBbuw61zPX", false},
		{"capital O is not base58", "OPjFWdd5AufqALUs2vW0ouAZnuuzqvTZcztBbuw61zPX", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAddress(tt.address))
		})
	}
}
