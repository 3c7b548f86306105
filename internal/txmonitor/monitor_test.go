package txmonitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"solana-trade-bot-go/internal/executor"
	"solana-trade-bot-go/internal/solana"
)

// MockStatusSource is a mock implementation of StatusSource.
type MockStatusSource struct {
	mock.Mock
}

func (m *MockStatusSource) SignatureStatus(ctx context.Context, signature string) (solana.Commitment, error) {
	args := m.Called(signature)
	return args.Get(0).(solana.Commitment), args.Error(1)
}

func handle() *executor.TxHandle {
	return &executor.TxHandle{Signature: "sig", AssetID: "asset", SubmittedAt: time.Now()}
}

func newMonitor(status StatusSource, retries int, alert AlertFunc) *Monitor {
	return NewMonitor(status, 1000, retries, time.Millisecond, alert, zap.NewNop())
}

func TestAwait_FinalizedSucceeds(t *testing.T) {
	status := new(MockStatusSource)
	status.On("SignatureStatus", "sig").Return(solana.CommitmentFinalized, nil).Once()

	m := newMonitor(status, 5, nil)

	err := m.Await(context.Background(), handle())
	require.NoError(t, err)
	status.AssertExpectations(t)
}

func TestAwait_WaitsThroughLowerCommitments(t *testing.T) {
	status := new(MockStatusSource)
	status.On("SignatureStatus", "sig").Return(solana.CommitmentProcessed, nil).Once()
	status.On("SignatureStatus", "sig").Return(solana.CommitmentConfirmed, nil).Once()
	status.On("SignatureStatus", "sig").Return(solana.CommitmentFinalized, nil).Once()

	m := newMonitor(status, 5, nil)

	err := m.Await(context.Background(), handle())
	require.NoError(t, err)
	status.AssertExpectations(t)
}

func TestAwait_ExhaustedBudgetAlertsAndFails(t *testing.T) {
	status := new(MockStatusSource)
	status.On("SignatureStatus", "sig").Return(solana.CommitmentConfirmed, nil)

	alerted := ""
	m := newMonitor(status, 3, func(msg string) { alerted = msg })

	err := m.Await(context.Background(), handle())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfirmation)
	assert.Contains(t, alerted, "sig")
	status.AssertNumberOfCalls(t, "SignatureStatus", 3)
}

func TestAwait_PollErrorsCountAgainstBudget(t *testing.T) {
	status := new(MockStatusSource)
	status.On("SignatureStatus", "sig").Return(solana.CommitmentUnknown, errors.New("rpc down"))

	m := newMonitor(status, 2, nil)

	err := m.Await(context.Background(), handle())
	assert.ErrorIs(t, err, ErrConfirmation)
	status.AssertNumberOfCalls(t, "SignatureStatus", 2)
}

func TestAwait_ContextCancelled(t *testing.T) {
	status := new(MockStatusSource)
	status.On("SignatureStatus", "sig").Return(solana.CommitmentProcessed, nil)

	m := NewMonitor(status, 1000, 5, time.Minute, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := m.Await(ctx, handle())
	assert.ErrorIs(t, err, context.Canceled)
}
