package clmm

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockExternalLedger is a test double for ExternalLedger: it never touches
// a real chain/canister, just succeeds or returns the failures the test
// scripts in.
type mockExternalLedger struct {
	fee              decimal.Decimal
	failTransferFrom bool
	failTransfer     bool
}

func (m *mockExternalLedger) TransferFrom(ctx context.Context, token Token, from Principal, amount decimal.Decimal) error {
	if m.failTransferFrom {
		return errors.New("external transfer_from rejected")
	}
	return nil
}

func (m *mockExternalLedger) Transfer(ctx context.Context, token Token, to Principal, amount decimal.Decimal) error {
	if m.failTransfer {
		return errors.New("external transfer rejected")
	}
	return nil
}

func (m *mockExternalLedger) TransferFee(ctx context.Context, token Token) (decimal.Decimal, error) {
	return m.fee, nil
}

func TestBalanceLedgerDepositCreditsNetOfFee(t *testing.T) {
	ext := &mockExternalLedger{fee: decimal.NewFromInt(3)}
	ledger := NewBalanceLedger(ext)
	user := common.HexToAddress("0x1")
	token := common.HexToAddress("0xA")

	err := ledger.Deposit(context.Background(), user, token, decimal.NewFromInt(100), decimal.NewFromInt(3))
	require.NoError(t, err)
	require.Equal(t, "97", ledger.Balance(user, token).String())
}

func TestBalanceLedgerDepositRejectsZeroOrNegative(t *testing.T) {
	ledger := NewBalanceLedger(&mockExternalLedger{})
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")

	err := ledger.Deposit(context.Background(), user, token, ZERO, ZERO)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBalanceLedgerDepositFailurePreservesState(t *testing.T) {
	ext := &mockExternalLedger{failTransferFrom: true}
	ledger := NewBalanceLedger(ext)
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")

	err := ledger.Deposit(context.Background(), user, token, decimal.NewFromInt(100), ZERO)
	var depositErr *DepositError
	require.ErrorAs(t, err, &depositErr)
	require.True(t, ledger.Balance(user, token).IsZero())
}

func TestBalanceLedgerWithdrawDebitsThenTransfers(t *testing.T) {
	ext := &mockExternalLedger{fee: decimal.NewFromInt(2)}
	ledger := NewBalanceLedger(ext)
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")
	require.NoError(t, ledger.Deposit(context.Background(), user, token, decimal.NewFromInt(100), ZERO))

	net, err := ledger.Withdraw(context.Background(), user, token, decimal.NewFromInt(50), decimal.NewFromInt(2))
	require.NoError(t, err)
	require.Equal(t, "48", net.String())
	require.Equal(t, "50", ledger.Balance(user, token).String())
}

func TestBalanceLedgerWithdrawInsufficientBalance(t *testing.T) {
	ledger := NewBalanceLedger(&mockExternalLedger{})
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")

	_, err := ledger.Withdraw(context.Background(), user, token, decimal.NewFromInt(10), ZERO)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestBalanceLedgerWithdrawFailureReversesDebit(t *testing.T) {
	ext := &mockExternalLedger{failTransfer: true}
	ledger := NewBalanceLedger(ext)
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")
	require.NoError(t, ledger.Deposit(context.Background(), user, token, decimal.NewFromInt(100), ZERO))

	_, err := ledger.Withdraw(context.Background(), user, token, decimal.NewFromInt(50), ZERO)
	var withdrawErr *WithdrawError
	require.ErrorAs(t, err, &withdrawErr)
	require.Equal(t, "100", ledger.Balance(user, token).String())
}

func TestBalanceLedgerEnsureFundedTopsUpShortfall(t *testing.T) {
	ext := &mockExternalLedger{}
	ledger := NewBalanceLedger(ext)
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")
	require.NoError(t, ledger.Deposit(context.Background(), user, token, decimal.NewFromInt(10), ZERO))

	err := ledger.EnsureFunded(context.Background(), user, token, decimal.NewFromInt(30), ZERO)
	require.NoError(t, err)
	require.True(t, ledger.Balance(user, token).GreaterThanOrEqual(decimal.NewFromInt(30)))
}

func TestBalanceLedgerEnsureFundedNoOpWhenSufficient(t *testing.T) {
	ext := &mockExternalLedger{}
	ledger := NewBalanceLedger(ext)
	user, token := common.HexToAddress("0x1"), common.HexToAddress("0xA")
	require.NoError(t, ledger.Deposit(context.Background(), user, token, decimal.NewFromInt(100), ZERO))

	err := ledger.EnsureFunded(context.Background(), user, token, decimal.NewFromInt(30), ZERO)
	require.NoError(t, err)
	require.Equal(t, "100", ledger.Balance(user, token).String())
}
