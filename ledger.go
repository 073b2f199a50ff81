package clmm

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ExternalLedger is the standard fungible-token ledger this package
// consumes but does not implement: transfer / approval / transfer_from.
// The host runtime supplies a concrete implementation (a real token
// ledger client, an ERC-20 adapter, or a test double).
type ExternalLedger interface {
	// TransferFrom pulls amount of token from the caller's external
	// account into this canister's, for Deposit. Returns the reason on
	// failure (insufficient funds, insufficient allowance, rejected
	// subaccount, transport failure).
	TransferFrom(ctx context.Context, token Token, from Principal, amount decimal.Decimal) error
	// Transfer pushes amount of token from this canister's account to
	// the caller's external account, for Withdraw.
	Transfer(ctx context.Context, token Token, to Principal, amount decimal.Decimal) error
	// TransferFee returns the ledger's fixed integer per-transfer fee for
	// a token, cached on the pool at creation time.
	TransferFee(ctx context.Context, token Token) (decimal.Decimal, error)
}

type balanceKey struct {
	User  Principal
	Token Token
}

// BalanceLedger is the (user, token) -> internal credit map: the source
// and sink for swap inputs, mint payments, and fee/withdrawal outputs.
// Debits happen on the happy-path side of the external call; failures
// reverse them.
type BalanceLedger struct {
	balances map[balanceKey]decimal.Decimal
	external ExternalLedger
}

func NewBalanceLedger(external ExternalLedger) *BalanceLedger {
	return &BalanceLedger{balances: make(map[balanceKey]decimal.Decimal), external: external}
}

func (l *BalanceLedger) Balance(user Principal, token Token) decimal.Decimal {
	if v, ok := l.balances[balanceKey{user, token}]; ok {
		return v
	}
	return ZERO
}

func (l *BalanceLedger) Balances(user Principal) map[Token]decimal.Decimal {
	out := make(map[Token]decimal.Decimal)
	for k, v := range l.balances {
		if k.User == user {
			out[k.Token] = v
		}
	}
	return out
}

func (l *BalanceLedger) credit(user Principal, token Token, amount decimal.Decimal) {
	key := balanceKey{user, token}
	l.balances[key] = l.balances[key].Add(amount)
}

func (l *BalanceLedger) debit(user Principal, token Token, amount decimal.Decimal) error {
	key := balanceKey{user, token}
	have := l.balances[key]
	if have.LessThan(amount) {
		return ErrInsufficientBalance
	}
	l.balances[key] = have.Sub(amount)
	return nil
}

// Deposit pulls `amount` of `token` from the user's external account via
// the external ledger's transfer_from, crediting the net of the ledger's
// own transfer fee on success. No internal state changes on failure.
func (l *BalanceLedger) Deposit(ctx context.Context, user Principal, token Token, amount decimal.Decimal, transferFee decimal.Decimal) error {
	if amount.IsNegative() || amount.IsZero() {
		return ErrInvalidAmount
	}
	if err := l.external.TransferFrom(ctx, token, user, amount); err != nil {
		logrus.Debugf("deposit failed for %s/%s: %v", user.Hex(), token.Hex(), err)
		return &DepositError{Reason: err}
	}
	net := amount.Sub(transferFee)
	if net.IsNegative() {
		net = ZERO
	}
	l.credit(user, token, net)
	return nil
}

// Withdraw debits the user's internal balance BEFORE calling the
// external ledger's transfer, and reverses the debit if the transfer
// fails, so the balance equation holds on both exits.
func (l *BalanceLedger) Withdraw(ctx context.Context, user Principal, token Token, amount decimal.Decimal, transferFee decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() || amount.IsZero() {
		return ZERO, ErrInvalidAmount
	}
	if err := l.debit(user, token, amount); err != nil {
		return ZERO, err
	}
	net := amount.Sub(transferFee)
	if net.IsNegative() {
		net = ZERO
	}
	if err := l.external.Transfer(ctx, token, user, net); err != nil {
		l.credit(user, token, amount) // reverse the debit
		logrus.Warnf("withdraw failed for %s/%s, debit reversed: %v", user.Hex(), token.Hex(), err)
		return ZERO, &WithdrawError{Reason: err}
	}
	return net, nil
}

// EnsureFunded tops up the user's internal balance to at least `amount`
// by depositing the shortfall (plus transfer fee, so the net credit
// exactly covers it) from the external account, per position-manager
// step 3: "pull from internal balance; if insufficient, deposit the
// difference." A sufficient balance is a no-op.
func (l *BalanceLedger) EnsureFunded(ctx context.Context, user Principal, token Token, amount decimal.Decimal, transferFee decimal.Decimal) error {
	if amount.IsZero() || amount.IsNegative() {
		return nil
	}
	have := l.Balance(user, token)
	if have.GreaterThanOrEqual(amount) {
		return nil
	}
	shortfall := amount.Sub(have).Add(transferFee)
	return l.Deposit(ctx, user, token, shortfall, transferFee)
}
