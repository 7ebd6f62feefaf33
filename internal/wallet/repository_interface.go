package wallet

import "context"

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error)
	TopUp(ctx context.Context, userID int, amountCents int64) (*Wallet, error)
	Withdraw(ctx context.Context, userID int, amountCents int64) (*Wallet, error)
	GetTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error)
	VerifyBalance(ctx context.Context, userID int) error
}
