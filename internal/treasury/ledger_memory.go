package treasury

import (
	"context"
	"fmt"
	"sync"

	"veritasor/pkg/domain"
	"veritasor/pkg/fixedpoint"
	"veritasor/pkg/platform/sentinel"
)

type account struct {
	token string
	owner domain.Identity
}

// InMemoryLedger is a token ledger for tests and local development. Balances
// are created by Mint and moved by Transfer.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[account]int64
}

// NewInMemoryLedger builds an empty ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{balances: make(map[account]int64)}
}

// Mint credits amount to the holder's balance for token.
func (l *InMemoryLedger) Mint(token, holder domain.Identity, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := account{token: token.String(), owner: holder}
	l.balances[key] = fixedpoint.Add(l.balances[key], amount)
}

// Balance returns the holder's balance for token.
func (l *InMemoryLedger) Balance(token, holder domain.Identity) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account{token: token.String(), owner: holder}]
}

// Transfer moves amount from one account to another, refusing overdrafts
// with sentinel.ErrInsufficientFunds.
func (l *InMemoryLedger) Transfer(_ context.Context, token, from, to domain.Identity, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("transfer amount must be non-negative, got %d", amount)
	}
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromKey := account{token: token.String(), owner: from}
	if l.balances[fromKey] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, sentinel.ErrInsufficientFunds)
	}

	toKey := account{token: token.String(), owner: to}
	l.balances[fromKey] -= amount
	l.balances[toKey] = fixedpoint.Add(l.balances[toKey], amount)
	return nil
}
