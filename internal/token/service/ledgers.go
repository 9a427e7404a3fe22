package service

import (
	"context"
	"fmt"

	id "custody/pkg/domain"
	dErrors "custody/pkg/domain-errors"
)

// Ledgers is the set of token ledgers by symbol. Every token is 1:1
// BTC-equivalent, so the combined supply is what reserves must back.
type Ledgers struct {
	bySymbol map[id.TokenSymbol]*Ledger
	order    []id.TokenSymbol
}

func NewLedgers(ledgers ...*Ledger) (*Ledgers, error) {
	if len(ledgers) == 0 {
		return nil, fmt.Errorf("at least one token ledger is required")
	}
	set := &Ledgers{bySymbol: make(map[id.TokenSymbol]*Ledger, len(ledgers))}
	for _, l := range ledgers {
		if _, dup := set.bySymbol[l.Symbol()]; dup {
			return nil, fmt.Errorf("duplicate token ledger %s", l.Symbol())
		}
		set.bySymbol[l.Symbol()] = l
		set.order = append(set.order, l.Symbol())
	}
	return set, nil
}

// Get returns the ledger for symbol.
func (s *Ledgers) Get(symbol id.TokenSymbol) (*Ledger, error) {
	l, ok := s.bySymbol[symbol]
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown token "+symbol.String())
	}
	return l, nil
}

// Symbols lists the configured tokens in registration order. The first is the
// token minted for Bitcoin deposits.
func (s *Ledgers) Symbols() []id.TokenSymbol {
	out := make([]id.TokenSymbol, len(s.order))
	copy(out, s.order)
	return out
}

// Primary returns the deposit token ledger.
func (s *Ledgers) Primary() *Ledger {
	return s.bySymbol[s.order[0]]
}

// TotalSupply sums supply across every ledger.
func (s *Ledgers) TotalSupply(ctx context.Context) (int64, error) {
	var total int64
	for _, symbol := range s.order {
		supply, err := s.bySymbol[symbol].TotalSupply(ctx)
		if err != nil {
			return 0, err
		}
		total += supply
	}
	return total, nil
}

// Balances returns the account's balance in every token.
func (s *Ledgers) Balances(ctx context.Context, account id.AccountID) (map[id.TokenSymbol]int64, error) {
	out := make(map[id.TokenSymbol]int64, len(s.order))
	for _, symbol := range s.order {
		balance, err := s.bySymbol[symbol].Balance(ctx, account)
		if err != nil {
			return nil, err
		}
		out[symbol] = balance
	}
	return out, nil
}
