package client

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/lugondev/go-solclient/pkg/types"
)

var lamportsPerSOL = decimal.NewFromInt(int64(types.LamportsPerSOL))

// LamportsToSOL converts lamports to an exact SOL amount.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return fromUint64(lamports).Div(lamportsPerSOL)
}

// ParseSOL parses a SOL amount such as "1.5" into lamports. More than nine decimal
// places or a negative amount is an error.
func ParseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("invalid amount %q: negative", s)
	}
	lamports := d.Mul(lamportsPerSOL)
	if !lamports.Equal(lamports.Truncate(0)) {
		return 0, fmt.Errorf("invalid amount %q: more precise than one lamport", s)
	}
	if lamports.GreaterThan(fromUint64(math.MaxUint64)) {
		return 0, fmt.Errorf("invalid amount %q: overflows lamports", s)
	}
	return lamports.BigInt().Uint64(), nil
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
