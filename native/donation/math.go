package donation

import "math/big"

var (
	// MaxAmount is the largest value a signed 128-bit amount can hold.
	MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	// MinAmount is the smallest value a signed 128-bit amount can hold.
	MinAmount = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// InRange reports whether v fits in a signed 128-bit integer.
func InRange(v *big.Int) bool {
	if v == nil {
		return false
	}
	return v.Cmp(MinAmount) >= 0 && v.Cmp(MaxAmount) <= 0
}

func checkedAdd(a, b *big.Int) (*big.Int, error) {
	sum := new(big.Int).Add(a, b)
	if !InRange(sum) {
		return nil, ErrAggregateOverflow
	}
	return sum, nil
}
