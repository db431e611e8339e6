package escalator

import (
	"math"
	"math/big"
)

// FeePrecision is the fixed point denominator for price factors: a factor f
// is applied as price * round(f*FeePrecision) / FeePrecision.
const FeePrecision = 100

var (
	feePrecision = big.NewInt(FeePrecision)
	bigOne       = big.NewInt(1)
)

func feeNumerator(factor float64) *big.Int {
	return big.NewInt(int64(math.Round(factor * FeePrecision)))
}

func scalePrice(price, numerator *big.Int) *big.Int {
	scaled := new(big.Int).Mul(price, numerator)
	return scaled.Quo(scaled, feePrecision)
}

// escalatePrice scales prior by numerator. The result is always strictly
// higher than prior so that tiny prices still produce a valid replacement.
func escalatePrice(prior, numerator *big.Int) *big.Int {
	next := scalePrice(prior, numerator)
	if next.Cmp(prior) <= 0 {
		next.Add(prior, bigOne)
	}
	return next
}

// capPrice clamps price to limit. A nil or zero limit disables the cap.
func capPrice(price, limit *big.Int) *big.Int {
	if limit == nil || limit.Sign() == 0 || price.Cmp(limit) <= 0 {
		return price
	}
	return new(big.Int).Set(limit)
}

// InitialGasPrice applies the initial premium factor to the network price.
func InitialGasPrice(networkPrice *big.Int, factor float64) *big.Int {
	return scalePrice(networkPrice, feeNumerator(factor))
}

// EscalateGasPrice applies one escalation to prior.
func EscalateGasPrice(prior *big.Int, factor float64) *big.Int {
	return escalatePrice(prior, feeNumerator(factor))
}
