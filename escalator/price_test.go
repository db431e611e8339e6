package escalator

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialGasPrice(t *testing.T) {
	assert.Equal(t, big.NewInt(1_500), InitialGasPrice(big.NewInt(1_000), 1.5))
	assert.Equal(t, big.NewInt(1_000), InitialGasPrice(big.NewInt(1_000), 1))
	// 1.234 rounds to 123/100.
	assert.Equal(t, big.NewInt(1_230), InitialGasPrice(big.NewInt(1_000), 1.234))
}

func TestEscalateGasPriceFollowsFactor(t *testing.T) {
	initial := big.NewInt(60_000_000)
	for _, factor := range []float64{1.1, 1.5, 2} {
		price := new(big.Int).Set(initial)
		for k := 1; k <= 10; k++ {
			next := EscalateGasPrice(price, factor)
			require.Equal(t, 1, next.Cmp(price), "factor %v escalation %d", factor, k)
			price = next

			want := float64(initial.Int64()) * math.Pow(factor, float64(k))
			got, _ := new(big.Float).SetInt(price).Float64()
			assert.InEpsilon(t, want, got, 1e-6, "factor %v escalation %d", factor, k)
		}
	}
}

func TestEscalateGasPriceStrictlyIncreasesForTinyPrices(t *testing.T) {
	price := big.NewInt(0)
	for i := 0; i < 5; i++ {
		next := EscalateGasPrice(price, 1.01)
		assert.Equal(t, 1, next.Cmp(price))
		price = next
	}
	assert.Equal(t, big.NewInt(5), price)
}

func TestCapPrice(t *testing.T) {
	assert.Equal(t, big.NewInt(10), capPrice(big.NewInt(10), nil))
	assert.Equal(t, big.NewInt(10), capPrice(big.NewInt(10), big.NewInt(0)))
	assert.Equal(t, big.NewInt(7), capPrice(big.NewInt(10), big.NewInt(7)))
	assert.Equal(t, big.NewInt(5), capPrice(big.NewInt(5), big.NewInt(7)))
}
