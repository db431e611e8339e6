package ethclient

import (
	"context"
	"fmt"
	"math/big"

	"txescalate/escalator"
)

var _ escalator.NodeClient = (*FloorGasPricer)(nil)

// FloorGasPricer is a Client whose SuggestGasPrice never goes below the
// latest block's minimumGasPrice or Min.
//
// RSK nodes may answer eth_gasPrice with a value under the block minimum,
// and such transactions are never mined.
type FloorGasPricer struct {
	*Client
	// Min is an optional operator floor. Nil disables it.
	Min *big.Int
}

// NewFloorGasPricer wraps c. floor may be nil.
func NewFloorGasPricer(c *Client, floor *big.Int) *FloorGasPricer {
	return &FloorGasPricer{Client: c, Min: floor}
}

// SuggestGasPrice returns max(eth_gasPrice, minimumGasPrice, Min).
func (p *FloorGasPricer) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := p.Client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	head, err := p.Client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return maxPrice(gasPrice, head.BaseFee, p.Min), nil
}

func maxPrice(prices ...*big.Int) *big.Int {
	var out *big.Int
	for _, p := range prices {
		if p == nil {
			continue
		}
		if out == nil || p.Cmp(out) > 0 {
			out = p
		}
	}
	if out == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(out)
}
