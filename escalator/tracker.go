package escalator

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

// Tracker holds the submitted variants of one logical transaction and finds
// the one that landed. It is not safe for concurrent use.
type Tracker struct {
	node     NodeClient
	lggr     log.Logger
	attempts []Attempt
	reverted map[common.Hash]struct{}
}

// NewTracker returns an empty tracker querying node.
func NewTracker(node NodeClient, lggr log.Logger) *Tracker {
	if lggr == nil {
		lggr = log.Root()
	}
	return &Tracker{
		node:     node,
		lggr:     lggr,
		reverted: make(map[common.Hash]struct{}),
	}
}

// Add appends an attempt. The set is append-only and a hash already tracked
// is not added again.
func (t *Tracker) Add(a Attempt) {
	for _, tracked := range t.attempts {
		if tracked.Hash == a.Hash {
			return
		}
	}
	t.attempts = append(t.attempts, a)
}

// match returns the hash of a tracked attempt that carries exactly the
// nonce, gas price and gas limit of d.
func (t *Tracker) match(d *Draft) (common.Hash, bool) {
	if t == nil || d.Nonce == nil || d.GasPrice == nil {
		return common.Hash{}, false
	}
	for _, a := range t.attempts {
		if a.Nonce == *d.Nonce && a.GasLimit == d.GasLimit && a.GasPrice.Cmp(d.GasPrice) == 0 {
			return a.Hash, true
		}
	}
	return common.Hash{}, false
}

// Attempts returns a copy of the tracked attempts in submission order.
func (t *Tracker) Attempts() []Attempt {
	out := make([]Attempt, len(t.attempts))
	copy(out, t.attempts)
	return out
}

// Hashes returns the tracked hashes in submission order.
func (t *Tracker) Hashes() []common.Hash {
	out := make([]common.Hash, len(t.attempts))
	for i, a := range t.attempts {
		out[i] = a.Hash
	}
	return out
}

// Confirmed scans every tracked hash in submission order and returns the
// first successful receipt, or nil. Lookup failures count as "not yet".
// Receipts without an effective gas price get the price of their attempt.
func (t *Tracker) Confirmed(ctx context.Context) *types.Receipt {
	for _, a := range t.attempts {
		receipt, err := t.node.TransactionReceipt(ctx, a.Hash)
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				t.lggr.Debug("Failed to get receipt", "hash", a.Hash, "err", err)
			}
			continue
		}
		if receipt == nil {
			continue
		}
		if receipt.Status == types.ReceiptStatusSuccessful {
			if receipt.EffectiveGasPrice == nil && a.GasPrice != nil {
				receipt.EffectiveGasPrice = new(big.Int).Set(a.GasPrice)
			}
			return receipt
		}
		if _, seen := t.reverted[a.Hash]; !seen {
			t.reverted[a.Hash] = struct{}{}
			t.lggr.Warn("Transaction reverted", "hash", a.Hash, "block", receipt.BlockNumber)
		}
	}
	return nil
}
