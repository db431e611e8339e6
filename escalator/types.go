package escalator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/crypto/sha3"
)

// NodeClient is the read side of the node the engine talks to.
type NodeClient interface {
	// SuggestGasPrice returns the network's current gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	// NonceAt returns the transaction count of account. A nil blockNumber
	// means the latest block.
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	// TransactionReceipt returns the receipt of a mined transaction, or
	// ethereum.NotFound while it is not yet observable.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer signs and broadcasts drafts for a single account.
type Signer interface {
	Address() common.Address
	// Node returns the connection the account is queried through, or nil
	// when the signer is detached.
	Node() NodeClient
	// SendTransaction signs d exactly as given (including its nonce) and
	// broadcasts it, returning the hash reported by the node.
	SendTransaction(ctx context.Context, d *Draft) (common.Hash, error)
}

// AutoNonceSigner is implemented by signers that can assign nonces on their
// own. The engine refuses any signer whose ManagesNonce reports true, since it
// must control the nonce of every resend.
type AutoNonceSigner interface {
	ManagesNonce() bool
}

// DraftHasher is implemented by signers that can compute the hash a draft
// would be broadcast under without sending it. The sender uses it to adopt a
// transaction the node reports as already known.
type DraftHasher interface {
	HashDraft(d *Draft) (common.Hash, error)
}

// Draft is the mutable description of a logical transaction. To and Data
// never change once the draft is built.
type Draft struct {
	To       common.Address
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
}

func (d *Draft) validate() error {
	switch {
	case d.GasLimit == 0:
		return fmt.Errorf("%w: gas limit undefined", ErrPreconditionViolated)
	case d.Nonce == nil:
		return fmt.Errorf("%w: nonce undefined", ErrPreconditionViolated)
	case d.GasPrice == nil:
		return fmt.Errorf("%w: gas price undefined", ErrPreconditionViolated)
	}
	return nil
}

// PayloadHash returns the keccak256 digest of the payload. It only serves to
// correlate log lines of one logical transaction.
func (d *Draft) PayloadHash() common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(d.Data)
	return common.BytesToHash(h.Sum(nil))
}

func (d *Draft) attempt(hash common.Hash, initial bool) Attempt {
	return Attempt{
		Hash:     hash,
		Initial:  initial,
		Nonce:    *d.Nonce,
		GasPrice: new(big.Int).Set(d.GasPrice),
		GasLimit: d.GasLimit,
		SentAt:   time.Now(),
	}
}

// Attempt records one successful broadcast of a draft.
type Attempt struct {
	Hash     common.Hash
	Initial  bool
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	SentAt   time.Time
}
