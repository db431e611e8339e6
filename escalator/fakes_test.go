package escalator

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeNode struct {
	mu       sync.Mutex
	gasPrice *big.Int
	nonce    uint64
	nonceErr error
	priceErr error
	receipts map[common.Hash]*types.Receipt

	// receiptErrs fail lookups of specific hashes.
	receiptErrs  map[common.Hash]error
	nonceCalls   int
	receiptCalls int
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		gasPrice:    big.NewInt(1_000),
		nonce:       7,
		receipts:    make(map[common.Hash]*types.Receipt),
		receiptErrs: make(map[common.Hash]error),
	}
}

func (n *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.priceErr != nil {
		return nil, n.priceErr
	}
	return new(big.Int).Set(n.gasPrice), nil
}

func (n *fakeNode) NonceAt(context.Context, common.Address, *big.Int) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonceCalls++
	if n.nonceErr != nil {
		return 0, n.nonceErr
	}
	return n.nonce, nil
}

func (n *fakeNode) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receiptCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := n.receiptErrs[hash]; ok {
		return nil, err
	}
	if r, ok := n.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}

func (n *fakeNode) setNonce(nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonce = nonce
}

func (n *fakeNode) confirm(hash common.Hash, status uint64) *types.Receipt {
	n.mu.Lock()
	defer n.mu.Unlock()
	r := &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(100)}
	n.receipts[hash] = r
	return r
}

type sentDraft struct {
	To       common.Address
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64
}

type sendFunc func(call int, d *Draft) (common.Hash, error)

type fakeSigner struct {
	mu       sync.Mutex
	addr     common.Address
	node     *fakeNode
	detached bool
	sendFn   sendFunc
	sent     []sentDraft
}

func newFakeSigner(node *fakeNode) *fakeSigner {
	return &fakeSigner{
		addr: common.HexToAddress("0x00000000000000000000000000000000000000a1"),
		node: node,
	}
}

func (s *fakeSigner) Address() common.Address { return s.addr }

func (s *fakeSigner) Node() NodeClient {
	if s.detached || s.node == nil {
		return nil
	}
	return s.node
}

func (s *fakeSigner) SendTransaction(_ context.Context, d *Draft) (common.Hash, error) {
	s.mu.Lock()
	call := len(s.sent)
	s.sent = append(s.sent, sentDraft{
		To:       d.To,
		Data:     d.Data,
		GasLimit: d.GasLimit,
		GasPrice: new(big.Int).Set(d.GasPrice),
		Nonce:    *d.Nonce,
	})
	fn := s.sendFn
	s.mu.Unlock()
	if fn != nil {
		return fn(call, d)
	}
	return hashOf(call), nil
}

func (s *fakeSigner) sends() []sentDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentDraft, len(s.sent))
	copy(out, s.sent)
	return out
}

// hashingSigner reports hashFn as the hash of any draft.
type hashingSigner struct {
	*fakeSigner
	hashFn func(d *Draft) common.Hash
}

func (s hashingSigner) HashDraft(d *Draft) (common.Hash, error) {
	return s.hashFn(d), nil
}

type autoNonceSigner struct {
	*fakeSigner
}

func (autoNonceSigner) ManagesNonce() bool { return true }

func hashOf(i int) common.Hash {
	return common.BigToHash(big.NewInt(int64(i + 1)))
}

// fastPolicy keeps flows in the millisecond range.
func fastPolicy() Policy {
	p := DefaultPolicy()
	p.PollInterval = time.Millisecond
	p.EscalationInterval = 5 * time.Millisecond
	return p
}
