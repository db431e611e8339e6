package ethclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"txescalate/escalator"
)

var (
	// ErrTypedTransaction is returned when a non-legacy transaction is sent.
	// RSK only accepts legacy (type 0) transactions.
	ErrTypedTransaction = errors.New("RSK only accepts legacy transactions")
)

var _ escalator.NodeClient = (*Client)(nil)

// Client is a JSON-RPC client for RSK and other legacy gas price nodes.
// It implements escalator.NodeClient.
type Client struct {
	c *rpc.Client
}

// Dial connects to a node at the given URL.
func Dial(rawurl string) (*Client, error) {
	return DialContext(context.Background(), rawurl)
}

// DialContext connects to a node at the given URL with context.
func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient creates a new Client from an existing RPC client.
func NewClient(c *rpc.Client) *Client {
	return &Client{c: c}
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.c.Close()
}

// Client returns the underlying RPC client.
func (c *Client) Client() *rpc.Client {
	return c.c
}

// BlockNumber returns the most recent block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	err := c.c.CallContext(ctx, &result, "eth_blockNumber")
	return uint64(result), err
}

// ChainID retrieves the current chain ID for transaction replay protection.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	err := c.c.CallContext(ctx, &result, "eth_chainId")
	if err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// HeaderByNumber returns a block header from the current canonical chain.
// If number is nil, the latest known block header is returned.
//
// RSK headers contain minimumGasPrice instead of baseFee. It is mapped to the
// BaseFee field of the returned header.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	var raw *rskHeader
	err := c.c.CallContext(ctx, &raw, "eth_getBlockByNumber", toBlockNumArg(number), false)
	if err != nil {
		return nil, err
	}
	if raw == nil || raw.Number == nil {
		return nil, ethereum.NotFound
	}
	return raw.ToGethHeader(), nil
}

// TransactionReceipt returns the receipt of a mined transaction, or
// ethereum.NotFound while the node has not indexed it yet.
//
// RSK encodes the status as "0x01"/"0x00" and omits fields go-ethereum
// requires, so the receipt is decoded leniently.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var r *rskReceipt
	err := c.c.CallContext(ctx, &r, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ethereum.NotFound
	}
	return r.ToGethReceipt(txHash), nil
}

// SendTransactionReturnHash broadcasts a signed legacy transaction and
// returns the hash reported by the node. RSK may compute a different hash
// than go-ethereum, so receipts must be queried with the returned hash.
func (c *Client) SendTransactionReturnHash(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	if tx.Type() != types.LegacyTxType {
		return common.Hash{}, fmt.Errorf("%w: got type %d", ErrTypedTransaction, tx.Type())
	}
	data, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, err
	}
	var hash common.Hash
	if err := c.c.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(data)); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// SuggestGasPrice retrieves the currently suggested gas price to allow a timely
// execution of a transaction.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var hex hexutil.Big
	if err := c.c.CallContext(ctx, &hex, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&hex), nil
}

// NonceAt returns the account nonce of the given account.
// The block number can be nil, in which case the nonce is taken from the latest known block.
func (c *Client) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	var result hexutil.Uint64
	err := c.c.CallContext(ctx, &result, "eth_getTransactionCount", account, toBlockNumArg(blockNumber))
	return uint64(result), err
}

// toBlockNumArg converts a block number to the appropriate RPC argument.
func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	if number.Sign() >= 0 {
		return hexutil.EncodeBig(number)
	}
	// It's negative - handle special block numbers
	if number.IsInt64() {
		return rpc.BlockNumber(number.Int64()).String()
	}
	return "latest"
}
