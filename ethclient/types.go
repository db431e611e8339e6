package ethclient

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// rskHeader holds the header fields the client needs from an RSK block.
// RSK reports minimumGasPrice instead of baseFeePerGas and adds merged mining
// fields, which are ignored.
type rskHeader struct {
	ParentHash *common.Hash    `json:"parentHash"`
	Coinbase   *common.Address `json:"miner"`
	Number     *hexutil.Big    `json:"number"`
	GasLimit   *hexutil.Uint64 `json:"gasLimit"`
	GasUsed    *hexutil.Uint64 `json:"gasUsed"`
	Time       *hexutil.Uint64 `json:"timestamp"`

	MinimumGasPrice *hexutil.Big `json:"minimumGasPrice"`
	BaseFee         *hexutil.Big `json:"baseFeePerGas"`
}

// ToGethHeader converts an rskHeader to a go-ethereum types.Header.
// MinimumGasPrice is mapped to BaseFee; a real baseFeePerGas wins when a
// node reports one.
func (h *rskHeader) ToGethHeader() *types.Header {
	header := &types.Header{}

	if h.ParentHash != nil {
		header.ParentHash = *h.ParentHash
	}
	if h.Coinbase != nil {
		header.Coinbase = *h.Coinbase
	}
	if h.Number != nil {
		header.Number = (*big.Int)(h.Number)
	}
	if h.GasLimit != nil {
		header.GasLimit = uint64(*h.GasLimit)
	}
	if h.GasUsed != nil {
		header.GasUsed = uint64(*h.GasUsed)
	}
	if h.Time != nil {
		header.Time = uint64(*h.Time)
	}
	switch {
	case h.BaseFee != nil:
		header.BaseFee = (*big.Int)(h.BaseFee)
	case h.MinimumGasPrice != nil:
		header.BaseFee = (*big.Int)(h.MinimumGasPrice)
	}
	return header
}

// rskStatus decodes receipt status values such as "0x1", "0x01", "0x00"
// and "0x".
type rskStatus uint64

func (s *rskStatus) UnmarshalJSON(input []byte) error {
	var str string
	if err := json.Unmarshal(input, &str); err != nil {
		return fmt.Errorf("invalid receipt status: %w", err)
	}
	digits := strings.TrimLeft(strings.TrimPrefix(strings.ToLower(str), "0x"), "0")
	switch digits {
	case "":
		*s = rskStatus(types.ReceiptStatusFailed)
	case "1":
		*s = rskStatus(types.ReceiptStatusSuccessful)
	default:
		return fmt.Errorf("invalid receipt status %q", str)
	}
	return nil
}

// rskReceipt is a transaction receipt as returned by RSK. Logs and bloom are
// not decoded.
type rskReceipt struct {
	TxHash            *common.Hash    `json:"transactionHash"`
	BlockHash         *common.Hash    `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	TransactionIndex  *hexutil.Uint64 `json:"transactionIndex"`
	Status            *rskStatus      `json:"status"`
	CumulativeGasUsed *hexutil.Uint64 `json:"cumulativeGasUsed"`
	GasUsed           *hexutil.Uint64 `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	ContractAddress   *common.Address `json:"contractAddress"`
}

// ToGethReceipt converts the receipt. txHash fills in a missing
// transactionHash.
func (r *rskReceipt) ToGethReceipt(txHash common.Hash) *types.Receipt {
	receipt := &types.Receipt{
		Type:   types.LegacyTxType,
		TxHash: txHash,
		Logs:   []*types.Log{},
	}
	if r.TxHash != nil {
		receipt.TxHash = *r.TxHash
	}
	if r.BlockHash != nil {
		receipt.BlockHash = *r.BlockHash
	}
	if r.BlockNumber != nil {
		receipt.BlockNumber = (*big.Int)(r.BlockNumber)
	}
	if r.TransactionIndex != nil {
		receipt.TransactionIndex = uint(*r.TransactionIndex)
	}
	if r.Status != nil {
		receipt.Status = uint64(*r.Status)
	}
	if r.CumulativeGasUsed != nil {
		receipt.CumulativeGasUsed = uint64(*r.CumulativeGasUsed)
	}
	if r.GasUsed != nil {
		receipt.GasUsed = uint64(*r.GasUsed)
	}
	if r.EffectiveGasPrice != nil {
		receipt.EffectiveGasPrice = (*big.Int)(r.EffectiveGasPrice)
	}
	if r.ContractAddress != nil {
		receipt.ContractAddress = *r.ContractAddress
	}
	return receipt
}
