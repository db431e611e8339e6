package ethclient

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txescalate/escalator"
)

const testKeyHex = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func decodeRawTx(t *testing.T, params []json.RawMessage) *types.Transaction {
	t.Helper()
	require.Len(t, params, 1)
	var raw string
	require.NoError(t, json.Unmarshal(params[0], &raw))
	data, err := hexutil.Decode(raw)
	require.NoError(t, err)
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(data))
	return tx
}

func testDraft(nonce uint64) *escalator.Draft {
	return &escalator.Draft{
		To:       common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Data:     []byte{0xca, 0xfe},
		GasLimit: 3_000_000,
		GasPrice: big.NewInt(90_000_000),
		Nonce:    &nonce,
	}
}

func TestKeySigner_SendTransaction(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(31)

	var sent *types.Transaction
	client := dialMock(t, func(method string, params []json.RawMessage) (interface{}, error) {
		assert.Equal(t, "eth_sendRawTransaction", method)
		sent = decodeRawTx(t, params)
		return sent.Hash().Hex(), nil
	})

	signer, err := NewKeySigner(client, key, chainID)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())
	assert.Equal(t, chainID, signer.ChainID())

	hash, err := signer.SendTransaction(context.Background(), testDraft(5))
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, sent.Hash(), hash)

	assert.Equal(t, uint8(types.LegacyTxType), sent.Type())
	assert.Equal(t, uint64(5), sent.Nonce())
	assert.Equal(t, uint64(3_000_000), sent.Gas())
	assert.Equal(t, big.NewInt(90_000_000), sent.GasPrice())
	assert.Equal(t, []byte{0xca, 0xfe}, sent.Data())
	assert.Equal(t, chainID, sent.ChainId())

	from, err := types.Sender(types.LatestSignerForChainID(chainID), sent)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), from)
}

func TestKeySigner_ClassifiesNodeErrors(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := dialMock(t, func(method string, params []json.RawMessage) (interface{}, error) {
		return nil, errors.New("transaction nonce too low")
	})
	signer, err := NewKeySigner(client, key, big.NewInt(31))
	require.NoError(t, err)

	_, err = signer.SendTransaction(context.Background(), testDraft(1))
	var sendErr *escalator.SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, escalator.KindNonceConflict, sendErr.Kind)
	assert.True(t, escalator.IsNonceConflict(err))
}

func TestKeySigner_AlreadyKnownIsSent(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	var sent *types.Transaction
	client := dialMock(t, func(method string, params []json.RawMessage) (interface{}, error) {
		sent = decodeRawTx(t, params)
		return nil, errors.New("already known")
	})
	signer, err := NewKeySigner(client, key, big.NewInt(31))
	require.NoError(t, err)

	d := testDraft(3)
	hash, err := signer.SendTransaction(context.Background(), d)
	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, sent.Hash(), hash)

	local, err := signer.HashDraft(d)
	require.NoError(t, err)
	assert.Equal(t, hash, local)
}

func TestKeySigner_Detached(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := NewKeySigner(nil, key, big.NewInt(30))
	require.NoError(t, err)

	assert.Nil(t, signer.Node())
	_, err = signer.SendTransaction(context.Background(), testDraft(1))
	assert.ErrorIs(t, err, escalator.ErrSignerUnavailable)
}

func TestNewKeySigner_Invalid(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	_, err = NewKeySigner(nil, nil, big.NewInt(30))
	assert.Error(t, err)
	_, err = NewKeySigner(nil, key, nil)
	assert.Error(t, err)
	_, err = NewKeySigner(nil, key, big.NewInt(0))
	assert.Error(t, err)
}

func TestNewKeySignerFromHex(t *testing.T) {
	client := dialMock(t, func(method string, params []json.RawMessage) (interface{}, error) {
		assert.Equal(t, "eth_chainId", method)
		return "0x1e", nil
	})

	signer, err := NewKeySignerFromHex(context.Background(), client, "0x"+testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), signer.ChainID())

	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())

	_, err = NewKeySignerFromHex(context.Background(), client, "not-a-key")
	assert.ErrorContains(t, err, "invalid private key")
}

func TestKeySigner_SignDraftIncomplete(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer, err := NewKeySigner(nil, key, big.NewInt(31))
	require.NoError(t, err)

	d := testDraft(1)
	d.GasPrice = nil
	_, err = signer.SignDraft(d)
	assert.ErrorIs(t, err, escalator.ErrPreconditionViolated)
}

// TestEscalatorAgainstNode drives a full submission through the RPC client:
// the first variant is never mined, the escalated one is.
func TestEscalatorAgainstNode(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	chainID := big.NewInt(31)

	var (
		mu   sync.Mutex
		sent []*types.Transaction
	)
	client := dialMock(t, func(method string, params []json.RawMessage) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		switch method {
		case "eth_getTransactionCount":
			return "0x5", nil
		case "eth_gasPrice":
			return "0x3938700", nil // 0.06 Gwei
		case "eth_getBlockByNumber":
			return map[string]interface{}{"number": "0x10", "minimumGasPrice": "0x3b9aca00"}, nil
		case "eth_sendRawTransaction":
			tx := decodeRawTx(t, params)
			sent = append(sent, tx)
			return tx.Hash().Hex(), nil
		case "eth_getTransactionReceipt":
			var hash common.Hash
			require.NoError(t, json.Unmarshal(params[0], &hash))
			if len(sent) < 2 || hash != sent[1].Hash() {
				return nil, nil
			}
			return map[string]interface{}{
				"transactionHash": hash.Hex(),
				"blockNumber":     "0x11",
				"status":          "0x01",
				"gasUsed":         "0x7530",
			}, nil
		}
		t.Errorf("unexpected method %s", method)
		return nil, nil
	})

	signer, err := NewKeySigner(client, key, chainID)
	require.NoError(t, err)
	signer.WithNode(NewFloorGasPricer(client, nil))

	policy := escalator.DefaultPolicy()
	policy.PollInterval = time.Millisecond
	policy.EscalationInterval = 5 * time.Millisecond
	esc, err := escalator.New(signer, nil, policy, log.Root())
	require.NoError(t, err)

	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	receipt, err := esc.SubmitWithEscalation(context.Background(), to, []byte{1}, 0)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 2)
	assert.Equal(t, sent[1].Hash(), receipt.TxHash)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	for _, tx := range sent {
		assert.Equal(t, uint64(5), tx.Nonce())
		assert.Equal(t, uint64(150_000*escalator.DefaultGasLimitMultiplier), tx.Gas())
	}
	// 1 Gwei block minimum * 1.5, then doubled.
	assert.Equal(t, big.NewInt(1_500_000_000), sent[0].GasPrice())
	assert.Equal(t, big.NewInt(3_000_000_000), sent[1].GasPrice())
}
