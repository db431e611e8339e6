package ethclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"txescalate/escalator"
)

var (
	_ escalator.Signer      = (*KeySigner)(nil)
	_ escalator.DraftHasher = (*KeySigner)(nil)
)

// KeySigner signs escalator drafts as EIP-155 legacy transactions with a
// local private key and broadcasts them through a Client.
type KeySigner struct {
	client  *Client
	node    escalator.NodeClient
	key     *ecdsa.PrivateKey
	addr    common.Address
	chainID *big.Int
	signer  types.Signer
}

// NewKeySigner returns a signer for key on chainID. client may be nil, in
// which case the signer is detached and cannot send.
func NewKeySigner(client *Client, key *ecdsa.PrivateKey, chainID *big.Int) (*KeySigner, error) {
	if key == nil {
		return nil, errors.New("private key is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain ID %v", chainID)
	}
	s := &KeySigner{
		client:  client,
		key:     key,
		addr:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: new(big.Int).Set(chainID),
		signer:  types.LatestSignerForChainID(chainID),
	}
	if client != nil {
		s.node = client
	}
	return s, nil
}

// NewKeySignerFromHex parses a hex private key (with or without 0x) and
// reads the chain ID from the node.
func NewKeySignerFromHex(ctx context.Context, client *Client, hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	return NewKeySigner(client, key, chainID)
}

// WithNode makes n the node reported by Node, e.g. a FloorGasPricer around
// the same client.
func (s *KeySigner) WithNode(n escalator.NodeClient) *KeySigner {
	s.node = n
	return s
}

// Address returns the sending account.
func (s *KeySigner) Address() common.Address { return s.addr }

// ChainID returns the chain ID transactions are signed for.
func (s *KeySigner) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// Node returns the node used for nonce and receipt queries, or nil when the
// signer is detached.
func (s *KeySigner) Node() escalator.NodeClient { return s.node }

// SignDraft builds and signs the legacy transaction for d.
func (s *KeySigner) SignDraft(d *escalator.Draft) (*types.Transaction, error) {
	if d.Nonce == nil || d.GasPrice == nil {
		return nil, fmt.Errorf("%w: draft is incomplete", escalator.ErrPreconditionViolated)
	}
	to := d.To
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    *d.Nonce,
		GasPrice: new(big.Int).Set(d.GasPrice),
		Gas:      d.GasLimit,
		To:       &to,
		Value:    new(big.Int),
		Data:     common.CopyBytes(d.Data),
	})
	return types.SignTx(tx, s.signer, s.key)
}

// SendTransaction signs d with its own nonce and broadcasts it. Node
// rejections are returned as *escalator.SendError, except that a transaction
// the node already holds is reported as sent under its local hash.
func (s *KeySigner) SendTransaction(ctx context.Context, d *escalator.Draft) (common.Hash, error) {
	if s.client == nil {
		return common.Hash{}, escalator.ErrSignerUnavailable
	}
	tx, err := s.SignDraft(d)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	hash, err := s.client.SendTransactionReturnHash(ctx, tx)
	if err != nil {
		kind := escalator.ClassifySendError(err)
		if kind == escalator.KindAlreadyKnown {
			return tx.Hash(), nil
		}
		return common.Hash{}, escalator.NewSendError(kind, err)
	}
	return hash, nil
}

// HashDraft returns the hash of the signed transaction for d.
func (s *KeySigner) HashDraft(d *escalator.Draft) (common.Hash, error) {
	tx, err := s.SignDraft(d)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}
