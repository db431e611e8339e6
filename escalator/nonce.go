package escalator

import (
	"context"
	"fmt"
)

// ResolveNonce returns the transaction count of the signer's account at the
// latest block. The value is read from the node every time.
//
// Pending transactions are not counted. When several flows share an account,
// a nonce conflict caused by another flow's pending transaction resolves to
// the same nonce again, and the send keeps failing until that transaction is
// mined or its retries run out. Such callers should serialize submissions
// per account.
func ResolveNonce(ctx context.Context, signer Signer) (uint64, error) {
	if auto, ok := signer.(AutoNonceSigner); ok && auto.ManagesNonce() {
		return 0, ErrIncompatibleSigner
	}
	node := signer.Node()
	if node == nil {
		return 0, ErrSignerUnavailable
	}
	nonce, err := node.NonceAt(ctx, signer.Address(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce of %s: %w", signer.Address(), err)
	}
	return nonce, nil
}
