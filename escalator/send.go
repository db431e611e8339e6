package escalator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// transmitter performs one logical send of a draft with bounded local
// recovery.
type transmitter struct {
	signer     Signer
	lggr       log.Logger
	maxRetries int
	metrics    *Metrics
	// tracker, when set, resolves already known drafts to tracked hashes.
	tracker *Tracker
}

// send broadcasts d, adjusting it in place when the node rejects it in a
// recoverable way. On the initial send a nonce conflict resolves a fresh
// nonce; on a resend it is returned to the caller, since an earlier variant
// may already have been mined. A draft the node already knows counts as
// sent under its own hash.
func (t *transmitter) send(ctx context.Context, d *Draft, initial bool) (common.Hash, error) {
	if err := d.validate(); err != nil {
		return common.Hash{}, err
	}
	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return common.Hash{}, err
		}
		hash, err := t.signer.SendTransaction(ctx, d)
		if err == nil {
			t.metrics.observeSend("ok")
			t.lggr.Debug("Sent transaction", "hash", hash, "attempt", attempt,
				"gasPrice", d.GasPrice, "gasLimit", d.GasLimit, "initial", initial)
			return hash, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return common.Hash{}, ctxErr
		}
		lastErr = err
		kind := ClassifySendError(err)
		t.metrics.observeSend(kind.String())

		switch kind {
		case KindGasTooLow:
			d.GasLimit *= 2
			t.lggr.Warn("Gas limit too low, doubling", "attempt", attempt, "gasLimit", d.GasLimit, "err", err)
		case KindNonceConflict:
			if !initial {
				return common.Hash{}, fmt.Errorf("nonce conflict on resend: %w", err)
			}
			nonce, nerr := ResolveNonce(ctx, t.signer)
			if nerr != nil {
				if errors.Is(nerr, ErrIncompatibleSigner) || errors.Is(nerr, ErrSignerUnavailable) {
					return common.Hash{}, nerr
				}
				t.lggr.Warn("Failed to refresh nonce", "attempt", attempt, "err", nerr)
				continue
			}
			t.lggr.Warn("Nonce conflict on initial send, refreshed nonce", "attempt", attempt, "old", *d.Nonce, "new", nonce, "err", err)
			d.Nonce = &nonce
		case KindAlreadyKnown:
			if hash, ok := t.knownHash(d); ok {
				t.lggr.Info("Node already knows transaction", "hash", hash, "attempt", attempt, "initial", initial)
				return hash, nil
			}
			t.lggr.Warn("Node already knows transaction, hash unavailable", "attempt", attempt, "err", err)
		default:
			t.lggr.Warn("Failed to send transaction", "attempt", attempt, "err", err)
		}
	}
	return common.Hash{}, &SendExhaustedError{Attempts: t.maxRetries, Err: lastErr}
}

// knownHash returns the hash d was broadcast under, from the tracked attempts
// or else from the signer.
func (t *transmitter) knownHash(d *Draft) (common.Hash, bool) {
	if hash, ok := t.tracker.match(d); ok {
		return hash, true
	}
	hasher, ok := t.signer.(DraftHasher)
	if !ok {
		return common.Hash{}, false
	}
	hash, err := hasher.HashDraft(d)
	if err != nil {
		t.lggr.Warn("Failed to hash draft", "err", err)
		return common.Hash{}, false
	}
	return hash, true
}
