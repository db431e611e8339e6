package escalator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
)

// Escalator submits transactions for one signer and escalates their gas
// price until one variant confirms. It is safe for concurrent use; every
// call to SubmitWithEscalation owns its draft and tracker.
type Escalator struct {
	signer   Signer
	node     NodeClient
	policy   Policy
	gasModel GasModel
	lggr     log.Logger
	metrics  *Metrics
	clock    mclock.Clock
}

// Option configures an Escalator.
type Option func(*Escalator)

// WithGasModel replaces DefaultGasModel.
func WithGasModel(m GasModel) Option {
	return func(e *Escalator) { e.gasModel = m }
}

// WithMetrics records submissions into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Escalator) { e.metrics = m }
}

// WithClock replaces the system clock that drives polling and escalation
// deadlines.
func WithClock(c mclock.Clock) Option {
	return func(e *Escalator) { e.clock = c }
}

// New returns an Escalator. A nil node falls back to the signer's node and a
// nil logger to the root logger.
func New(signer Signer, node NodeClient, policy Policy, lggr log.Logger, opts ...Option) (*Escalator, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if lggr == nil {
		lggr = log.Root()
	}
	e := &Escalator{
		signer:   signer,
		node:     node,
		policy:   policy,
		gasModel: DefaultGasModel,
		lggr:     lggr,
		clock:    mclock.System{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the construction policy.
func (e *Escalator) Policy() Policy { return e.policy }

type submitConfig struct {
	policy Policy
}

// SubmitOption adjusts a single submission.
type SubmitOption func(*submitConfig)

// WithPolicy overrides the policy for one submission.
func WithPolicy(p Policy) SubmitOption {
	return func(c *submitConfig) { c.policy = p }
}

// feeScale holds the policy's price factors as fixed point numerators.
type feeScale struct {
	initial    *big.Int
	escalation *big.Int
}

func newFeeScale(p Policy) feeScale {
	return feeScale{
		initial:    feeNumerator(p.InitialPriceFactor),
		escalation: feeNumerator(p.EscalationFactor),
	}
}

// SubmitWithEscalation sends a transaction to `to` carrying data and blocks
// until a variant of it confirms successfully. A zero gasLimit is estimated
// from the payload length.
//
// The transaction is resent with the same nonce at a higher gas price each
// time the escalation deadline passes. Every submitted variant stays
// tracked, so whichever one is mined ends the submission. Errors are
// ErrIncompatibleSigner, ErrSignerUnavailable, ErrSendFailed (wrapping the
// cause), *EscalationExhaustedError or the context's error.
func (e *Escalator) SubmitWithEscalation(ctx context.Context, to common.Address, data []byte, gasLimit uint64, opts ...SubmitOption) (*types.Receipt, error) {
	cfg := submitConfig{policy: e.policy}
	for _, opt := range opts {
		opt(&cfg)
	}
	policy := cfg.policy
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid policy: %w", ErrPreconditionViolated, err)
	}
	scale := newFeeScale(policy)

	d := &Draft{To: to, Data: data, GasLimit: gasLimit}
	if d.GasLimit == 0 {
		d.GasLimit = e.gasModel.Estimate(len(data), policy.GasLimitMultiplier)
	}
	lggr := e.lggr.New("txid", uuid.NewString(), "to", to, "payload", d.PayloadHash())

	nonce, err := ResolveNonce(ctx, e.signer)
	if err != nil {
		if errors.Is(err, ErrIncompatibleSigner) || errors.Is(err, ErrSignerUnavailable) {
			return nil, err
		}
		e.metrics.observeOutcome(OutcomeSendFailed, 0)
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	d.Nonce = &nonce

	node := e.node
	if node == nil {
		node = e.signer.Node()
	}
	networkPrice, err := node.SuggestGasPrice(ctx)
	if err != nil {
		e.metrics.observeOutcome(OutcomeSendFailed, 0)
		return nil, fmt.Errorf("%w: failed to get gas price: %w", ErrSendFailed, err)
	}
	d.GasPrice = capPrice(scalePrice(networkPrice, scale.initial), policy.MaxGasPrice)

	tracker := NewTracker(node, lggr)
	tx := &transmitter{signer: e.signer, lggr: lggr, maxRetries: policy.MaxSendRetries, metrics: e.metrics, tracker: tracker}

	hash, err := tx.send(ctx, d, true)
	if err != nil {
		if ctx.Err() != nil {
			e.metrics.observeOutcome(OutcomeCancelled, 0)
		} else {
			e.metrics.observeOutcome(OutcomeSendFailed, 0)
		}
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	tracker.Add(d.attempt(hash, true))
	e.metrics.setGasPrice(d.GasPrice)
	start := e.clock.Now()
	lggr.Info("Submitted transaction", "hash", hash, "nonce", *d.Nonce,
		"gasPrice", d.GasPrice, "networkGasPrice", networkPrice, "gasLimit", d.GasLimit)

	var (
		timeout     = policy.EscalationInterval
		deadline    = start.Add(timeout)
		wait        time.Duration
		escalations int
	)
	for {
		wait += policy.PollInterval
		if err := e.sleep(ctx, wait); err != nil {
			e.metrics.observeOutcome(OutcomeCancelled, e.clock.Now().Sub(start))
			return nil, fmt.Errorf("submission aborted after %d escalations: %w", escalations, err)
		}
		if receipt := tracker.Confirmed(ctx); receipt != nil {
			e.metrics.observeOutcome(OutcomeConfirmed, e.clock.Now().Sub(start))
			lggr.Info("Transaction confirmed", "hash", receipt.TxHash, "block", receipt.BlockNumber,
				"escalations", escalations, "variants", len(tracker.attempts))
			return receipt, nil
		}
		if e.clock.Now() <= deadline {
			continue
		}

		escalations++
		if escalations > policy.MaxEscalations {
			e.metrics.observeOutcome(OutcomeExhausted, e.clock.Now().Sub(start))
			lggr.Error("Gas price escalations exhausted", "escalations", policy.MaxEscalations, "variants", len(tracker.attempts))
			return nil, &EscalationExhaustedError{Escalations: policy.MaxEscalations, Hashes: tracker.Hashes()}
		}
		timeout += policy.EscalationInterval
		deadline = e.clock.Now().Add(timeout)
		next := capPrice(escalatePrice(d.GasPrice, scale.escalation), policy.MaxGasPrice)
		e.metrics.observeEscalation(next)
		if next.Cmp(d.GasPrice) == 0 {
			lggr.Info("Gas price at cap, keeping tracked variants", "escalation", escalations, "gasPrice", next, "timeout", timeout)
			continue
		}
		d.GasPrice = next
		lggr.Info("Escalating gas price", "escalation", escalations, "gasPrice", d.GasPrice, "timeout", timeout)

		hash, err := tx.send(ctx, d, false)
		switch {
		case err == nil:
			tracker.Add(d.attempt(hash, false))
		case IsNonceConflict(err):
			lggr.Info("Nonce already used, checking earlier variants", "err", err)
			if receipt := tracker.Confirmed(ctx); receipt != nil {
				e.metrics.observeOutcome(OutcomeConfirmed, e.clock.Now().Sub(start))
				lggr.Info("Transaction confirmed", "hash", receipt.TxHash, "block", receipt.BlockNumber,
					"escalations", escalations, "variants", len(tracker.attempts))
				return receipt, nil
			}
		case ctx.Err() != nil:
			e.metrics.observeOutcome(OutcomeCancelled, e.clock.Now().Sub(start))
			return nil, fmt.Errorf("submission aborted after %d escalations: %w", escalations, ctx.Err())
		default:
			lggr.Warn("Failed to resend transaction", "escalation", escalations, "err", err)
		}
	}
}

// sleep waits on the escalator's clock for d or until ctx is done.
func (e *Escalator) sleep(ctx context.Context, d time.Duration) error {
	timer := e.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}
