package escalator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/txpool"
)

var (
	// ErrPreconditionViolated is returned when a draft reaches the sender
	// without a gas limit, nonce or gas price. It is never retried.
	ErrPreconditionViolated = errors.New("precondition violated")
	// ErrIncompatibleSigner is returned for signers that assign nonces
	// themselves.
	ErrIncompatibleSigner = errors.New("signer manages nonces itself")
	// ErrSignerUnavailable is returned when the signer has no node attached.
	ErrSignerUnavailable = errors.New("signer has no node connection")
	// ErrSendExhausted is matched by *SendExhaustedError.
	ErrSendExhausted = errors.New("send retries exhausted")
	// ErrSendFailed wraps any failure before the first hash is obtained.
	ErrSendFailed = errors.New("initial send failed")
	// ErrExhausted is matched by *EscalationExhaustedError.
	ErrExhausted = errors.New("gas price escalations exhausted")
)

// SendExhaustedError is returned when every local send attempt failed.
type SendExhaustedError struct {
	Attempts int
	// Err is the error of the last attempt.
	Err error
}

func (e *SendExhaustedError) Error() string {
	return fmt.Sprintf("failed to send transaction after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SendExhaustedError) Is(target error) bool { return target == ErrSendExhausted }

func (e *SendExhaustedError) Unwrap() error { return e.Err }

// EscalationExhaustedError is returned when no submitted variant confirmed
// within the escalation budget.
type EscalationExhaustedError struct {
	Escalations int
	// Hashes lists every submitted variant in submission order.
	Hashes []common.Hash
}

func (e *EscalationExhaustedError) Error() string {
	return fmt.Sprintf("transaction was not confirmed after %d escalations (%d submitted variants)", e.Escalations, len(e.Hashes))
}

func (e *EscalationExhaustedError) Is(target error) bool { return target == ErrExhausted }

// ErrorKind tells the sender how a rejected broadcast can be recovered.
type ErrorKind int

const (
	// KindUnknown has no local recovery; the attempt is simply retried.
	KindUnknown ErrorKind = iota
	// KindGasTooLow means the node rejected the gas limit as insufficient.
	KindGasTooLow
	// KindNonceConflict means the nonce is stale, or a competing transaction
	// with the same nonce is priced at least as high.
	KindNonceConflict
	// KindAlreadyKnown means the node already holds this exact signed
	// transaction, typically because an earlier broadcast succeeded but its
	// response was lost.
	KindAlreadyKnown
)

func (k ErrorKind) String() string {
	switch k {
	case KindGasTooLow:
		return "gas_too_low"
	case KindNonceConflict:
		return "nonce_conflict"
	case KindAlreadyKnown:
		return "already_known"
	default:
		return "unknown"
	}
}

// SendError attaches a structured kind to a broadcast failure. Signers
// should return it whenever they know the kind.
type SendError struct {
	Kind ErrorKind
	Err  error
}

// NewSendError wraps err with kind.
func NewSendError(kind ErrorKind, err error) *SendError {
	return &SendError{Kind: kind, Err: err}
}

func (e *SendError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }

var (
	gasTooLowErrs     = []error{core.ErrIntrinsicGas, core.ErrFloorDataGas}
	nonceConflictErrs = []error{core.ErrNonceTooLow, txpool.ErrReplaceUnderpriced}

	// Messages from nodes that do not reuse the go-ethereum texts.
	gasTooLowMsgs     = []string{"intrinsic gas", "gas too low", "gas limit too low"}
	nonceConflictMsgs = []string{"nonce too low", "replacement transaction underpriced", "nonce is too low"}
	alreadyKnownMsgs  = []string{txpool.ErrAlreadyKnown.Error(), "known transaction", "same hash already exists"}
)

// ClassifySendError maps a broadcast failure to an ErrorKind. Structured
// kinds win, then go-ethereum sentinel errors, and only then the message
// text, which is all a plain JSON-RPC error carries.
func ClassifySendError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) && sendErr.Kind != KindUnknown {
		return sendErr.Kind
	}
	if errors.Is(err, txpool.ErrAlreadyKnown) {
		return KindAlreadyKnown
	}
	for _, target := range nonceConflictErrs {
		if errors.Is(err, target) {
			return KindNonceConflict
		}
	}
	for _, target := range gasTooLowErrs {
		if errors.Is(err, target) {
			return KindGasTooLow
		}
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorKind {
	msg = strings.ToLower(msg)
	for _, s := range alreadyKnownMsgs {
		if strings.Contains(msg, s) {
			return KindAlreadyKnown
		}
	}
	for _, target := range nonceConflictErrs {
		if strings.Contains(msg, target.Error()) {
			return KindNonceConflict
		}
	}
	for _, s := range nonceConflictMsgs {
		if strings.Contains(msg, s) {
			return KindNonceConflict
		}
	}
	for _, target := range gasTooLowErrs {
		if strings.Contains(msg, target.Error()) {
			return KindGasTooLow
		}
	}
	for _, s := range gasTooLowMsgs {
		if strings.Contains(msg, s) {
			return KindGasTooLow
		}
	}
	return KindUnknown
}

// IsNonceConflict reports whether err is classified as KindNonceConflict.
func IsNonceConflict(err error) bool {
	return ClassifySendError(err) == KindNonceConflict
}
