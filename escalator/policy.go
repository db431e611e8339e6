package escalator

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Defaults are conservative enough for Ethereum mainnet block times. Faster
// chains should lower the intervals.
const (
	DefaultGasLimitMultiplier = 20
	DefaultInitialPriceFactor = 1.5
	DefaultEscalationFactor   = 2.0
	DefaultEscalationInterval = 10 * time.Second
	DefaultMaxEscalations     = 5
	DefaultPollInterval       = time.Second
	DefaultMaxSendRetries     = 5
)

// Policy holds the numeric settings of a submission. It is passed by value
// and never modified by the engine.
type Policy struct {
	// GasLimitMultiplier scales the profiled gas estimate. L2s that charge
	// for L1 data need a large value.
	GasLimitMultiplier uint64
	// InitialPriceFactor is the premium applied to the network gas price
	// for the first send.
	InitialPriceFactor float64
	// EscalationFactor multiplies the gas price on every escalation.
	EscalationFactor float64
	// EscalationInterval is the base wait before the first escalation. The
	// wait grows by this amount after each escalation.
	EscalationInterval time.Duration
	MaxEscalations     int
	// PollInterval is the base wait between receipt checks. The wait grows
	// by this amount after each check.
	PollInterval   time.Duration
	MaxSendRetries int
	// MaxGasPrice caps escalated gas prices. Nil or zero means no cap.
	MaxGasPrice *big.Int
}

// DefaultPolicy returns the default settings.
func DefaultPolicy() Policy {
	return Policy{
		GasLimitMultiplier: DefaultGasLimitMultiplier,
		InitialPriceFactor: DefaultInitialPriceFactor,
		EscalationFactor:   DefaultEscalationFactor,
		EscalationInterval: DefaultEscalationInterval,
		MaxEscalations:     DefaultMaxEscalations,
		PollInterval:       DefaultPollInterval,
		MaxSendRetries:     DefaultMaxSendRetries,
	}
}

// Validate reports every setting that cannot drive a submission.
func (p Policy) Validate() error {
	var errs []error
	if p.GasLimitMultiplier == 0 {
		errs = append(errs, errors.New("gas limit multiplier must be positive"))
	}
	if feeNumerator(p.InitialPriceFactor).Sign() <= 0 {
		errs = append(errs, fmt.Errorf("initial price factor %v rounds to zero", p.InitialPriceFactor))
	}
	if feeNumerator(p.EscalationFactor).Cmp(big.NewInt(FeePrecision)) <= 0 {
		errs = append(errs, fmt.Errorf("escalation factor %v must be greater than 1", p.EscalationFactor))
	}
	if p.EscalationInterval <= 0 {
		errs = append(errs, errors.New("escalation interval must be positive"))
	}
	if p.MaxEscalations < 0 {
		errs = append(errs, errors.New("max escalations must not be negative"))
	}
	if p.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if p.MaxSendRetries <= 0 {
		errs = append(errs, errors.New("max send retries must be positive"))
	}
	if p.MaxGasPrice != nil && p.MaxGasPrice.Sign() < 0 {
		errs = append(errs, errors.New("max gas price must not be negative"))
	}
	return errors.Join(errs...)
}
