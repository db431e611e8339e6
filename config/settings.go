package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pelletier/go-toml/v2"

	"txescalate/escalator"
)

// TxSettings are the transaction settings as written in configuration.
// Intervals are milliseconds. Zero values mean "use the default".
type TxSettings struct {
	GasFactor                  uint64  `json:"gasFactor" toml:"gasFactor"`
	GasPriceInitialFactor      float64 `json:"gasPriceInitialFactor" toml:"gasPriceInitialFactor"`
	GasPriceEscalationFactor   float64 `json:"gasPriceEscalationFactor" toml:"gasPriceEscalationFactor"`
	GasPriceEscalationInterval int64   `json:"gasPriceEscalationInterval" toml:"gasPriceEscalationInterval"`
	MaxGasPriceEscalations     int     `json:"maxGasPriceEscalations" toml:"maxGasPriceEscalations"`
	TxCompletionCheckInterval  int64   `json:"txCompletionCheckInterval" toml:"txCompletionCheckInterval"`
	NSendTxRetries             int     `json:"nSendTxRetries" toml:"nSendTxRetries"`
	// MaxGasPrice is a decimal or 0x-prefixed wei amount. Empty means no cap.
	MaxGasPrice string `json:"maxGasPrice,omitempty" toml:"maxGasPrice,omitempty"`
}

// DefaultTxSettings mirrors escalator.DefaultPolicy.
func DefaultTxSettings() TxSettings {
	return TxSettings{
		GasFactor:                  escalator.DefaultGasLimitMultiplier,
		GasPriceInitialFactor:      escalator.DefaultInitialPriceFactor,
		GasPriceEscalationFactor:   escalator.DefaultEscalationFactor,
		GasPriceEscalationInterval: escalator.DefaultEscalationInterval.Milliseconds(),
		MaxGasPriceEscalations:     escalator.DefaultMaxEscalations,
		TxCompletionCheckInterval:  escalator.DefaultPollInterval.Milliseconds(),
		NSendTxRetries:             escalator.DefaultMaxSendRetries,
	}
}

// ParseTxSettings decodes a JSON settings object.
func ParseTxSettings(s string) (TxSettings, error) {
	var settings TxSettings
	if err := json.Unmarshal([]byte(s), &settings); err != nil {
		return TxSettings{}, fmt.Errorf("invalid tx settings: %w", err)
	}
	return settings, nil
}

type policyFile struct {
	Policy TxSettings `toml:"policy"`
}

// LoadPolicyFile reads the [policy] table of a TOML file.
func LoadPolicyFile(path string) (TxSettings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return TxSettings{}, fmt.Errorf("read policy file: %w", err)
	}
	var f policyFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return TxSettings{}, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	return f.Policy, nil
}

// Merge returns s with every non-zero field of o applied.
func (s TxSettings) Merge(o TxSettings) TxSettings {
	if o.GasFactor != 0 {
		s.GasFactor = o.GasFactor
	}
	if o.GasPriceInitialFactor != 0 {
		s.GasPriceInitialFactor = o.GasPriceInitialFactor
	}
	if o.GasPriceEscalationFactor != 0 {
		s.GasPriceEscalationFactor = o.GasPriceEscalationFactor
	}
	if o.GasPriceEscalationInterval != 0 {
		s.GasPriceEscalationInterval = o.GasPriceEscalationInterval
	}
	if o.MaxGasPriceEscalations != 0 {
		s.MaxGasPriceEscalations = o.MaxGasPriceEscalations
	}
	if o.TxCompletionCheckInterval != 0 {
		s.TxCompletionCheckInterval = o.TxCompletionCheckInterval
	}
	if o.NSendTxRetries != 0 {
		s.NSendTxRetries = o.NSendTxRetries
	}
	if o.MaxGasPrice != "" {
		s.MaxGasPrice = o.MaxGasPrice
	}
	return s
}

// Policy converts the settings and validates the result.
func (s TxSettings) Policy() (escalator.Policy, error) {
	p := escalator.Policy{
		GasLimitMultiplier: s.GasFactor,
		InitialPriceFactor: s.GasPriceInitialFactor,
		EscalationFactor:   s.GasPriceEscalationFactor,
		EscalationInterval: time.Duration(s.GasPriceEscalationInterval) * time.Millisecond,
		MaxEscalations:     s.MaxGasPriceEscalations,
		PollInterval:       time.Duration(s.TxCompletionCheckInterval) * time.Millisecond,
		MaxSendRetries:     s.NSendTxRetries,
	}
	if s.MaxGasPrice != "" {
		maxPrice, ok := math.ParseBig256(s.MaxGasPrice)
		if !ok {
			return escalator.Policy{}, fmt.Errorf("invalid maxGasPrice %q", s.MaxGasPrice)
		}
		p.MaxGasPrice = maxPrice
	}
	if err := p.Validate(); err != nil {
		return escalator.Policy{}, fmt.Errorf("invalid tx settings: %w", err)
	}
	return p, nil
}
