package escalator

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	assert.Equal(t, uint64(20), p.GasLimitMultiplier)
	assert.Equal(t, 1.5, p.InitialPriceFactor)
	assert.Equal(t, 2.0, p.EscalationFactor)
	assert.Equal(t, 10*time.Second, p.EscalationInterval)
	assert.Equal(t, 5, p.MaxEscalations)
	assert.Equal(t, time.Second, p.PollInterval)
	assert.Equal(t, 5, p.MaxSendRetries)
	assert.Nil(t, p.MaxGasPrice)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
		errMsg string
	}{
		{"zero multiplier", func(p *Policy) { p.GasLimitMultiplier = 0 }, "gas limit multiplier"},
		{"zero initial factor", func(p *Policy) { p.InitialPriceFactor = 0.001 }, "initial price factor"},
		{"non escalating factor", func(p *Policy) { p.EscalationFactor = 1 }, "escalation factor"},
		{"zero interval", func(p *Policy) { p.EscalationInterval = 0 }, "escalation interval"},
		{"negative escalations", func(p *Policy) { p.MaxEscalations = -1 }, "max escalations"},
		{"zero poll", func(p *Policy) { p.PollInterval = 0 }, "poll interval"},
		{"zero retries", func(p *Policy) { p.MaxSendRetries = 0 }, "max send retries"},
		{"negative cap", func(p *Policy) { p.MaxGasPrice = big.NewInt(-1) }, "max gas price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestPolicyValidateZeroEscalations(t *testing.T) {
	p := DefaultPolicy()
	p.MaxEscalations = 0
	assert.NoError(t, p.Validate())
}
