package escalator

// GasModel is a linear gas cost model profiled against a specific contract
// call: Base covers payloads up to Baseline bytes, every byte beyond costs
// PerByte. Profile again before changing the defaults.
type GasModel struct {
	Base     uint64
	PerByte  uint64
	Baseline int
}

// DefaultGasModel was measured on a commitment contract.
var DefaultGasModel = GasModel{
	Base:     150_000,
	PerByte:  400,
	Baseline: 778,
}

// Estimate returns the gas limit for a payload of payloadLen bytes.
func (m GasModel) Estimate(payloadLen int, multiplier uint64) uint64 {
	gas := m.Base
	if extra := payloadLen - m.Baseline; extra > 0 {
		gas += m.PerByte * uint64(extra)
	}
	return gas * multiplier
}

// EstimateGasLimit estimates with DefaultGasModel.
func EstimateGasLimit(payloadLen int, multiplier uint64) uint64 {
	return DefaultGasModel.Estimate(payloadLen, multiplier)
}
