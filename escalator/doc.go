// Package escalator submits a transaction to a legacy-gas EVM chain and keeps
// resubmitting it under the same nonce at a higher gas price until one of the
// submitted variants is confirmed.
//
// # Flow
//
// A call to (*Escalator).SubmitWithEscalation runs one logical transaction:
//
//  1. The gas limit is estimated from the payload length with a profiled
//     linear model (GasModel) unless the caller supplies one.
//  2. The nonce is read from the node (never from a local cache) and the
//     initial gas price is the network price times Policy.InitialPriceFactor.
//  3. The draft is sent. Gas-too-low rejections double the gas limit and
//     retry; nonce conflicts on the first send re-read the nonce and retry.
//  4. The engine polls receipts for every hash it has submitted. When the
//     escalation deadline passes without a successful receipt, the gas price
//     is multiplied by Policy.EscalationFactor and the draft is resent with
//     the same nonce.
//  5. The call returns the first successful receipt, or an
//     *EscalationExhaustedError once Policy.MaxEscalations is used up.
//
// # Nonces
//
// Resends never pick a new nonce. A nonce conflict on a resend means an
// earlier variant was already accepted, so the engine checks receipts of all
// submitted hashes instead of starting a second logical transaction.
//
// # Fees
//
// Gas prices are *big.Int values. Factors are converted to integer
// numerators over FeePrecision once per submission, so repeated escalations
// never accumulate floating point error.
package escalator
