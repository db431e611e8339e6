// Package ethclient provides an RSK-compatible JSON-RPC client and a local
// key signer for the escalator engine.
//
// RSK (Rootstock) is a Bitcoin sidechain that supports smart contracts and is
// largely compatible with Ethereum. However, there are several key differences
// that this package handles:
//
// # EIP-1559 (Not Supported)
//
// RSK uses legacy gas pricing (gasPrice). Headers carry minimumGasPrice
// instead of baseFeePerGas; HeaderByNumber maps it to BaseFee.
// FloorGasPricer uses it to keep suggested gas prices above the block
// minimum.
//
// # Legacy Transactions Only
//
// KeySigner signs every escalator.Draft as an EIP-155 legacy transaction.
// SendTransactionReturnHash refuses typed transactions and returns the hash
// reported by the node, which may differ from the go-ethereum hash.
//
// # Receipts
//
// RSK reports receipt status as "0x01" or "0x00" and omits fields that
// go-ethereum requires, so receipts are decoded leniently. A null receipt is
// returned as ethereum.NotFound.
//
// # Usage
//
//	client, err := ethclient.Dial("https://public-node.testnet.rsk.co")
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	signer, err := ethclient.NewKeySignerFromHex(ctx, client, hexKey)
//	if err != nil {
//	    return err
//	}
//	signer.WithNode(ethclient.NewFloorGasPricer(client, nil))
//
//	esc, err := escalator.New(signer, nil, escalator.DefaultPolicy(), logger)
//	if err != nil {
//	    return err
//	}
//	receipt, err := esc.SubmitWithEscalation(ctx, to, data, 0)
//
// # RSK Networks
//
// Common RSK RPC endpoints:
//   - RSK Mainnet: https://public-node.rsk.co
//   - RSK Testnet: https://public-node.testnet.rsk.co
//
// Chain IDs:
//   - RSK Mainnet: 30
//   - RSK Testnet: 31
package ethclient
