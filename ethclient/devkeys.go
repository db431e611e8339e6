package ethclient

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// RegtestSeeds are the seeds of the pre-funded accounts of an RSK regtest
// node. The private key of each account is keccak256(seed).
var RegtestSeeds = []string{"cow", "cow1", "cow2", "cow3", "cow4", "cow5", "cow6", "cow7", "cow8", "cow9"}

// DevKey derives a regtest private key from seed.
func DevKey(seed string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(seed)))
	if err != nil {
		return nil, fmt.Errorf("invalid dev key seed %q: %w", seed, err)
	}
	return key, nil
}
