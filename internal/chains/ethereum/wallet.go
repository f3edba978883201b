// internal/chains/ethereum/wallet.go
package ethereum

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// WalletKey is a freshly generated or imported signing key
type WalletKey struct {
	Address    string
	PrivateKey string // hex without 0x prefix
	PublicKey  string // uncompressed, hex without 0x prefix
}

// GenerateWalletKey creates a new secp256k1 key for the service wallet
func GenerateWalletKey() (*WalletKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	return walletKeyFrom(privateKey)
}

// ImportWalletKey derives address and public key from a hex private key
func ImportWalletKey(privateKeyHex string) (*WalletKey, error) {
	privateKey, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return walletKeyFrom(privateKey)
}

func walletKeyFrom(privateKey *ecdsa.PrivateKey) (*WalletKey, error) {
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key")
	}

	return &WalletKey{
		Address:    FormatAddress(crypto.PubkeyToAddress(*publicKeyECDSA)),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(privateKey))[2:],
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(publicKeyECDSA))[2:],
	}, nil
}
