// internal/chains/ethereum/context.go
package ethereum

import (
	"blockchain-service/internal/domain"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// WalletSettings is the raw material a WalletContext is built from
type WalletSettings struct {
	RPCURL     string
	ChainID    int64
	PrivateKey string // hex, optional 0x prefix; empty means not configured
	Contracts  domain.Contracts
	Gas        domain.GasPolicy
}

// WalletContext is the process-wide wallet configuration.
// It is either initialized (node URL and key present) or permanently uninitialized;
// accessors on an uninitialized context return ErrNotInitialized instead of zero values.
type WalletContext struct {
	initialized bool
	reason      string

	rpcURL    string
	chainID   *big.Int
	key       *ecdsa.PrivateKey
	address   common.Address
	contracts domain.Contracts
	gas       domain.GasPolicy
}

// NewWalletContext builds the context. A missing URL or key yields an uninitialized
// context; a key that is present but malformed is a configuration error.
func NewWalletContext(s WalletSettings) (*WalletContext, error) {
	wc := &WalletContext{
		rpcURL:    s.RPCURL,
		chainID:   big.NewInt(s.ChainID),
		contracts: s.Contracts,
		gas:       s.Gas,
	}

	var missing []string
	if s.RPCURL == "" {
		missing = append(missing, "rpc url")
	}
	if s.PrivateKey == "" {
		missing = append(missing, "private key")
	}
	if len(missing) > 0 {
		wc.reason = "missing " + strings.Join(missing, " and ")
		return wc, nil
	}

	key, err := parsePrivateKey(s.PrivateKey)
	if err != nil {
		return nil, err
	}
	if s.ChainID <= 0 {
		return nil, fmt.Errorf("invalid chain id %d", s.ChainID)
	}
	if s.Gas.GasPrice == nil || s.Gas.GasPrice.Sign() <= 0 || s.Gas.GasLimit == 0 {
		return nil, fmt.Errorf("gas price and gas limit must be positive")
	}

	wc.key = key
	wc.address = crypto.PubkeyToAddress(key.PublicKey)
	wc.initialized = true
	return wc, nil
}

// Uninitialized returns a context that rejects every operation
func Uninitialized(reason string) *WalletContext {
	return &WalletContext{reason: reason, chainID: new(big.Int)}
}

// Initialized reports whether signing and RPC are available
func (wc *WalletContext) Initialized() bool {
	return wc != nil && wc.initialized
}

// Check returns ErrNotInitialized when the context cannot be used
func (wc *WalletContext) Check(op string) error {
	if wc.Initialized() {
		return nil
	}
	reason := "wallet context missing"
	if wc != nil && wc.reason != "" {
		reason = wc.reason
	}
	return domain.NewError(domain.ErrNotInitialized, op, reason, nil)
}

// Address returns the wallet address
func (wc *WalletContext) Address() (common.Address, error) {
	if err := wc.Check("address"); err != nil {
		return common.Address{}, err
	}
	return wc.address, nil
}

// ChainID returns a copy of the configured chain id
func (wc *WalletContext) ChainID() *big.Int {
	return new(big.Int).Set(wc.chainID)
}

// RPCURL returns the configured node URL
func (wc *WalletContext) RPCURL() string {
	return wc.rpcURL
}

// Contracts returns the configured contract addresses
func (wc *WalletContext) Contracts() domain.Contracts {
	return wc.contracts
}

// Gas returns the fixed gas policy
func (wc *WalletContext) Gas() domain.GasPolicy {
	if wc.gas.GasPrice == nil {
		return domain.GasPolicy{GasLimit: wc.gas.GasLimit}
	}
	return domain.GasPolicy{
		GasPrice: new(big.Int).Set(wc.gas.GasPrice),
		GasLimit: wc.gas.GasLimit,
	}
}

func (wc *WalletContext) privateKey() (*ecdsa.PrivateKey, error) {
	if err := wc.Check("sign"); err != nil {
		return nil, err
	}
	return wc.key, nil
}

// parsePrivateKey parses a hex private key with optional 0x prefix
func parsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	privateKeyHex = strings.TrimSpace(privateKeyHex)
	if len(privateKeyHex) > 2 && privateKeyHex[:2] == "0x" {
		privateKeyHex = privateKeyHex[2:]
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return privateKey, nil
}
