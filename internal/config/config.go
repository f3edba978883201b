// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

type Config struct {
	Blockchain BlockchainConfig
	Receipt    ReceiptConfig
	Security   SecurityConfig
	Redis      RedisConfig
	Ops        OpsConfig
}

type BlockchainConfig struct {
	RPCURL                     string
	ChainID                    int64
	KRWTAddress                string
	DividendDistributorAddress string
	STOAddress                 string
	GasPriceWei                *big.Int
	GasLimit                   uint64
	RPCTimeout                 time.Duration
}

type ReceiptConfig struct {
	MaxAttempts  int
	PollInterval time.Duration
}

type SecurityConfig struct {
	VaultProvider string // "env" or "file"
	FileVaultDir  string
	FileVaultKey  string
}

// RedisConfig enables the distributed nonce lock when Addr is set
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	NonceLockTTL time.Duration
}

type OpsConfig struct {
	HTTPPort           string
	GasMonitorInterval time.Duration
	GasAlertThreshold  *big.Int
}

const (
	defaultChainID     = 11155111 // Sepolia
	defaultGasPriceWei = 4_100_000_000
	defaultGasLimit    = 9_000_000
)

// 0.05 ether
var defaultGasAlertThreshold = big.NewInt(50_000_000_000_000_000)

func Load(logger *zap.Logger) (*Config, error) {
	gasPrice, err := getEnvAsBigInt("BLOCKCHAIN_GAS_PRICE_WEI", big.NewInt(defaultGasPriceWei))
	if err != nil {
		return nil, err
	}
	alertThreshold, err := getEnvAsBigInt("GAS_ALERT_THRESHOLD_WEI", defaultGasAlertThreshold)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Blockchain: BlockchainConfig{
			RPCURL:                     getEnv("BLOCKCHAIN_RPC_URL", ""),
			ChainID:                    getEnvAsInt64("BLOCKCHAIN_CHAIN_ID", defaultChainID),
			KRWTAddress:                getEnv("BLOCKCHAIN_KRWT_ADDRESS", ""),
			DividendDistributorAddress: getEnv("BLOCKCHAIN_DIVIDEND_DISTRIBUTOR_ADDRESS", ""),
			STOAddress:                 getEnv("BLOCKCHAIN_STO_ADDRESS", ""),
			GasPriceWei:                gasPrice,
			GasLimit:                   getEnvAsUint64("BLOCKCHAIN_GAS_LIMIT", defaultGasLimit),
			RPCTimeout:                 getEnvAsDuration("BLOCKCHAIN_RPC_TIMEOUT", 30*time.Second),
		},
		Receipt: ReceiptConfig{
			MaxAttempts:  int(getEnvAsInt64("RECEIPT_MAX_ATTEMPTS", 30)),
			PollInterval: time.Duration(getEnvAsInt64("RECEIPT_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		},
		Security: SecurityConfig{
			VaultProvider: getEnv("VAULT_PROVIDER", "env"),
			FileVaultDir:  getEnv("FILE_VAULT_DIR", "./vault"),
			FileVaultKey:  os.Getenv("FILE_VAULT_KEY"),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     os.Getenv("REDIS_PASSWORD"),
			DB:           int(getEnvAsInt64("REDIS_DB", 0)),
			NonceLockTTL: getEnvAsDuration("NONCE_LOCK_TTL", 2*time.Minute),
		},
		Ops: OpsConfig{
			HTTPPort:           getEnv("OPS_HTTP_PORT", "8090"),
			GasMonitorInterval: getEnvAsDuration("GAS_MONITOR_INTERVAL", time.Minute),
			GasAlertThreshold:  alertThreshold,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Configuration loaded",
		zap.Bool("rpc_configured", cfg.Blockchain.RPCURL != ""),
		zap.Int64("chain_id", cfg.Blockchain.ChainID),
		zap.String("krwt", cfg.Blockchain.KRWTAddress),
		zap.String("dividend_distributor", cfg.Blockchain.DividendDistributorAddress),
		zap.String("sto", cfg.Blockchain.STOAddress),
		zap.String("vault_provider", cfg.Security.VaultProvider),
		zap.Bool("distributed_nonce_lock", cfg.Redis.Addr != ""))

	return cfg, nil
}

// Validate rejects settings that are present but malformed. A missing node URL or
// key is not an error here: it leaves the wallet uninitialized.
func (c *Config) Validate() error {
	var errs []error

	if c.Blockchain.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("BLOCKCHAIN_CHAIN_ID must be positive, got %d", c.Blockchain.ChainID))
	}
	for name, addr := range map[string]string{
		"BLOCKCHAIN_KRWT_ADDRESS":                 c.Blockchain.KRWTAddress,
		"BLOCKCHAIN_DIVIDEND_DISTRIBUTOR_ADDRESS": c.Blockchain.DividendDistributorAddress,
		"BLOCKCHAIN_STO_ADDRESS":                  c.Blockchain.STOAddress,
	} {
		if addr == "" {
			continue
		}
		if _, err := ParseOptionalAddress(addr); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Blockchain.GasPriceWei == nil || c.Blockchain.GasPriceWei.Sign() <= 0 {
		errs = append(errs, errors.New("BLOCKCHAIN_GAS_PRICE_WEI must be positive"))
	}
	if c.Blockchain.GasLimit == 0 {
		errs = append(errs, errors.New("BLOCKCHAIN_GAS_LIMIT must be positive"))
	}
	if c.Receipt.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RECEIPT_MAX_ATTEMPTS must be at least 1, got %d", c.Receipt.MaxAttempts))
	}
	if c.Receipt.PollInterval < 0 {
		errs = append(errs, errors.New("RECEIPT_POLL_INTERVAL_MS must not be negative"))
	}
	switch c.Security.VaultProvider {
	case "env", "file":
	default:
		errs = append(errs, fmt.Errorf("VAULT_PROVIDER must be env or file, got %q", c.Security.VaultProvider))
	}
	if c.Ops.GasMonitorInterval <= 0 {
		errs = append(errs, errors.New("GAS_MONITOR_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

// ParseOptionalAddress returns nil for an empty string and the parsed address otherwise
func ParseOptionalAddress(s string) (*common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(raw) != common.AddressLength {
		return nil, fmt.Errorf("invalid address %q: %d bytes, want %d", s, len(raw), common.AddressLength)
	}
	addr := common.BytesToAddress(raw)
	return &addr, nil
}

// ============================================================================
// Helper Functions
// ============================================================================

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(strings.TrimSpace(valueStr), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseUint(strings.TrimSpace(valueStr), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBigInt rejects malformed values instead of falling back to the default
func getEnvAsBigInt(key string, defaultValue *big.Int) (*big.Int, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return new(big.Int).Set(defaultValue), nil
	}
	value, ok := new(big.Int).SetString(valueStr, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", key, valueStr)
	}
	return value, nil
}
