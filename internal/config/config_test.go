package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BLOCKCHAIN_RPC_URL", "BLOCKCHAIN_CHAIN_ID", "BLOCKCHAIN_KRWT_ADDRESS",
		"BLOCKCHAIN_DIVIDEND_DISTRIBUTOR_ADDRESS", "BLOCKCHAIN_STO_ADDRESS",
		"BLOCKCHAIN_GAS_PRICE_WEI", "BLOCKCHAIN_GAS_LIMIT", "BLOCKCHAIN_RPC_TIMEOUT",
		"RECEIPT_MAX_ATTEMPTS", "RECEIPT_POLL_INTERVAL_MS", "VAULT_PROVIDER",
		"REDIS_ADDR", "OPS_HTTP_PORT", "GAS_MONITOR_INTERVAL", "GAS_ALERT_THRESHOLD_WEI",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)

	assert.Empty(t, cfg.Blockchain.RPCURL)
	assert.Equal(t, int64(11155111), cfg.Blockchain.ChainID)
	assert.Equal(t, 0, big.NewInt(4_100_000_000).Cmp(cfg.Blockchain.GasPriceWei))
	assert.Equal(t, uint64(9_000_000), cfg.Blockchain.GasLimit)
	assert.Equal(t, 30*time.Second, cfg.Blockchain.RPCTimeout)
	assert.Equal(t, 30, cfg.Receipt.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Receipt.PollInterval)
	assert.Equal(t, "env", cfg.Security.VaultProvider)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "8090", cfg.Ops.HTTPPort)
	assert.Equal(t, "50000000000000000", cfg.Ops.GasAlertThreshold.String())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BLOCKCHAIN_RPC_URL", "https://rpc.example.org")
	t.Setenv("BLOCKCHAIN_CHAIN_ID", "1")
	t.Setenv("BLOCKCHAIN_KRWT_ADDRESS", "0x1000000000000000000000000000000000000001")
	t.Setenv("BLOCKCHAIN_GAS_PRICE_WEI", "20000000000")
	t.Setenv("BLOCKCHAIN_GAS_LIMIT", "300000")
	t.Setenv("RECEIPT_MAX_ATTEMPTS", "5")
	t.Setenv("RECEIPT_POLL_INTERVAL_MS", "250")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("NONCE_LOCK_TTL", "30s")

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.org", cfg.Blockchain.RPCURL)
	assert.Equal(t, int64(1), cfg.Blockchain.ChainID)
	assert.Equal(t, "20000000000", cfg.Blockchain.GasPriceWei.String())
	assert.Equal(t, uint64(300000), cfg.Blockchain.GasLimit)
	assert.Equal(t, 5, cfg.Receipt.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Receipt.PollInterval)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.Redis.NonceLockTTL)
}

func TestLoadRejectsMalformedGasPrice(t *testing.T) {
	t.Setenv("BLOCKCHAIN_GAS_PRICE_WEI", "4.1 gwei")

	_, err := Load(zap.NewNop())
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Blockchain: BlockchainConfig{
			ChainID:     11155111,
			GasPriceWei: big.NewInt(1),
			GasLimit:    21000,
		},
		Receipt:  ReceiptConfig{MaxAttempts: 1},
		Security: SecurityConfig{VaultProvider: "env"},
		Ops:      OpsConfig{GasMonitorInterval: time.Minute},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate(), "missing url and key leave the wallet uninitialized, not invalid")

	tests := map[string]func(c *Config){
		"zero chain id":       func(c *Config) { c.Blockchain.ChainID = 0 },
		"short address":       func(c *Config) { c.Blockchain.KRWTAddress = "0x1234" },
		"non hex address":     func(c *Config) { c.Blockchain.STOAddress = "not-an-address" },
		"zero gas price":      func(c *Config) { c.Blockchain.GasPriceWei = big.NewInt(0) },
		"zero gas limit":      func(c *Config) { c.Blockchain.GasLimit = 0 },
		"zero attempts":       func(c *Config) { c.Receipt.MaxAttempts = 0 },
		"negative interval":   func(c *Config) { c.Receipt.PollInterval = -time.Second },
		"unknown vault":       func(c *Config) { c.Security.VaultProvider = "hashicorp" },
		"zero monitor period": func(c *Config) { c.Ops.GasMonitorInterval = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseOptionalAddress(t *testing.T) {
	addr, err := ParseOptionalAddress("")
	require.NoError(t, err)
	assert.Nil(t, addr)

	addr, err = ParseOptionalAddress(" 0x1000000000000000000000000000000000000001 ")
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "0x1000000000000000000000000000000000000001", addr.Hex())

	_, err = ParseOptionalAddress("0x10")
	assert.Error(t, err)
}
