// cmd/server/main.go
package main

import (
	"blockchain-service/internal/cache"
	"blockchain-service/internal/chains/ethereum"
	"blockchain-service/internal/config"
	"blockchain-service/internal/domain"
	"blockchain-service/internal/security"
	"blockchain-service/internal/server"
	"blockchain-service/internal/usecase"
	"blockchain-service/internal/worker"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Key material ---
	provider, err := security.NewProvider(cfg.Security.VaultProvider, cfg.Security.FileVaultDir, cfg.Security.FileVaultKey)
	if err != nil {
		logger.Fatal("failed to init vault provider", zap.Error(err))
	}
	vault := security.NewVault(provider, 0, logger)

	privateKey, err := vault.GetWalletKey(ctx)
	if err != nil && !errors.Is(err, security.ErrSecretNotFound) {
		logger.Fatal("failed to read wallet key", zap.Error(err))
	}

	// --- Wallet context ---
	wallet, err := buildWalletContext(cfg, privateKey)
	if err != nil {
		logger.Fatal("failed to build wallet context", zap.Error(err))
	}

	var transport ethereum.Transport = ethereum.Disconnected{Reason: "wallet not initialized"}
	if wallet.Initialized() {
		node, err := ethereum.DialNode(ctx, cfg.Blockchain.RPCURL, cfg.Blockchain.RPCTimeout, logger)
		if err != nil {
			logger.Fatal("failed to connect to node", zap.Error(err))
		}
		defer node.Close()
		transport = node

		checkChainID(ctx, node, cfg.Blockchain.ChainID, logger)

		addr, _ := wallet.Address()
		logger.Info("wallet initialized",
			zap.String("address", ethereum.FormatAddress(addr)),
			zap.Int64("chain_id", cfg.Blockchain.ChainID))
	} else {
		logger.Warn("wallet not initialized, every wallet operation will be rejected",
			zap.Error(wallet.Check("startup")))
	}

	// --- Nonce lock ---
	var locker ethereum.NonceLocker = ethereum.NewLocalNonceLocker()
	var checks []server.ReadinessCheck
	if cfg.Redis.Addr != "" {
		redisLocker, err := cache.NewNonceLocker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.NonceLockTTL, logger)
		if err != nil {
			logger.Fatal("failed to init redis nonce lock", zap.Error(err))
		}
		defer redisLocker.Close()
		locker = redisLocker
		checks = append(checks, server.ReadinessCheck{Name: "redis", Check: redisLocker.Ping})
	}

	// --- Usecase ---
	walletUC, err := usecase.NewWalletUsecase(wallet, transport, locker, ethereum.RetryPolicy{
		MaxAttempts: cfg.Receipt.MaxAttempts,
		Interval:    cfg.Receipt.PollInterval,
	}, logger)
	if err != nil {
		logger.Fatal("failed to init wallet usecase", zap.Error(err))
	}

	// --- Workers ---
	var gasMonitor *worker.GasMonitor
	if wallet.Initialized() {
		gasMonitor = worker.NewGasMonitor(walletUC, cfg.Ops.GasMonitorInterval, cfg.Ops.GasAlertThreshold, logger)
		go gasMonitor.Start(ctx)
	}

	// --- Ops HTTP server ---
	srv := server.NewServer(cfg.Ops.HTTPPort, walletUC, checks, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("failed to start ops server", zap.Error(err))
		}
	}()

	logger.Info("blockchain service started", zap.String("ops_port", cfg.Ops.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	if gasMonitor != nil {
		gasMonitor.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server forced to shutdown", zap.Error(err))
	}

	logger.Info("blockchain service stopped")
}

func buildWalletContext(cfg *config.Config, privateKey string) (*ethereum.WalletContext, error) {
	var contracts domain.Contracts
	var err error

	if contracts.Token, err = config.ParseOptionalAddress(cfg.Blockchain.KRWTAddress); err != nil {
		return nil, err
	}
	if contracts.DividendDistributor, err = config.ParseOptionalAddress(cfg.Blockchain.DividendDistributorAddress); err != nil {
		return nil, err
	}
	if contracts.STO, err = config.ParseOptionalAddress(cfg.Blockchain.STOAddress); err != nil {
		return nil, err
	}

	return ethereum.NewWalletContext(ethereum.WalletSettings{
		RPCURL:     cfg.Blockchain.RPCURL,
		ChainID:    cfg.Blockchain.ChainID,
		PrivateKey: privateKey,
		Contracts:  contracts,
		Gas: domain.GasPolicy{
			GasPrice: cfg.Blockchain.GasPriceWei,
			GasLimit: cfg.Blockchain.GasLimit,
		},
	})
}

// checkChainID warns when the node serves a different chain than configured;
// every signed transaction would be rejected
func checkChainID(ctx context.Context, node *ethereum.NodeClient, want int64, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	got, err := node.ChainID(ctx)
	if err != nil {
		logger.Warn("could not read chain id from node", zap.Error(err))
		return
	}
	if got.Int64() != want {
		logger.Warn("node chain id differs from configured chain id",
			zap.Int64("configured", want),
			zap.String("node", got.String()))
	}
}
