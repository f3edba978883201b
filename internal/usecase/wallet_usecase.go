// internal/usecase/wallet_usecase.go
package usecase

import (
	"blockchain-service/internal/chains/ethereum"
	"blockchain-service/internal/domain"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WalletUsecase exposes the service wallet's domain operations.
// Reads run concurrently; submissions are serialized per address by the submitter.
type WalletUsecase struct {
	wallet    *ethereum.WalletContext
	transport ethereum.Transport
	submitter *ethereum.Submitter
	poller    *ethereum.ReceiptPoller
	logger    *zap.Logger
}

func NewWalletUsecase(
	wallet *ethereum.WalletContext,
	transport ethereum.Transport,
	locker ethereum.NonceLocker,
	policy ethereum.RetryPolicy,
	logger *zap.Logger,
) (*WalletUsecase, error) {
	poller, err := ethereum.NewReceiptPoller(transport, policy, logger)
	if err != nil {
		return nil, err
	}

	return &WalletUsecase{
		wallet:    wallet,
		transport: transport,
		submitter: ethereum.NewSubmitter(wallet, transport, locker, logger),
		poller:    poller,
		logger:    logger,
	}, nil
}

// Initialized reports whether the wallet can sign and reach the node
func (uc *WalletUsecase) Initialized() bool {
	return uc.wallet.Initialized()
}

// GetAddress returns the wallet address in lowercase hex
func (uc *WalletUsecase) GetAddress() (string, error) {
	addr, err := uc.wallet.Address()
	if err != nil {
		return "", err
	}
	return ethereum.FormatAddress(addr), nil
}

// GetNativeBalance returns the wallet's native coin balance in wei and ether
func (uc *WalletUsecase) GetNativeBalance(ctx context.Context) (balance *domain.NativeBalance, err error) {
	log, done := uc.begin("get_native_balance")
	defer done(&err)

	addr, err := uc.wallet.Address()
	if err != nil {
		return nil, err
	}

	wei, err := uc.transport.BalanceAt(ctx, addr)
	if err != nil {
		return nil, err
	}

	balance = &domain.NativeBalance{
		Address: ethereum.FormatAddress(addr),
		Wei:     wei,
		Ether:   decimal.NewFromBigInt(wei, -weiDecimals),
	}

	log.Debug("Native balance fetched",
		zap.String("address", balance.Address),
		zap.String("ether", balance.Ether.String()))

	return balance, nil
}

// GetTokenBalance returns the KRWT balance of target
func (uc *WalletUsecase) GetTokenBalance(ctx context.Context, target string) (balance *big.Int, err error) {
	_, done := uc.begin("get_token_balance", zap.String("target", target))
	defer done(&err)

	token, err := uc.tokenContract("get_token_balance")
	if err != nil {
		return nil, err
	}
	holder, err := ethereum.ParseAddress(target)
	if err != nil {
		return nil, err
	}

	return uc.balanceOf(ctx, token, holder)
}

// TransferToken sends amount KRWT from the wallet to `to` and returns the transaction hash
// without waiting for it to be mined.
func (uc *WalletUsecase) TransferToken(ctx context.Context, to string, amount *big.Int) (txHash common.Hash, err error) {
	log, done := uc.begin("transfer_token", zap.String("to", to), zap.Stringer("amount", amount))
	defer done(&err)

	recipient, err := ethereum.ParseAddress(to)
	if err != nil {
		return common.Hash{}, err
	}

	return uc.transfer(ctx, log, "transfer_token", recipient, amount)
}

// DistributeRentalIncome transfers amount KRWT to the configured STO contract
func (uc *WalletUsecase) DistributeRentalIncome(ctx context.Context, amount *big.Int) (txHash common.Hash, err error) {
	log, done := uc.begin("distribute_rental_income", zap.Stringer("amount", amount))
	defer done(&err)

	if err := uc.wallet.Check("distribute_rental_income"); err != nil {
		return common.Hash{}, err
	}
	sto := uc.wallet.Contracts().STO
	if sto == nil {
		return common.Hash{}, domain.NewError(domain.ErrNotInitialized, "distribute_rental_income", "sto contract not configured", nil)
	}

	return uc.transfer(ctx, log, "distribute_rental_income", *sto, amount)
}

// CreateSnapshot calls snapshot() on tokenContract, waits for it to be mined and
// returns the id from the emitted Snapshot event. An empty tokenContract means the
// configured KRWT contract.
func (uc *WalletUsecase) CreateSnapshot(ctx context.Context, tokenContract string) (snapshotID *big.Int, err error) {
	log, done := uc.begin("create_snapshot", zap.String("contract", tokenContract))
	defer done(&err)

	token, err := uc.resolveToken("create_snapshot", tokenContract)
	if err != nil {
		return nil, err
	}

	call, err := ethereum.Snapshot.Encode()
	if err != nil {
		return nil, err
	}

	sub, err := uc.submitter.Submit(ctx, token, call, nil, uc.wallet.Gas())
	if err != nil {
		return nil, err
	}

	receipt, err := uc.confirm(ctx, "create_snapshot", sub.TxHash)
	if err != nil {
		return nil, err
	}

	snapshotID, err = ethereum.ExtractIndexedUint(receipt, ethereum.SnapshotEventTopic, ethereum.SnapshotIDTopicIndex)
	if err != nil {
		return nil, err
	}

	log.Info("Snapshot created",
		zap.String("tx_hash", sub.TxHash.Hex()),
		zap.Uint64("nonce", sub.Nonce),
		zap.Stringer("snapshot_id", snapshotID))

	return snapshotID, nil
}

// CreateDividend registers a dividend of amount for snapshotID on the distributor
// and returns the transaction hash.
func (uc *WalletUsecase) CreateDividend(ctx context.Context, snapshotID, amount *big.Int) (txHash common.Hash, err error) {
	log, done := uc.begin("create_dividend", zap.Stringer("snapshot_id", snapshotID), zap.Stringer("amount", amount))
	defer done(&err)

	if err := uc.wallet.Check("create_dividend"); err != nil {
		return common.Hash{}, err
	}
	distributor := uc.wallet.Contracts().DividendDistributor
	if distributor == nil {
		return common.Hash{}, domain.NewError(domain.ErrNotInitialized, "create_dividend", "dividend distributor not configured", nil)
	}

	call, err := ethereum.CreateDividend.Encode(snapshotID, amount)
	if err != nil {
		return common.Hash{}, err
	}

	sub, err := uc.submitter.Submit(ctx, *distributor, call, nil, uc.wallet.Gas())
	if err != nil {
		return common.Hash{}, err
	}

	log.Info("Dividend submitted",
		zap.String("tx_hash", sub.TxHash.Hex()),
		zap.Uint64("nonce", sub.Nonce))

	return sub.TxHash, nil
}

// GetReceipt returns the receipt of a mined transaction, or TransactionNotFound
func (uc *WalletUsecase) GetReceipt(ctx context.Context, hash string) (receipt *domain.Receipt, err error) {
	_, done := uc.begin("get_receipt", zap.String("tx_hash", hash))
	defer done(&err)

	if err := uc.wallet.Check("get_receipt"); err != nil {
		return nil, err
	}
	txHash, err := parseHash(hash)
	if err != nil {
		return nil, err
	}

	receipt, err = uc.transport.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, domain.Errorf(domain.ErrTransactionNotFound, "get_receipt", "no receipt for %s", txHash.Hex())
	}
	return receipt, nil
}

// WaitForConfirmation polls until hash is mined. A receipt with failed status
// is reported as TransactionRejected.
func (uc *WalletUsecase) WaitForConfirmation(ctx context.Context, hash string) (receipt *domain.Receipt, err error) {
	_, done := uc.begin("wait_for_confirmation", zap.String("tx_hash", hash))
	defer done(&err)

	if err := uc.wallet.Check("wait_for_confirmation"); err != nil {
		return nil, err
	}
	txHash, err := parseHash(hash)
	if err != nil {
		return nil, err
	}

	return uc.confirm(ctx, "wait_for_confirmation", txHash)
}

// GetTokenTotalSupply returns totalSupply() of tokenContract, or of KRWT when empty
func (uc *WalletUsecase) GetTokenTotalSupply(ctx context.Context, tokenContract string) (supply *big.Int, err error) {
	_, done := uc.begin("get_token_total_supply", zap.String("contract", tokenContract))
	defer done(&err)

	token, err := uc.resolveToken("get_token_total_supply", tokenContract)
	if err != nil {
		return nil, err
	}

	call, err := ethereum.TotalSupply.Encode()
	if err != nil {
		return nil, err
	}
	return uc.readUint(ctx, "total_supply", token, call)
}

func (uc *WalletUsecase) transfer(ctx context.Context, log *zap.Logger, op string, to common.Address, amount *big.Int) (common.Hash, error) {
	token, err := uc.tokenContract(op)
	if err != nil {
		return common.Hash{}, err
	}
	if err := ethereum.ValidateAmount(amount); err != nil {
		return common.Hash{}, err
	}

	from, err := uc.wallet.Address()
	if err != nil {
		return common.Hash{}, err
	}

	balance, err := uc.balanceOf(ctx, token, from)
	if err != nil {
		return common.Hash{}, err
	}
	if amount.Cmp(balance) > 0 {
		return common.Hash{}, domain.Errorf(domain.ErrInsufficientBalance, op,
			"balance %s, requested %s", balance, amount)
	}

	call, err := ethereum.Transfer.Encode(to, amount)
	if err != nil {
		return common.Hash{}, err
	}

	sub, err := uc.submitter.Submit(ctx, token, call, nil, uc.wallet.Gas())
	if err != nil {
		return common.Hash{}, err
	}

	log.Info("Token transfer submitted",
		zap.String("tx_hash", sub.TxHash.Hex()),
		zap.String("to", ethereum.FormatAddress(to)),
		zap.Uint64("nonce", sub.Nonce))

	return sub.TxHash, nil
}

func (uc *WalletUsecase) confirm(ctx context.Context, op string, txHash common.Hash) (*domain.Receipt, error) {
	receipt, err := uc.poller.Wait(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return nil, domain.Errorf(domain.ErrTransactionRejected, op, "%s reverted on chain", txHash.Hex())
	}
	return receipt, nil
}

func (uc *WalletUsecase) balanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	call, err := ethereum.BalanceOf.Encode(holder)
	if err != nil {
		return nil, err
	}
	return uc.readUint(ctx, "balance_of", token, call)
}

// readUint performs a read call returning a single uint256.
// Empty return data means there is no contract code at the address.
func (uc *WalletUsecase) readUint(ctx context.Context, op string, contract common.Address, call ethereum.FunctionCall) (*big.Int, error) {
	out, err := uc.transport.Call(ctx, contract, call.Data())
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.Errorf(domain.ErrProtocolMismatch, op,
			"empty result from %s, no contract deployed?", ethereum.FormatAddress(contract))
	}
	return ethereum.DecodeUint256(out)
}

func (uc *WalletUsecase) tokenContract(op string) (common.Address, error) {
	if err := uc.wallet.Check(op); err != nil {
		return common.Address{}, err
	}
	token := uc.wallet.Contracts().Token
	if token == nil {
		return common.Address{}, domain.NewError(domain.ErrNotInitialized, op, "token contract not configured", nil)
	}
	return *token, nil
}

func (uc *WalletUsecase) resolveToken(op, tokenContract string) (common.Address, error) {
	if tokenContract == "" {
		return uc.tokenContract(op)
	}
	if err := uc.wallet.Check(op); err != nil {
		return common.Address{}, err
	}
	addr, err := ethereum.ParseAddress(tokenContract)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid token contract: %w", err)
	}
	return addr, nil
}
