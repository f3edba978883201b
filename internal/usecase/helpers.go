// internal/usecase/helpers.go
package usecase

import (
	"blockchain-service/internal/domain"
	"blockchain-service/internal/metrics"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// weiDecimals is the exponent between wei and ether
const weiDecimals = 18

// begin tags an operation with a correlation id. The returned func records the
// outcome metric and logs failures; call it deferred with a pointer to the named error.
func (uc *WalletUsecase) begin(op string, fields ...zap.Field) (*zap.Logger, func(*error)) {
	log := uc.logger.With(append([]zap.Field{
		zap.String("op", op),
		zap.String("op_id", uuid.NewString()),
	}, fields...)...)
	start := time.Now()

	return log, func(errp *error) {
		err := *errp
		metrics.WalletOperations.WithLabelValues(op, resultLabel(err)).Inc()
		if err != nil {
			log.Error("Wallet operation failed",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return
		}
		log.Debug("Wallet operation completed", zap.Duration("elapsed", time.Since(start)))
	}
}

// resultLabel maps an error to a bounded metric label
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch kind := domain.KindOf(err); {
	case kind == nil:
		return "error"
	case errors.Is(kind, domain.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(kind, domain.ErrEncoding):
		return "encoding"
	case errors.Is(kind, domain.ErrCommunication):
		return "communication"
	case errors.Is(kind, domain.ErrCallReverted):
		return "call_reverted"
	case errors.Is(kind, domain.ErrTransactionRejected):
		return "rejected"
	case errors.Is(kind, domain.ErrTransactionNotFound):
		return "not_found"
	case errors.Is(kind, domain.ErrProtocolMismatch):
		return "protocol_mismatch"
	case errors.Is(kind, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(kind, domain.ErrWaitCancelled):
		return "cancelled"
	}
	return "error"
}

// parseHash parses a 0x-prefixed 32-byte transaction hash
func parseHash(s string) (common.Hash, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, domain.NewError(domain.ErrEncoding, "parse_hash", s, err)
	}
	if len(raw) != common.HashLength {
		return common.Hash{}, domain.Errorf(domain.ErrEncoding, "parse_hash",
			"%q decodes to %d bytes, want %d", s, len(raw), common.HashLength)
	}
	return common.BytesToHash(raw), nil
}
