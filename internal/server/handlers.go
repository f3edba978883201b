// internal/server/handlers.go
package server

import (
	"blockchain-service/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const readinessTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, http.StatusOK, "ok", nil)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"wallet": "ok"}
	ready := true

	if !s.wallet.Initialized() {
		status["wallet"] = "not initialized"
		ready = false
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.String("check", c.Name), zap.Error(err))
			status[c.Name] = err.Error()
			ready = false
			continue
		}
		status[c.Name] = "ok"
	}

	if !ready {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"message": "not ready",
			"data":    status,
		})
		return
	}
	s.sendSuccess(w, http.StatusOK, "ready", status)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	balance, err := s.wallet.GetNativeBalance(r.Context())
	if err != nil {
		s.sendError(w, statusFor(err), "failed to read wallet", err)
		return
	}

	s.sendSuccess(w, http.StatusOK, "wallet status", map[string]interface{}{
		"address":       balance.Address,
		"balance_wei":   balance.Wei.String(),
		"balance_ether": balance.Ether.String(),
	})
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.wallet.GetReceipt(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		s.sendError(w, statusFor(err), "failed to get receipt", err)
		return
	}

	logs := make([]map[string]interface{}, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		topics := make([]string, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = t.Hex()
		}
		logs = append(logs, map[string]interface{}{
			"address": l.Address.Hex(),
			"topics":  topics,
		})
	}

	s.sendSuccess(w, http.StatusOK, "receipt", map[string]interface{}{
		"tx_hash":      receipt.TxHash.Hex(),
		"status":       receipt.Status,
		"block_number": receipt.BlockNumber,
		"gas_used":     receipt.GasUsed,
		"logs":         logs,
	})
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEncoding):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCommunication):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Response helpers
func (s *Server) sendSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	s.writeJSON(w, statusCode, map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (s *Server) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	response := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}
	s.writeJSON(w, statusCode, response)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}
