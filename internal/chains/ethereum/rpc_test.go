package ethereum

import (
	"blockchain-service/internal/domain"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type jsonrpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// rpcHandler answers a single JSON-RPC method per request with result or error
type rpcHandler func(req jsonrpcRequest) (result interface{}, rpcErr map[string]interface{})

func newTestNode(t *testing.T, handler rpcHandler) *NodeClient {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		result, rpcErr := handler(req)
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	return dialTestNode(t, srv.URL)
}

func dialTestNode(t *testing.T, url string) *NodeClient {
	t.Helper()
	client, err := DialNode(context.Background(), url, 5*time.Second, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestNodeClientCall(t *testing.T) {
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")
	balance := hexutil.Encode(common.LeftPadBytes(big.NewInt(500).Bytes(), 32))

	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "eth_call", req.Method)
		require.Len(t, req.Params, 2)

		var args struct {
			To   common.Address `json:"to"`
			Data hexutil.Bytes  `json:"data"`
		}
		require.NoError(t, json.Unmarshal(req.Params[0], &args))
		assert.Equal(t, token, args.To)
		assert.Equal(t, "0x70a08231", hexutil.Encode(args.Data[:4]))
		assert.JSONEq(t, `"latest"`, string(req.Params[1]))

		return balance, nil
	})

	call, err := BalanceOf.Encode(common.HexToAddress("0x01"))
	require.NoError(t, err)

	out, err := client.Call(context.Background(), token, call.Data())
	require.NoError(t, err)

	v, err := DecodeUint256(out)
	require.NoError(t, err)
	assert.Equal(t, int64(500), v.Int64())
}

func TestNodeClientCallReverted(t *testing.T) {
	strType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: strType}}.Pack("transfer amount exceeds balance")
	require.NoError(t, err)
	revertData := append(common.FromHex("0x08c379a0"), packed...)

	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{
			"code":    3,
			"message": "execution reverted: transfer amount exceeds balance",
			"data":    hexutil.Encode(revertData),
		}
	})

	_, err = client.Call(context.Background(), common.HexToAddress("0x01"), []byte{1, 2, 3, 4})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCallReverted)
	assert.Contains(t, err.Error(), "transfer amount exceeds balance")
}

func TestNodeClientRPCErrorIsCommunication(t *testing.T) {
	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		return nil, map[string]interface{}{"code": -32000, "message": "header not found"}
	})

	_, err := client.BalanceAt(context.Background(), common.HexToAddress("0x01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommunication)
	assert.Contains(t, err.Error(), "header not found")
}

func TestNodeClientHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := dialTestNode(t, srv.URL)

	_, err := client.PendingNonceAt(context.Background(), common.HexToAddress("0x01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommunication)
}

func TestNodeClientMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":`))
	}))
	defer srv.Close()

	client := dialTestNode(t, srv.URL)

	_, err := client.BalanceAt(context.Background(), common.HexToAddress("0x01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCommunication)
}

func TestNodeClientSendRejected(t *testing.T) {
	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "eth_sendRawTransaction", req.Method)
		return nil, map[string]interface{}{"code": -32000, "message": "nonce too low"}
	})

	_, err := client.SendRawTransaction(context.Background(), []byte{0xf8})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransactionRejected)
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestNodeClientSendAccepted(t *testing.T) {
	want := common.HexToHash("0xabc123")

	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		var raw string
		require.NoError(t, json.Unmarshal(req.Params[0], &raw))
		assert.Equal(t, "0xf86b", raw)
		return want.Hex(), nil
	})

	got, err := client.SendRawTransaction(context.Background(), []byte{0xf8, 0x6b})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNodeClientReceipt(t *testing.T) {
	hash := common.HexToHash("0xfeed")
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")

	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "eth_getTransactionReceipt", req.Method)
		return map[string]interface{}{
			"transactionHash": hash.Hex(),
			"status":          "0x1",
			"blockNumber":     "0x10",
			"gasUsed":         "0x5208",
			"logs": []map[string]interface{}{{
				"address": token.Hex(),
				"topics":  []string{SnapshotEventTopic.Hex(), common.BigToHash(big.NewInt(42)).Hex()},
				"data":    "0x",
			}},
		}, nil
	})

	receipt, err := client.TransactionReceipt(context.Background(), hash)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, token, receipt.Logs[0].Address)

	id, err := ExtractIndexedUint(receipt, SnapshotEventTopic, SnapshotIDTopicIndex)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.Int64())
}

func TestNodeClientFailedReceipt(t *testing.T) {
	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		return map[string]interface{}{
			"transactionHash": common.HexToHash("0x01").Hex(),
			"status":          "0x0",
			"blockNumber":     "0x1",
			"gasUsed":         "0x1",
			"logs":            []interface{}{},
		}, nil
	})

	receipt, err := client.TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())
	assert.Equal(t, domain.ReceiptStatusFailed, receipt.Status)
}

func TestNodeClientReceiptNotMined(t *testing.T) {
	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		return nil, nil
	})

	receipt, err := client.TransactionReceipt(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestNodeClientChainID(t *testing.T) {
	client := newTestNode(t, func(req jsonrpcRequest) (interface{}, map[string]interface{}) {
		require.Equal(t, "eth_chainId", req.Method)
		return "0xaa36a7", nil
	})

	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id.Int64())
}

func TestDisconnectedTransport(t *testing.T) {
	var transport Transport = Disconnected{Reason: "missing rpc url"}
	ctx := context.Background()

	_, err := transport.Call(ctx, common.Address{}, nil)
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
	assert.Contains(t, err.Error(), "missing rpc url")

	_, err = transport.BalanceAt(ctx, common.Address{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = transport.PendingNonceAt(ctx, common.Address{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = transport.SendRawTransaction(ctx, []byte{0x01})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)

	_, err = transport.TransactionReceipt(ctx, common.Hash{})
	assert.ErrorIs(t, err, domain.ErrNotInitialized)
}
