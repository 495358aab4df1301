package evm

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcServer answers every request with the result produced by fn.
func rpcServer(t *testing.T, fn func(req rpcRequest) (interface{}, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		result, rpcErr := fn(req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
		}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestHTTPClient_ChainID(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_chainId", req.Method)
		assert.Equal(t, "2.0", req.JSONRPC)
		return "0x13881", nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	id, err := client.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(80001), id.Int64())
}

func TestHTTPClient_Call(t *testing.T) {
	to := common.HexToAddress("0xBaF73629F6382C0E34Df305880c0531445df2450")

	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_call", req.Method)
		if !assert.Len(t, req.Params, 2) {
			return nil, nil
		}

		args := req.Params[0].(map[string]interface{})
		assert.Equal(t, "0xbaf73629f6382c0e34df305880c0531445df2450", args["to"])
		assert.Equal(t, "0xe8a3d485", args["data"])
		assert.NotContains(t, args, "value")
		assert.Equal(t, "latest", req.Params[1])

		return "0x000000000000000000000000000000000000000000000000000000000000002a", nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	out, err := client.Call(context.Background(), CallMsg{To: to, Data: []byte{0xe8, 0xa3, 0xd4, 0x85}})
	require.NoError(t, err)
	require.Len(t, out, 32)
	assert.Equal(t, int64(42), new(big.Int).SetBytes(out).Int64())
}

func TestHTTPClient_CallRevert(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return nil, &RPCError{Code: 3, Message: "execution reverted: !CONDITION", Data: json.RawMessage(`"0x08c379a0"`)}
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.Call(context.Background(), CallMsg{Data: []byte{1, 2, 3, 4}})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.True(t, rpcErr.IsRevert())
	assert.Equal(t, "execution reverted: !CONDITION", err.Error())
}

func TestHTTPClient_TransactionReceipt(t *testing.T) {
	txHash := common.HexToHash("0xabc1")

	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_getTransactionReceipt", req.Method)
		return map[string]interface{}{
			"transactionHash": txHash.Hex(),
			"blockNumber":     "0x10",
			"status":          "0x1",
			"gasUsed":         "0x5208",
			"logs": []map[string]interface{}{
				{
					"address": "0xbaf73629f6382c0e34df305880c0531445df2450",
					"topics":  []string{common.HexToHash("0x01").Hex()},
					"data":    "0x0102",
				},
			},
		}, nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	receipt, err := client.TransactionReceipt(context.Background(), txHash)
	require.NoError(t, err)
	require.NotNil(t, receipt)

	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, []byte{1, 2}, receipt.Logs[0].Data)
}

func TestHTTPClient_TransactionReceipt_Pending(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return nil, nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	receipt, err := client.TransactionReceipt(context.Background(), common.Hash{})
	require.NoError(t, err)
	assert.Nil(t, receipt)
}

func TestHTTPClient_SendRawTransaction(t *testing.T) {
	want := common.HexToHash("0xdeadbeef")

	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		assert.Equal(t, "eth_sendRawTransaction", req.Method)
		assert.Equal(t, []interface{}{"0xf86c"}, req.Params)
		return want.Hex(), nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	hash, err := client.SendRawTransaction(context.Background(), []byte{0xf8, 0x6c})
	require.NoError(t, err)
	assert.Equal(t, want, hash)
}

func TestHTTPClient_NonceGasAndBlock(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		switch req.Method {
		case "eth_getTransactionCount":
			assert.Equal(t, "pending", req.Params[1])
			return "0x7", nil
		case "eth_gasPrice":
			return "0x3b9aca00", nil
		case "eth_estimateGas":
			args := req.Params[0].(map[string]interface{})
			assert.Equal(t, "0xde0b6b3a7640000", args["value"])
			return "0x249f0", nil
		case "eth_blockNumber":
			return "0x2a", nil
		}
		t.Errorf("unexpected method %s", req.Method)
		return nil, nil
	})
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	nonce, err := client.PendingNonceAt(ctx, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	price, err := client.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), price.Int64())

	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)
	gas, err := client.EstimateGas(ctx, CallMsg{Value: oneEther})
	require.NoError(t, err)
	assert.Equal(t, uint64(150000), gas)

	block, err := client.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), block)
}

func TestHTTPClient_NoRetryOnFailure(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.BlockNumber(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.ChainID(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPClient_LatencyObserver(t *testing.T) {
	server := rpcServer(t, func(req rpcRequest) (interface{}, *RPCError) {
		return "0x1", nil
	})
	defer server.Close()

	var methods []string
	client := NewHTTPClient(server.URL, WithLatencyObserver(func(method string, d time.Duration, err error) {
		assert.NoError(t, err)
		methods = append(methods, method)
	}))

	_, err := client.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"eth_blockNumber"}, methods)
}
