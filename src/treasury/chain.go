package treasury

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"gateway-dashboard/src/interfaces"
)

// balanceOfSelector is the ERC-20 balanceOf(address) function selector.
const balanceOfSelector = "0x70a08231"

// ChainReader reads balances over the chain's JSON-RPC endpoint.
type ChainReader struct {
	Network interfaces.INetworkManager
	URL     string

	nextID atomic.Int64
}

type rpcEnvelope struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcReply struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// -----------------------------------------------------------------------------

func NewChainReader(nm interfaces.INetworkManager, url string) *ChainReader {
	return &ChainReader{Network: nm, URL: url}
}

// -----------------------------------------------------------------------------

// NativeBalance returns the address's native balance in whole units.
func (c *ChainReader) NativeBalance(address string, decimals int) (float64, error) {
	raw, err := c.call("eth_getBalance", address, "latest")
	if err != nil {
		return 0, err
	}
	return HexToUnits(raw, decimals)
}

// -----------------------------------------------------------------------------

// TokenBalance returns the address's balance of the ERC-20 contract in whole units.
func (c *ChainReader) TokenBalance(contract, address string, decimals int) (float64, error) {
	call := map[string]string{
		"to":   contract,
		"data": BalanceOfData(address),
	}
	raw, err := c.call("eth_call", call, "latest")
	if err != nil {
		return 0, err
	}
	return HexToUnits(raw, decimals)
}

// -----------------------------------------------------------------------------

func (c *ChainReader) call(method string, params ...interface{}) (string, error) {
	req := rpcEnvelope{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := c.Network.PostJSON(c.URL, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}

	var reply rpcReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("%s: decode reply: %w", method, err)
	}
	if reply.Error != nil {
		return "", fmt.Errorf("%s: rpc error %d: %s", method, reply.Error.Code, reply.Error.Message)
	}
	return reply.Result, nil
}

// -----------------------------------------------------------------------------

// BalanceOfData encodes balanceOf(address) call data.
func BalanceOfData(address string) string {
	addr := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X"))
	if len(addr) > 64 {
		addr = addr[len(addr)-64:]
	}
	return balanceOfSelector + strings.Repeat("0", 64-len(addr)) + addr
}

// -----------------------------------------------------------------------------

// HexToUnits converts a 0x-prefixed base-unit quantity into whole units.
func HexToUnits(hex string, decimals int) (float64, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if digits == "" {
		return 0, nil
	}

	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return 0, fmt.Errorf("invalid hex quantity %q", hex)
	}
	return scale(v, decimals), nil
}

// DecimalToUnits converts a base-10 base-unit quantity into whole units.
func DecimalToUnits(dec string, decimals int) (float64, error) {
	if dec == "" {
		return 0, nil
	}

	v, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		return 0, fmt.Errorf("invalid decimal quantity %q", dec)
	}
	return scale(v, decimals), nil
}

func scale(v *big.Int, decimals int) float64 {
	if decimals <= 0 {
		f, _ := new(big.Float).SetInt(v).Float64()
		return f
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(divisor)).Float64()
	return f
}
