package treasury

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
	usdc    = "0x3333333333333333333333333333333333333333"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeNetwork answers chain, price and explorer requests from memory and
// counts calls per kind.
type fakeNetwork struct {
	mu    sync.Mutex
	calls map[string]int

	native   map[string]string // lower-cased address -> hex wei
	tokens   map[string]string // lower-cased address -> hex base units
	price    float64
	priceErr error
	chainErr error

	nativeTxs string
	tokenTxs  string
	txErr     error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		calls: make(map[string]int),
		native: map[string]string{
			walletA: "0x14d1120d7b160000", // 1.5
			walletB: "0x6f05b59d3b20000",  // 0.5
		},
		tokens: map[string]string{
			walletA: "0x5f5e100", // 100 with 6 decimals
			walletB: "0x0",
		},
		price:     2000,
		nativeTxs: `{"items":[]}`,
		tokenTxs:  `{"items":[]}`,
	}
}

func (f *fakeNetwork) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

func (f *fakeNetwork) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeNetwork) Get(url string, params map[string]string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(url, "/token-transfers"):
		f.calls["token-transfers"]++
		if f.txErr != nil {
			return nil, f.txErr
		}
		return []byte(f.tokenTxs), nil
	case strings.HasSuffix(url, "/transactions"):
		f.calls["transactions"]++
		return []byte(f.nativeTxs), nil
	case params["ids"] != "":
		f.calls["price"]++
		if f.priceErr != nil {
			return nil, f.priceErr
		}
		return []byte(fmt.Sprintf(`{%q:{%q:%v}}`, params["ids"], params["vs_currencies"], f.price)), nil
	}
	return nil, fmt.Errorf("unexpected GET %s", url)
}

func (f *fakeNetwork) PostJSON(url string, body interface{}) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req := body.(rpcEnvelope)
	f.calls[req.Method]++
	if f.chainErr != nil {
		return nil, f.chainErr
	}

	var result string
	switch req.Method {
	case "eth_getBalance":
		result = f.native[strings.ToLower(req.Params[0].(string))]
	case "eth_call":
		data := req.Params[0].(map[string]string)["data"]
		result = f.tokens["0x"+data[len(data)-40:]]
	}
	out, _ := json.Marshal(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	return out, nil
}

func newTestAggregator(nm *fakeNetwork, clock *fakeClock) *Aggregator {
	cfg := &models.MConfig{
		Treasury: models.MTreasuryConfig{
			ChainRPCURL:    "http://chain",
			ExplorerURL:    "http://explorer/api/v2",
			PriceURL:       "http://prices/simple/price",
			PriceAssetID:   "ethereum",
			FiatCurrency:   "usd",
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			Token:          models.MTokenConfig{Contract: usdc, Symbol: "USDC", Decimals: 6, FiatPeg: 1},
			Wallets: []models.MWalletConfig{
				{Address: walletA, Name: "ops"},
				{Address: walletB, Name: "cold", Symbols: []string{"ETH", "usdc"}},
			},
			AggregateTTLSeconds:   60,
			PriceTTLSeconds:       120,
			TransactionTTLSeconds: 300,
			TransactionLimit:      30,
		},
		Network: models.MNetworkConfig{ConcurrentRequests: 4},
	}
	return NewAggregator(cfg, nm, clock, logger.Discard("treasury"))
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// -----------------------------------------------------------------------------

func TestAggregateComputesFiat(t *testing.T) {
	t.Parallel()

	agg, err := newTestAggregator(newFakeNetwork(), newClock()).GetAggregate()
	require.NoError(t, err)

	require.Len(t, agg.Wallets, 2)
	a, b := agg.Wallets[0], agg.Wallets[1]
	assert.Equal(t, "ops", a.Name)
	assert.InDelta(t, 1.5, a.NativeBalance, 1e-9)
	assert.InDelta(t, 100, a.TokenBalance, 1e-9)
	assert.InDelta(t, 3000, a.NativeFiat, 1e-6)
	assert.InDelta(t, 3100, a.TotalFiat, 1e-6)
	assert.InDelta(t, 0.5, b.NativeBalance, 1e-9)
	assert.InDelta(t, 1000, b.TotalFiat, 1e-6)
	assert.InDelta(t, 4100, agg.TotalFiat, 1e-6)
	assert.Equal(t, 2000.0, agg.Price.Price)
	assert.False(t, agg.Price.Stale)
}

func TestAggregateCacheHitMakesNoUpstreamCalls(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	clock := newClock()
	a := newTestAggregator(nm, clock)

	first, err := a.GetAggregate()
	require.NoError(t, err)
	calls := nm.total()
	assert.Equal(t, 1, nm.count("price"))
	assert.Equal(t, 2, nm.count("eth_getBalance"))
	assert.Equal(t, 2, nm.count("eth_call"))

	clock.Advance(59 * time.Second)
	second, err := a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, calls, nm.total())
	assert.Equal(t, first.CapturedAt, second.CapturedAt)

	// Exactly one refetch once the aggregate TTL has elapsed; the price is
	// still inside its own TTL.
	clock.Advance(time.Second)
	third, err := a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, 4, nm.count("eth_getBalance"))
	assert.Equal(t, 1, nm.count("price"))
	assert.True(t, third.CapturedAt.After(first.CapturedAt))

	_, err = a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, 4, nm.count("eth_getBalance"))

	clock.Advance(61 * time.Second)
	_, err = a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, 2, nm.count("price"))
}

func TestCachedAggregateKeepsCaptureTime(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	clock := newClock()
	a := newTestAggregator(nm, clock)

	first, err := a.GetAggregate()
	require.NoError(t, err)
	require.False(t, first.CapturedAt.IsZero())
	assert.Equal(t, clock.Now(), first.CapturedAt)
	calls := nm.total()

	clock.Advance(time.Second)
	second, err := a.GetAggregate()
	require.NoError(t, err)
	assert.False(t, second.CapturedAt.IsZero())
	assert.Equal(t, first.CapturedAt, second.CapturedAt)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, nm.total())
}

func TestAggregateReturnsCopies(t *testing.T) {
	t.Parallel()

	a := newTestAggregator(newFakeNetwork(), newClock())
	first, err := a.GetAggregate()
	require.NoError(t, err)
	first.Wallets[0].Name = "mutated"

	second, err := a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, "ops", second.Wallets[0].Name)
}

func TestPriceFailureFallsBackToLastPrice(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	clock := newClock()
	a := newTestAggregator(nm, clock)

	_, err := a.GetAggregate()
	require.NoError(t, err)

	nm.mu.Lock()
	nm.priceErr = errors.New("bad status 500: internal error")
	nm.price = 9999
	nm.mu.Unlock()
	clock.Advance(121 * time.Second)

	agg, err := a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, 2000.0, agg.Price.Price)
	assert.True(t, agg.Price.Stale)
	assert.InDelta(t, 4100, agg.TotalFiat, 1e-6)
	assert.Equal(t, 2, nm.count("price"))
}

func TestPriceFailureWithoutHistoryValuesAtZero(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	nm.priceErr = errors.New("bad status 500")

	agg, err := newTestAggregator(nm, newClock()).GetAggregate()
	require.NoError(t, err)
	require.Len(t, agg.Wallets, 2)
	assert.InDelta(t, 1.5, agg.Wallets[0].NativeBalance, 1e-9)
	assert.Equal(t, 0.0, agg.Wallets[0].NativeFiat)
	assert.InDelta(t, 100, agg.Wallets[0].TotalFiat, 1e-9)
	assert.Equal(t, 0.0, agg.Price.Price)
	assert.True(t, agg.Price.Stale)
}

func TestBalanceFailureFailsAggregateAndCachesNothing(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	nm.chainErr = errors.New("connection refused")
	a := newTestAggregator(nm, newClock())

	_, err := a.GetAggregate()
	require.Error(t, err)
	assert.Equal(t, "upstream_fetch_error", helpers.Kind(err))

	nm.mu.Lock()
	nm.chainErr = nil
	nm.mu.Unlock()

	agg, err := a.GetAggregate()
	require.NoError(t, err)
	assert.Len(t, agg.Wallets, 2)
}

func TestWalletSymbolsLimitTokenLookups(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	a := newTestAggregator(nm, newClock())
	a.Config.Wallets[1].Symbols = []string{"ETH"}

	_, err := a.GetAggregate()
	require.NoError(t, err)
	assert.Equal(t, 1, nm.count("eth_call"))
}

// -----------------------------------------------------------------------------

func transfersJSON(n int, start int64, from, to string, token bool) string {
	items := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		ts := time.Unix(start+int64(i)*60, 0).UTC().Format(time.RFC3339)
		item := map[string]interface{}{
			"from":      map[string]string{"hash": from},
			"to":        map[string]string{"hash": to},
			"timestamp": ts,
		}
		if token {
			item["transaction_hash"] = fmt.Sprintf("0xtok%d", i)
			item["total"] = map[string]string{"value": "2500000", "decimals": "6"}
			item["token"] = map[string]string{"symbol": "USDC", "decimals": "6"}
		} else {
			item["hash"] = fmt.Sprintf("0xnat%d", i)
			item["value"] = "1000000000000000000"
		}
		items = append(items, item)
	}
	out, _ := json.Marshal(map[string]interface{}{"items": items})
	return string(out)
}

func TestTransactionsMergeSortTruncate(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	// Native transfers arrive at even minutes, token transfers 30s later.
	nm.nativeTxs = transfersJSON(20, 1_700_000_000, walletA, walletB, false)
	nm.tokenTxs = transfersJSON(20, 1_700_000_030, walletB, walletA, true)

	txs, err := newTestAggregator(nm, newClock()).GetTransactions(walletA)
	require.NoError(t, err)

	require.Len(t, txs, 30)
	for i := 1; i < len(txs); i++ {
		assert.GreaterOrEqual(t, txs[i-1].Timestamp, txs[i].Timestamp)
	}
	assert.Equal(t, "0xtok19", txs[0].Hash)
	assert.Equal(t, models.DirectionIn, txs[0].Direction)
	assert.Equal(t, "USDC", txs[0].Symbol)
	assert.InDelta(t, 2.5, txs[0].Value, 1e-9)
	assert.Equal(t, "0xnat19", txs[1].Hash)
	assert.Equal(t, models.DirectionOut, txs[1].Direction)
	assert.Equal(t, "ETH", txs[1].Symbol)
	assert.InDelta(t, 1.0, txs[1].Value, 1e-9)
}

func TestTokenTransferWithoutDecimalsUsesConfiguredToken(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	nm.tokenTxs = `{"items":[
		{"transaction_hash":"0xnull","from":{"hash":"` + walletB + `"},"to":{"hash":"` + walletA + `"},
		 "timestamp":"2024-05-01T11:00:00Z","total":{"value":"2500000","decimals":null},"token":{"symbol":"USDC","decimals":null}},
		{"transaction_hash":"0xmissing","from":{"hash":"` + walletB + `"},"to":{"hash":"` + walletA + `"},
		 "timestamp":"2024-05-01T10:00:00Z","total":{"value":"7000000"},"token":{"symbol":"USDC"}},
		{"transaction_hash":"0xtoken","from":{"hash":"` + walletA + `"},"to":{"hash":"` + walletB + `"},
		 "timestamp":"2024-05-01T09:00:00Z","total":{"value":"300"},"token":{"symbol":"PTS","decimals":"2"}}
	]}`

	txs, err := newTestAggregator(nm, newClock()).GetTransactions(walletA)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	assert.Equal(t, "0xnull", txs[0].Hash)
	assert.InDelta(t, 2.5, txs[0].Value, 1e-9)
	assert.Equal(t, "0xmissing", txs[1].Hash)
	assert.InDelta(t, 7.0, txs[1].Value, 1e-9)
	assert.Equal(t, "0xtoken", txs[2].Hash)
	assert.InDelta(t, 3.0, txs[2].Value, 1e-9)
}

func TestTransactionsCachedPerLowerCasedAddress(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	nm.nativeTxs = transfersJSON(3, 1_700_000_000, walletA, walletB, false)
	clock := newClock()
	a := newTestAggregator(nm, clock)

	_, err := a.GetTransactions(walletA)
	require.NoError(t, err)
	upper := "0x" + strings.ToUpper(walletA[2:])
	txs, err := a.GetTransactions(upper)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
	assert.Equal(t, 1, nm.count("transactions"))
	assert.Equal(t, 1, nm.count("token-transfers"))

	clock.Advance(299 * time.Second)
	_, err = a.GetTransactions(walletA)
	require.NoError(t, err)
	assert.Equal(t, 1, nm.count("transactions"))

	clock.Advance(time.Second)
	_, err = a.GetTransactions(walletA)
	require.NoError(t, err)
	assert.Equal(t, 2, nm.count("transactions"))
}

func TestTransactionsFailurePropagates(t *testing.T) {
	t.Parallel()

	nm := newFakeNetwork()
	nm.txErr = errors.New("bad status 502")
	a := newTestAggregator(nm, newClock())

	_, err := a.GetTransactions(walletA)
	require.Error(t, err)
	assert.Equal(t, "upstream_fetch_error", helpers.Kind(err))
	assert.Contains(t, err.Error(), "bad status 502")

	_, err = a.GetTransactions("  ")
	assert.Equal(t, "invalid_request", helpers.Kind(err))
}

// -----------------------------------------------------------------------------

func TestMergeTransfersEmpty(t *testing.T) {
	out := MergeTransfers(30)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestUnitConversions(t *testing.T) {
	v, err := HexToUnits("0x1bc16d674ec80000", 18)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)

	v, err = HexToUnits("0x", 18)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	_, err = HexToUnits("0xzz", 18)
	assert.Error(t, err)

	v, err = DecimalToUnits("2500000", 6)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-12)

	assert.Equal(t,
		"0x70a08231000000000000000000000000abcdefabcdefabcdefabcdefabcdefabcdefabcd",
		BalanceOfData("0xABCDEFabcdefABCDEFabcdefABCDEFabcdefABCD"))
}
