// Package treasury aggregates wallet balances and transfer history from the
// chain node, a block explorer and a price API behind TTL caches.
package treasury

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"
	"gateway-dashboard/src/utils"

	"golang.org/x/sync/errgroup"
)

const singletonKey = ""

// Aggregator serves GetAggregate and GetTransactions. Reads are synchronous:
// an expired entry is refetched on the caller's goroutine.
type Aggregator struct {
	Config   *models.MTreasuryConfig
	Chain    *ChainReader
	Prices   *PriceSource
	Explorer *Explorer
	Clock    utils.Clock
	Logger   *logger.Logger

	// Concurrency bounds the upstream fan-out of one aggregation.
	Concurrency int

	aggregates   *TTLCache[models.MTreasuryAggregate]
	prices       *TTLCache[models.MPriceQuote]
	transactions *TTLCache[[]models.MTransfer]
}

// -----------------------------------------------------------------------------

func NewAggregator(cfg *models.MConfig, nm interfaces.INetworkManager, clock utils.Clock, log *logger.Logger) *Aggregator {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	t := &cfg.Treasury

	return &Aggregator{
		Config:      t,
		Chain:       NewChainReader(nm, t.ChainRPCURL),
		Prices:      NewPriceSource(nm, t.PriceURL, t.PriceAssetID, t.FiatCurrency),
		Explorer:    NewExplorer(nm, t.ExplorerURL, t.NativeSymbol, t.NativeDecimals, t.Token.Decimals),
		Clock:       clock,
		Logger:      log,
		Concurrency: cfg.Network.ConcurrentRequests,

		aggregates:   NewTTLCache[models.MTreasuryAggregate](seconds(t.AggregateTTLSeconds), clock),
		prices:       NewTTLCache[models.MPriceQuote](seconds(t.PriceTTLSeconds), clock),
		transactions: NewTTLCache[[]models.MTransfer](seconds(t.TransactionTTLSeconds), clock),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// -----------------------------------------------------------------------------
// Aggregate
// -----------------------------------------------------------------------------

// GetAggregate returns every configured wallet with balances and fiat values.
// A fresh cached aggregate is returned without touching any upstream. A price
// failure degrades to the last known price (or 0); a balance failure fails
// the whole aggregate.
func (a *Aggregator) GetAggregate() (*models.MTreasuryAggregate, error) {
	if cached, ok := a.aggregates.Get(singletonKey); ok {
		return cloneAggregate(cached), nil
	}

	price := a.price()

	wallets := make([]models.MWallet, len(a.Config.Wallets))
	g := new(errgroup.Group)
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}

	for i, w := range a.Config.Wallets {
		wallets[i] = models.MWallet{
			Address: w.Address,
			Name:    w.Name,
			Symbols: append([]string(nil), w.Symbols...),
		}

		g.Go(func() error {
			v, err := a.Chain.NativeBalance(w.Address, a.Config.NativeDecimals)
			if err != nil {
				return fmt.Errorf("native balance of %s: %w", w.Address, err)
			}
			wallets[i].NativeBalance = v
			return nil
		})

		if a.tracksToken(w) {
			g.Go(func() error {
				v, err := a.Chain.TokenBalance(a.Config.Token.Contract, w.Address, a.Config.Token.Decimals)
				if err != nil {
					return fmt.Errorf("token balance of %s: %w", w.Address, err)
				}
				wallets[i].TokenBalance = v
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, helpers.NewUpstreamFetchError("treasury aggregate", err)
	}

	agg := models.MTreasuryAggregate{Wallets: wallets, Price: price, CapturedAt: a.Clock.Now()}
	for i := range agg.Wallets {
		w := &agg.Wallets[i]
		w.NativeFiat = w.NativeBalance * price.Price
		w.TotalFiat = w.NativeFiat + w.TokenBalance*a.Config.Token.FiatPeg
		agg.TotalFiat += w.TotalFiat
	}
	a.aggregates.Put(singletonKey, agg)

	a.Logger.Debug("Aggregated %d wallets, total %.2f %s", len(agg.Wallets), agg.TotalFiat, a.Config.FiatCurrency)
	return cloneAggregate(agg), nil
}

// -----------------------------------------------------------------------------

// tracksToken reports whether w should be queried for the configured token.
// Wallets without a symbol list track every configured asset.
func (a *Aggregator) tracksToken(w models.MWalletConfig) bool {
	if a.Config.Token.Contract == "" {
		return false
	}
	if len(w.Symbols) == 0 {
		return true
	}
	for _, s := range w.Symbols {
		if strings.EqualFold(s, a.Config.Token.Symbol) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

func (a *Aggregator) price() models.MPriceQuote {
	if quote, ok := a.prices.Get(singletonKey); ok {
		return quote
	}

	value, err := a.Prices.Spot()
	if err != nil {
		if last, _, ok := a.prices.Last(singletonKey); ok {
			a.Logger.Warning("Price fetch failed, using last price %.4f from %s: %v", last.Price, last.FetchedAt.Format(time.RFC3339), err)
			last.Stale = true
			return last
		}
		a.Logger.Warning("Price fetch failed and no previous price, valuing at 0: %v", err)
		return models.MPriceQuote{
			Asset:    a.Prices.AssetID,
			Currency: a.Prices.Currency,
			Stale:    true,
		}
	}

	quote := models.MPriceQuote{
		Asset:     a.Prices.AssetID,
		Currency:  a.Prices.Currency,
		Price:     value,
		FetchedAt: a.Clock.Now(),
	}
	a.prices.Put(singletonKey, quote)
	return quote
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

// GetTransactions returns the newest transfers touching address, native and
// token merged. Either upstream failing fails the call.
func (a *Aggregator) GetTransactions(address string) ([]models.MTransfer, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return nil, helpers.NewInvalidRequest("address is required")
	}

	if cached, ok := a.transactions.Get(key); ok {
		return append([]models.MTransfer(nil), cached...), nil
	}

	var native, tokens []models.MTransfer
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		native, err = a.Explorer.NativeTransfers(key)
		return err
	})
	g.Go(func() error {
		var err error
		tokens, err = a.Explorer.TokenTransfers(key)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, helpers.NewUpstreamFetchError("transactions of "+key, err)
	}

	merged := MergeTransfers(a.Config.TransactionLimit, native, tokens)
	a.transactions.Put(key, merged)

	return append([]models.MTransfer(nil), merged...), nil
}

// -----------------------------------------------------------------------------

// MergeTransfers concatenates the lists, orders them newest first and keeps at
// most limit entries (limit <= 0 keeps everything).
func MergeTransfers(limit int, lists ...[]models.MTransfer) []models.MTransfer {
	var merged []models.MTransfer
	for _, l := range lists {
		merged = append(merged, l...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	if merged == nil {
		merged = []models.MTransfer{}
	}
	return merged
}

// -----------------------------------------------------------------------------

func cloneAggregate(agg models.MTreasuryAggregate) *models.MTreasuryAggregate {
	out := agg
	out.Wallets = make([]models.MWallet, len(agg.Wallets))
	for i, w := range agg.Wallets {
		w.Symbols = append([]string(nil), w.Symbols...)
		out.Wallets[i] = w
	}
	return &out
}
